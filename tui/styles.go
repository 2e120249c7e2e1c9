package tui

import (
	"runtime"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var isMac = runtime.GOOS == "darwin"

// saveKeyHint returns the save key hint for the current platform.
func saveKeyHint() string {
	if isMac {
		return "⌘+S"
	}
	return "ctrl+s"
}

// Layout constants
const (
	minContentWidth  = 80
	maxContentWidth  = 160
	contentWidthPct  = 85 // of terminal width
	horizontalMargin = 2
	verticalMargin   = 1
)

// LayoutDimensions returns contentWidth, contentHeight, leftPadding and
// topPadding for a terminal of the given size.
func LayoutDimensions(termWidth, termHeight int) (int, int, int, int) {
	contentWidth := termWidth * contentWidthPct / 100
	if contentWidth < minContentWidth {
		contentWidth = minContentWidth
	}
	if contentWidth > maxContentWidth {
		contentWidth = maxContentWidth
	}
	if contentWidth > termWidth-horizontalMargin*2 {
		contentWidth = termWidth - horizontalMargin*2
	}

	leftPadding := (termWidth - contentWidth) / 2
	if leftPadding < horizontalMargin {
		leftPadding = horizontalMargin
	}

	// -2 for the help bar
	contentHeight := termHeight - verticalMargin*2 - 2

	return contentWidth, contentHeight, leftPadding, verticalMargin
}

// Colors - soft, muted palette
var (
	primaryColor   = lipgloss.Color("109") // soft teal
	accentColor    = lipgloss.Color("146") // soft lavender
	successColor   = lipgloss.Color("108") // soft sage green
	errorColor     = lipgloss.Color("174") // soft coral
	warnColor      = lipgloss.Color("180") // soft sand
	dimColor       = lipgloss.Color("245") // light gray
	borderColor    = lipgloss.Color("240") // subtle gray
	headerBgColor  = lipgloss.Color("238") // dark gray bg
	helpBarBgColor = lipgloss.Color("236")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	warnStyle = lipgloss.NewStyle().
			Foreground(warnColor)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor)

	drawerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(1, 2)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(errorColor).
			Padding(1, 2)

	sectionTitleStyle = lipgloss.NewStyle().
				Foreground(primaryColor).
				Bold(true)

	tableRowStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	tableSelectedRowStyle = lipgloss.NewStyle().
				Foreground(accentColor).
				Bold(true)

	tabActiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(primaryColor).
				Padding(0, 1)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(dimColor).
				Background(headerBgColor).
				Padding(0, 1)
)

// tableStyles are the bubbles table styles in the page palette.
func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		Foreground(primaryColor).
		Bold(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(dimColor)
	s.Cell = s.Cell.Foreground(lipgloss.Color("252"))
	s.Selected = s.Selected.
		Foreground(accentColor).
		Background(headerBgColor).
		Bold(true)
	return s
}

// renderSection draws content in a box open at the top, under title.
func renderSection(title string, content string) string {
	titleRendered := sectionTitleStyle.Render("┌─ " + title + " ")
	box := lipgloss.NewStyle().
		Border(lipgloss.Border{
			Bottom:      "─",
			Left:        "│",
			Right:       "│",
			BottomLeft:  "└",
			BottomRight: "┘",
		}).
		BorderForeground(borderColor).
		Padding(0, 1).
		Render(content)
	return titleRendered + "\n" + box
}

// RenderHelpBar renders a full-width help bar at the bottom of the screen.
func RenderHelpBar(text string, termWidth int) string {
	helpBarStyle := lipgloss.NewStyle().
		Background(helpBarBgColor).
		Foreground(dimColor).
		PaddingLeft(2).
		Width(termWidth)

	return helpBarStyle.Render(text)
}

// padScreen indents every line of content and pads it to height, leaving the
// last line for the help bar.
func padScreen(content string, height int) string {
	const sidePadding = 2
	var view strings.Builder
	lines := strings.Split(content, "\n")
	for _, line := range lines {
		view.WriteString(strings.Repeat(" ", sidePadding))
		view.WriteString(line)
		view.WriteString("\n")
	}
	for i := 0; i < height-len(lines)-1; i++ {
		view.WriteString("\n")
	}
	return view.String()
}
