package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dopejs/varman/internal/variable"
)

// ErrCancelled is returned when the user leaves a picker without choosing.
var ErrCancelled = errors.New("cancelled")

type selectorItem struct {
	label string
	value string
	hint  string
}

// selectorModel picks one item. Typing narrows the list to labels
// containing the query.
type selectorModel struct {
	title     string
	items     []selectorItem
	query     string
	visible   []int // indexes into items matching query
	cursor    int   // index into visible
	selected  string
	cancelled bool
	width     int
	height    int
}

func newSelectorModel(title string, items []selectorItem) selectorModel {
	m := selectorModel{title: title, items: items, width: 80, height: 24}
	m.filter()
	return m
}

func (m *selectorModel) filter() {
	q := strings.ToLower(m.query)
	m.visible = nil
	for i, item := range m.items {
		if q == "" || strings.Contains(strings.ToLower(item.label), q) {
			m.visible = append(m.visible, i)
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
}

func (m selectorModel) Init() tea.Cmd {
	return nil
}

func (m selectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyUp:
			if m.cursor > 0 {
				m.cursor--
			}
		case tea.KeyDown:
			if m.cursor < len(m.visible)-1 {
				m.cursor++
			}
		case tea.KeyEnter:
			if len(m.visible) > 0 {
				m.selected = m.items[m.visible[m.cursor]].value
				return m, tea.Quit
			}
		case tea.KeyBackspace:
			if m.query != "" {
				r := []rune(m.query)
				m.query = string(r[:len(r)-1])
				m.filter()
			}
		case tea.KeySpace:
			m.query += " "
			m.filter()
		case tea.KeyRunes:
			m.query += string(msg.Runes)
			m.filter()
		}
	}
	return m, nil
}

func (m selectorModel) View() string {
	var b strings.Builder
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(primaryColor).
		Background(headerBgColor).
		Padding(0, 2).
		Render("☰ " + m.title)
	b.WriteString(header + "\n\n")
	if m.query != "" {
		b.WriteString(dimStyle.Render("filter: ") + m.query + "\n\n")
	}

	lines := make([]string, 0, len(m.visible))
	for i, idx := range m.visible {
		item := m.items[idx]
		line := tableRowStyle.Render("  " + item.label)
		if i == m.cursor {
			line = tableSelectedRowStyle.Render("▸ " + item.label)
		}
		if item.hint != "" {
			line += dimStyle.Render("  " + item.hint)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = append(lines, dimStyle.Render("no match"))
	}
	b.WriteString(lipgloss.NewStyle().
		Border(lipgloss.ThickBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Render(strings.Join(lines, "\n")))

	return padScreen(b.String(), m.height) + RenderHelpBar("type to filter • ↑↓ move • Enter select • Esc cancel", m.width)
}

func runSelector(title string, items []selectorItem) (string, error) {
	result, err := tea.NewProgram(newSelectorModel(title, items)).Run()
	if err != nil {
		return "", err
	}
	sm := result.(selectorModel)
	if sm.cancelled {
		return "", ErrCancelled
	}
	return sm.selected, nil
}

// SelectVariable lets the user pick one of vars and returns its uid.
func SelectVariable(title string, vars []variable.Variable) (string, error) {
	if len(vars) == 0 {
		return "", fmt.Errorf("no variables in this scope")
	}
	items := make([]selectorItem, len(vars))
	for i, v := range vars {
		items[i] = selectorItem{label: v.Name, value: v.UID, hint: v.Value}
	}
	return runSelector(title, items)
}
