package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dopejs/varman/internal/manager"
)

// groupsModel renders the variable groups tab as collapsible sections.
type groupsModel struct {
	groups []manager.Group
	cursor int
	loaded bool
	err    error
}

func (g groupsModel) setGroups(groups []manager.Group, err error) groupsModel {
	g.groups = groups
	g.err = err
	g.loaded = true
	if g.cursor >= len(groups) {
		g.cursor = 0
	}
	return g
}

func (g groupsModel) update(msg tea.KeyMsg) groupsModel {
	switch msg.String() {
	case "up", "k":
		if g.cursor > 0 {
			g.cursor--
		}
	case "down", "j":
		if g.cursor < len(g.groups)-1 {
			g.cursor++
		}
	case "enter", " ":
		if g.cursor < len(g.groups) {
			groups := make([]manager.Group, len(g.groups))
			copy(groups, g.groups)
			groups[g.cursor].Open = !groups[g.cursor].Open
			g.groups = groups
		}
	}
	return g
}

func (g groupsModel) view() string {
	switch {
	case g.err != nil:
		return errorStyle.Render("Failed to load variable groups: " + g.err.Error())
	case !g.loaded:
		return dimStyle.Render("Loading variable groups...")
	case len(g.groups) == 0:
		return "No variable groups."
	}

	var b strings.Builder
	for i, grp := range g.groups {
		marker := "▸"
		if grp.Open {
			marker = "▾"
		}
		header := fmt.Sprintf("%s %s", marker, grp.Label)
		style := tableRowStyle
		if i == g.cursor {
			style = tableSelectedRowStyle
		}
		b.WriteString(style.Render(header))
		b.WriteString(dimStyle.Render("  context: " + grp.ContextName))
		b.WriteString("\n")
		if grp.Open {
			b.WriteString(renderSection(grp.Label, groupTable(grp.Rows)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func groupTable(rows []manager.GroupRow) string {
	var b strings.Builder
	line := func(cells []string) string {
		return fmt.Sprintf("%-20s %-14s %-14s %-14s", cells[0], cells[1], cells[2], cells[3])
	}
	b.WriteString(sectionTitleStyle.Render(line(manager.GroupColumns)))
	for _, r := range rows {
		b.WriteString("\n")
		b.WriteString(line(r.Cells()))
	}
	return b.String()
}
