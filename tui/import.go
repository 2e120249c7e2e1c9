package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dopejs/varman/internal/manager"
)

// importModel is the bulk import surface: a file picker standing in for the
// drop zone, then a preview of the picked file.
type importModel struct {
	picker filepicker.Model
	path   string
	lines  int
	err    error
}

func newImportModel(dir string, termHeight int) importModel {
	fp := filepicker.New()
	fp.CurrentDirectory = dir
	fp.ShowHidden = true // .env files
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.AutoHeight = false
	h := termHeight - 16
	if h < 6 {
		h = 6
	}
	fp.Height = h
	return importModel{picker: fp}
}

func (im importModel) init() tea.Cmd {
	return im.picker.Init()
}

func readFileCmd(path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		return fileReadMsg{path: path, content: string(data), err: err}
	}
}

func (m model) updateImport(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.page.Import.Close()
			m.overlay = overlayNone
			return m, nil
		case "ctrl+s", "cmd+s":
			report, err := m.page.Import.Import()
			if err != nil {
				m.importer.err = err
				return m, nil
			}
			m.overlay = overlayNone
			m.setStatus(report.String(), false)
			m.refreshTable()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.importer.picker, cmd = m.importer.picker.Update(msg)
	if ok, path := m.importer.picker.DidSelectFile(msg); ok {
		return m, tea.Batch(cmd, readFileCmd(path))
	}
	return m, cmd
}

func (m model) applyFile(msg fileReadMsg) model {
	if m.overlay != overlayImport {
		return m
	}
	m.importer.path = msg.path
	if msg.err != nil {
		m.importer.err = msg.err
		return m
	}
	m.importer.err = nil
	m.page.Import.LoadContent(msg.content)
	m.importer.lines = countLines(msg.content)
	return m
}

func countLines(content string) int {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func (im importModel) view(flow *manager.ImportFlow) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Import variables"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Pick a file of KEY=VALUE lines. Lines without '=' are skipped."))
	b.WriteString("\n\n")
	b.WriteString(im.picker.View())
	b.WriteString("\n")

	switch {
	case im.err != nil:
		b.WriteString(errorStyle.Render("✗ " + im.err.Error()))
	case flow.CanImport():
		b.WriteString(successStyle.Render(fmt.Sprintf("%s: %d lines ready", im.path, im.lines)))
		b.WriteString(dimStyle.Render("  (ctrl+s to import)"))
	default:
		b.WriteString(dimStyle.Render("No file selected"))
		if last, ok := flow.LastReport(); ok {
			b.WriteString(dimStyle.Render("  (last import: " + last.String() + ")"))
		}
	}
	return drawerStyle.Render(b.String())
}
