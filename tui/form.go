package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dopejs/varman/internal/manager"
	"github.com/dopejs/varman/internal/variable"
)

type formField int

const (
	fieldName formField = iota
	fieldValue
	fieldDescription
	fieldCount
)

// formModel is the create/edit drawer. The controller owns mode, request
// state and errors; this model only holds the text inputs.
type formModel struct {
	inputs [fieldCount]textinput.Model
	focus  formField
	mode   manager.FormMode
}

func newFormModel(fc *manager.FormController) formModel {
	var inputs [fieldCount]textinput.Model
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].CharLimit = 512
	}
	inputs[fieldName].Prompt = "  Name:         "
	inputs[fieldName].Placeholder = "e.g. DATABASE_HOST"
	inputs[fieldName].CharLimit = 128
	inputs[fieldValue].Prompt = "  Value:        "
	inputs[fieldValue].Placeholder = "optional"
	inputs[fieldDescription].Prompt = "  Description:  "
	inputs[fieldDescription].Placeholder = "optional"

	inputs[fieldName].SetValue(fc.Fields.Name)
	inputs[fieldValue].SetValue(fc.Fields.Value)
	inputs[fieldDescription].SetValue(fc.Fields.Description)

	m := formModel{inputs: inputs, mode: fc.Mode()}
	m.inputs[m.focus].Focus()
	return m
}

// values returns the fields as entered, keeping typ.
func (m formModel) values(typ string) manager.Fields {
	if typ == "" {
		typ = variable.TypeConstant
	}
	return manager.Fields{
		Name:        m.inputs[fieldName].Value(),
		Value:       m.inputs[fieldValue].Value(),
		Description: m.inputs[fieldDescription].Value(),
		Type:        typ,
	}
}

// move shifts focus by delta fields, wrapping around.
func (m formModel) move(delta int) formModel {
	m.inputs[m.focus].Blur()
	m.focus = formField((int(m.focus) + delta + int(fieldCount)) % int(fieldCount))
	m.inputs[m.focus].Focus()
	return m
}

func (m formModel) update(msg tea.Msg) (formModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "tab", "down":
			return m.move(1), textinput.Blink
		case "shift+tab", "up":
			return m.move(-1), textinput.Blink
		}
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m formModel) view(fc *manager.FormController, spin string) string {
	var b strings.Builder
	title := "New variable"
	if m.mode == manager.FormEdit {
		title = "Edit variable"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	for i := range m.inputs {
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("  Type:         " + fc.Fields.Type))
	b.WriteString("\n")
	if m.mode == manager.FormNew {
		b.WriteString(dimStyle.Render("  Names are saved upper-case with spaces as underscores."))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case fc.Pending():
		b.WriteString(spin + " Saving...")
	case fc.Err() != nil:
		b.WriteString(errorStyle.Render("✗ " + errorText(fc.Err())))
	default:
		b.WriteString(dimStyle.Render("Press " + saveKeyHint() + " to save"))
	}
	return drawerStyle.Render(b.String())
}
