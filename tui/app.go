// Package tui draws the variable management page in the terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dopejs/varman/internal/api"
	"github.com/dopejs/varman/internal/manager"
	"github.com/dopejs/varman/internal/variable"
)

type tab int

const (
	tabVariables tab = iota
	tabGroups
)

type overlay int

const (
	overlayNone overlay = iota
	overlayForm
	overlayDelete
	overlayImport
)

// Options configures the page.
type Options struct {
	Service   manager.Service
	Scope     manager.Scope
	Title     string // defaults to "Variables"
	ImportDir string // where the import file picker starts
}

// requests owns the contexts of in-flight requests. It is shared by every
// copy of the model.
type requests struct {
	root         context.Context
	cancelRoot   context.CancelFunc
	cancelLoad   context.CancelFunc
	cancelSubmit context.CancelFunc
	cancelDelete context.CancelFunc
}

func newRequests() *requests {
	ctx, cancel := context.WithCancel(context.Background())
	return &requests{root: ctx, cancelRoot: cancel}
}

// load returns a context for a new list fetch, cancelling the previous one.
func (r *requests) load() context.Context { return r.start(&r.cancelLoad) }

// submit returns a context for a form submit; abandonSubmit cancels it.
func (r *requests) submit() context.Context { return r.start(&r.cancelSubmit) }

// del returns a context for a confirmed delete; abandonDelete cancels it.
func (r *requests) del() context.Context { return r.start(&r.cancelDelete) }

func (r *requests) abandonSubmit() { stop(&r.cancelSubmit) }

func (r *requests) abandonDelete() { stop(&r.cancelDelete) }

func (r *requests) start(slot *context.CancelFunc) context.Context {
	stop(slot)
	ctx, cancel := context.WithCancel(r.root)
	*slot = cancel
	return ctx
}

func stop(slot *context.CancelFunc) {
	if *slot != nil {
		(*slot)()
		*slot = nil
	}
}

func (r *requests) ctx() context.Context { return r.root }

// close cancels every request still in flight.
func (r *requests) close() { r.cancelRoot() }

type model struct {
	svc       manager.Service
	page      *manager.Page
	requests  *requests
	title     string
	importDir string

	tab      tab
	overlay  overlay
	table    table.Model
	rowUIDs  []string
	form     formModel
	importer importModel
	groups   groupsModel
	spinner  spinner.Model
	help     help.Model

	status    string
	statusErr bool
	width     int
	height    int
}

func newModel(opts Options) model {
	title := opts.Title
	if title == "" {
		title = "Variables"
	}
	dir := opts.ImportDir
	if dir == "" {
		dir, _ = os.Getwd()
	}

	cols := make([]table.Column, len(manager.Columns))
	for i, c := range manager.Columns {
		cols[i] = table.Column{Title: c, Width: 12}
	}
	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(tableStyles())

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = warnStyle

	m := model{
		svc:       opts.Service,
		page:      manager.NewPage(opts.Service, opts.Scope),
		requests:  newRequests(),
		title:     title,
		importDir: dir,
		table:     t,
		spinner:   sp,
		help:      help.New(),
		width:     100,
		height:    30,
	}
	m.resize()
	return m
}

// Messages
type variablesLoadedMsg struct {
	token uint64
	vars  []variable.Variable
	err   error
}

type submitDoneMsg struct {
	sub    manager.Submission
	result variable.Variable
	err    error
}

type deleteDoneMsg struct {
	del manager.Deletion
	err error
}

type groupsLoadedMsg struct {
	groups []manager.Group
	err    error
}

type fileReadMsg struct {
	path    string
	content string
	err     error
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.startLoad(), m.spinner.Tick, m.loadGroups())
}

// startLoad begins a list fetch, superseding any fetch still in flight.
func (m *model) startLoad() tea.Cmd {
	ctx := m.requests.load()
	token := m.page.Store.BeginLoad()
	svc, scopeID := m.svc, m.page.Store.ScopeID()
	return func() tea.Msg {
		vars, err := svc.List(ctx, scopeID)
		return variablesLoadedMsg{token: token, vars: vars, err: err}
	}
}

func (m model) loadGroups() tea.Cmd {
	ctx, src := m.requests.ctx(), m.page.Groups
	return func() tea.Msg {
		groups, err := src.Groups(ctx)
		return groupsLoadedMsg{groups: groups, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.requests.close()
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case variablesLoadedMsg:
		return m.applyLoad(msg), nil
	case submitDoneMsg:
		return m.applySubmit(msg), nil
	case deleteDoneMsg:
		return m.applyDelete(msg), nil
	case groupsLoadedMsg:
		m.groups = m.groups.setGroups(msg.groups, msg.err)
		return m, nil
	case fileReadMsg:
		return m.applyFile(msg), nil
	}

	switch m.overlay {
	case overlayForm:
		return m.updateForm(msg)
	case overlayDelete:
		return m.updateDelete(msg)
	case overlayImport:
		return m.updateImport(msg)
	}
	if m.tab == tabGroups {
		return m.updateGroups(msg)
	}
	return m.updateVariables(msg)
}

func (m *model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

// errorText describes err for display.
func errorText(err error) string {
	var apiErr *api.APIError
	switch {
	case api.IsConnectionError(err):
		return "cannot reach the server: " + err.Error()
	case api.IsNotFound(err):
		return "variable no longer exists on the server (esc, then r to reload)"
	case errors.As(err, &apiErr):
		return apiErr.Error()
	}
	return err.Error()
}

// --- variables tab ---

func (m model) applyLoad(msg variablesLoadedMsg) model {
	err := m.page.Store.FinishLoad(msg.token, msg.vars, msg.err)
	if errors.Is(err, manager.ErrStaleResult) {
		return m
	}
	m.refreshTable()
	return m
}

// refreshTable rebuilds the table rows from the store.
func (m *model) refreshTable() {
	rows := m.page.Rows()
	tableRows := make([]table.Row, len(rows))
	m.rowUIDs = make([]string, len(rows))
	for i, r := range rows {
		tableRows[i] = table.Row(r.Cells())
		m.rowUIDs[i] = r.UID
	}
	m.table.SetRows(tableRows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func (m model) selectedUID() (string, bool) {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.rowUIDs) {
		return "", false
	}
	return m.rowUIDs[c], true
}

// resize fits the table columns to the terminal.
func (m *model) resize() {
	contentWidth, contentHeight, _, _ := LayoutDimensions(m.width, m.height)
	avail := contentWidth - 2*len(manager.Columns)
	if avail < 60 {
		avail = 60
	}
	pct := []int{20, 18, 22, 8, 22, 10}
	cols := make([]table.Column, len(manager.Columns))
	for i, c := range manager.Columns {
		cols[i] = table.Column{Title: c, Width: avail * pct[i] / 100}
	}
	m.table.SetColumns(cols)
	h := contentHeight - 8
	if h < 5 {
		h = 5
	}
	m.table.SetHeight(h)
	m.help.Width = m.width
}

func (m model) updateVariables(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Quit), msg.String() == "esc":
			m.requests.close()
			return m, tea.Quit
		case key.Matches(msg, keys.Add):
			m.page.Form.OpenForCreate()
			m.form = newFormModel(m.page.Form)
			m.overlay = overlayForm
			m.setStatus("", false)
			return m, textinput.Blink
		case key.Matches(msg, keys.Edit):
			if uid, ok := m.selectedUID(); ok && m.page.EditRow(uid) {
				m.form = newFormModel(m.page.Form)
				m.overlay = overlayForm
				m.setStatus("", false)
				return m, textinput.Blink
			}
			return m, nil
		case key.Matches(msg, keys.Delete):
			if uid, ok := m.selectedUID(); ok && m.page.DeleteRow(uid) {
				m.overlay = overlayDelete
				m.setStatus("", false)
			}
			return m, nil
		case key.Matches(msg, keys.Import):
			m.page.Import.Open()
			m.importer = newImportModel(m.importDir, m.height)
			m.overlay = overlayImport
			m.setStatus("", false)
			return m, m.importer.init()
		case key.Matches(msg, keys.Reload):
			m.setStatus("", false)
			return m, m.startLoad()
		case key.Matches(msg, keys.Tab):
			m.tab = tabGroups
			return m, nil
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) viewVariables() string {
	store := m.page.Store
	var b strings.Builder
	switch {
	case store.State() == manager.Loading && store.Len() == 0:
		b.WriteString(m.spinner.View() + " Loading variables...\n")
		return b.String()
	case store.State() == manager.LoadFailed:
		b.WriteString(errorStyle.Render("Failed to load variables: " + errorText(store.LoadError())))
		b.WriteString(dimStyle.Render("  (press r to retry)"))
		b.WriteString("\n\n")
	}
	if store.Len() == 0 {
		if store.State() == manager.Loaded {
			b.WriteString("No variables yet.\n")
			b.WriteString(dimStyle.Render("Press 'a' to add one or 'i' to import a file."))
			b.WriteString("\n")
		}
		return b.String()
	}
	b.WriteString(m.table.View())
	b.WriteString("\n")
	if store.State() == manager.Loading {
		b.WriteString(m.spinner.View() + dimStyle.Render(" refreshing"))
		b.WriteString("\n")
	}
	return b.String()
}

// --- form drawer ---

func (m model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, formKeys.Cancel):
			m.page.Form.Cancel()
			m.requests.abandonSubmit()
			m.overlay = overlayNone
			return m, nil
		case key.Matches(msg, formKeys.Submit),
			msg.String() == "enter" && m.form.focus == fieldCount-1:
			return m.submitForm()
		case msg.String() == "enter":
			m.form = m.form.move(1)
			return m, textinput.Blink
		}
	}
	var cmd tea.Cmd
	m.form, cmd = m.form.update(msg)
	return m, cmd
}

func (m model) submitForm() (tea.Model, tea.Cmd) {
	m.page.Form.Fields = m.form.values(m.page.Form.Fields.Type)
	sub, err := m.page.Form.BeginSubmit()
	if err != nil {
		// ErrNameRequired is shown from the controller; pending submits are ignored.
		return m, nil
	}
	ctx, svc := m.requests.submit(), m.svc
	return m, func() tea.Msg {
		result, err := sub.Execute(ctx, svc)
		return submitDoneMsg{sub: sub, result: result, err: err}
	}
}

func (m model) applySubmit(msg submitDoneMsg) model {
	err := m.page.Form.FinishSubmit(msg.sub, msg.result, msg.err)
	if err != nil {
		// stale results are dropped, failures stay in the open drawer
		return m
	}
	m.overlay = overlayNone
	verb := "Updated"
	if msg.sub.Mode == manager.FormNew {
		verb = "Created"
	}
	m.setStatus(fmt.Sprintf("%s %s", verb, msg.result.Name), false)
	m.refreshTable()
	return m
}

// --- delete confirmation ---

func (m model) updateDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "y", "Y":
		del, err := m.page.Delete.BeginConfirm()
		if err != nil {
			return m, nil
		}
		ctx, svc := m.requests.del(), m.svc
		return m, func() tea.Msg {
			return deleteDoneMsg{del: del, err: del.Execute(ctx, svc)}
		}
	case "n", "N", "esc":
		m.page.Delete.Cancel()
		m.requests.abandonDelete()
		m.overlay = overlayNone
	}
	return m, nil
}

func (m model) applyDelete(msg deleteDoneMsg) model {
	_, name := m.page.Delete.Target()
	if err := m.page.Delete.FinishConfirm(msg.del, msg.err); err != nil {
		return m
	}
	m.overlay = overlayNone
	m.setStatus("Deleted "+name, false)
	m.refreshTable()
	return m
}

func (m model) viewDelete() string {
	_, name := m.page.Delete.Target()
	var b strings.Builder
	b.WriteString(errorStyle.Bold(true).Render("Delete variable"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Are you sure you want to delete %q?\n", name))
	b.WriteString(dimStyle.Render("This cannot be undone."))
	b.WriteString("\n\n")
	switch {
	case m.page.Delete.Pending():
		b.WriteString(m.spinner.View() + " Deleting...")
	case m.page.Delete.Err() != nil:
		b.WriteString(errorStyle.Render("✗ " + errorText(m.page.Delete.Err())))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("y to retry • n to cancel"))
	default:
		b.WriteString("y delete • n cancel")
	}
	return modalStyle.Render(b.String())
}

// --- groups tab ---

func (m model) updateGroups(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, keys.Quit), keyMsg.String() == "esc":
		m.requests.close()
		return m, tea.Quit
	case key.Matches(keyMsg, keys.Tab):
		m.tab = tabVariables
		return m, nil
	case key.Matches(keyMsg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	m.groups = m.groups.update(keyMsg)
	return m, nil
}

// --- view ---

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	if m.page.Scope.Label != "" {
		b.WriteString(dimStyle.Render("  " + manager.FormatScopeID(m.page.Scope.Label, m.page.Scope.ID)))
	}
	b.WriteString("\n\n")
	b.WriteString(m.viewTabs())
	b.WriteString("\n\n")

	var helpText string
	switch m.overlay {
	case overlayForm:
		b.WriteString(m.form.view(m.page.Form, m.spinner.View()))
		helpText = m.help.View(formKeys)
	case overlayDelete:
		b.WriteString(m.viewDelete())
		helpText = "y confirm • n/esc cancel"
	case overlayImport:
		b.WriteString(m.importer.view(m.page.Import))
		helpText = "↑↓ browse • enter open/select • ctrl+s import • esc cancel"
	default:
		if m.tab == tabGroups {
			b.WriteString(m.groups.view())
		} else {
			b.WriteString(m.viewVariables())
		}
		helpText = m.help.View(keys)
	}

	if m.status != "" {
		b.WriteString("\n")
		if m.statusErr {
			b.WriteString(errorStyle.Render(m.status))
		} else {
			b.WriteString(successStyle.Render("✓ " + m.status))
		}
	}

	return padScreen(b.String(), m.height) + RenderHelpBar(helpText, m.width)
}

func (m model) viewTabs() string {
	names := []string{"Variables", "Variable groups"}
	var parts []string
	for i, n := range names {
		if tab(i) == m.tab {
			parts = append(parts, tabActiveStyle.Render(n))
		} else {
			parts = append(parts, tabInactiveStyle.Render(n))
		}
	}
	return strings.Join(parts, " ")
}

// Run opens the page and blocks until the user quits.
func Run(opts Options) error {
	m := newModel(opts)
	defer m.requests.close()
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
