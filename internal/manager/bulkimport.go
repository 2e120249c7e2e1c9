package manager

import (
	"strings"

	"github.com/dopejs/varman/internal/variable"
)

// ImportFlow is the bulk import surface. Content is loaded from a dropped or
// picked file and merged into the store locally; nothing is sent.
type ImportFlow struct {
	store   *Store
	scopeID string
	open    bool
	content string
	report  *variable.ImportReport
}

// NewImportFlow creates a closed import surface for store. Imported records
// get scopeID.
func NewImportFlow(store *Store, scopeID string) *ImportFlow {
	return &ImportFlow{store: store, scopeID: scopeID}
}

// Open shows the surface with no content.
func (f *ImportFlow) Open() {
	f.open = true
	f.content = ""
}

// Close hides the surface and drops the loaded content.
func (f *ImportFlow) Close() {
	f.open = false
	f.content = ""
}

// IsOpen reports whether the surface is shown.
func (f *ImportFlow) IsOpen() bool { return f.open }

// LoadContent stores the raw text of a file.
func (f *ImportFlow) LoadContent(text string) { f.content = text }

// Content returns the loaded text.
func (f *ImportFlow) Content() string { return f.content }

// CanImport reports whether there is content to import.
func (f *ImportFlow) CanImport() bool { return strings.TrimSpace(f.content) != "" }

// LastReport returns the report of the most recent import, if any.
func (f *ImportFlow) LastReport() (variable.ImportReport, bool) {
	if f.report == nil {
		return variable.ImportReport{}, false
	}
	return *f.report, true
}

// Import parses the loaded content, appends every valid record to the store
// and closes the surface.
func (f *ImportFlow) Import() (variable.ImportReport, error) {
	if !f.CanImport() {
		return variable.ImportReport{}, ErrNoContent
	}
	vars, report := variable.ParseBulk(f.content, f.scopeID)
	for _, v := range vars {
		f.store.Append(v)
	}
	f.report = &report
	f.Close()
	return report, nil
}
