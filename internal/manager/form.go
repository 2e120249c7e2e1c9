package manager

import (
	"context"
	"strings"

	"github.com/dopejs/varman/internal/variable"
)

// FormMode is the state of the create/edit form.
type FormMode int

const (
	FormClosed FormMode = iota
	FormNew
	FormEdit
)

// Fields are the editable fields of the form.
type Fields struct {
	Name        string
	Value       string
	Description string
	Type        string
}

// Submission is a validated form payload waiting to be sent.
type Submission struct {
	Mode     FormMode
	Variable variable.Variable
	gen      uint64
}

// Execute sends the submission. It only talks to the backend and may run on
// any goroutine; the result is applied with FormController.FinishSubmit.
func (sub Submission) Execute(ctx context.Context, svc Service) (variable.Variable, error) {
	if sub.Mode == FormNew {
		return svc.Create(ctx, sub.Variable)
	}
	if err := svc.Update(ctx, sub.Variable); err != nil {
		return variable.Variable{}, err
	}
	return sub.Variable, nil
}

// FormController drives the create/edit form: closed, open for a new
// variable, or open editing an existing uid.
type FormController struct {
	request
	store  *Store
	svc    Service
	scope  Scope
	mode   FormMode
	uid    string
	orig   variable.Variable
	last   variable.Variable
	Fields Fields
}

// NewFormController creates a closed form writing into store.
func NewFormController(svc Service, store *Store, scope Scope) *FormController {
	return &FormController{svc: svc, store: store, scope: scope}
}

// Mode returns the form state.
func (f *FormController) Mode() FormMode { return f.mode }

// UID returns the uid being edited, empty unless Mode is FormEdit.
func (f *FormController) UID() string { return f.uid }

// Saved returns the record stored by the last successful submit.
func (f *FormController) Saved() variable.Variable { return f.last }

// OpenForCreate resets the fields and opens the form for a new variable.
func (f *FormController) OpenForCreate() {
	f.mode = FormNew
	f.uid = ""
	f.orig = variable.Variable{}
	f.Fields = Fields{Type: variable.TypeConstant}
	f.reset()
}

// OpenForEdit opens the form pre-populated from v.
func (f *FormController) OpenForEdit(v variable.Variable) {
	f.mode = FormEdit
	f.uid = v.UID
	f.orig = v
	f.Fields = Fields{
		Name:        v.Name,
		Value:       v.Value,
		Description: v.Description,
		Type:        v.DisplayType(),
	}
	f.reset()
}

// Cancel closes the form and discards the fields. The store is not touched.
// A request still in flight is abandoned; its result will be dropped.
func (f *FormController) Cancel() {
	f.mode = FormClosed
	f.uid = ""
	f.orig = variable.Variable{}
	f.Fields = Fields{}
	f.reset()
}

// BeginSubmit validates the fields and marks the request pending. No request
// may be sent when it returns an error.
func (f *FormController) BeginSubmit() (Submission, error) {
	if f.mode == FormClosed {
		return Submission{}, ErrFormClosed
	}
	if f.Pending() {
		return Submission{}, ErrRequestPending
	}
	name := strings.TrimSpace(f.Fields.Name)
	if name == "" {
		f.state = RequestFailed
		f.err = ErrNameRequired
		return Submission{}, ErrNameRequired
	}
	typ := f.Fields.Type
	if typ == "" {
		typ = variable.TypeConstant
	}

	sub := Submission{Mode: f.mode}
	if f.mode == FormNew {
		sub.Variable = variable.Variable{
			Name:        variable.NormalizeName(name),
			Description: f.Fields.Description,
			Value:       f.Fields.Value,
			Type:        typ,
			Scope:       f.scope.Kind,
			ScopeID:     f.scope.ID,
		}
	} else {
		v := f.orig
		v.Name = name
		v.Description = f.Fields.Description
		v.Value = f.Fields.Value
		v.Type = typ
		sub.Variable = v
	}
	gen, err := f.begin()
	if err != nil {
		return Submission{}, err
	}
	sub.gen = gen
	return sub, nil
}

// FinishSubmit applies the outcome of sub. On success the store gets the
// created record or the edited one and the form closes; on failure the form
// stays open with the error. Outcomes for a form that has since been
// cancelled or reopened are dropped with ErrStaleResult.
func (f *FormController) FinishSubmit(sub Submission, result variable.Variable, err error) error {
	if !f.current(sub.gen) {
		return ErrStaleResult
	}
	f.finish(err)
	if err != nil {
		return err
	}
	if sub.Mode == FormNew {
		f.store.Append(result)
	} else if !f.store.Replace(result) {
		f.store.Append(result)
	}
	f.last = result
	f.mode = FormClosed
	f.uid = ""
	f.orig = variable.Variable{}
	f.Fields = Fields{}
	return nil
}

// Submit validates, sends and applies the form in one call.
func (f *FormController) Submit(ctx context.Context) error {
	sub, err := f.BeginSubmit()
	if err != nil {
		return err
	}
	result, err := sub.Execute(ctx, f.svc)
	return f.FinishSubmit(sub, result, err)
}
