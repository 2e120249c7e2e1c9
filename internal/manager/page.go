package manager

// Page wires the page components around one store.
type Page struct {
	Scope  Scope
	Store  *Store
	Form   *FormController
	Delete *DeleteFlow
	Import *ImportFlow
	Groups GroupSource
}

// NewPage creates the page for scope. Nothing is loaded until Store.Load.
func NewPage(svc Service, scope Scope) *Page {
	store := NewStore(svc, scope.ID)
	return &Page{
		Scope:  scope,
		Store:  store,
		Form:   NewFormController(svc, store, scope),
		Delete: NewDeleteFlow(svc, store),
		Import: NewImportFlow(store, scope.ID),
		Groups: PlaceholderGroupSource{},
	}
}

// Rows returns the table rows for the current store contents.
func (p *Page) Rows() []Row {
	return Rows(p.Store.Variables(), p.Scope)
}

// EditRow opens the form for the row with uid.
func (p *Page) EditRow(uid string) bool {
	v, ok := p.Store.Get(uid)
	if !ok {
		return false
	}
	p.Form.OpenForEdit(v)
	return true
}

// DeleteRow asks for confirmation to delete the row with uid.
func (p *Page) DeleteRow(uid string) bool {
	v, ok := p.Store.Get(uid)
	if !ok {
		return false
	}
	p.Delete.RequestDelete(v)
	return true
}

// Busy reports whether any action has a request in flight.
func (p *Page) Busy() bool {
	return p.Store.State() == Loading || p.Form.Pending() || p.Delete.Pending()
}

