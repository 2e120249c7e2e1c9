package manager

import (
	"context"

	"github.com/dopejs/varman/internal/variable"
)

// DeleteFlow is the confirm-delete modal: hidden, or confirming one uid.
type DeleteFlow struct {
	request
	store      *Store
	svc        Service
	confirming bool
	uid        string
	name       string
}

// NewDeleteFlow creates a hidden flow removing from store.
func NewDeleteFlow(svc Service, store *Store) *DeleteFlow {
	return &DeleteFlow{svc: svc, store: store}
}

// Confirming reports whether the modal is shown.
func (d *DeleteFlow) Confirming() bool { return d.confirming }

// Target returns the uid and name awaiting confirmation.
func (d *DeleteFlow) Target() (uid, name string) { return d.uid, d.name }

// RequestDelete shows the modal for v.
func (d *DeleteFlow) RequestDelete(v variable.Variable) {
	d.confirming = true
	d.uid = v.UID
	d.name = v.Name
	d.reset()
}

// Cancel hides the modal without calling the backend.
func (d *DeleteFlow) Cancel() {
	d.confirming = false
	d.uid = ""
	d.name = ""
	d.reset()
}

// Deletion is a confirmed delete waiting to be sent.
type Deletion struct {
	UID string
	gen uint64
}

// Execute sends the delete. It may run on any goroutine; the outcome is
// applied with DeleteFlow.FinishConfirm.
func (del Deletion) Execute(ctx context.Context, svc Service) error {
	return svc.Delete(ctx, del.UID)
}

// BeginConfirm marks the delete pending and returns it.
func (d *DeleteFlow) BeginConfirm() (Deletion, error) {
	if !d.confirming {
		return Deletion{}, ErrNothingToDelete
	}
	gen, err := d.begin()
	if err != nil {
		return Deletion{}, err
	}
	return Deletion{UID: d.uid, gen: gen}, nil
}

// FinishConfirm applies the outcome of del. Success removes exactly that uid
// from the store and hides the modal; failure keeps it shown with the error.
// Outcomes for a modal that has since been cancelled or reopened are dropped
// with ErrStaleResult.
func (d *DeleteFlow) FinishConfirm(del Deletion, err error) error {
	if !d.current(del.gen) {
		return ErrStaleResult
	}
	d.finish(err)
	if err != nil {
		return err
	}
	d.store.Remove(del.UID)
	d.confirming = false
	d.uid = ""
	d.name = ""
	return nil
}

// Confirm sends the delete and applies it in one call.
func (d *DeleteFlow) Confirm(ctx context.Context) error {
	del, err := d.BeginConfirm()
	if err != nil {
		return err
	}
	return d.FinishConfirm(del, del.Execute(ctx, d.svc))
}
