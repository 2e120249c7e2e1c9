// Package manager is the variable management page, independent of how it is
// drawn: a store of the scope's variables, the create/edit form, the delete
// confirmation, bulk import and the table rows derived from the store.
//
// The types are not safe for concurrent use. Network work is split into
// Begin/Execute/Finish steps so an event loop can run Execute off-thread and
// apply the result on its own goroutine.
package manager

import (
	"context"
	"errors"

	"github.com/dopejs/varman/internal/variable"
)

//go:generate mockgen -source=service.go -destination=mock_service_test.go -package=manager

// Service is the backend the page reads from and writes to.
type Service interface {
	List(ctx context.Context, scopeID string) ([]variable.Variable, error)
	Create(ctx context.Context, v variable.Variable) (variable.Variable, error)
	Update(ctx context.Context, v variable.Variable) error
	Delete(ctx context.Context, uid string) error
}

var (
	ErrNameRequired    = errors.New("name is required")
	ErrRequestPending  = errors.New("a request is already in progress")
	ErrFormClosed      = errors.New("form is not open")
	ErrNothingToDelete = errors.New("no deletion is being confirmed")
	ErrNoContent       = errors.New("nothing to import")
	ErrStaleResult     = errors.New("result no longer applies")
)

// Scope is the ownership boundary the page is showing.
type Scope struct {
	Kind  string // variable.ScopeOrg, ScopeUser or ScopeFolder
	ID    string // the scope_id loads are filtered on
	Label string // e.g. the organization name, for display
}

// RequestState tracks one action's request: idle → pending → succeeded | failed.
type RequestState int

const (
	RequestIdle RequestState = iota
	RequestPending
	RequestSucceeded
	RequestFailed
)

func (s RequestState) String() string {
	switch s {
	case RequestPending:
		return "pending"
	case RequestSucceeded:
		return "succeeded"
	case RequestFailed:
		return "failed"
	}
	return "idle"
}

// request is embedded by each action to carry its state and last error.
// gen identifies the request in flight; begin and reset advance it, so the
// outcome of an abandoned request never matches a later one.
type request struct {
	state RequestState
	err   error
	gen   uint64
}

func (r *request) begin() (uint64, error) {
	if r.state == RequestPending {
		return 0, ErrRequestPending
	}
	r.gen++
	r.state = RequestPending
	r.err = nil
	return r.gen, nil
}

// current reports whether gen is the request still in flight.
func (r *request) current(gen uint64) bool {
	return r.state == RequestPending && gen == r.gen
}

func (r *request) finish(err error) {
	if err != nil {
		r.state = RequestFailed
		r.err = err
		return
	}
	r.state = RequestSucceeded
	r.err = nil
}

func (r *request) reset() {
	r.gen++
	r.state = RequestIdle
	r.err = nil
}

// State returns the request state of the action.
func (r *request) State() RequestState { return r.state }

// Err returns the error of the last failed request, if any.
func (r *request) Err() error { return r.err }

// Pending reports whether a request is in flight.
func (r *request) Pending() bool { return r.state == RequestPending }
