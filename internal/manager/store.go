package manager

import (
	"context"

	"github.com/dopejs/varman/internal/variable"
)

// LoadState is the state of the store's list fetch.
type LoadState int

const (
	LoadIdle LoadState = iota
	Loading
	Loaded
	LoadFailed
)

// Store holds the variables of one scope as last fetched or mutated.
// Entries are unique by uid.
type Store struct {
	svc     Service
	scopeID string
	vars    []variable.Variable
	state   LoadState
	err     error
	seq     uint64
}

// NewStore creates an empty store for the given scope id.
func NewStore(svc Service, scopeID string) *Store {
	return &Store{svc: svc, scopeID: scopeID}
}

// ScopeID returns the scope id loads are filtered on.
func (s *Store) ScopeID() string { return s.scopeID }

// State returns the load state.
func (s *Store) State() LoadState { return s.state }

// LoadError returns the error of the last failed load. The list keeps its
// previous contents when a load fails, so the caller can offer a retry.
func (s *Store) LoadError() error { return s.err }

// Len returns the number of variables held.
func (s *Store) Len() int { return len(s.vars) }

// Variables returns a copy of the list.
func (s *Store) Variables() []variable.Variable {
	out := make([]variable.Variable, len(s.vars))
	copy(out, s.vars)
	return out
}

// Get returns the variable with uid.
func (s *Store) Get(uid string) (variable.Variable, bool) {
	if i := s.index(uid); i >= 0 {
		return s.vars[i], true
	}
	return variable.Variable{}, false
}

// Load fetches the list and replaces the contents with the entries owned by
// the store's scope.
func (s *Store) Load(ctx context.Context) error {
	token := s.BeginLoad()
	vars, err := s.svc.List(ctx, s.scopeID)
	return s.FinishLoad(token, vars, err)
}

// BeginLoad marks a load as started and returns its token. Starting a new
// load supersedes any load still in flight.
func (s *Store) BeginLoad() uint64 {
	s.seq++
	s.state = Loading
	return s.seq
}

// FinishLoad applies the outcome of the load identified by token. Results of
// superseded loads are dropped with ErrStaleResult.
func (s *Store) FinishLoad(token uint64, vars []variable.Variable, err error) error {
	if token != s.seq {
		return ErrStaleResult
	}
	if err != nil {
		s.state = LoadFailed
		s.err = err
		return err
	}
	s.state = Loaded
	s.err = nil
	s.ReplaceAll(variable.FilterByScopeID(vars, s.scopeID))
	return nil
}

// Append adds v without re-fetching. A variable with the same uid is replaced
// in place.
func (s *Store) Append(v variable.Variable) {
	if i := s.index(v.UID); i >= 0 {
		s.vars[i] = v
		return
	}
	s.vars = append(s.vars, v)
}

// ReplaceAll swaps the whole list. Later duplicates of a uid win.
func (s *Store) ReplaceAll(vars []variable.Variable) {
	s.vars = make([]variable.Variable, 0, len(vars))
	for _, v := range vars {
		s.Append(v)
	}
}

// Replace swaps the entry with v.UID. It reports false when there is none.
func (s *Store) Replace(v variable.Variable) bool {
	i := s.index(v.UID)
	if i < 0 {
		return false
	}
	s.vars[i] = v
	return true
}

// Remove deletes the entry with uid. It reports false when there is none.
func (s *Store) Remove(uid string) bool {
	i := s.index(uid)
	if i < 0 {
		return false
	}
	s.vars = append(s.vars[:i:i], s.vars[i+1:]...)
	return true
}

func (s *Store) index(uid string) int {
	for i, v := range s.vars {
		if v.UID == uid {
			return i
		}
	}
	return -1
}
