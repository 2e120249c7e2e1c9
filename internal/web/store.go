package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/dopejs/varman/internal/config"
	"github.com/dopejs/varman/internal/variable"
)

var (
	errNotFound    = errors.New("variable not found")
	errNameMissing = errors.New("name is required")
	errInvalidJSON = errors.New("invalid JSON")
)

// VariableStore is the backend's variable collection. It is optionally backed
// by a JSON file that is rewritten after every mutation.
type VariableStore struct {
	mu      sync.RWMutex
	vars    []variable.Variable
	path    string
	modTime time.Time
}

// NewVariableStore creates a store. When path is non-empty the file is loaded
// if it exists.
func NewVariableStore(path string) (*VariableStore, error) {
	s := &VariableStore{path: path}
	if path == "" {
		return s, nil
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the data file path, empty for a memory-only store.
func (s *VariableStore) Path() string { return s.path }

// Reload re-reads the data file. A missing file yields an empty collection.
func (s *VariableStore) Reload() error {
	if s.path == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *VariableStore) loadLocked() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.vars = nil
			s.modTime = time.Time{}
			return nil
		}
		return fmt.Errorf("read data file: %w", err)
	}
	var vars []variable.Variable
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &vars); err != nil {
			return fmt.Errorf("parse data file: %w", err)
		}
	}
	s.vars = vars
	if info, err := os.Stat(s.path); err == nil {
		s.modTime = info.ModTime()
	}
	return nil
}

func (s *VariableStore) saveLocked() error {
	if s.path == "" {
		return nil
	}
	vars := s.vars
	if vars == nil {
		vars = []variable.Variable{}
	}
	data, err := json.MarshalIndent(vars, "", "  ")
	if err != nil {
		return err
	}
	if err := config.WriteFileAtomic(s.path, data); err != nil {
		return err
	}
	if info, err := os.Stat(s.path); err == nil {
		s.modTime = info.ModTime()
	}
	return nil
}

// changedOnDisk reports whether the file differs from what was last read or
// written.
func (s *VariableStore) changedOnDisk() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, err := os.Stat(s.path)
	if err != nil {
		return !s.modTime.IsZero()
	}
	return !info.ModTime().Equal(s.modTime)
}

// Len returns the number of variables held.
func (s *VariableStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vars)
}

// List returns the variables, restricted to scopeID when it is non-empty.
func (s *VariableStore) List(scopeID string) []variable.Variable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if scopeID != "" {
		return variable.FilterByScopeID(s.vars, scopeID)
	}
	out := make([]variable.Variable, len(s.vars))
	copy(out, s.vars)
	return out
}

// Create stores v under a fresh uid. Scope defaults to org and scope_id to
// orgID.
func (s *VariableStore) Create(v variable.Variable, orgID, userID string) (variable.Variable, error) {
	if strings.TrimSpace(v.Name) == "" {
		return variable.Variable{}, errNameMissing
	}
	now := time.Now().UTC()
	v.UID = uuid.NewString()
	if v.Scope == "" {
		v.Scope = variable.ScopeOrg
	}
	if v.ScopeID == "" {
		v.ScopeID = orgID
	}
	v.CreatedBy = userID
	v.CreatedAt = &now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars = append(s.vars, v)
	if err := s.saveLocked(); err != nil {
		s.vars = s.vars[:len(s.vars)-1]
		return variable.Variable{}, fmt.Errorf("save data file: %w", err)
	}
	return v, nil
}

// Update decodes patch over the record with uid. The uid never changes.
func (s *VariableStore) Update(uid string, patch []byte, userID string) (variable.Variable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(uid)
	if i < 0 {
		return variable.Variable{}, errNotFound
	}
	prev := s.vars[i]
	next := prev
	// fresh pointers so decoding a timestamp never writes through to prev
	next.CreatedAt = cloneTime(prev.CreatedAt)
	next.UpdatedAt = cloneTime(prev.UpdatedAt)
	if err := json.Unmarshal(patch, &next); err != nil {
		return variable.Variable{}, fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	now := time.Now().UTC()
	next.UID = prev.UID
	next.UpdatedAt = &now
	next.UpdatedBy = userID
	s.vars[i] = next
	if err := s.saveLocked(); err != nil {
		s.vars[i] = prev
		return variable.Variable{}, fmt.Errorf("save data file: %w", err)
	}
	return next, nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Delete removes the record whose uid matches after trimming, ignoring case.
func (s *VariableStore) Delete(uid string) (variable.Variable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(uid)
	if i < 0 {
		return variable.Variable{}, errNotFound
	}
	prev := s.vars
	removed := s.vars[i]
	s.vars = append(s.vars[:i:i], s.vars[i+1:]...)
	if err := s.saveLocked(); err != nil {
		s.vars = prev
		return variable.Variable{}, fmt.Errorf("save data file: %w", err)
	}
	return removed, nil
}

func (s *VariableStore) indexLocked(uid string) int {
	uid = strings.TrimSpace(uid)
	for i, v := range s.vars {
		if strings.EqualFold(strings.TrimSpace(v.UID), uid) {
			return i
		}
	}
	return -1
}

// Watch reloads the store when the data file is changed by another process.
// Writes made by the store itself are ignored. It blocks until ctx is done.
func (s *VariableStore) Watch(ctx context.Context, logger *log.Logger, onReload func()) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: atomic saves replace the file, which drops a
	// watch placed on the file itself.
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	name := filepath.Clean(s.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if !s.changedOnDisk() {
				continue
			}
			if err := s.Reload(); err != nil {
				logger.Printf("reload %s: %v", s.path, err)
				continue
			}
			logger.Printf("reloaded %s (%d variables)", s.path, s.Len())
			if onReload != nil {
				onReload()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Printf("watch error: %v", err)
		}
	}
}
