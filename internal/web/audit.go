package web

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditLevel is the severity of an audit entry.
type AuditLevel string

const (
	AuditInfo  AuditLevel = "info"
	AuditWarn  AuditLevel = "warn"
	AuditError AuditLevel = "error"
)

// AuditEntry records one request against the variables API.
type AuditEntry struct {
	Timestamp  time.Time  `json:"timestamp"`
	Level      AuditLevel `json:"level"`
	Action     string     `json:"action,omitempty"`
	UID        string     `json:"uid,omitempty"`
	Name       string     `json:"name,omitempty"`
	OrgID      string     `json:"org_id,omitempty"`
	UserID     string     `json:"user_id,omitempty"`
	Method     string     `json:"method,omitempty"`
	Path       string     `json:"path,omitempty"`
	StatusCode int        `json:"status_code,omitempty"`
	Message    string     `json:"message"`
	Error      string     `json:"error,omitempty"`
}

// AuditLog keeps recent entries in memory and appends every entry to a JSON
// lines file.
type AuditLog struct {
	mu         sync.Mutex
	file       *os.File
	entries    []AuditEntry
	maxEntries int
}

// NewAuditLog opens (or creates) the JSON lines file at path. An empty path
// keeps entries in memory only.
func NewAuditLog(path string, maxEntries int) (*AuditLog, error) {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	l := &AuditLog{
		entries:    make([]AuditEntry, 0, maxEntries),
		maxEntries: maxEntries,
	}
	if path == "" {
		return l, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	l.file = f
	return l, nil
}

// Close closes the file.
func (l *AuditLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Log records entry, stamping it with the current time.
func (l *AuditLog) Log(entry AuditEntry) {
	entry.Timestamp = time.Now()
	if entry.Level == "" {
		entry.Level = levelForStatus(entry.StatusCode)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) >= l.maxEntries {
		// keep the newest 80%
		keep := l.maxEntries * 8 / 10
		copy(l.entries, l.entries[len(l.entries)-keep:])
		l.entries = l.entries[:keep]
	}
	l.entries = append(l.entries, entry)

	if l.file != nil {
		if line, err := json.Marshal(entry); err == nil {
			l.file.Write(append(line, '\n'))
		}
	}
}

func levelForStatus(code int) AuditLevel {
	switch {
	case code >= 500:
		return AuditError
	case code >= 400:
		return AuditWarn
	}
	return AuditInfo
}

// Entries returns the in-memory entries matching filter, newest first.
func (l *AuditLog) Entries(filter AuditFilter) []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result []AuditEntry
	for _, e := range l.entries {
		if filter.Match(e) {
			result = append(result, e)
		}
	}
	return filter.finish(result)
}

// AuditFilter selects audit entries.
type AuditFilter struct {
	Action     string `json:"action,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	ErrorsOnly bool   `json:"errors_only,omitempty"` // warn and error levels
	Limit      int    `json:"limit,omitempty"`
}

// Match reports whether e passes the filter.
func (f AuditFilter) Match(e AuditEntry) bool {
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.ErrorsOnly && e.Level != AuditError && e.Level != AuditWarn {
		return false
	}
	return true
}

// finish reverses matched entries to newest first and applies the limit.
func (f AuditFilter) finish(entries []AuditEntry) []AuditEntry {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if f.Limit > 0 && len(entries) > f.Limit {
		entries = entries[:f.Limit]
	}
	if entries == nil {
		entries = []AuditEntry{}
	}
	return entries
}

// ReadAuditFile reads entries from a JSON lines file written by another
// process. A missing file yields no entries.
func ReadAuditFile(path string, filter AuditFilter) ([]AuditEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []AuditEntry{}, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []AuditEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue // skip malformed lines
		}
		if filter.Match(e) {
			entries = append(entries, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return filter.finish(entries), nil
}
