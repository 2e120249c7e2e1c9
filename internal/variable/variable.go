// Package variable holds the Variable record shared by the page, the REST
// client and the backend, together with the pure helpers that operate on it.
package variable

import (
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Scope values. Scope is informational in the page; filtering is done on ScopeID.
const (
	ScopeUser   = "user"
	ScopeFolder = "folder"
	ScopeOrg    = "org"
)

// TypeConstant is the only variable type the form offers, and the display
// default for records without a type.
const TypeConstant = "constant"

// Variable is a named configuration entry.
type Variable struct {
	ID          string     `json:"id" yaml:"id,omitempty"`
	UID         string     `json:"uid" yaml:"uid"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description,omitempty"`
	Value       string     `json:"value" yaml:"value"`
	Type        string     `json:"type" yaml:"type,omitempty"`
	Scope       string     `json:"scope" yaml:"scope,omitempty"`
	ScopeID     string     `json:"scope_id" yaml:"scope_id,omitempty"`
	Props       string     `json:"props,omitempty" yaml:"-"`
	CreatedBy   string     `json:"created_by,omitempty" yaml:"-"`
	CreatedAt   *time.Time `json:"created_at,omitempty" yaml:"-"`
	UpdatedBy   string     `json:"updated_by,omitempty" yaml:"-"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" yaml:"-"`
}

// DisplayType returns the type, or "constant" when unset.
func (v Variable) DisplayType() string {
	if v.Type == "" {
		return TypeConstant
	}
	return v.Type
}

// NormalizeName upper-cases a name and replaces spaces with underscores.
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToUpper(name), " ", "_")
}

// FilterByScopeID keeps the variables owned by scopeID, preserving order.
func FilterByScopeID(vars []Variable, scopeID string) []Variable {
	out := make([]Variable, 0, len(vars))
	for _, v := range vars {
		if v.ScopeID == scopeID {
			out = append(out, v)
		}
	}
	return out
}

// FilterByName keeps the variables whose name matches a doublestar glob
// pattern. An empty pattern keeps everything.
func FilterByName(vars []Variable, pattern string) ([]Variable, error) {
	if pattern == "" {
		return vars, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, doublestar.ErrBadPattern
	}
	out := make([]Variable, 0, len(vars))
	for _, v := range vars {
		ok, err := doublestar.Match(pattern, v.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}
