package variable

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ImportReport summarizes a bulk import.
type ImportReport struct {
	Imported int // records produced
	Total    int // non-blank lines seen
	Skipped  []int
}

func (r ImportReport) String() string {
	return fmt.Sprintf("%d of %d lines imported", r.Imported, r.Total)
}

// ParseBulk parses KEY=VALUE lines. Each line is split on its first '='.
// Blank lines are ignored; lines without '=' or with a blank name are skipped
// and their 1-based line numbers recorded in the report. Every record gets a
// fresh uid, scope "org" and the given scope id.
func ParseBulk(content, scopeID string) ([]Variable, ImportReport) {
	var (
		vars   []Variable
		report ImportReport
	)
	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		report.Total++
		name, value, ok := strings.Cut(line, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			report.Skipped = append(report.Skipped, i+1)
			continue
		}
		vars = append(vars, Variable{
			UID:     uuid.NewString(),
			Name:    name,
			Value:   value,
			Scope:   ScopeOrg,
			ScopeID: scopeID,
		})
	}
	report.Imported = len(vars)
	return vars, report
}
