package manager

import (
	"fmt"

	"github.com/dopejs/varman/internal/variable"
)

// Columns are the table headers, in row order.
var Columns = []string{"Name", "Value", "Description", "Scope", "Scope ID", "Type"}

// Row is one table row. Edit and delete act on UID.
type Row struct {
	UID         string
	Name        string
	Value       string
	Description string
	Scope       string
	ScopeID     string
	Type        string
}

// Cells returns the row's values in Columns order.
func (r Row) Cells() []string {
	return []string{r.Name, r.Value, r.Description, r.Scope, r.ScopeID, r.Type}
}

// Rows maps variables to table rows.
func Rows(vars []variable.Variable, scope Scope) []Row {
	rows := make([]Row, 0, len(vars))
	for _, v := range vars {
		rows = append(rows, Row{
			UID:         v.UID,
			Name:        v.Name,
			Value:       v.Value,
			Description: v.Description,
			Scope:       v.Scope,
			ScopeID:     FormatScopeID(scope.Label, v.ScopeID),
			Type:        v.DisplayType(),
		})
	}
	return rows
}

// FormatScopeID renders a scope id as "<label> (id : <id>)".
func FormatScopeID(label, id string) string {
	return fmt.Sprintf("%s (id : %s)", label, id)
}
