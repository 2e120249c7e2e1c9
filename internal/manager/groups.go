package manager

import "context"

// Group is one collapsible section of the variable groups view.
type Group struct {
	Label       string
	ContextName string
	Open        bool
	Rows        []GroupRow
}

// GroupRow is a variable's value per environment.
type GroupRow struct {
	VarName string
	Dev     string
	Staging string
	Prod    string
}

// GroupColumns are the headers of a group table.
var GroupColumns = []string{"Variable", "dev", "staging", "prod"}

// Cells returns the row's values in GroupColumns order.
func (r GroupRow) Cells() []string {
	return []string{r.VarName, r.Dev, r.Staging, r.Prod}
}

// GroupSource supplies the variable groups view.
type GroupSource interface {
	Groups(ctx context.Context) ([]Group, error)
}

// PlaceholderGroupSource returns fixed demo groups. No backend exists for
// variable groups yet.
type PlaceholderGroupSource struct{}

func (PlaceholderGroupSource) Groups(context.Context) ([]Group, error) {
	rows := func() []GroupRow {
		return []GroupRow{
			{VarName: "APPLICATION_ID", Dev: "app-dev", Staging: "app-staging", Prod: "app-prod"},
			{VarName: "DATABASE_NAME", Dev: "db_dev", Staging: "db_staging", Prod: "db_prod"},
		}
	}
	return []Group{
		{Label: "Databases", ContextName: "env", Rows: rows()},
		{Label: "Environments", ContextName: "env", Open: true, Rows: rows()},
		{Label: "Applications", ContextName: "env", Rows: rows()},
	}, nil
}
