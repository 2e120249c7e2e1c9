package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dopejs/varman/internal/manager"
	"github.com/dopejs/varman/internal/variable"
	"github.com/dopejs/varman/tui"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the variables of a scope",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := openPage(cmd)
		if err != nil {
			return err
		}
		pattern, _ := cmd.Flags().GetString("filter")
		vars, err := variable.FilterByName(page.Store.Variables(), pattern)
		if err != nil {
			return fmt.Errorf("invalid filter %q: %w", pattern, err)
		}
		if len(vars) == 0 {
			fmt.Fprintln(stdout, "No variables.")
			return nil
		}
		rows := manager.Rows(vars, page.Scope)
		cells := make([][]string, len(rows))
		for i, r := range rows {
			cells[i] = r.Cells()
		}
		fmt.Fprintln(stdout, renderTable(manager.Columns, cells))
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add NAME [VALUE]",
	Short: "Create a variable",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := openPage(cmd)
		if err != nil {
			return err
		}
		desc, _ := cmd.Flags().GetString("description")

		form := page.Form
		form.OpenForCreate()
		form.Fields.Name = args[0]
		form.Fields.Description = desc
		if len(args) > 1 {
			form.Fields.Value = args[1]
		}
		if err := form.Submit(commandContext(cmd)); err != nil {
			return fmt.Errorf("failed to create variable: %w", err)
		}
		created := form.Saved()
		fmt.Fprintf(stdout, "Created %s (uid %s).\n", created.Name, created.UID)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit [UID|NAME]",
	Short: "Edit a variable",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := openPage(cmd)
		if err != nil {
			return err
		}
		v, err := pickVariable(page, args, "Edit variable")
		if err != nil {
			if errors.Is(err, tui.ErrCancelled) {
				return nil
			}
			return err
		}

		form := page.Form
		form.OpenForEdit(v)
		flags := cmd.Flags()
		if flags.Changed("name") {
			form.Fields.Name, _ = flags.GetString("name")
		}
		if flags.Changed("value") {
			form.Fields.Value, _ = flags.GetString("value")
		}
		if flags.Changed("description") {
			form.Fields.Description, _ = flags.GetString("description")
		}
		if form.Fields == (manager.Fields{Name: v.Name, Value: v.Value, Description: v.Description, Type: v.DisplayType()}) {
			form.Cancel()
			fmt.Fprintln(stdout, "Nothing to change.")
			return nil
		}
		if err := form.Submit(commandContext(cmd)); err != nil {
			return fmt.Errorf("failed to update variable: %w", err)
		}
		updated, _ := page.Store.Get(v.UID)
		fmt.Fprintf(stdout, "Updated %s.\n", updated.Name)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete [UID|NAME]",
	Aliases: []string{"rm"},
	Short:   "Delete a variable",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := openPage(cmd)
		if err != nil {
			return err
		}
		v, err := pickVariable(page, args, "Delete variable")
		if err != nil {
			if errors.Is(err, tui.ErrCancelled) {
				return nil
			}
			return err
		}

		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			ok, err := confirm(fmt.Sprintf("Delete '%s'? This cannot be undone.", v.Name))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(stdout, "Cancelled.")
				return nil
			}
		}

		page.Delete.RequestDelete(v)
		if err := page.Delete.Confirm(commandContext(cmd)); err != nil {
			return fmt.Errorf("failed to delete variable: %w", err)
		}
		fmt.Fprintf(stdout, "Deleted %s.\n", v.Name)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Create variables from KEY=VALUE lines",
	Long:  "Create one variable per KEY=VALUE line of FILE (\"-\" reads stdin). Lines without '=' are skipped.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := readInput(args[0])
		if err != nil {
			return err
		}
		scope, err := resolveScope(cmd)
		if err != nil {
			return err
		}
		vars, report := variable.ParseBulk(content, scope.ID)
		for _, line := range report.Skipped {
			fmt.Fprintf(stdout, "Skipped line %d.\n", line)
		}

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if dryRun {
			for _, v := range vars {
				fmt.Fprintf(stdout, "%s=%s\n", v.Name, v.Value)
			}
			fmt.Fprintln(stdout, report.String()+" (dry run)")
			return nil
		}

		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		var failed int
		for _, v := range vars {
			v.Scope = scope.Kind
			if _, err := svc.Create(ctx, v); err != nil {
				failed++
				fmt.Fprintf(stdout, "Failed to create %s: %v\n", v.Name, err)
			}
		}
		report.Imported -= failed
		fmt.Fprintln(stdout, report.String())
		if failed > 0 {
			return fmt.Errorf("%d variable(s) could not be created", failed)
		}
		return nil
	},
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Show variable groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		var src manager.GroupSource = manager.PlaceholderGroupSource{}
		groups, err := src.Groups(commandContext(cmd))
		if err != nil {
			return err
		}
		for i, g := range groups {
			if i > 0 {
				fmt.Fprintln(stdout)
			}
			fmt.Fprintf(stdout, "%s (%s)\n", g.Label, g.ContextName)
			cells := make([][]string, len(g.Rows))
			for j, r := range g.Rows {
				cells[j] = r.Cells()
			}
			fmt.Fprintln(stdout, renderTable(manager.GroupColumns, cells))
		}
		return nil
	},
}

func init() {
	listCmd.Flags().String("filter", "", "only show names matching a glob, e.g. 'DB_*'")
	addCmd.Flags().StringP("description", "d", "", "variable description")
	editCmd.Flags().String("name", "", "new name")
	editCmd.Flags().String("value", "", "new value")
	editCmd.Flags().StringP("description", "d", "", "new description")
	deleteCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	importCmd.Flags().Bool("dry-run", false, "parse and print without creating anything")
}

func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdinReader)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}
