package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dopejs/varman/internal/api"
	"github.com/dopejs/varman/internal/config"
	"github.com/dopejs/varman/internal/manager"
	"github.com/dopejs/varman/internal/variable"
	"github.com/dopejs/varman/tui"
	"github.com/spf13/cobra"
)

// stdinReader is the reader used for interactive prompts. Tests can replace it.
var stdinReader io.Reader = os.Stdin

// stdout receives command output. Tests can replace it.
var stdout io.Writer = os.Stdout

var Version = "0.3.0"

// newService builds the backend client. Tests replace it with a fake.
var newService = func(cmd *cobra.Command) (manager.Service, error) {
	settings := config.Current()
	server, _ := cmd.Flags().GetString("server")
	if server == "" {
		server = settings.ServerURL
	}
	if server == "" {
		return nil, fmt.Errorf("no server configured. Run 'varman config set server_url <url>'")
	}
	return api.New(api.Config{
		BaseURL: server,
		OrgID:   settings.OrgID,
		UserID:  settings.UserID,
	}, nil), nil
}

var rootCmd = &cobra.Command{
	Use:           "varman",
	Short:         "Manage variables for an organization, user or folder",
	Long:          "Open the variable management page, or manage variables from the command line.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPage,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("scope", variable.ScopeOrg, "variable scope: org, user or folder")
	pf.String("scope-id", "", "scope id (defaults to the configured org_id or user_id)")
	pf.String("server", "", "backend base URL (overrides server_url)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}

func Execute() error {
	return rootCmd.Execute()
}

func runPage(cmd *cobra.Command, args []string) error {
	scope, err := resolveScope(cmd)
	if err != nil {
		return err
	}
	svc, err := newService(cmd)
	if err != nil {
		return err
	}
	dir, _ := os.Getwd()
	return tui.Run(tui.Options{
		Service:   svc,
		Scope:     scope,
		Title:     pageTitle(scope.Kind),
		ImportDir: dir,
	})
}

// resolveScope turns the --scope and --scope-id flags into the page scope.
func resolveScope(cmd *cobra.Command) (manager.Scope, error) {
	settings := config.Current()
	kind, _ := cmd.Flags().GetString("scope")
	id, _ := cmd.Flags().GetString("scope-id")
	kind = strings.ToLower(strings.TrimSpace(kind))

	scope := manager.Scope{Kind: kind, ID: strings.TrimSpace(id)}
	switch kind {
	case variable.ScopeOrg, "":
		scope.Kind = variable.ScopeOrg
		if scope.ID == "" {
			scope.ID = settings.OrgID
		}
		scope.Label = settings.OrgName
	case variable.ScopeUser:
		if scope.ID == "" {
			scope.ID = settings.UserID
		}
		scope.Label = settings.UserLogin
	case variable.ScopeFolder:
		scope.Label = "Folder"
	default:
		return manager.Scope{}, fmt.Errorf("unknown scope %q (want org, user or folder)", kind)
	}
	if scope.ID == "" {
		return manager.Scope{}, fmt.Errorf("%s scope needs --scope-id", scope.Kind)
	}
	if scope.Label == "" {
		scope.Label = scope.ID
	}
	return scope, nil
}

func pageTitle(kind string) string {
	switch kind {
	case variable.ScopeUser:
		return "User variables"
	case variable.ScopeFolder:
		return "Folder variables"
	}
	return "Global variables"
}

// openPage resolves the scope, connects and loads the page's store.
func openPage(cmd *cobra.Command) (*manager.Page, error) {
	scope, err := resolveScope(cmd)
	if err != nil {
		return nil, err
	}
	svc, err := newService(cmd)
	if err != nil {
		return nil, err
	}
	page := manager.NewPage(svc, scope)
	if err := page.Store.Load(commandContext(cmd)); err != nil {
		return nil, fmt.Errorf("failed to load variables: %w", err)
	}
	return page, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// findVariable looks a variable up by uid, then by name.
func findVariable(page *manager.Page, ref string) (variable.Variable, error) {
	ref = strings.TrimSpace(ref)
	if v, ok := page.Store.Get(ref); ok {
		return v, nil
	}
	name := variable.NormalizeName(ref)
	var matches []variable.Variable
	for _, v := range page.Store.Variables() {
		if v.Name == name {
			matches = append(matches, v)
		}
	}
	switch len(matches) {
	case 0:
		return variable.Variable{}, fmt.Errorf("variable '%s' not found", ref)
	case 1:
		return matches[0], nil
	}
	return variable.Variable{}, fmt.Errorf("'%s' matches %d variables, use the uid", ref, len(matches))
}

// pickVariable returns the variable named by args[0], or lets the user choose one.
func pickVariable(page *manager.Page, args []string, title string) (variable.Variable, error) {
	if len(args) > 0 {
		return findVariable(page, args[0])
	}
	uid, err := tui.SelectVariable(title, page.Store.Variables())
	if err != nil {
		return variable.Variable{}, err
	}
	v, ok := page.Store.Get(uid)
	if !ok {
		return variable.Variable{}, fmt.Errorf("variable '%s' not found", uid)
	}
	return v, nil
}

func confirm(prompt string) (bool, error) {
	fmt.Fprintf(stdout, "%s (y/n): ", prompt)
	reader := bufio.NewReader(stdinReader)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read input: %w", err)
	}
	answer := strings.TrimSpace(strings.ToLower(line))
	return answer == "y" || answer == "yes", nil
}
