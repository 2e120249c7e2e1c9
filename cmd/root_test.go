package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dopejs/varman/internal/api"
	"github.com/dopejs/varman/internal/config"
	"github.com/dopejs/varman/internal/manager"
	"github.com/dopejs/varman/internal/variable"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func setTestHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	config.ResetDefaultStore()
	t.Cleanup(func() { config.ResetDefaultStore() })
	return dir
}

// fakeService is an in-memory backend. Like a server that ignores
// scope_id, List returns every record.
type fakeService struct {
	vars    []variable.Variable
	next    int
	creates int
	updates int
	deletes int
	failOn  string
}

func (f *fakeService) List(ctx context.Context, scopeID string) ([]variable.Variable, error) {
	return append([]variable.Variable(nil), f.vars...), nil
}

func (f *fakeService) Create(ctx context.Context, v variable.Variable) (variable.Variable, error) {
	f.creates++
	if v.Name == f.failOn {
		return variable.Variable{}, &api.APIError{StatusCode: 500, Msg: "boom"}
	}
	if v.UID == "" {
		f.next++
		v.UID = fmt.Sprintf("uid-%d", f.next)
	}
	f.vars = append(f.vars, v)
	return v, nil
}

func (f *fakeService) Update(ctx context.Context, v variable.Variable) error {
	f.updates++
	for i := range f.vars {
		if f.vars[i].UID == v.UID {
			f.vars[i] = v
			return nil
		}
	}
	return &api.APIError{StatusCode: 404, Msg: "variable not found"}
}

func (f *fakeService) Delete(ctx context.Context, uid string) error {
	f.deletes++
	for i := range f.vars {
		if f.vars[i].UID == uid {
			f.vars = append(f.vars[:i], f.vars[i+1:]...)
			return nil
		}
	}
	return &api.APIError{StatusCode: 404, Msg: "variable not found"}
}

func (f *fakeService) names() []string {
	var out []string
	for _, v := range f.vars {
		out = append(out, v.Name)
	}
	return out
}

func useFakeService(t *testing.T, vars ...variable.Variable) *fakeService {
	t.Helper()
	fake := &fakeService{vars: vars}
	old := newService
	newService = func(*cobra.Command) (manager.Service, error) { return fake, nil }
	t.Cleanup(func() { newService = old })
	return fake
}

// mockStdin replaces stdinReader for the duration of the test.
func mockStdin(t *testing.T, input string) {
	t.Helper()
	old := stdinReader
	stdinReader = strings.NewReader(input)
	t.Cleanup(func() { stdinReader = old })
}

// resetFlags restores every flag of c and its subcommands to its default,
// since the command tree is shared between test runs.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes the root command with args and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = old })

	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func orgVar(uid, name, value string) variable.Variable {
	return variable.Variable{UID: uid, Name: name, Value: value, Scope: variable.ScopeOrg, ScopeID: "1"}
}

func TestVersionValue(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
}

func TestResolveScopeDefaultsToOrg(t *testing.T) {
	setTestHome(t)
	resetFlags(rootCmd)

	scope, err := resolveScope(rootCmd)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	want := manager.Scope{Kind: variable.ScopeOrg, ID: "1", Label: "Main Org."}
	if scope != want {
		t.Errorf("scope = %+v, want %+v", scope, want)
	}
}

func TestResolveScopeUser(t *testing.T) {
	setTestHome(t)
	if err := config.Set("user_id", "42"); err != nil {
		t.Fatal(err)
	}
	if err := config.Set("user_login", "admin"); err != nil {
		t.Fatal(err)
	}
	resetFlags(rootCmd)
	if err := rootCmd.ParseFlags([]string{"--scope", "user"}); err != nil {
		t.Fatal(err)
	}

	scope, err := resolveScope(rootCmd)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if scope.ID != "42" || scope.Label != "admin" {
		t.Errorf("scope = %+v", scope)
	}
}

func TestResolveScopeErrors(t *testing.T) {
	setTestHome(t)

	resetFlags(rootCmd)
	rootCmd.ParseFlags([]string{"--scope", "folder"})
	if _, err := resolveScope(rootCmd); err == nil {
		t.Error("folder scope without --scope-id should fail")
	}

	resetFlags(rootCmd)
	rootCmd.ParseFlags([]string{"--scope", "team"})
	if _, err := resolveScope(rootCmd); err == nil || !strings.Contains(err.Error(), "unknown scope") {
		t.Errorf("err = %v", err)
	}
}

func TestPageTitle(t *testing.T) {
	tests := map[string]string{
		variable.ScopeOrg:    "Global variables",
		variable.ScopeUser:   "User variables",
		variable.ScopeFolder: "Folder variables",
	}
	for kind, want := range tests {
		if got := pageTitle(kind); got != want {
			t.Errorf("pageTitle(%q) = %q, want %q", kind, got, want)
		}
	}
}

func TestListFiltersScopeAndName(t *testing.T) {
	setTestHome(t)
	useFakeService(t,
		orgVar("a", "DB_HOST", "localhost"),
		orgVar("b", "APP_ID", "web"),
		variable.Variable{UID: "c", Name: "DB_USER", ScopeID: "2"},
	)

	out, err := run(t, "list", "--filter", "DB_*")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if !strings.Contains(out, "DB_HOST") {
		t.Errorf("output missing DB_HOST:\n%s", out)
	}
	if strings.Contains(out, "APP_ID") || strings.Contains(out, "DB_USER") {
		t.Errorf("output should only hold org DB_* variables:\n%s", out)
	}
	if !strings.Contains(out, "Main Org. (id : 1)") {
		t.Errorf("output missing scope id column:\n%s", out)
	}
}

func TestListEmptyAndBadFilter(t *testing.T) {
	setTestHome(t)
	useFakeService(t)

	out, err := run(t, "list")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if !strings.Contains(out, "No variables.") {
		t.Errorf("output = %q", out)
	}

	if _, err := run(t, "list", "--filter", "[a-"); err == nil {
		t.Error("expected error for bad glob")
	}
}

func TestAddNormalizesName(t *testing.T) {
	setTestHome(t)
	fake := useFakeService(t)

	out, err := run(t, "add", "my var", "42", "-d", "answer")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if len(fake.vars) != 1 {
		t.Fatalf("vars = %v", fake.vars)
	}
	v := fake.vars[0]
	if v.Name != "MY_VAR" || v.Value != "42" || v.Description != "answer" {
		t.Errorf("created %+v", v)
	}
	if v.Scope != variable.ScopeOrg || v.ScopeID != "1" || v.Type != variable.TypeConstant {
		t.Errorf("created %+v", v)
	}
	if !strings.Contains(out, "Created MY_VAR (uid uid-1)") {
		t.Errorf("output = %q", out)
	}
}

func TestAddReportsRecordReplacedInPlace(t *testing.T) {
	setTestHome(t)
	// the backend hands back a uid the list already holds
	useFakeService(t, orgVar("uid-1", "OLD", "x"), orgVar("b", "LAST", "y"))

	out, err := run(t, "add", "fresh")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if !strings.Contains(out, "Created FRESH (uid uid-1)") {
		t.Errorf("output = %q", out)
	}
}

func TestAddBlankNameSendsNothing(t *testing.T) {
	setTestHome(t)
	fake := useFakeService(t)

	if _, err := run(t, "add", "   "); err == nil {
		t.Fatal("expected error")
	}
	if fake.creates != 0 {
		t.Errorf("creates = %d, want 0", fake.creates)
	}
}

func TestEditByName(t *testing.T) {
	setTestHome(t)
	fake := useFakeService(t, orgVar("a", "DB_HOST", "localhost"))

	out, err := run(t, "edit", "db host", "--value", "db.internal")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if fake.vars[0].Value != "db.internal" || fake.vars[0].UID != "a" {
		t.Errorf("vars = %+v", fake.vars)
	}
	if !strings.Contains(out, "Updated DB_HOST.") {
		t.Errorf("output = %q", out)
	}
}

func TestEditNothingToChange(t *testing.T) {
	setTestHome(t)
	fake := useFakeService(t, orgVar("a", "DB_HOST", "localhost"))

	out, err := run(t, "edit", "a")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if fake.updates != 0 {
		t.Errorf("updates = %d", fake.updates)
	}
	if !strings.Contains(out, "Nothing to change.") {
		t.Errorf("output = %q", out)
	}
}

func TestEditNotFound(t *testing.T) {
	setTestHome(t)
	useFakeService(t, orgVar("a", "DB_HOST", "localhost"))

	_, err := run(t, "edit", "missing", "--value", "x")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v", err)
	}
}

func TestDeleteConfirmYes(t *testing.T) {
	setTestHome(t)
	fake := useFakeService(t, orgVar("a", "A", "1"), orgVar("b", "B", "2"))
	mockStdin(t, "y\n")

	out, err := run(t, "delete", "A")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if got := fake.names(); len(got) != 1 || got[0] != "B" {
		t.Errorf("remaining = %v", got)
	}
	if !strings.Contains(out, "Deleted A.") {
		t.Errorf("output = %q", out)
	}
}

func TestDeleteConfirmNo(t *testing.T) {
	setTestHome(t)
	fake := useFakeService(t, orgVar("a", "A", "1"))
	mockStdin(t, "n\n")

	out, err := run(t, "delete", "a")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if fake.deletes != 0 || len(fake.vars) != 1 {
		t.Errorf("deletes = %d, vars = %v", fake.deletes, fake.vars)
	}
	if !strings.Contains(out, "Cancelled.") {
		t.Errorf("output = %q", out)
	}
}

func TestDeleteAmbiguousName(t *testing.T) {
	setTestHome(t)
	fake := useFakeService(t, orgVar("a", "DUP", "1"), orgVar("b", "DUP", "2"))

	_, err := run(t, "delete", "DUP", "--yes")
	if err == nil || !strings.Contains(err.Error(), "use the uid") {
		t.Errorf("err = %v", err)
	}

	if _, err := run(t, "delete", "b", "--yes"); err != nil {
		t.Fatalf("error: %v", err)
	}
	if len(fake.vars) != 1 || fake.vars[0].UID != "a" {
		t.Errorf("vars = %+v", fake.vars)
	}
}

func TestImportCreatesEachLine(t *testing.T) {
	home := setTestHome(t)
	fake := useFakeService(t)
	path := filepath.Join(home, "vars.env")
	if err := os.WriteFile(path, []byte("A=1\nB=2\nBADLINE\n"), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "import", path)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if got := fake.names(); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("created = %v", got)
	}
	for _, v := range fake.vars {
		if v.UID == "" || v.ScopeID != "1" {
			t.Errorf("imported %+v", v)
		}
	}
	if !strings.Contains(out, "Skipped line 3.") || !strings.Contains(out, "2 of 3 lines imported") {
		t.Errorf("output = %q", out)
	}
}

func TestImportDryRunFromStdin(t *testing.T) {
	setTestHome(t)
	fake := useFakeService(t)
	mockStdin(t, "A=1\r\nB=x=y\r\n")

	out, err := run(t, "import", "-", "--dry-run")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if fake.creates != 0 {
		t.Errorf("creates = %d", fake.creates)
	}
	if !strings.Contains(out, "B=x=y\n") || !strings.Contains(out, "2 of 2 lines imported (dry run)") {
		t.Errorf("output = %q", out)
	}
}

func TestImportReportsFailures(t *testing.T) {
	home := setTestHome(t)
	fake := useFakeService(t)
	fake.failOn = "B"
	path := filepath.Join(home, "vars.env")
	os.WriteFile(path, []byte("A=1\nB=2\n"), 0600)

	out, err := run(t, "import", path)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(out, "Failed to create B") || !strings.Contains(out, "1 of 2 lines imported") {
		t.Errorf("output = %q", out)
	}
}

func TestGroupsCommand(t *testing.T) {
	out, err := run(t, "groups")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	for _, want := range []string{"Databases (env)", "Environments (env)", "Applications (env)", "APPLICATION_ID", "db_staging"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestServeStatusNotRunning(t *testing.T) {
	setTestHome(t)
	out, err := run(t, "serve", "status")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if !strings.Contains(out, "not running") {
		t.Errorf("output = %q", out)
	}

	out, err = run(t, "serve", "stop")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if !strings.Contains(out, "not running") {
		t.Errorf("output = %q", out)
	}
}
