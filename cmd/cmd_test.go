package cmd

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/dopejs/varman/internal/config"
	"github.com/dopejs/varman/internal/variable"
)

func TestCompleteConfigKeys(t *testing.T) {
	keys, directive := completeConfigKeys(nil, nil, "")
	if directive != 4 { // cobra.ShellCompDirectiveNoFileComp = 4
		t.Errorf("directive = %d", directive)
	}
	if len(keys) != len(config.Keys) {
		t.Errorf("expected %d keys, got %v", len(config.Keys), keys)
	}
	if keys, _ := completeConfigKeys(nil, []string{"org_id"}, ""); len(keys) != 0 {
		t.Errorf("value position should not complete, got %v", keys)
	}
}

func TestRunCompletion(t *testing.T) {
	tests := []struct {
		shell   string
		wantErr bool
	}{
		{"zsh", false},
		{"bash", false},
		{"fish", false},
		{"powershell", false},
		{"invalid", false}, // prints error but doesn't return error
	}

	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			// Redirect stdout to avoid noise
			old := os.Stdout
			_, w, _ := os.Pipe()
			os.Stdout = w

			err := runCompletion(completionCmd, []string{tt.shell})

			w.Close()
			os.Stdout = old

			if (err != nil) != tt.wantErr {
				t.Errorf("runCompletion(%q) error = %v, wantErr %v", tt.shell, err, tt.wantErr)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if out != "varman "+Version+"\n" {
		t.Errorf("output = %q", out)
	}
}

func TestConfigSetAndShow(t *testing.T) {
	setTestHome(t)

	out, err := run(t, "config", "set", "server_url", "http://example.test:9000/")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if !strings.Contains(out, "server_url = http://example.test:9000") {
		t.Errorf("set output = %q", out)
	}

	out, err = run(t, "config", "show")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	for _, want := range []string{"http://example.test:9000", "Main Org.", "19850"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	if _, err := run(t, "config", "set", "listen_port", "80"); err == nil {
		t.Error("expected error for a privileged port")
	}
	if _, err := run(t, "config", "set", "colour", "red"); err == nil {
		t.Error("expected error for an unknown key")
	}
}

func TestWriteExport(t *testing.T) {
	vars := []variable.Variable{
		{UID: "u1", Name: "A", Value: "1", Type: "constant", Scope: "org", ScopeID: "1"},
		{UID: "u2", Name: "CERT", Value: "line1\nline2"},
	}

	var buf bytes.Buffer
	if err := writeExport(&buf, "env", vars); err != nil {
		t.Fatalf("env: %v", err)
	}
	if buf.String() != "A=1\nCERT=line1\\nline2\n" {
		t.Errorf("env = %q", buf.String())
	}

	buf.Reset()
	if err := writeExport(&buf, "yaml", vars); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	for _, want := range []string{"- uid: u1", "  name: A", "  scope_id: \"1\""} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("yaml missing %q:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := writeExport(&buf, "json", nil); err != nil {
		t.Fatalf("json: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("json = %q", buf.String())
	}

	if err := writeExport(&buf, "toml", vars); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestExportCommand(t *testing.T) {
	setTestHome(t)
	useFakeService(t, orgVar("a", "DB_HOST", "localhost"), orgVar("b", "APP_ID", "web"))

	out, err := run(t, "export", "-o", "env", "--filter", "APP_*")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if out != "APP_ID=web\n" {
		t.Errorf("output = %q", out)
	}
}
