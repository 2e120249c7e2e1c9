package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dopejs/varman/internal/variable"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the variables of a scope",
	Long:  "Print the variables of a scope as YAML, JSON or KEY=VALUE lines. The env format can be fed back to 'varman import'.",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		page, err := openPage(cmd)
		if err != nil {
			return err
		}
		pattern, _ := cmd.Flags().GetString("filter")
		vars, err := variable.FilterByName(page.Store.Variables(), pattern)
		if err != nil {
			return fmt.Errorf("invalid filter %q: %w", pattern, err)
		}
		return writeExport(stdout, format, vars)
	},
}

func init() {
	exportCmd.Flags().StringP("format", "o", "yaml", "output format: yaml, json or env")
	exportCmd.Flags().String("filter", "", "only export names matching a glob")
}

func writeExport(w io.Writer, format string, vars []variable.Variable) error {
	if vars == nil {
		vars = []variable.Variable{}
	}
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(vars); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(vars)
	case "env":
		for _, v := range vars {
			fmt.Fprintf(w, "%s=%s\n", v.Name, envValue(v.Value))
		}
		return nil
	}
	return fmt.Errorf("unknown format %q (want yaml, json or env)", format)
}

// envValue keeps multi-line values on one line so the output stays importable.
func envValue(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	q := strconv.Quote(s)
	return q[1 : len(q)-1]
}
