package cmd

import (
	"fmt"
	"strings"

	"github.com/dopejs/varman/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowCmd.RunE(cmd, args)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := config.Current()
		fmt.Fprintf(stdout, "# %s\n", config.DefaultStore().Path())
		for _, key := range config.Keys {
			value, err := settings.Get(key)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%-12s %s\n", key, value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:               "set KEY VALUE",
	Short:             "Change one setting (an empty VALUE restores the default)",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeConfigKeys,
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(strings.TrimSpace(args[0]))
		if err := config.Set(key, args[1]); err != nil {
			return err
		}
		value, _ := config.Current().Get(key)
		fmt.Fprintf(stdout, "%s = %s\n", key, value)
		return nil
	},
}

func completeConfigKeys(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return config.Keys, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
