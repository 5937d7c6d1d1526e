package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/entrypilot/internal/config"
)

// showDefaults prints the built-in defaults instead of the loaded file.
var showDefaults bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate and print the configuration",
	Long: `Load the configuration file, validate it and print the effective values
with every default applied. With --defaults, print the built-in defaults,
a starting point for a new entrypilot.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		if showDefaults {
			cfg = config.Default()
		}
		out, err := cfg.ToYAML()
		if err != nil {
			return fmt.Errorf("failed to render configuration: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().BoolVar(&showDefaults, "defaults", false, "Print the built-in defaults")
}
