// =============================================================================
// entrypilot - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (entrypilot)
//   ├── runCmd     (entrypilot run)
//   ├── loadCmd    (entrypilot load)
//   ├── queueCmd   (entrypilot queue ...)
//   ├── hostCmd    (entrypilot host)
//   ├── configCmd  (entrypilot config)
//   └── versionCmd (entrypilot version)
//
// CONFIGURATION:
//   Persistent flags are bound through Viper, so each one can also be set
//   from the environment:
//     --config   ENTRYPILOT_CONFIG
//     --state    ENTRYPILOT_STATE
//     --verbose  ENTRYPILOT_VERBOSE
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ginjaninja78/entrypilot/internal/config"
	"github.com/ginjaninja78/entrypilot/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// appConfig is the validated configuration, set by the root pre-run hook.
var appConfig *config.Config

// logger is the process logger, set by the root pre-run hook.
var logger = zap.NewNop()

// skipSetup marks commands that run without configuration or logger.
const skipSetup = "skip-setup"

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "entrypilot",
	Short: "entrypilot - Enter spreadsheet batches into a web transaction form",

	Long: `entrypilot drives repetitive data entry into a web transaction form. It
takes a batch of records from a spreadsheet, enters each one into the live
form, verifies every field and commits the record before moving on.

Key Features:
  - Field-by-field entry that tolerates asynchronously rendered controls
  - Verification of every entered value before commit
  - Forced-submit recovery when the form refuses a commit
  - Durable queue: a restarted run resumes at the last committed record
  - Incident reports for every halted batch

Example Usage:
  entrypilot load ./batch.xlsx          # Queue the records of a workbook
  entrypilot run --start                # Enter the queued records
  entrypilot queue status               # Show progress`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, ok := cmd.Annotations[skipSetup]; ok {
			return nil
		}
		return setup()
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String(
		"config",
		config.DefaultPath,
		"Path to the configuration file",
	)
	rootCmd.PersistentFlags().String(
		"state",
		"",
		"Path to the queue state database (overrides state_path)",
	)
	rootCmd.PersistentFlags().BoolP(
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("state", rootCmd.PersistentFlags().Lookup("state"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig binds ENTRYPILOT_* environment variables.
func initConfig() {
	viper.SetEnvPrefix("ENTRYPILOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// setup loads the configuration and builds the logger.
func setup() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg, viper.GetBool("verbose"))
	if err != nil {
		return err
	}

	appConfig = cfg
	logger = log
	logger.Debug("configuration loaded", zap.String("path", configPath()), zap.String("state_path", cfg.StatePath))
	return nil
}

// configPath is the configuration file in effect.
func configPath() string {
	if p := viper.GetString("config"); p != "" {
		return p
	}
	return config.DefaultPath
}

// stateOverride is the --state value, if any.
func stateOverride() string {
	return viper.GetString("state")
}

// loadConfig reads the configuration file, applies the --state override and
// validates the result. A missing file yields the defaults.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(configPath())
	if err != nil {
		return nil, err
	}
	if state := stateOverride(); state != "" {
		cfg.StatePath = state
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}
