// =============================================================================
// entrypilot - Host Command
// =============================================================================
//
// This file defines the 'host' command: the native bridge host. It reads
// length-prefixed JSON commands from stdin and answers on stdout, so it
// never prints anything else there. Logs go to stderr.
//
// =============================================================================

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/entrypilot/internal/bridge"
	"github.com/ginjaninja78/entrypilot/internal/config"
	"github.com/ginjaninja78/entrypilot/internal/ingest"
	"github.com/ginjaninja78/entrypilot/internal/picker"
)

var hostCmd = &cobra.Command{
	Use:    "host",
	Short:  "Serve the native bridge on stdin/stdout",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		host := bridge.NewHost(newPicker(appConfig), logger)
		return host.Serve(cmd.Context(), os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(hostCmd)
}

// newPicker returns the file-selection collaborator configured for the host.
func newPicker(cfg *config.Config) picker.Picker {
	if cfg.Host.Picker == "path" {
		return picker.StaticPicker{Path: cfg.Host.File}
	}
	return picker.NewTUIPicker("", ingest.Extensions)
}
