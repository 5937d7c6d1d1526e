// =============================================================================
// entrypilot - Main Entry Point
// =============================================================================
//
// This is the main entry point for the entrypilot CLI application. It
// initializes the Cobra CLI framework and delegates command execution to
// the cmd package.
//
// USAGE:
//   entrypilot run            - Drive the host form through the queued batch
//   entrypilot load [file]    - Replace the queue with a spreadsheet's records
//   entrypilot queue status   - Show the persisted queue
//   entrypilot host           - Serve the native bridge on stdin/stdout
//   entrypilot config         - Print the default configuration
//   entrypilot version        - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : All CLI command definitions (Cobra)
//   - internal/      : Core business logic (not for external import)
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/entrypilot/cmd"
)

// main is the entry point of the application.
func main() {
	cmd.Execute()
}
