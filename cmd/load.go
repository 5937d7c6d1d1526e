// =============================================================================
// entrypilot - Load Command
// =============================================================================
//
// This file defines the 'load' command, which replaces the persisted queue
// with the records of a spreadsheet read by the native host.
//
// COMMAND USAGE:
//   entrypilot load [file]
//
//   Without a file the host's picker chooses one (see host.picker).
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/entrypilot/internal/queue"
)

var loadCmd = &cobra.Command{
	Use:   "load [file]",
	Short: "Replace the queue with the records of a spreadsheet",
	Long: `The load command starts the native host, asks it for the records of a
spreadsheet (.xlsx, .xls or .csv) and stores them as the new queue with
every record incomplete and the cursor on the first record.

If the spreadsheet cannot be read, the error is shown as reported by the
host and the queue is cleared.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		return loadBatch(cmd, path)
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func loadBatch(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()
	cfg := appConfig

	lock, err := queue.AcquireLock(cfg.StatePath, "load")
	if err != nil {
		return err
	}
	defer lock.Release()

	store, err := queue.Open(cfg.StatePath)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := fetchRecords(ctx, cfg, path)
	if err != nil {
		if clearsQueue(err) {
			if serr := store.Save(ctx, queue.Empty()); serr != nil {
				logger.Error("queue not cleared", zap.Error(serr))
			}
		}
		return err
	}

	st := queue.New(records)
	if err := store.Save(ctx, st); err != nil {
		return err
	}
	logger.Info("queue loaded", zap.Int("records", st.Total))
	fmt.Fprintf(cmd.OutOrStdout(), "Successfully processed %d records.\n", st.Total)
	return nil
}
