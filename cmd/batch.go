package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/ginjaninja78/entrypilot/internal/bridge"
	"github.com/ginjaninja78/entrypilot/internal/config"
	"github.com/ginjaninja78/entrypilot/internal/controller"
	"github.com/ginjaninja78/entrypilot/internal/queue"
	"github.com/ginjaninja78/entrypilot/internal/types"
)

// =============================================================================
// INGESTION THROUGH THE NATIVE HOST
// =============================================================================

// hostArgv returns the command line that starts the native host.
func hostArgv(cfg *config.Config) ([]string, error) {
	if len(cfg.Host.Command) > 0 {
		return cfg.Host.Command, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable: %w", err)
	}
	argv := []string{exe, "host", "--config", configPath()}
	if state := stateOverride(); state != "" {
		argv = append(argv, "--state", state)
	}
	return argv, nil
}

// fetchRecords starts the native host, asks it for the records of path (or
// of a file chosen with its picker when path is empty) and stops it.
func fetchRecords(ctx context.Context, cfg *config.Config, path string) ([]types.Record, error) {
	argv, err := hostArgv(cfg)
	if err != nil {
		return nil, err
	}

	proc, err := bridge.Spawn(ctx, argv, logger)
	if err != nil {
		return nil, err
	}
	records, err := proc.LoadRecords(ctx, path)
	if cerr := proc.Close(); cerr != nil {
		logger.Debug("native host exited", zap.Error(cerr))
	}
	return records, err
}

// clearsQueue reports whether an ingestion error invalidates the queue. A
// cancelled selection and an unreachable host leave it as it is.
func clearsQueue(err error) bool {
	var hostErr *bridge.HostError
	if !errors.As(err, &hostErr) {
		return false
	}
	return hostErr.Message != bridge.MsgSelectCancelled
}

// =============================================================================
// STATUS OUTPUT
// =============================================================================

// printSnapshot writes a one-line summary of the batch.
func printSnapshot(w io.Writer, snap controller.Snapshot) {
	st := snap.State
	flags := snap.Phase.String()
	if snap.Paused {
		flags += ", paused"
	}
	if snap.InFlight {
		flags += ", in flight"
	}

	position := "no records"
	if st.Total > 0 {
		position = fmt.Sprintf("record %d of %d, %d completed", st.Cursor+1, st.Total, st.Completed())
	}
	line := fmt.Sprintf("[%s] %s", flags, position)
	if snap.Message != "" {
		line += ": " + snap.Message
	}
	fmt.Fprintln(w, line)
}

// recordFields lists a record's values in column order.
func recordFields(r types.Record) [][2]string {
	fields := [][2]string{
		{"Application", r.Application},
		{"Account", r.Account},
	}
	if r.IsGL() {
		fields = append(fields, [2]string{"Branch", r.Branch}, [2]string{"Center", r.Center})
	}
	fields = append(fields,
		[2]string{"TranCode", r.TranCode},
		[2]string{"Description", r.Description},
		[2]string{"Amount", r.Amount.String()},
		[2]string{"EffectiveDate", r.EffectiveDate},
		[2]string{"SerialNumber", r.SerialNumber},
	)
	return fields
}

// currentLine describes the record under the cursor.
func currentLine(st queue.State) string {
	rec, ok := st.Current()
	if !ok {
		return "No record selected."
	}
	parts := make([]string, 0, 9)
	for _, kv := range recordFields(rec) {
		if kv[1] != "" {
			parts = append(parts, kv[0]+"="+kv[1])
		}
	}
	done := "incomplete"
	if rec.Completed {
		done = "complete"
	}
	return fmt.Sprintf("Record %d (%s): %s", st.Cursor+1, done, strings.Join(parts, " "))
}
