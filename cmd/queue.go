// =============================================================================
// entrypilot - Queue Commands
// =============================================================================
//
// This file defines the 'queue' command group, which inspects and edits the
// persisted queue while no run is active.
//
// COMMAND USAGE:
//   entrypilot queue status
//   entrypilot queue prev | next | first | last
//   entrypilot queue toggle
//   entrypilot queue unmark-all
//   entrypilot queue clear
//
// Edits take the queue lock, so they are refused while 'run' holds it.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/entrypilot/internal/fieldspec"
	"github.com/ginjaninja78/entrypilot/internal/queue"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and edit the persisted queue",
}

var queueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show every queued record and the cursor",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := queue.Open(appConfig.StatePath)
		if err != nil {
			return err
		}
		defer store.Close()

		st, err := store.Load(cmd.Context())
		if err != nil {
			return err
		}
		renderQueue(cmd.OutOrStdout(), st)
		return nil
	},
}

// queueEdit is one cursor or completion mutation.
type queueEdit struct {
	use   string
	short string
	apply func(*queue.State) bool
}

var queueEdits = []queueEdit{
	{"prev", "Move the cursor to the previous record", (*queue.State).Prev},
	{"next", "Move the cursor to the next record", (*queue.State).Next},
	{"first", "Move the cursor to the first record", (*queue.State).First},
	{"last", "Move the cursor to the last record", (*queue.State).Last},
	{"toggle", "Flip the completion flag of the current record", (*queue.State).ToggleComplete},
	{"unmark-all", "Mark every record incomplete and rewind the cursor", (*queue.State).UnmarkAll},
	{"clear", "Remove every record from the queue", (*queue.State).Clear},
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueStatusCmd)

	for _, e := range queueEdits {
		e := e
		queueCmd.AddCommand(&cobra.Command{
			Use:   e.use,
			Short: e.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return editQueue(cmd, e)
			},
		})
	}
}

// editQueue applies one edit under the queue lock and persists it in a
// single write.
func editQueue(cmd *cobra.Command, e queueEdit) error {
	lock, err := queue.AcquireLock(appConfig.StatePath, "queue "+e.use)
	if err != nil {
		return err
	}
	defer lock.Release()

	store, err := queue.Open(appConfig.StatePath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	st, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if !e.apply(&st) {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing changed.")
		return nil
	}
	if err := store.Save(ctx, st); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), currentLine(st))
	return nil
}

// renderQueue prints the queue as a table. The cursor row is marked.
func renderQueue(w io.Writer, st queue.State) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"", "#", "Application", "Account", "TranCode", "Description", "Amount", "Effective Date", "Done"})
	for i, r := range st.Records {
		marker := ""
		if i == st.Cursor {
			marker = ">"
		}
		done := ""
		if r.Completed {
			done = "yes"
		}
		tw.AppendRow(table.Row{
			marker, i + 1, r.Application, r.Account, r.TranCode, r.Description,
			fieldspec.FormatDisplayAmount(r.Amount.String()), r.EffectiveDate, done,
		})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "", "", "", "Completed", fmt.Sprintf("%d/%d", st.Completed(), st.Total)})
	tw.Render()
}
