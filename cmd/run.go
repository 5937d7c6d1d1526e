// =============================================================================
// entrypilot - Run Command
// =============================================================================
//
// This file defines the 'run' command, which drives the host form through
// the queued batch.
//
// COMMAND USAGE:
//   entrypilot run [flags]
//
// FLAGS:
//   --start           : Start the batch immediately
//   --exit-when-done  : Exit once the batch finishes or halts
//
// PIPELINE:
//   1. Take the queue lock so no other process edits the queue
//   2. Open the queue store and load the persisted state
//   3. Prune old incident reports
//   4. Attach to (or launch) the browser holding the host form
//   5. Run the automation agent, the controller, the configuration watcher
//      and the operator console side by side
//   6. On a halted batch, write an incident report
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/entrypilot/internal/automation"
	"github.com/ginjaninja78/entrypilot/internal/config"
	"github.com/ginjaninja78/entrypilot/internal/controller"
	"github.com/ginjaninja78/entrypilot/internal/document"
	"github.com/ginjaninja78/entrypilot/internal/queue"
	"github.com/ginjaninja78/entrypilot/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// startNow starts the batch as soon as the run is ready.
var startNow bool

// exitWhenDone ends the run when the batch finishes or halts.
var exitWhenDone bool

// =============================================================================
// RUN COMMAND DEFINITION
// =============================================================================

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Enter the queued records into the host form",
	Long: `The run command attaches to the browser holding the host form and enters
the queued records one at a time. Each record is filled, verified and
committed before the next one starts.

While running, the console accepts one command per line:
  start, pause, stop, status, current
  prev, next, first, last, toggle, unmark, clear
  load <file>, help, quit

On a failed record:
  - The batch halts with the cursor on the failed record
  - An incident report is written to the reports directory
  - 'start' retries the record`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(
		&startNow,
		"start",
		false,
		"Start the batch immediately",
	)
	runCmd.Flags().BoolVar(
		&exitWhenDone,
		"exit-when-done",
		false,
		"Exit once the batch finishes or halts",
	)
}

// =============================================================================
// MAIN RUN FUNCTION
// =============================================================================

func runBatch(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg := appConfig
	log := logger

	sigCtx, stopSignals := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	// =========================================================================
	// STEP 1: QUEUE
	// =========================================================================

	lock, err := queue.AcquireLock(cfg.StatePath, "run")
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warn("failed to release queue lock", zap.Error(err))
		}
	}()

	store, err := queue.Open(cfg.StatePath)
	if err != nil {
		return err
	}
	defer store.Close()

	state, err := store.Load(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded queue: %d records, %d completed\n", state.Total, state.Completed())

	if cfg.ReportRetentionDays > 0 {
		removed, err := utils.CleanOldReports(cfg.ReportsDir, time.Duration(cfg.ReportRetentionDays)*24*time.Hour)
		if err != nil {
			log.Warn("report cleanup failed", zap.Error(err))
		} else if removed > 0 {
			log.Info("old incident reports removed", zap.Int("count", removed))
		}
	}

	// =========================================================================
	// STEP 2: BROWSER AND AGENT
	// =========================================================================

	fmt.Println("Connecting to browser...")
	session, err := document.Connect(ctx, cfg.Browser, log)
	if err != nil {
		return fmt.Errorf("failed to reach the host form: %w", err)
	}
	defer session.Close()

	agent := automation.NewAgent(session.Document(), automation.SettingsFrom(cfg), log)

	// =========================================================================
	// STEP 3: CONTROLLER
	// =========================================================================

	ctrl := controller.New(state, agent, store, controller.Options{
		PacingDelay: cfg.PacingDelay(),
		PausePoll:   cfg.PausePoll(),
		Observer: func(ev controller.Event) {
			switch ev.Kind {
			case controller.EventRecordCompleted:
				fmt.Println(ev.Snapshot.Message)
			case controller.EventHalted:
				fmt.Println(ev.Snapshot.Message)
				writeIncident(cfg.ReportsDir, ev)
				if exitWhenDone {
					cancel()
				}
			case controller.EventFinished:
				fmt.Println(ev.Snapshot.Message)
				if exitWhenDone {
					cancel()
				}
			}
		},
	}, log)

	watcher := config.NewWatcher(configPath(), log, func(next *config.Config) {
		agent.UpdateTimeouts(next.Timeouts)
		if err := ctrl.SetPacing(ctx, next.PacingDelay(), next.PausePoll()); err != nil {
			log.Warn("pacing not updated", zap.Error(err))
		}
	})

	con := &console{
		ctrl: ctrl,
		in:   os.Stdin,
		out:  os.Stdout,
		quit: cancel,
		load: func(ctx context.Context, path string) error {
			return loadIntoController(ctx, ctrl, cfg, path)
		},
	}

	// =========================================================================
	// STEP 4: RUN
	// =========================================================================

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return agent.Serve(gctx) })
	g.Go(func() error { return ctrl.Run(gctx) })
	g.Go(func() error { return watcher.Run(gctx) })
	g.Go(func() error { return con.Run(gctx) })

	if startNow {
		g.Go(func() error {
			for _, ready := range []<-chan struct{}{agent.Started(), ctrl.Started()} {
				select {
				case <-ready:
				case <-gctx.Done():
					return nil
				}
			}
			snap, err := ctrl.Start(gctx)
			if gctx.Err() != nil {
				return nil
			}
			if err != nil && !errors.Is(err, controller.ErrBusy) {
				return err
			}
			printSnapshot(os.Stdout, snap)
			return nil
		})
	}

	fmt.Println("Ready. Type 'help' for commands.")
	err = g.Wait()
	fmt.Println("Run finished.")
	return err
}

// loadIntoController fetches a batch through the native host and hands it
// to the controller. An ingestion failure clears the queue.
func loadIntoController(ctx context.Context, ctrl *controller.Controller, cfg *config.Config, path string) error {
	records, err := fetchRecords(ctx, cfg, path)
	if err != nil {
		if clearsQueue(err) {
			if _, cerr := ctrl.Clear(ctx); cerr != nil {
				logger.Warn("queue not cleared", zap.Error(cerr))
			}
		}
		return err
	}
	_, err = ctrl.Load(ctx, records)
	return err
}
