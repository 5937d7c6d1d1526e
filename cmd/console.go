package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ginjaninja78/entrypilot/internal/controller"
)

const consoleHelp = `Commands:
  start          start or resume the batch at the next incomplete record
  pause          pause or resume a running batch
  stop           stop after the record in flight
  status         show the batch state
  current        show the record under the cursor
  prev, next     move the cursor
  first, last    move the cursor to either end
  toggle         flip the completion flag of the current record
  unmark         mark every record incomplete
  clear          empty the queue
  load <file>    replace the queue with a spreadsheet's records
  quit           end the run`

// console reads operator commands, one per line, and applies them to the
// controller.
type console struct {
	ctrl *controller.Controller
	in   io.Reader
	out  io.Writer
	quit func()
	load func(ctx context.Context, path string) error
}

// Run reads commands until ctx ends, the input closes or the operator quits.
func (c *console) Run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if c.exec(ctx, line) {
				c.quit()
				return nil
			}
		}
	}
}

// exec runs one command line and reports whether the operator asked to quit.
func (c *console) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	var (
		snap controller.Snapshot
		err  error
	)
	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return true
	case "help", "?":
		fmt.Fprintln(c.out, consoleHelp)
		return false
	case "start":
		snap, err = c.ctrl.Start(ctx)
	case "pause":
		snap, err = c.ctrl.Pause(ctx)
	case "stop":
		snap, err = c.ctrl.Stop(ctx)
	case "status":
		snap, err = c.ctrl.Snapshot(ctx)
	case "current":
		snap, err = c.ctrl.Snapshot(ctx)
		if err == nil {
			fmt.Fprintln(c.out, currentLine(snap.State))
			return false
		}
	case "prev":
		snap, err = c.ctrl.Prev(ctx)
	case "next":
		snap, err = c.ctrl.Next(ctx)
	case "first":
		snap, err = c.ctrl.First(ctx)
	case "last":
		snap, err = c.ctrl.Last(ctx)
	case "toggle":
		snap, err = c.ctrl.ToggleComplete(ctx)
	case "unmark":
		snap, err = c.ctrl.UnmarkAll(ctx)
	case "clear":
		snap, err = c.ctrl.Clear(ctx)
	case "load":
		if len(fields) < 2 {
			fmt.Fprintln(c.out, "usage: load <file>")
			return false
		}
		if err := c.load(ctx, strings.Join(fields[1:], " ")); err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
		snap, err = c.ctrl.Snapshot(ctx)
	default:
		fmt.Fprintf(c.out, "unknown command %q, type 'help'\n", fields[0])
		return false
	}

	switch {
	case errors.Is(err, controller.ErrBusy):
		fmt.Fprintln(c.out, "Not allowed while a record is being processed.")
	case errors.Is(err, controller.ErrNotProcessing):
		fmt.Fprintln(c.out, "No batch is running.")
	case err != nil:
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return false
	}
	printSnapshot(c.out, snap)
	return false
}
