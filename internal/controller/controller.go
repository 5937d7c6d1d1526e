// =============================================================================
// entrypilot - Record Progression Controller
// =============================================================================
//
// The controller owns the batch: the queue, the cursor, the completion flags
// and the batch phase. It runs as a single goroutine (Run) and is only ever
// driven through its methods, which send a command and wait for the reply.
// The automation agent is reached through a Dispatcher, one record at a
// time: no new request is sent before the previous response arrived.
//
// PHASES:
//   Idle -> Searching -> Processing -> Idle     (batch completed)
//                                   -> Stopped  (record failed, operator stop,
//                                                transport failure)
//   Paused is a flag next to the phase. It is only checked when the loop is
//   about to pick the next record, so it never interrupts a record in flight.
//
// PERSISTENCE:
//   Every mutation is applied to a copy, saved as one unit, and only then
//   becomes the controller's state. A failed save leaves the state as it was.
//
// =============================================================================

package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/entrypilot/internal/fieldspec"
	"github.com/ginjaninja78/entrypilot/internal/protocol"
	"github.com/ginjaninja78/entrypilot/internal/queue"
	"github.com/ginjaninja78/entrypilot/internal/types"
)

var (
	// ErrBusy is returned by queue edits while a batch is processing.
	ErrBusy = errors.New("a batch is processing; stop it first")

	// ErrNotProcessing is returned by Pause when no batch is processing.
	ErrNotProcessing = errors.New("no batch is processing")

	// ErrClosed is returned when Run is not executing.
	ErrClosed = errors.New("controller is not running")
)

// =============================================================================
// PHASE AND SNAPSHOT
// =============================================================================

// Phase is the batch-level state.
type Phase int

const (
	Idle Phase = iota
	Searching
	Processing
	Stopped
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Searching:
		return "searching"
	case Processing:
		return "processing"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Snapshot is a copy of the controller's state.
type Snapshot struct {
	Phase    Phase
	Paused   bool
	InFlight bool
	State    queue.State
	Message  string
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// Dispatcher delivers one request to the automation agent and returns its
// single response.
type Dispatcher interface {
	Dispatch(ctx context.Context, req protocol.Request) (protocol.Response, error)
}

// Saver persists the queue state as one unit.
type Saver interface {
	Save(ctx context.Context, st queue.State) error
}

// EventKind classifies an Event.
type EventKind int

const (
	// EventChanged reports any state or message change.
	EventChanged EventKind = iota
	// EventRecordCompleted reports a record that was entered and confirmed.
	EventRecordCompleted
	// EventHalted reports a batch stopped by a failure.
	EventHalted
	// EventFinished reports a batch with no incomplete records left.
	EventFinished
)

// Event is delivered to the Observer from the controller goroutine. The
// observer must not call back into the controller.
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
	Response *protocol.Response
	Err      error
}

// Options tunes the controller.
type Options struct {
	// PacingDelay separates two records of a batch.
	PacingDelay time.Duration
	// PausePoll is how often a paused batch re-checks the flag.
	PausePoll time.Duration
	// Observer receives every event. Optional.
	Observer func(Event)
}

// =============================================================================
// CONTROLLER
// =============================================================================

type cmdKind int

const (
	cmdSnapshot cmdKind = iota
	cmdStart
	cmdPause
	cmdStop
	cmdPrev
	cmdNext
	cmdFirst
	cmdLast
	cmdToggle
	cmdUnmarkAll
	cmdClear
	cmdLoad
	cmdPacing
)

type command struct {
	kind    cmdKind
	records []types.Record
	pacing  Options
	reply   chan reply
}

type reply struct {
	snap Snapshot
	err  error
}

type outcome struct {
	idx  int
	resp protocol.Response
	err  error
}

// Controller sequences records through the automation agent.
type Controller struct {
	disp  Dispatcher
	store Saver
	opts  Options
	log   *zap.Logger

	cmds    chan command
	results chan outcome

	startOnce sync.Once
	started   chan struct{}
	done      chan struct{}

	// Owned by the Run goroutine.
	state    queue.State
	phase    Phase
	paused   bool
	message  string
	inFlight bool
	timer    *time.Timer
	wake     <-chan time.Time
}

// New creates a controller over the initial (already persisted) state.
func New(initial queue.State, disp Dispatcher, store Saver, opts Options, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	initial = initial.Clone()
	initial.Normalize()
	return &Controller{
		disp:    disp,
		store:   store,
		opts:    opts,
		log:     log.Named("controller"),
		cmds:    make(chan command),
		results: make(chan outcome, 1),
		started: make(chan struct{}),
		done:    make(chan struct{}),
		state:   initial,
		phase:   Idle,
	}
}

// Run executes the controller until ctx is cancelled. A record in flight at
// cancellation is waited for and discarded. Run may only be called once.
func (c *Controller) Run(ctx context.Context) error {
	first := false
	c.startOnce.Do(func() { first = true })
	if !first {
		return errors.New("controller already running")
	}
	close(c.started)
	defer close(c.done)
	defer c.cancelWake()

	for {
		select {
		case <-ctx.Done():
			if c.inFlight {
				<-c.results
				c.inFlight = false
			}
			return nil

		case cmd := <-c.cmds:
			snap, err := c.handle(ctx, cmd)
			cmd.reply <- reply{snap: snap, err: err}

		case out := <-c.results:
			c.finish(ctx, out)

		case <-c.wake:
			c.wake = nil
			c.step(ctx)
		}
	}
}

// =============================================================================
// PUBLIC OPERATIONS
// =============================================================================

// Start resumes the batch at the first incomplete record from the cursor.
func (c *Controller) Start(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, command{kind: cmdStart})
}

// Pause toggles the pause flag of a processing batch.
func (c *Controller) Pause(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, command{kind: cmdPause})
}

// Stop halts the batch after the record in flight, if any.
func (c *Controller) Stop(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, command{kind: cmdStop})
}

// Prev moves the cursor back.
func (c *Controller) Prev(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, command{kind: cmdPrev})
}

// Next moves the cursor forward.
func (c *Controller) Next(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, command{kind: cmdNext})
}

// First moves the cursor to the first record.
func (c *Controller) First(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, command{kind: cmdFirst})
}

// Last moves the cursor to the last record.
func (c *Controller) Last(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, command{kind: cmdLast})
}

// ToggleComplete flips the completion flag of the record under the cursor.
func (c *Controller) ToggleComplete(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, command{kind: cmdToggle})
}

// UnmarkAll clears all completion flags and rewinds the cursor.
func (c *Controller) UnmarkAll(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, command{kind: cmdUnmarkAll})
}

// Clear empties the queue.
func (c *Controller) Clear(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, command{kind: cmdClear})
}

// Load replaces the queue with a freshly ingested batch.
func (c *Controller) Load(ctx context.Context, records []types.Record) (Snapshot, error) {
	return c.do(ctx, command{kind: cmdLoad, records: records})
}

// SetPacing replaces the pacing delay and pause poll interval.
func (c *Controller) SetPacing(ctx context.Context, pacingDelay, pausePoll time.Duration) error {
	_, err := c.do(ctx, command{kind: cmdPacing, pacing: Options{PacingDelay: pacingDelay, PausePoll: pausePoll}})
	return err
}

// Snapshot returns the current state.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, command{kind: cmdSnapshot})
}

// Started is closed once Run accepts commands.
func (c *Controller) Started() <-chan struct{} {
	return c.started
}

// Done is closed when Run returns.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) do(ctx context.Context, cmd command) (Snapshot, error) {
	select {
	case <-c.started:
	default:
		return Snapshot{}, ErrClosed
	}

	cmd.reply = make(chan reply, 1)
	select {
	case c.cmds <- cmd:
	case <-c.done:
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	r := <-cmd.reply
	return r.snap, r.err
}

// =============================================================================
// COMMAND HANDLING
// =============================================================================

func (c *Controller) handle(ctx context.Context, cmd command) (Snapshot, error) {
	switch cmd.kind {
	case cmdSnapshot:
		return c.snapshot(), nil

	case cmdPacing:
		c.opts.PacingDelay = cmd.pacing.PacingDelay
		c.opts.PausePoll = cmd.pacing.PausePoll
		return c.snapshot(), nil

	case cmdStart:
		return c.start(ctx)

	case cmdPause:
		if c.phase != Processing {
			return c.snapshot(), ErrNotProcessing
		}
		c.paused = !c.paused
		if c.paused {
			c.message = MsgPaused
		} else {
			c.message = MsgResumed
		}
		c.log.Info(c.message)
		c.notify(Event{Kind: EventChanged})
		return c.snapshot(), nil

	case cmdStop:
		if c.phase == Processing || c.phase == Searching {
			c.halt(MsgStopped)
			c.log.Info("batch stopped by operator", zap.Bool("in_flight", c.inFlight))
			c.notify(Event{Kind: EventChanged})
		}
		return c.snapshot(), nil
	}

	// Everything below edits the queue.
	if c.phase == Processing || c.inFlight {
		return c.snapshot(), ErrBusy
	}

	next := c.state.Clone()
	var (
		changed bool
		msg     string
	)
	switch cmd.kind {
	case cmdPrev:
		changed = next.Prev()
	case cmdNext:
		changed = next.Next()
	case cmdFirst:
		changed = next.First()
	case cmdLast:
		changed = next.Last()
	case cmdToggle:
		changed = next.ToggleComplete()
		if changed {
			msg = msgToggled(next.Cursor, next.Records[next.Cursor].Completed)
		}
	case cmdUnmarkAll:
		changed = next.UnmarkAll()
		if changed {
			msg = msgUnmarked(next.Total)
		}
	case cmdClear:
		next.Clear()
		changed, msg = true, MsgCleared
	case cmdLoad:
		next = queue.New(cmd.records)
		changed, msg = true, msgLoaded(next.Total)
	default:
		return c.snapshot(), fmt.Errorf("unknown command %d", cmd.kind)
	}

	if !changed {
		return c.snapshot(), nil
	}
	if err := c.store.Save(ctx, next); err != nil {
		c.message = msgSaveFailed(err)
		c.log.Error("queue edit not persisted", zap.Error(err))
		return c.snapshot(), err
	}
	c.state = next
	if cmd.kind == cmdClear || cmd.kind == cmdLoad {
		c.phase = Idle
	}
	if msg != "" {
		c.message = msg
	}
	c.notify(Event{Kind: EventChanged})
	return c.snapshot(), nil
}

func (c *Controller) start(ctx context.Context) (Snapshot, error) {
	if c.phase == Processing {
		c.message = MsgAlreadyRunning
		return c.snapshot(), ErrBusy
	}
	if c.inFlight {
		// A stopped batch still waits for its last record.
		return c.snapshot(), ErrBusy
	}
	if c.state.Total == 0 {
		c.message = MsgNoRecords
		return c.snapshot(), nil
	}

	c.phase = Searching
	idx, ok := c.state.NextIncomplete()
	if !ok {
		c.phase = Idle
		c.message = MsgNothingToDo
		c.log.Info("nothing to do", zap.Int("total", c.state.Total))
		c.notify(Event{Kind: EventFinished})
		return c.snapshot(), nil
	}

	if idx != c.state.Cursor {
		next := c.state.Clone()
		next.Cursor = idx
		if err := c.store.Save(ctx, next); err != nil {
			c.phase = Stopped
			c.message = msgSaveFailed(err)
			return c.snapshot(), err
		}
		c.state = next
	}

	c.phase = Processing
	c.paused = false
	c.log.Info("batch started", zap.Int("cursor", c.state.Cursor), zap.Int("total", c.state.Total))
	c.schedule(0)
	c.notify(Event{Kind: EventChanged})
	return c.snapshot(), nil
}

// =============================================================================
// PROCESSING LOOP
// =============================================================================

// step is the loop re-entry point: it either waits out a pause, finishes the
// batch, or dispatches the next record.
func (c *Controller) step(ctx context.Context) {
	if c.phase != Processing || c.inFlight {
		return
	}
	if c.paused {
		c.schedule(c.opts.PausePoll)
		return
	}

	idx, ok := c.state.NextIncomplete()
	if !ok {
		c.phase = Idle
		c.message = MsgBatchCompleted
		c.log.Info("batch completed", zap.Int("total", c.state.Total))
		c.notify(Event{Kind: EventFinished})
		return
	}
	if idx != c.state.Cursor {
		next := c.state.Clone()
		next.Cursor = idx
		if err := c.store.Save(ctx, next); err != nil {
			c.halt(msgSaveFailed(err))
			c.notify(Event{Kind: EventHalted, Err: err})
			return
		}
		c.state = next
	}

	record := fieldspec.DisplayCopy(c.state.Records[idx])
	req := protocol.NewStart(record)
	c.inFlight = true
	c.message = msgProcessing(idx, c.state.Total)
	c.log.Info("dispatching record", zap.Int("index", idx), zap.String("account", record.Account))
	c.notify(Event{Kind: EventChanged})

	go func() {
		resp, err := c.disp.Dispatch(ctx, req)
		c.results <- outcome{idx: idx, resp: resp, err: err}
	}()
}

// finish applies the terminal outcome of the record in flight.
func (c *Controller) finish(ctx context.Context, out outcome) {
	c.inFlight = false

	if out.err != nil {
		c.log.Error("dispatch failed", zap.Int("index", out.idx), zap.Error(out.err))
		c.halt(msgTransport(out.err))
		c.notify(Event{Kind: EventHalted, Err: out.err})
		return
	}

	resp := out.resp
	if resp.Status != protocol.StatusSuccess {
		c.log.Warn("record failed",
			zap.Int("index", out.idx),
			zap.String("status", string(resp.Status)),
			zap.String("message", resp.Message))
		c.halt(msgFailure(out.idx, resp))
		c.notify(Event{Kind: EventHalted, Response: &resp})
		return
	}

	next := c.state.Clone()
	next.Cursor = out.idx
	next.CompleteCurrent()
	if err := c.store.Save(ctx, next); err != nil {
		c.log.Error("completion not persisted", zap.Int("index", out.idx), zap.Error(err))
		c.halt(msgSaveFailed(err))
		c.notify(Event{Kind: EventHalted, Response: &resp, Err: err})
		return
	}
	c.state = next
	c.message = msgSuccess(out.idx, resp.Details)
	c.log.Info("record completed",
		zap.Int("index", out.idx),
		zap.Int("fields_checked", resp.Details.FieldsChecked),
		zap.Int("fields_matched", resp.Details.FieldsMatched))
	c.notify(Event{Kind: EventRecordCompleted, Response: &resp})

	if c.phase == Processing {
		c.schedule(c.opts.PacingDelay)
	}
}

// halt moves the batch to Stopped. The cursor is left where it is.
func (c *Controller) halt(msg string) {
	c.phase = Stopped
	c.paused = false
	c.message = msg
	c.cancelWake()
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *Controller) schedule(d time.Duration) {
	if d < 0 {
		d = 0
	}
	if c.timer == nil {
		c.timer = time.NewTimer(d)
	} else {
		c.timer.Reset(d)
	}
	c.wake = c.timer.C
}

func (c *Controller) cancelWake() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.wake = nil
}

func (c *Controller) snapshot() Snapshot {
	return Snapshot{
		Phase:    c.phase,
		Paused:   c.paused,
		InFlight: c.inFlight,
		State:    c.state.Clone(),
		Message:  c.message,
	}
}

func (c *Controller) notify(ev Event) {
	if c.opts.Observer == nil {
		return
	}
	ev.Snapshot = c.snapshot()
	c.opts.Observer(ev)
}
