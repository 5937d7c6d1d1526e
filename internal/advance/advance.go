// =============================================================================
// entrypilot - Advance State Machine
// =============================================================================
//
// Advance commits the entered record and confirms that the host form reset
// for the next entry. When the form does not reset and the page shows its
// error prompt, one forced submit is attempted.
//
// STATES:
//   Idle -> Clicked -> WaitingReset -> Reset
//                                   -> PopupCheck -> NotReset
//                                                 -> ForcePostAttempt -> NotReset
//                                                                     -> WaitingResetAfterForce -> Reset | NotReset
//
//   There is exactly one attempt per record. Every terminal state produces a
//   Result; nothing is returned as a Go error and panics are recovered.
//
// =============================================================================

package advance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/entrypilot/internal/document"
	"github.com/ginjaninja78/entrypilot/internal/wait"
)

// ForceControlWait bounds the wait for the forced-submit control. It is not
// configurable.
const ForceControlWait = 2 * time.Second

// Status messages.
const (
	MsgReset              = "Clicked. Fields reset."
	MsgResetAfterForce    = "Force post clicked. Fields reset."
	MsgCommitNotFound     = "Add Another button not found."
	MsgCommitDisabled     = "Add Another button disabled."
	MsgNoErrorIndicator   = "Fields not reset (timeout, no error indicator)."
	MsgForceNotFound      = "Force post button not found. Fields not reset."
	MsgForceDisabled      = "Force post button disabled. Fields not reset."
	MsgNotResetAfterForce = "Force post clicked. Fields not reset."
)

// =============================================================================
// STATE
// =============================================================================

// State is a step of the advance procedure.
type State int

const (
	Idle State = iota
	Clicked
	WaitingReset
	PopupCheck
	ForcePostAttempt
	WaitingResetAfterForce
	Reset
	NotReset
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Clicked:
		return "clicked"
	case WaitingReset:
		return "waiting-reset"
	case PopupCheck:
		return "popup-check"
	case ForcePostAttempt:
		return "force-post-attempt"
	case WaitingResetAfterForce:
		return "waiting-reset-after-force"
	case Reset:
		return "reset"
	case NotReset:
		return "not-reset"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends the procedure.
func (s State) Terminal() bool {
	return s == Reset || s == NotReset
}

// Result is the terminal outcome.
type Result struct {
	Clicked             bool   `json:"clicked"`
	Reset               bool   `json:"reset"`
	StatusMessage       string `json:"statusMessage"`
	ForcedPostAttempted bool   `json:"forcedPostAttempted"`
	Error               string `json:"error,omitempty"`
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Selectors are the controls the procedure touches.
type Selectors struct {
	CommitControl  string
	Anchor         string
	ErrorIndicator string
	ForceSubmit    string
}

// Timeouts are the configurable bounds.
type Timeouts struct {
	CommitControl   time.Duration
	Reset           time.Duration
	ResetAfterForce time.Duration
}

// =============================================================================
// MACHINE
// =============================================================================

// Machine runs the advance procedure against a document.
type Machine struct {
	doc       document.Document
	sel       Selectors
	timeouts  Timeouts
	interval  time.Duration
	forceWait time.Duration
	log       *zap.Logger
}

// New creates a machine.
func New(doc document.Document, sel Selectors, timeouts Timeouts, log *zap.Logger) *Machine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Machine{
		doc:       doc,
		sel:       sel,
		timeouts:  timeouts,
		interval:  wait.DefaultInterval,
		forceWait: ForceControlWait,
		log:       log.Named("advance"),
	}
}

// WithInterval overrides the polling interval.
func (m *Machine) WithInterval(d time.Duration) *Machine {
	m.interval = d
	return m
}

// run carries the procedure's working state between steps.
type run struct {
	state  State
	result Result
}

// Advance runs the procedure once and returns its terminal result.
func (m *Machine) Advance(ctx context.Context) (res Result) {
	r := &run{state: Idle}
	defer func() {
		if p := recover(); p != nil {
			m.log.Error("advance panicked", zap.Stringer("state", r.state), zap.Any("panic", p))
			res = r.result
			res.Reset = false
			res.Error = fmt.Sprintf("panic: %v", p)
			res.StatusMessage = fmt.Sprintf("Advance failed in %s: %v", r.state, p)
		}
	}()

	for !r.state.Terminal() {
		prev := r.state
		r.state = m.step(ctx, r)
		m.log.Debug("advance transition", zap.Stringer("from", prev), zap.Stringer("to", r.state))
	}
	return r.result
}

// step executes the current state and returns the next one.
func (m *Machine) step(ctx context.Context, r *run) State {
	switch r.state {
	case Idle:
		el, err := m.waitFor(ctx, m.sel.CommitControl, m.timeouts.CommitControl)
		if err != nil {
			return m.fail(r, MsgCommitNotFound, err)
		}
		st, err := el.State(ctx)
		if err != nil {
			return m.fail(r, MsgCommitNotFound, err)
		}
		if st.Disabled {
			r.result.StatusMessage = MsgCommitDisabled
			return NotReset
		}
		if err := el.Click(ctx); err != nil {
			return m.fail(r, MsgCommitNotFound, err)
		}
		r.result.Clicked = true
		return Clicked

	case Clicked:
		return WaitingReset

	case WaitingReset:
		switch err := m.waitReset(ctx, m.timeouts.Reset); {
		case err == nil:
			r.result.Reset = true
			r.result.StatusMessage = MsgReset
			return Reset
		case errors.Is(err, wait.ErrTimeout):
			return PopupCheck
		default:
			return m.fail(r, MsgNoErrorIndicator, err)
		}

	case PopupCheck:
		visible, err := m.indicatorVisible(ctx)
		if err != nil {
			return m.fail(r, MsgNoErrorIndicator, err)
		}
		if !visible {
			r.result.StatusMessage = MsgNoErrorIndicator
			return NotReset
		}
		m.log.Info("error indicator visible, attempting forced submit")
		return ForcePostAttempt

	case ForcePostAttempt:
		r.result.ForcedPostAttempted = true
		el, err := m.waitFor(ctx, m.sel.ForceSubmit, m.forceWait)
		if err != nil {
			return m.fail(r, MsgForceNotFound, err)
		}
		st, err := el.State(ctx)
		if err != nil {
			return m.fail(r, MsgForceNotFound, err)
		}
		if st.Disabled {
			r.result.StatusMessage = MsgForceDisabled
			return NotReset
		}
		if err := el.Click(ctx); err != nil {
			return m.fail(r, MsgForceNotFound, err)
		}
		return WaitingResetAfterForce

	case WaitingResetAfterForce:
		switch err := m.waitReset(ctx, m.timeouts.ResetAfterForce); {
		case err == nil:
			r.result.Reset = true
			r.result.StatusMessage = MsgResetAfterForce
			return Reset
		case errors.Is(err, wait.ErrTimeout):
			r.result.StatusMessage = MsgNotResetAfterForce
			return NotReset
		default:
			return m.fail(r, MsgNotResetAfterForce, err)
		}

	case Reset, NotReset:
		return r.state

	default:
		panic(fmt.Sprintf("advance: unknown state %d", r.state))
	}
}

// fail records a terminal NotReset. Timeouts keep the plain message; any
// other error is appended to it.
func (m *Machine) fail(r *run, msg string, err error) State {
	r.result.Reset = false
	r.result.StatusMessage = msg
	if !errors.Is(err, wait.ErrTimeout) && !errors.Is(err, document.ErrNotFound) {
		r.result.Error = err.Error()
		r.result.StatusMessage = fmt.Sprintf("%s (%v)", msg, err)
	}
	m.log.Warn("advance did not reset", zap.Stringer("state", r.state), zap.String("reason", r.result.StatusMessage))
	return NotReset
}

func (m *Machine) waitFor(ctx context.Context, selector string, timeout time.Duration) (document.Element, error) {
	return wait.Poll(ctx, m.interval, timeout, func(ctx context.Context) (document.Element, bool, error) {
		return document.Exists(ctx, m.doc, selector)
	})
}

// waitReset polls the anchor field until it exists and is empty.
func (m *Machine) waitReset(ctx context.Context, timeout time.Duration) error {
	return wait.Until(ctx, m.interval, timeout, func(ctx context.Context) (bool, error) {
		el, ok, err := document.Exists(ctx, m.doc, m.sel.Anchor)
		if err != nil || !ok {
			return false, err
		}
		st, err := el.State(ctx)
		if err != nil {
			return false, err
		}
		return st.Value == "", nil
	})
}

func (m *Machine) indicatorVisible(ctx context.Context) (bool, error) {
	el, ok, err := document.Exists(ctx, m.doc, m.sel.ErrorIndicator)
	if err != nil || !ok {
		return false, err
	}
	st, err := el.State(ctx)
	if err != nil {
		return false, err
	}
	return st.Visible, nil
}
