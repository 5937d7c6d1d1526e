// =============================================================================
// entrypilot - Automation Agent
// =============================================================================
//
// The agent owns the live document. It runs in its own goroutine and serves
// one request at a time; nothing else ever touches the document, and the
// controller only reaches the agent through Dispatch.
//
// RECORD PIPELINE:
//   1. Build the field assignments for the record
//   2. Fill every assignment
//   3. Abandon the record if nothing could be filled (critical failure)
//   4. Verify the committed values
//   5. Advance the form, only if verification matched
//   6. Answer with exactly one Response
//
// =============================================================================

package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/entrypilot/internal/advance"
	"github.com/ginjaninja78/entrypilot/internal/config"
	"github.com/ginjaninja78/entrypilot/internal/document"
	"github.com/ginjaninja78/entrypilot/internal/fieldspec"
	"github.com/ginjaninja78/entrypilot/internal/filler"
	"github.com/ginjaninja78/entrypilot/internal/protocol"
	"github.com/ginjaninja78/entrypilot/internal/verification"
)

// ErrDisconnected is returned by Dispatch when the agent is not serving.
var ErrDisconnected = errors.New("automation agent disconnected")

// Response messages.
const (
	MsgSuccess      = "Record processed and form reset."
	MsgCritical     = "No fields could be filled or found for verification."
	MsgVerifyFailed = "Field verification failed."
	MsgNotAdvanced  = "Verification failed or form not reset."
	MsgPanic        = "Automation failed unexpectedly."
)

// =============================================================================
// SETTINGS
// =============================================================================

// Settings is the part of the configuration the agent uses. It is copied
// into the agent so that later changes only arrive through UpdateTimeouts.
type Settings struct {
	Selectors config.Selectors
	Category  string
	Timeouts  config.Timeouts
	Interval  time.Duration
}

// SettingsFrom extracts agent settings from cfg.
func SettingsFrom(cfg *config.Config) Settings {
	return Settings{
		Selectors: cfg.Selectors,
		Category:  cfg.TranCodeCategory,
		Timeouts:  cfg.Timeouts,
	}
}

// =============================================================================
// AGENT
// =============================================================================

type envelope struct {
	payload []byte
	reply   chan []byte
}

// Agent serves automation requests against one document.
type Agent struct {
	doc      document.Document
	settings Settings
	log      *zap.Logger

	requests chan envelope
	updates  chan config.Timeouts

	startOnce sync.Once
	started   chan struct{}
	done      chan struct{}
}

// NewAgent creates an agent. Serve must be running for Dispatch to succeed.
func NewAgent(doc document.Document, settings Settings, log *zap.Logger) *Agent {
	if log == nil {
		log = zap.NewNop()
	}
	return &Agent{
		doc:      doc,
		settings: settings,
		log:      log.Named("agent"),
		requests: make(chan envelope),
		updates:  make(chan config.Timeouts, 1),
		started:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Serve handles requests until ctx is cancelled. It may only be called once.
func (a *Agent) Serve(ctx context.Context) error {
	first := false
	a.startOnce.Do(func() { first = true })
	if !first {
		return errors.New("automation agent already served")
	}
	close(a.started)
	defer close(a.done)

	a.log.Info("automation agent ready")
	for {
		select {
		case <-ctx.Done():
			a.log.Info("automation agent stopped")
			return nil

		case t := <-a.updates:
			a.settings.Timeouts = t
			a.log.Info("timeouts updated",
				zap.Int("default_element_wait_ms", t.DefaultElementWaitMs),
				zap.Int("commit_control_wait_ms", t.CommitControlWaitMs),
				zap.Int("reset_wait_ms", t.ResetWaitMs),
				zap.Int("reset_after_force_wait_ms", t.ResetAfterForceWaitMs))

		case env := <-a.requests:
			env.reply <- a.serveOne(ctx, env.payload)
		}
	}
}

// Started is closed once Serve accepts requests.
func (a *Agent) Started() <-chan struct{} {
	return a.started
}

// UpdateTimeouts replaces the wait bounds used for subsequent records. A
// record already in flight keeps the bounds it started with.
func (a *Agent) UpdateTimeouts(t config.Timeouts) {
	for {
		select {
		case a.updates <- t:
			return
		default:
		}
		select {
		case <-a.updates:
		default:
		}
	}
}

func (a *Agent) serveOne(ctx context.Context, payload []byte) []byte {
	var resp protocol.Response
	req, err := protocol.DecodeRequest(payload)
	if err != nil {
		a.log.Warn("rejected request", zap.Error(err))
		resp = protocol.Response{Status: protocol.StatusError, Message: err.Error()}
	} else {
		resp = a.Handle(ctx, req)
	}

	out, err := protocol.Encode(resp)
	if err != nil {
		out, _ = protocol.Encode(protocol.Response{Status: protocol.StatusError, Message: err.Error()})
	}
	return out
}

// =============================================================================
// PIPELINE
// =============================================================================

// Handle runs the record pipeline for one validated request.
func (a *Agent) Handle(ctx context.Context, req protocol.Request) (resp protocol.Response) {
	start := time.Now()
	s := a.settings
	log := a.log.With(zap.String("account", req.Data.Account), zap.String("application", req.Data.Application))

	defer func() {
		if r := recover(); r != nil {
			log.Error("record pipeline panicked", zap.Any("panic", r))
			resp = protocol.Response{Status: protocol.StatusError, Message: fmt.Sprintf("%s %v", MsgPanic, r)}
		}
		log.Info("record finished",
			zap.String("status", string(resp.Status)),
			zap.String("message", resp.Message),
			zap.Duration("elapsed", time.Since(start)))
	}()

	// Step 1: Build assignments
	assignments := fieldspec.Build(*req.Data, s.Selectors, s.Category)

	// Step 2: Fill
	f := filler.New(a.doc, s.Timeouts.DefaultElementWait(), a.log)
	if s.Interval > 0 {
		f.WithInterval(s.Interval)
	}
	fill := f.FillAll(ctx, assignments)
	log.Debug("fill finished", zap.Int("filled", fill.Filled), zap.Int("skipped", len(fill.SkipLog)))

	details := protocol.Details{SkipLog: fill.SkipLog, Mismatched: []verification.Mismatch{}, NotFound: []string{}}

	// Step 3: Critical failure
	if verification.IsCritical(fill) {
		return protocol.Response{Status: protocol.StatusVerificationError, Message: MsgCritical, Details: details}
	}

	// Step 4: Verify
	report := verification.New(a.doc, a.log).Verify(ctx, assignments, fill.SkipLog)
	details.FieldsChecked = report.FieldsChecked
	details.FieldsMatched = report.FieldsMatched
	details.Mismatched = report.Mismatched
	details.NotFound = report.NotFound

	if !report.AllMatch {
		return protocol.Response{Status: protocol.StatusVerificationFailed, Message: MsgVerifyFailed, Details: details}
	}

	// A vacuous match only advances when every assignment was skipped.
	if fill.Filled == 0 && len(fill.SkipLog) != len(assignments) {
		return protocol.Response{Status: protocol.StatusVerificationFailed, Message: MsgNotAdvanced, Details: details}
	}

	// Step 5: Advance
	m := advance.New(a.doc, advance.Selectors{
		CommitControl:  s.Selectors.CommitControl,
		Anchor:         s.Selectors.Anchor,
		ErrorIndicator: s.Selectors.ErrorIndicator,
		ForceSubmit:    s.Selectors.ForceSubmit,
	}, advance.Timeouts{
		CommitControl:   s.Timeouts.CommitControlWait(),
		Reset:           s.Timeouts.ResetWait(),
		ResetAfterForce: s.Timeouts.ResetAfterForceWait(),
	}, a.log)
	if s.Interval > 0 {
		m.WithInterval(s.Interval)
	}
	adv := m.Advance(ctx)
	details.AdvanceInfo = &adv

	// Step 6: Final status
	if !adv.Reset {
		msg := adv.StatusMessage
		if msg == "" {
			msg = MsgNotAdvanced
		}
		return protocol.Response{Status: protocol.StatusVerificationFailed, Message: msg, Details: details}
	}
	return protocol.Response{Status: protocol.StatusSuccess, Message: MsgSuccess, Details: details}
}
