// =============================================================================
// entrypilot - Field Filler
// =============================================================================
//
// The filler resolves each assignment's control with the assignment's wait
// strategy, checks that the control accepts input, writes the value and lets
// the page react through its own input/change listeners.
//
// ERROR HANDLING:
//   Nothing is returned as a Go error. Every problem, including a panic in
//   the document layer, becomes a classified Outcome so that one bad field
//   never aborts the rest of the record.
//
// =============================================================================

package filler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/entrypilot/internal/document"
	"github.com/ginjaninja78/entrypilot/internal/fieldspec"
	"github.com/ginjaninja78/entrypilot/internal/wait"
)

// =============================================================================
// OUTCOMES
// =============================================================================

// Status classifies one assignment's result.
type Status int

const (
	Success Status = iota
	Skipped
	Failed
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Skipped:
		return "skipped"
	case Failed:
		return "error"
	default:
		return "unknown"
	}
}

// Cause explains a non-successful outcome.
type Cause int

const (
	CauseNone Cause = iota
	CauseBlank
	CauseNotFound
	CauseTimeout
	CauseNotModifiable
	CauseError
)

// Reasons reported in the skip log.
const (
	ReasonBlank         = "blank or missing value"
	ReasonNotFound      = "selector not found"
	ReasonTimeout       = "wait timed out"
	ReasonNotModifiable = "not modifiable"
)

// Outcome is the result of one assignment.
type Outcome struct {
	Field  string
	Status Status
	Cause  Cause
	Reason string
}

// SkipEntry is one line of the skip log. Errors are logged alongside skips.
type SkipEntry struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
	Cause  Cause  `json:"-"`
}

// Result aggregates a whole record.
type Result struct {
	Filled   int
	SkipLog  []SkipEntry
	Outcomes []Outcome
}

// Skipped reports whether field appears in the skip log.
func (r Result) Skipped(field string) bool {
	for _, s := range r.SkipLog {
		if s.Field == field {
			return true
		}
	}
	return false
}

// =============================================================================
// FILLER
// =============================================================================

// Filler writes assignments into a document.
type Filler struct {
	doc      document.Document
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger
}

// New creates a filler. timeout bounds the DependentOptions and
// ExistenceOnly waits.
func New(doc document.Document, timeout time.Duration, log *zap.Logger) *Filler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Filler{
		doc:      doc,
		interval: wait.DefaultInterval,
		timeout:  timeout,
		log:      log.Named("filler"),
	}
}

// WithInterval overrides the polling interval.
func (f *Filler) WithInterval(d time.Duration) *Filler {
	f.interval = d
	return f
}

// FillAll processes the assignments in order.
func (f *Filler) FillAll(ctx context.Context, assignments []fieldspec.Assignment) Result {
	var res Result
	for _, a := range assignments {
		out := f.Fill(ctx, a)
		res.Outcomes = append(res.Outcomes, out)
		if out.Status == Success {
			res.Filled++
			continue
		}
		res.SkipLog = append(res.SkipLog, SkipEntry{Field: out.Field, Reason: out.Reason, Cause: out.Cause})
	}
	return res
}

// Fill processes one assignment.
func (f *Filler) Fill(ctx context.Context, a fieldspec.Assignment) (out Outcome) {
	out.Field = a.OriginKey
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Field: a.OriginKey, Status: Failed, Cause: CauseError, Reason: fmt.Sprintf("panic: %v", r)}
			f.log.Error("field fill panicked", zap.String("field", a.OriginKey), zap.Any("panic", r))
		}
	}()

	if a.SkippableWhenBlank && strings.TrimSpace(a.Value) == "" {
		f.log.Debug("skipping blank field", zap.String("field", a.OriginKey))
		return skipped(a.OriginKey, CauseBlank, ReasonBlank)
	}

	el, err := f.resolve(ctx, a)
	switch {
	case errors.Is(err, document.ErrNotFound):
		f.log.Warn("control not found", zap.String("field", a.OriginKey), zap.String("selector", a.Selector))
		return skipped(a.OriginKey, CauseNotFound, ReasonNotFound)
	case errors.Is(err, wait.ErrTimeout):
		f.log.Warn("control wait timed out",
			zap.String("field", a.OriginKey),
			zap.String("strategy", a.Wait.Kind.String()),
			zap.Duration("timeout", f.timeout))
		return skipped(a.OriginKey, CauseTimeout, ReasonTimeout)
	case err != nil:
		return failed(a.OriginKey, err)
	}

	st, err := el.State(ctx)
	if err != nil {
		return failed(a.OriginKey, err)
	}
	if !st.Modifiable() {
		f.log.Warn("control not modifiable", zap.String("field", a.OriginKey))
		return skipped(a.OriginKey, CauseNotModifiable, ReasonNotModifiable)
	}
	if err := el.SetValue(ctx, a.Value); err != nil {
		return failed(a.OriginKey, err)
	}

	f.log.Debug("field set", zap.String("field", a.OriginKey), zap.String("value", a.Value))
	return Outcome{Field: a.OriginKey, Status: Success}
}

// resolve locates the assignment's control using its wait strategy.
func (f *Filler) resolve(ctx context.Context, a fieldspec.Assignment) (document.Element, error) {
	switch a.Wait.Kind {
	case fieldspec.Plain:
		return f.doc.Query(ctx, a.Selector)

	case fieldspec.DependentOptions:
		return wait.Poll(ctx, f.interval, f.timeout, func(ctx context.Context) (document.Element, bool, error) {
			el, ok, err := document.Exists(ctx, f.doc, a.Selector)
			if err != nil || !ok {
				return nil, false, err
			}
			st, err := el.State(ctx)
			if err != nil {
				return nil, false, err
			}
			if a.Wait.Expected == "" {
				return el, len(st.Options) > 0, nil
			}
			return el, st.HasOption(a.Wait.Expected), nil
		})

	case fieldspec.ExistenceOnly:
		return wait.Poll(ctx, f.interval, f.timeout, func(ctx context.Context) (document.Element, bool, error) {
			el, ok, err := document.Exists(ctx, f.doc, a.Selector)
			return el, ok, err
		})

	default:
		return nil, fmt.Errorf("unknown wait strategy %d", a.Wait.Kind)
	}
}

func skipped(field string, cause Cause, reason string) Outcome {
	return Outcome{Field: field, Status: Skipped, Cause: cause, Reason: reason}
}

func failed(field string, err error) Outcome {
	return Outcome{Field: field, Status: Failed, Cause: CauseError, Reason: "error: " + err.Error()}
}
