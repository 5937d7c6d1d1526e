// =============================================================================
// entrypilot - Wait Primitives
// =============================================================================
//
// Every step that depends on the host page catching up (a control being
// rendered, an option list being populated, the form resetting) goes through
// Poll. It re-evaluates a probe at a fixed interval until the probe is
// satisfied, the time bound runs out, or the caller's context is cancelled.
//
// =============================================================================

package wait

import (
	"context"
	"errors"
	"time"
)

// DefaultInterval is the probe interval used across the automation.
const DefaultInterval = 500 * time.Millisecond

// ErrTimeout is returned when the bound elapsed before the probe was
// satisfied.
var ErrTimeout = errors.New("wait timed out")

// Probe inspects the current state. It returns the observed value and true
// once the condition holds. A non-nil error aborts the wait.
type Probe[T any] func(ctx context.Context) (T, bool, error)

// Poll evaluates probe immediately and then every interval until it is
// satisfied or timeout elapses. A last probe runs at the deadline so that a
// condition becoming true during the final interval is not missed.
//
// RETURNS:
//   - the value of the satisfying probe
//   - ErrTimeout when the bound elapsed
//   - ctx.Err() when the context was cancelled
//   - the probe's own error, unchanged
func Poll[T any](ctx context.Context, interval, timeout time.Duration, probe Probe[T]) (T, error) {
	var zero T
	if interval <= 0 {
		interval = DefaultInterval
	}
	deadline := time.Now().Add(timeout)

	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, ok, err := probe(ctx)
		if err != nil {
			return zero, err
		}
		if ok {
			return v, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return zero, ErrTimeout
		}
		if err := Sleep(ctx, min(interval, remaining)); err != nil {
			return zero, err
		}
	}
}

// Until is Poll for probes that carry no value.
func Until(ctx context.Context, interval, timeout time.Duration, cond func(ctx context.Context) (bool, error)) error {
	_, err := Poll(ctx, interval, timeout, func(ctx context.Context) (struct{}, bool, error) {
		ok, err := cond(ctx)
		return struct{}{}, ok, err
	})
	return err
}

// Sleep pauses for d or until ctx is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
