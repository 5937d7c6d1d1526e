// =============================================================================
// entrypilot - Document Abstraction
// =============================================================================
//
// The automation never talks to a browser directly. It sees the host form
// through the two small interfaces below, which keeps the filling,
// verification and advance logic testable against an in-memory document
// (see package doctest) and lets the live implementation (rod.go) stay a
// thin adapter.
//
// =============================================================================

package document

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Query when no element matches the selector.
var ErrNotFound = errors.New("selector not found")

// Document is the live host form.
type Document interface {
	// Query returns the first element matching selector, or ErrNotFound.
	// It never waits.
	Query(ctx context.Context, selector string) (Element, error)
}

// Element is one control of the host form.
type Element interface {
	// State reads a snapshot of the control.
	State(ctx context.Context) (ElementState, error)

	// SetValue writes value and dispatches the input and change
	// notifications the host page listens for, so dependent controls
	// refresh.
	SetValue(ctx context.Context, value string) error

	// Click activates the control.
	Click(ctx context.Context) error
}

// Option is one entry of a selectable control.
type Option struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// ElementState is a point-in-time snapshot of a control.
type ElementState struct {
	Tag      string   `json:"tag"`
	Value    string   `json:"value"`
	Disabled bool     `json:"disabled"`
	ReadOnly bool     `json:"readOnly"`
	Visible  bool     `json:"visible"`
	Options  []Option `json:"options"`
}

// Modifiable reports whether the control accepts a new value.
func (s ElementState) Modifiable() bool {
	return !s.Disabled && !s.ReadOnly
}

// HasOption reports whether an option's value or visible text equals want.
func (s ElementState) HasOption(want string) bool {
	for _, o := range s.Options {
		if o.Value == want || o.Text == want {
			return true
		}
	}
	return false
}

// Exists reports whether selector currently matches an element. Errors other
// than ErrNotFound are returned.
func Exists(ctx context.Context, doc Document, selector string) (Element, bool, error) {
	el, err := doc.Query(ctx, selector)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return el, true, nil
}
