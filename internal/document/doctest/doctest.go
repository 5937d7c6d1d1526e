// Package doctest provides an in-memory document.Document for tests. Each
// element keeps a value, flags and options, and can run hooks when it is
// written or clicked so tests can script how the host page reacts.
package doctest

import (
	"context"
	"sync"

	"github.com/ginjaninja78/entrypilot/internal/document"
)

// Page is a scripted document. The zero value is not usable; use NewPage.
type Page struct {
	mu        sync.Mutex
	elements  map[string]*Element
	queryErrs map[string]error
	queries   map[string]int
}

// NewPage returns an empty page.
func NewPage() *Page {
	return &Page{
		elements:  make(map[string]*Element),
		queryErrs: make(map[string]error),
		queries:   make(map[string]int),
	}
}

// Add places el at selector, replacing any previous element, and returns el.
func (p *Page) Add(selector string, el *Element) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	el.page = p
	p.elements[selector] = el
	return el
}

// Field adds a visible, modifiable input holding value.
func (p *Page) Field(selector, value string) *Element {
	return p.Add(selector, &Element{tag: "input", value: value, visible: true})
}

// Button adds a visible, enabled button.
func (p *Page) Button(selector string) *Element {
	return p.Add(selector, &Element{tag: "button", visible: true})
}

// Remove takes the element at selector off the page.
func (p *Page) Remove(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, selector)
}

// FailQuery makes every Query for selector return err.
func (p *Page) FailQuery(selector string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queryErrs[selector] = err
}

// Get returns the element at selector, or nil.
func (p *Page) Get(selector string) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.elements[selector]
}

// Queries returns how many times selector was queried.
func (p *Page) Queries(selector string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries[selector]
}

// Query implements document.Document.
func (p *Page) Query(_ context.Context, selector string) (document.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries[selector]++
	if err := p.queryErrs[selector]; err != nil {
		return nil, err
	}
	el, ok := p.elements[selector]
	if !ok {
		return nil, document.ErrNotFound
	}
	return el, nil
}

// Element is a scripted control. Its fields are guarded by the owning
// page's mutex so hooks may safely mutate other elements of the page.
type Element struct {
	page *Page

	tag      string
	value    string
	disabled bool
	readOnly bool
	visible  bool
	options  []document.Option

	sets   []string
	clicks int

	// StateErr is returned by State when set.
	StateErr error
	// PanicOnState makes State panic, to exercise recovery paths.
	PanicOnState bool

	// OnSet runs after SetValue stored the value. The page lock is not
	// held.
	OnSet func(value string)
	// OnClick runs after Click was recorded.
	OnClick func()
}

// NewElement returns a visible, modifiable element with the given tag.
func NewElement(tag string) *Element {
	return &Element{tag: tag, visible: true}
}

func (e *Element) lock() func() {
	if e.page == nil {
		return func() {}
	}
	e.page.mu.Lock()
	return e.page.mu.Unlock
}

// Value returns the current value.
func (e *Element) Value() string {
	defer e.lock()()
	return e.value
}

// SetRaw changes the value without recording a write or running hooks, the
// way the host page itself changes a control.
func (e *Element) SetRaw(value string) *Element {
	defer e.lock()()
	e.value = value
	return e
}

// Disable marks the control disabled or enabled.
func (e *Element) Disable(disabled bool) *Element {
	defer e.lock()()
	e.disabled = disabled
	return e
}

// ReadOnly marks the control read-only or writable.
func (e *Element) ReadOnly(readOnly bool) *Element {
	defer e.lock()()
	e.readOnly = readOnly
	return e
}

// Hide marks the control hidden or visible.
func (e *Element) Hide(hidden bool) *Element {
	defer e.lock()()
	e.visible = !hidden
	return e
}

// WithOptions replaces the option list.
func (e *Element) WithOptions(opts ...document.Option) *Element {
	defer e.lock()()
	e.options = append([]document.Option(nil), opts...)
	return e
}

// Sets returns every value written through SetValue.
func (e *Element) Sets() []string {
	defer e.lock()()
	return append([]string(nil), e.sets...)
}

// Clicks returns how often the control was clicked.
func (e *Element) Clicks() int {
	defer e.lock()()
	return e.clicks
}

// State implements document.Element.
func (e *Element) State(context.Context) (document.ElementState, error) {
	unlock := e.lock()
	if e.PanicOnState {
		unlock()
		panic("doctest: state panic")
	}
	defer unlock()
	if e.StateErr != nil {
		return document.ElementState{}, e.StateErr
	}
	return document.ElementState{
		Tag:      e.tag,
		Value:    e.value,
		Disabled: e.disabled,
		ReadOnly: e.readOnly,
		Visible:  e.visible,
		Options:  append([]document.Option(nil), e.options...),
	}, nil
}

// SetValue implements document.Element.
func (e *Element) SetValue(_ context.Context, value string) error {
	unlock := e.lock()
	e.value = value
	e.sets = append(e.sets, value)
	hook := e.OnSet
	unlock()
	if hook != nil {
		hook(value)
	}
	return nil
}

// Click implements document.Element.
func (e *Element) Click(context.Context) error {
	unlock := e.lock()
	e.clicks++
	hook := e.OnClick
	unlock()
	if hook != nil {
		hook()
	}
	return nil
}
