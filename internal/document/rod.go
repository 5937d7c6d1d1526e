package document

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/ginjaninja78/entrypilot/internal/config"
)

// =============================================================================
// BROWSER SESSION
// =============================================================================

// Session owns the browser connection and the tab holding the host form.
type Session struct {
	browser  *rod.Browser
	launched *launcher.Launcher
	page     *rod.Page
	log      *zap.Logger
}

// Connect attaches to the browser described by cfg, launching one when no
// debugger URL is configured, and selects the tab holding the host form.
//
// PARAMETERS:
//   - ctx: bounds the connection; the returned session outlives it
//   - cfg: browser section of the configuration
//   - log: logger
//
// RETURNS:
//   - *Session: connected session, to be closed by the caller
//   - error: if the browser could not be reached
func Connect(ctx context.Context, cfg config.Browser, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{log: log.Named("browser")}

	controlURL := cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(cfg.Headless)
		if len(cfg.Launch) > 0 {
			l = l.Bin(cfg.Launch[0])
			for _, raw := range cfg.Launch[1:] {
				name, val, hasVal := strings.Cut(strings.TrimLeft(raw, "-"), "=")
				if hasVal {
					l = l.Set(flags.Flag(name), val)
				} else {
					l = l.Set(flags.Flag(name))
				}
			}
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
		s.launched = l
		s.log.Info("browser launched", zap.Bool("headless", cfg.Headless))
	}

	s.browser = rod.New().ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		s.killLauncher()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	page, err := s.selectPage(ctx, cfg)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.page = page
	return s, nil
}

// selectPage returns the first open tab whose URL contains the target URL,
// or opens a new one.
func (s *Session) selectPage(ctx context.Context, cfg config.Browser) (*rod.Page, error) {
	pages, err := s.browser.Pages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		if cfg.TargetURL == "" || strings.Contains(info.URL, cfg.TargetURL) {
			s.log.Info("attached to page", zap.String("url", info.URL))
			return p, nil
		}
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{URL: cfg.TargetURL})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	nav := cfg.NavigationTimeout()
	if nav <= 0 {
		nav = 30 * time.Second
	}
	if err := page.Context(ctx).Timeout(nav).WaitLoad(); err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.TargetURL, err)
	}
	s.log.Info("opened page", zap.String("url", cfg.TargetURL))
	return page, nil
}

// Document returns the host form of the selected tab.
func (s *Session) Document() Document {
	return &rodDocument{page: s.page}
}

// Close disconnects and, when the browser was launched by Connect, stops it.
func (s *Session) Close() error {
	var err error
	if s.browser != nil && s.launched != nil {
		err = s.browser.Close()
	}
	s.killLauncher()
	return err
}

func (s *Session) killLauncher() {
	if s.launched != nil {
		s.launched.Kill()
		s.launched = nil
	}
}

// =============================================================================
// ROD DOCUMENT
// =============================================================================

type rodDocument struct {
	page *rod.Page
}

func (d *rodDocument) Query(ctx context.Context, selector string) (Element, error) {
	has, el, err := d.page.Context(ctx).Has(selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	if !has {
		return nil, ErrNotFound
	}
	return &rodElement{el: el}, nil
}

type rodElement struct {
	el *rod.Element
}

const stateJS = `() => {
	const opts = this.options ? Array.from(this.options).map(o => ({ value: o.value, text: o.text })) : [];
	return {
		tag: this.tagName.toLowerCase(),
		value: this.value === undefined || this.value === null ? "" : String(this.value),
		disabled: !!this.disabled,
		readOnly: !!this.readOnly,
		visible: this.offsetParent !== null,
		options: opts,
	};
}`

// setValueJS mirrors what a user edit produces: the value changes and the
// page sees bubbling input and change events.
const setValueJS = `(v) => {
	this.value = v;
	this.dispatchEvent(new Event("input", { bubbles: true }));
	this.dispatchEvent(new Event("change", { bubbles: true }));
}`

func (e *rodElement) State(ctx context.Context) (ElementState, error) {
	res, err := e.el.Context(ctx).Eval(stateJS)
	if err != nil {
		return ElementState{}, fmt.Errorf("read element: %w", err)
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return ElementState{}, fmt.Errorf("read element: %w", err)
	}
	var st ElementState
	if err := json.Unmarshal(raw, &st); err != nil {
		return ElementState{}, fmt.Errorf("decode element state: %w", err)
	}
	return st, nil
}

func (e *rodElement) SetValue(ctx context.Context, value string) error {
	if _, err := e.el.Context(ctx).Eval(setValueJS, value); err != nil {
		return fmt.Errorf("set value: %w", err)
	}
	return nil
}

// Click uses the element's own click() so that the page's handlers run even
// when the control is scrolled out of view.
func (e *rodElement) Click(ctx context.Context) error {
	if _, err := e.el.Context(ctx).Eval(`() => this.click()`); err != nil {
		return fmt.Errorf("click: %w", err)
	}
	return nil
}
