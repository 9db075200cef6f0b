// Package rodsession drives the portal through Chrome using go-rod with the
// stealth evasions applied to every page.
package rodsession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/example/cita-scheduler/internal/domain/cita"
	"github.com/example/cita-scheduler/internal/internaltypes"
)

var _ cita.PageSession = (*Session)(nil)

const (
	defaultActionTimeout = 30 * time.Second
	defaultLoadTimeout   = 50 * time.Second

	// navigationGrace is how long a script or submit gets to start a navigation.
	navigationGrace = 1500 * time.Millisecond
	navigationPoll  = 100 * time.Millisecond
)

type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty launches a local Chrome.
	RemoteURL string
	Headless  bool
	UserAgent string
	// ActionTimeout bounds every element action. Default: 30s.
	ActionTimeout time.Duration
	Logger        *slog.Logger
}

func (c *Config) defaults() {
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = defaultActionTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Session implements cita.PageSession on a single stealth page.
type Session struct {
	cfg     Config
	browser *rod.Browser
	lnch    *launcher.Launcher
	page    *rod.Page

	mu          sync.Mutex
	loadTimeout time.Duration
}

// Open launches (or connects to) Chrome and opens the stealth page.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	cfg.defaults()
	log := cfg.Logger
	s := &Session{cfg: cfg, loadTimeout: defaultLoadTimeout}

	wsURL := cfg.RemoteURL
	if wsURL != "" {
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Headless(cfg.Headless)
		l = l.Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		s.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "headless", cfg.Headless)
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	s.browser = b.Context(context.Background())
	if err := s.browser.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}

	p, err := stealth.Page(s.browser)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("browser: stealth page: %w", err)
	}
	if cfg.UserAgent != "" {
		if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: cfg.UserAgent}); err != nil {
			s.cleanup()
			return nil, fmt.Errorf("browser: user agent: %w", err)
		}
	}
	s.page = p
	return s, nil
}

func (s *Session) SetPageLoadTimeout(d time.Duration) {
	s.mu.Lock()
	s.loadTimeout = d
	s.mu.Unlock()
}

func (s *Session) ClearCookies(ctx context.Context) error {
	// An empty cookie list clears the jar.
	return translate(s.browser.Context(ctx).SetCookies(nil))
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	p, cancel := s.scoped(ctx, s.pageLoadTimeout())
	defer cancel()
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, translate(err))
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("load %s: %w", url, translate(err))
	}
	return nil
}

func (s *Session) Refresh(ctx context.Context) error {
	p, cancel := s.scoped(ctx, s.pageLoadTimeout())
	defer cancel()
	if err := p.Reload(); err != nil {
		return fmt.Errorf("reload: %w", translate(err))
	}
	return translate(p.WaitLoad())
}

func (s *Session) Title(ctx context.Context) (string, error) {
	p, cancel := s.scoped(ctx, s.cfg.ActionTimeout)
	defer cancel()
	info, err := p.Info()
	if err != nil {
		return "", translate(err)
	}
	return info.Title, nil
}

func (s *Session) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	p, cancel := s.scoped(ctx, timeout)
	defer cancel()
	if _, err := p.Element(selector); err != nil {
		return fmt.Errorf("wait for %s: %w", selector, translate(err))
	}
	return nil
}

func (s *Session) Has(ctx context.Context, selector string) (bool, error) {
	p, cancel := s.scoped(ctx, s.cfg.ActionTimeout)
	defer cancel()
	ok, _, err := p.Has(selector)
	return ok, translate(err)
}

func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	var out string
	err := s.withElement(ctx, selector, func(el *rod.Element) (err error) {
		out, err = el.Text()
		return err
	})
	return out, err
}

func (s *Session) Texts(ctx context.Context, selector string) ([]string, error) {
	p, cancel := s.scoped(ctx, s.cfg.ActionTimeout)
	defer cancel()
	els, err := p.Elements(selector)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]string, 0, len(els))
	for _, el := range els {
		t, err := el.Text()
		if err != nil {
			return nil, translate(err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Session) Attr(ctx context.Context, selector, name string) (string, error) {
	var out string
	err := s.withElement(ctx, selector, func(el *rod.Element) error {
		v, err := el.Attribute(name)
		if err != nil {
			return err
		}
		if v != nil {
			out = *v
		}
		return nil
	})
	return out, err
}

// HTML returns the outer HTML of the first match.
func (s *Session) HTML(ctx context.Context, selector string) (string, error) {
	var out string
	err := s.withElement(ctx, selector, func(el *rod.Element) (err error) {
		out, err = el.HTML()
		return err
	})
	return out, err
}

func (s *Session) Type(ctx context.Context, selector, value string) error {
	return s.withElement(ctx, selector, func(el *rod.Element) error {
		if err := el.SelectAllText(); err != nil {
			return err
		}
		return el.Input(value)
	})
}

func (s *Session) Toggle(ctx context.Context, selector string, nth int) error {
	p, cancel := s.scoped(ctx, s.cfg.ActionTimeout)
	defer cancel()
	els, err := p.Elements(selector)
	if err != nil {
		return translate(err)
	}
	if nth < 0 || nth >= len(els) {
		return fmt.Errorf("%s[%d]: %w", selector, nth, internaltypes.ErrNotFound)
	}
	if err := els[nth].Type(input.Space); err != nil {
		return fmt.Errorf("toggle %s[%d]: %w", selector, nth, translate(err))
	}
	return nil
}

func (s *Session) Submit(ctx context.Context, selector string) error {
	if err := s.mark(ctx); err != nil {
		return err
	}
	err := s.withElement(ctx, selector, func(el *rod.Element) error {
		return el.Type(input.Enter)
	})
	if err != nil {
		return err
	}
	return s.settle(ctx)
}

func (s *Session) SelectByText(ctx context.Context, selector, text string) error {
	return s.withElement(ctx, selector, func(el *rod.Element) error {
		return el.Select([]string{text}, true, rod.SelectorTypeText)
	})
}

func (s *Session) SelectByValue(ctx context.Context, selector, value string) error {
	return s.withElement(ctx, selector, func(el *rod.Element) error {
		return el.Select([]string{fmt.Sprintf("[value=%q]", value)}, true, rod.SelectorTypeCSSSector)
	})
}

// Exec dispatches script on the page event loop. When the script navigates,
// Exec returns once the next document has loaded.
func (s *Session) Exec(ctx context.Context, script string) error {
	p, cancel := s.scoped(ctx, s.cfg.ActionTimeout)
	defer cancel()
	if _, err := p.Eval(dispatch(script)); err != nil {
		return fmt.Errorf("exec: %w", translate(err))
	}
	return s.settle(ctx)
}

func (s *Session) ExecConfirm(ctx context.Context, script string) error {
	p, cancel := s.scoped(ctx, s.cfg.ActionTimeout)
	defer cancel()

	wait, handle := p.HandleDialog()
	if _, err := p.Eval(dispatch(script)); err != nil {
		return fmt.Errorf("exec: %w", translate(err))
	}
	wait()
	if err := p.GetContext().Err(); err != nil {
		return fmt.Errorf("confirmation dialog: %w", translate(err))
	}
	if err := handle(&proto.PageHandleJavaScriptDialog{Accept: true}); err != nil {
		return fmt.Errorf("accept dialog: %w", translate(err))
	}
	return s.settle(ctx)
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	p, cancel := s.scoped(ctx, s.cfg.ActionTimeout)
	defer cancel()
	img, err := p.Screenshot(true, nil)
	return img, translate(err)
}

func (s *Session) Close() error {
	s.cleanup()
	return nil
}

func (s *Session) cleanup() {
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.cfg.Logger.Warn("browser: close", "error", err)
		}
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
}

func (s *Session) withElement(ctx context.Context, selector string, fn func(*rod.Element) error) error {
	p, cancel := s.scoped(ctx, s.cfg.ActionTimeout)
	defer cancel()
	ok, el, err := p.Has(selector)
	if err != nil {
		return fmt.Errorf("%s: %w", selector, translate(err))
	}
	if !ok {
		return fmt.Errorf("%s: %w", selector, internaltypes.ErrNotFound)
	}
	if err := fn(el); err != nil {
		return fmt.Errorf("%s: %w", selector, translate(err))
	}
	return nil
}

func (s *Session) scoped(ctx context.Context, d time.Duration) (*rod.Page, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, d)
	return s.page.Context(ctx), cancel
}

func (s *Session) pageLoadTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadTimeout
}

// mark tags the current document so settle can tell when it has been replaced.
func (s *Session) mark(ctx context.Context) error {
	p, cancel := s.scoped(ctx, s.cfg.ActionTimeout)
	defer cancel()
	if _, err := p.Eval(`() => { window.__citaDoc = true }`); err != nil {
		return translate(err)
	}
	return nil
}

// settle waits for the navigation started by the last action, if any, to
// finish loading. A document still carrying the mark after navigationGrace
// means nothing navigated.
func (s *Session) settle(ctx context.Context) error {
	p, cancel := s.scoped(ctx, s.pageLoadTimeout())
	defer cancel()
	deadline := time.Now().Add(navigationGrace)
	for time.Now().Before(deadline) {
		res, err := p.Eval(`() => window.__citaDoc === true`)
		if err == nil && !res.Value.Bool() {
			if err := p.WaitLoad(); err != nil {
				return fmt.Errorf("load after navigation: %w", translate(err))
			}
			return nil
		}
		if cerr := p.GetContext().Err(); cerr != nil {
			return translate(cerr)
		}
		// Evaluation fails while the old document is being torn down.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(navigationPoll):
		}
	}
	return nil
}

func dispatch(script string) string {
	return "() => { window.__citaDoc = true; setTimeout(() => { " + script + " }, 0) }"
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", internaltypes.ErrTimeout, err)
	}
	return err
}
