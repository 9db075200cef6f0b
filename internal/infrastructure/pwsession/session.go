// Package pwsession drives the portal through Playwright.
package pwsession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/example/cita-scheduler/internal/domain/cita"
	"github.com/example/cita-scheduler/internal/internaltypes"
)

var _ cita.PageSession = (*Session)(nil)

const (
	defaultActionTimeout = 30 * time.Second

	// navigationGrace is how long a script or submit gets to start a navigation.
	navigationGrace = 1500 * time.Millisecond
	navigationPoll  = 100 * time.Millisecond
)

type Config struct {
	// RemoteURL connects to a running Playwright browser server instead of launching one.
	RemoteURL     string
	Headless      bool
	UserAgent     string
	ActionTimeout time.Duration
	Logger        *slog.Logger
}

type Session struct {
	cfg     Config
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
}

func Open(_ context.Context, cfg Config) (*Session, error) {
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = defaultActionTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Session{cfg: cfg}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("playwright: start: %w", err)
	}
	s.pw = pw

	if cfg.RemoteURL != "" {
		cfg.Logger.Info("playwright: connecting to remote", "url", cfg.RemoteURL)
		s.browser, err = pw.Chromium.Connect(cfg.RemoteURL)
	} else {
		s.browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(cfg.Headless),
			Args:     []string{"--disable-blink-features=AutomationControlled"},
		})
	}
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("playwright: browser: %w", err)
	}

	opts := playwright.BrowserNewContextOptions{IgnoreHttpsErrors: playwright.Bool(true)}
	if cfg.UserAgent != "" {
		opts.UserAgent = playwright.String(cfg.UserAgent)
	}
	if s.bctx, err = s.browser.NewContext(opts); err != nil {
		s.Close()
		return nil, fmt.Errorf("playwright: context: %w", err)
	}
	if s.page, err = s.bctx.NewPage(); err != nil {
		s.Close()
		return nil, fmt.Errorf("playwright: page: %w", err)
	}
	s.page.SetDefaultTimeout(ms(cfg.ActionTimeout))
	s.page.OnDialog(func(d playwright.Dialog) {
		if err := d.Accept(); err != nil {
			cfg.Logger.Warn("playwright: accept dialog", "error", err)
		}
	})
	return s, nil
}

func (s *Session) SetPageLoadTimeout(d time.Duration) {
	s.page.SetDefaultNavigationTimeout(ms(d))
}

func (s *Session) ClearCookies(context.Context) error {
	return translate(s.bctx.ClearCookies())
}

func (s *Session) Navigate(_ context.Context, url string) error {
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		return fmt.Errorf("navigate %s: %w", url, translate(err))
	}
	return nil
}

func (s *Session) Refresh(context.Context) error {
	if _, err := s.page.Reload(); err != nil {
		return fmt.Errorf("reload: %w", translate(err))
	}
	return nil
}

func (s *Session) Title(context.Context) (string, error) {
	t, err := s.page.Title()
	return t, translate(err)
}

func (s *Session) WaitFor(_ context.Context, selector string, timeout time.Duration) error {
	err := s.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(ms(timeout)),
	})
	if err != nil {
		return fmt.Errorf("wait for %s: %w", selector, translate(err))
	}
	return nil
}

func (s *Session) Has(_ context.Context, selector string) (bool, error) {
	n, err := s.page.Locator(selector).Count()
	return n > 0, translate(err)
}

func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	loc, err := s.first(ctx, selector)
	if err != nil {
		return "", err
	}
	t, err := loc.InnerText()
	return t, translate(err)
}

func (s *Session) Texts(_ context.Context, selector string) ([]string, error) {
	t, err := s.page.Locator(selector).AllInnerTexts()
	return t, translate(err)
}

func (s *Session) Attr(ctx context.Context, selector, name string) (string, error) {
	loc, err := s.first(ctx, selector)
	if err != nil {
		return "", err
	}
	v, err := loc.GetAttribute(name)
	return v, translate(err)
}

// HTML returns the outer HTML of the first match.
func (s *Session) HTML(ctx context.Context, selector string) (string, error) {
	loc, err := s.first(ctx, selector)
	if err != nil {
		return "", err
	}
	v, err := loc.Evaluate("el => el.outerHTML", nil)
	if err != nil {
		return "", translate(err)
	}
	html, _ := v.(string)
	return html, nil
}

func (s *Session) Type(ctx context.Context, selector, value string) error {
	loc, err := s.first(ctx, selector)
	if err != nil {
		return err
	}
	return translate(loc.Fill(value))
}

func (s *Session) Toggle(_ context.Context, selector string, nth int) error {
	all := s.page.Locator(selector)
	n, err := all.Count()
	if err != nil {
		return translate(err)
	}
	if nth < 0 || nth >= n {
		return fmt.Errorf("%s[%d]: %w", selector, nth, internaltypes.ErrNotFound)
	}
	return translate(all.Nth(nth).Press("Space"))
}

func (s *Session) Submit(ctx context.Context, selector string) error {
	loc, err := s.first(ctx, selector)
	if err != nil {
		return err
	}
	if _, err := s.page.Evaluate(`() => { window.__citaDoc = true }`); err != nil {
		return translate(err)
	}
	if err := loc.Press("Enter"); err != nil {
		return fmt.Errorf("submit %s: %w", selector, translate(err))
	}
	return s.settle(ctx)
}

func (s *Session) SelectByText(ctx context.Context, selector, text string) error {
	return s.selectOption(ctx, selector, playwright.SelectOptionValues{Labels: playwright.StringSlice(text)})
}

func (s *Session) SelectByValue(ctx context.Context, selector, value string) error {
	return s.selectOption(ctx, selector, playwright.SelectOptionValues{Values: playwright.StringSlice(value)})
}

// Exec dispatches script on the page event loop. When the script navigates,
// Exec returns once the next document has loaded.
func (s *Session) Exec(ctx context.Context, script string) error {
	if _, err := s.page.Evaluate("() => { window.__citaDoc = true; setTimeout(() => { " + script + " }, 0) }"); err != nil {
		return fmt.Errorf("exec: %w", translate(err))
	}
	return s.settle(ctx)
}

// ExecConfirm relies on the page-wide dialog handler installed by Open.
func (s *Session) ExecConfirm(ctx context.Context, script string) error {
	return s.Exec(ctx, script)
}

func (s *Session) Screenshot(context.Context) ([]byte, error) {
	img, err := s.page.Screenshot(playwright.PageScreenshotOptions{FullPage: playwright.Bool(true)})
	return img, translate(err)
}

func (s *Session) Close() error {
	var errs []error
	if s.browser != nil {
		errs = append(errs, s.browser.Close())
		s.browser = nil
	}
	if s.pw != nil {
		errs = append(errs, s.pw.Stop())
		s.pw = nil
	}
	return errors.Join(errs...)
}

// settle waits for the navigation started by the last action, if any, to
// finish loading. A document still carrying the mark after navigationGrace
// means nothing navigated.
func (s *Session) settle(ctx context.Context) error {
	deadline := time.Now().Add(navigationGrace)
	for time.Now().Before(deadline) {
		v, err := s.page.Evaluate(`() => window.__citaDoc === true`)
		if marked, _ := v.(bool); err == nil && !marked {
			if err := s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
				State: playwright.LoadStateLoad,
			}); err != nil {
				return fmt.Errorf("load after navigation: %w", translate(err))
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(navigationPoll):
		}
	}
	return nil
}

func (s *Session) first(_ context.Context, selector string) (playwright.Locator, error) {
	loc := s.page.Locator(selector)
	n, err := loc.Count()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", selector, translate(err))
	}
	if n == 0 {
		return nil, fmt.Errorf("%s: %w", selector, internaltypes.ErrNotFound)
	}
	return loc.First(), nil
}

func (s *Session) selectOption(ctx context.Context, selector string, v playwright.SelectOptionValues) error {
	loc, err := s.first(ctx, selector)
	if err != nil {
		return err
	}
	if _, err := loc.SelectOption(v); err != nil {
		return fmt.Errorf("select %s: %w", selector, translate(err))
	}
	return nil
}

func ms(d time.Duration) float64 {
	return float64(d / time.Millisecond)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %w", internaltypes.ErrTimeout, err)
	}
	return err
}
