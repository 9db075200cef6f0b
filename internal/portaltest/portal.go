// Package portaltest provides an in-memory portal and collaborator doubles for
// exercising the booking flow without a browser.
package portaltest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/example/cita-scheduler/internal/domain/cita"
	"github.com/example/cita-scheduler/internal/internaltypes"
)

// Page is one rendered portal screen.
type Page struct {
	Title    string
	Body     string
	Elements map[string]Element
}

type Element struct {
	Text  string
	Texts []string
	HTML  string
	Attrs map[string]string
}

// Portal implements cita.PageSession over a set of named pages. Actions move
// between pages through On, keyed as "navigate <url>", "navigate" (any url),
// "refresh", "submit <selector>", "exec <script>" and "confirm <script>".
// Unmapped actions leave the current page in place.
type Portal struct {
	mu sync.Mutex

	Pages   map[string]Page
	On      map[string]string
	Current string

	// NavigateErr is returned by every Navigate call when set.
	NavigateErr error
	// URLErrs fails navigation to single urls.
	URLErrs map[string]error

	Navigations    []string
	Actions        []string
	Typed          map[string]string
	Toggled        []string
	Selected       map[string]string
	LoadTimeouts   []time.Duration
	CookiesCleared int
	Closed         bool
}

func New(pages map[string]Page, on map[string]string, start string) *Portal {
	return &Portal{
		Pages:    pages,
		On:       on,
		Current:  start,
		Typed:    map[string]string{},
		Selected: map[string]string{},
	}
}

var _ cita.PageSession = (*Portal)(nil)

func (p *Portal) page() Page { return p.Pages[p.Current] }

func (p *Portal) move(action string) {
	p.Actions = append(p.Actions, action)
	if next, ok := p.On[action]; ok {
		p.Current = next
	}
}

func (p *Portal) element(sel string) (Element, error) {
	el, ok := p.page().Elements[sel]
	if !ok {
		return Element{}, fmt.Errorf("%s on page %q: %w", sel, p.Current, internaltypes.ErrNotFound)
	}
	return el, nil
}

func (p *Portal) SetPageLoadTimeout(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.LoadTimeouts = append(p.LoadTimeouts, d)
}

func (p *Portal) ClearCookies(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CookiesCleared++
	return nil
}

func (p *Portal) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Navigations = append(p.Navigations, url)
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	if err := p.URLErrs[url]; err != nil {
		return err
	}
	if _, ok := p.On["navigate "+url]; ok {
		p.move("navigate " + url)
		return nil
	}
	p.move("navigate")
	return nil
}

func (p *Portal) Refresh(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.move("refresh")
	return nil
}

func (p *Portal) Title(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page().Title, nil
}

func (p *Portal) WaitFor(_ context.Context, sel string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sel == "body" {
		if _, ok := p.Pages[p.Current]; ok {
			return nil
		}
	}
	if _, ok := p.page().Elements[sel]; ok {
		return nil
	}
	return fmt.Errorf("wait for %s on page %q: %w", sel, p.Current, internaltypes.ErrTimeout)
}

func (p *Portal) Has(_ context.Context, sel string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.page().Elements[sel]
	return ok, nil
}

func (p *Portal) Text(_ context.Context, sel string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sel == "body" {
		return p.page().Body, nil
	}
	el, err := p.element(sel)
	return el.Text, err
}

func (p *Portal) Texts(_ context.Context, sel string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.page().Elements[sel]
	if !ok {
		return nil, nil
	}
	return el.Texts, nil
}

func (p *Portal) Attr(_ context.Context, sel, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.element(sel)
	if err != nil {
		return "", err
	}
	return el.Attrs[name], nil
}

func (p *Portal) HTML(_ context.Context, sel string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.element(sel)
	return el.HTML, err
}

func (p *Portal) Type(_ context.Context, sel, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.element(sel); err != nil {
		return err
	}
	p.Typed[sel] = value
	return nil
}

func (p *Portal) Toggle(_ context.Context, sel string, nth int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.element(sel); err != nil {
		return err
	}
	p.Toggled = append(p.Toggled, fmt.Sprintf("%s[%d]", sel, nth))
	return nil
}

func (p *Portal) Submit(_ context.Context, sel string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.element(sel); err != nil {
		return err
	}
	p.move("submit " + sel)
	return nil
}

func (p *Portal) SelectByText(_ context.Context, sel, text string) error {
	return p.sel(sel, text)
}

func (p *Portal) SelectByValue(_ context.Context, sel, value string) error {
	return p.sel(sel, value)
}

func (p *Portal) sel(sel, v string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.element(sel); err != nil {
		return err
	}
	p.Selected[sel] = v
	return nil
}

func (p *Portal) Exec(_ context.Context, script string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.move("exec " + script)
	return nil
}

func (p *Portal) ExecConfirm(_ context.Context, script string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.move("confirm " + script)
	return nil
}

func (p *Portal) Screenshot(context.Context) ([]byte, error) {
	return []byte("\x89PNG"), nil
}

func (p *Portal) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}

// Did reports whether action was performed.
func (p *Portal) Did(action string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range p.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Count returns how many recorded actions start with prefix.
func (p *Portal) Count(prefix string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, a := range p.Actions {
		if strings.HasPrefix(a, prefix) {
			n++
		}
	}
	return n
}
