package cita

import (
	"context"
	"time"
)

// PageSession is the browser capability the booking flow drives. Selectors are CSS.
// Element lookups do not wait; WaitFor does. Implementations report exceeded waits
// and page-load budgets as internaltypes.ErrTimeout and missing elements as
// internaltypes.ErrNotFound.
type PageSession interface {
	SetPageLoadTimeout(d time.Duration)
	ClearCookies(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	Refresh(ctx context.Context) error
	Title(ctx context.Context) (string, error)

	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	Has(ctx context.Context, selector string) (bool, error)
	Text(ctx context.Context, selector string) (string, error)
	Texts(ctx context.Context, selector string) ([]string, error)
	Attr(ctx context.Context, selector, name string) (string, error)
	// HTML returns the outer HTML of the first match.
	HTML(ctx context.Context, selector string) (string, error)

	Type(ctx context.Context, selector, value string) error
	// Toggle presses space on the nth element matching selector (radios, checkboxes).
	Toggle(ctx context.Context, selector string, nth int) error
	// Submit presses enter on the element and waits out any navigation it starts.
	Submit(ctx context.Context, selector string) error
	SelectByText(ctx context.Context, selector, text string) error
	SelectByValue(ctx context.Context, selector, value string) error

	// Exec runs script and, when it navigates, returns after the next page loads.
	Exec(ctx context.Context, script string) error
	// ExecConfirm runs script and accepts the native confirmation dialog it opens.
	ExecConfirm(ctx context.Context, script string) error

	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// ScoreChallenge configures a score-based (reCAPTCHA v3) solve.
type ScoreChallenge struct {
	WebsiteURL string
	SiteKey    string
	Action     string
	MinScore   float64
}

type CaptchaGateway interface {
	SolveScore(ctx context.Context, ch ScoreChallenge) (string, error)
	SolveImage(ctx context.Context, image []byte) (string, error)
	// ReportOutcome tells the solver whether its last answer of kind got accepted.
	ReportOutcome(ctx context.Context, kind CaptchaKind, correct bool) error
}

// CodeRetriever fetches SMS verification codes from an inbox.
type CodeRetriever interface {
	Retrieve(ctx context.Context, token string) (string, bool, error)
	Purge(ctx context.Context, token string) error
}

// Prompter blocks until a human signals that a manual step is done.
type Prompter interface {
	Await(ctx context.Context, message string) error
}

// Journal records finished attempts.
type Journal interface {
	Record(ctx context.Context, rec AttemptRecord) error
}

// Notifier announces the terminal outcome of a run.
type Notifier interface {
	Notify(ctx context.Context, intent Intent, out Outcome) error
}
