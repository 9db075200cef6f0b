package portaltest

import (
	"context"
	"sync"
	"time"

	"github.com/example/cita-scheduler/internal/domain/cita"
)

type Report struct {
	Kind    cita.CaptchaKind
	Correct bool
}

// Captcha is a scripted cita.CaptchaGateway.
type Captcha struct {
	mu sync.Mutex

	Token string
	Text  string
	Err   error

	ScoreCalls []cita.ScoreChallenge
	ImageCalls [][]byte
	Reports    []Report
}

func (c *Captcha) SolveScore(_ context.Context, ch cita.ScoreChallenge) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ScoreCalls = append(c.ScoreCalls, ch)
	return c.Token, c.Err
}

func (c *Captcha) SolveImage(_ context.Context, img []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ImageCalls = append(c.ImageCalls, img)
	return c.Text, c.Err
}

func (c *Captcha) ReportOutcome(_ context.Context, kind cita.CaptchaKind, correct bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Reports = append(c.Reports, Report{Kind: kind, Correct: correct})
	return nil
}

// Calls is the number of solve requests of either kind.
func (c *Captcha) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ScoreCalls) + len(c.ImageCalls)
}

// Codes is a scripted cita.CodeRetriever.
type Codes struct {
	Code   string
	Found  bool
	Err    error
	Calls  int
	Purged int
}

func (c *Codes) Retrieve(context.Context, string) (string, bool, error) {
	c.Calls++
	return c.Code, c.Found, c.Err
}

func (c *Codes) Purge(context.Context, string) error {
	c.Purged++
	return nil
}

// Human records prompts and returns immediately.
type Human struct {
	Prompts []string
}

func (h *Human) Await(_ context.Context, msg string) error {
	h.Prompts = append(h.Prompts, msg)
	return nil
}

// Journal keeps every record in memory.
type Journal struct {
	mu      sync.Mutex
	Records []cita.AttemptRecord
}

func (j *Journal) Record(_ context.Context, rec cita.AttemptRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Records = append(j.Records, rec)
	return nil
}

// Notifier keeps every outcome in memory.
type Notifier struct {
	Outcomes []cita.Outcome
}

func (n *Notifier) Notify(_ context.Context, _ cita.Intent, out cita.Outcome) error {
	n.Outcomes = append(n.Outcomes, out)
	return nil
}

// NoSleep is a sleep function that returns at once.
func NoSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }
