package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/example/cita-scheduler/internal/application/usecases"
	"github.com/example/cita-scheduler/internal/domain/cita"
	"github.com/example/cita-scheduler/internal/internaltypes"
)

const (
	DefaultCycles         = 144
	DefaultInitialRetries = 10
	DefaultInitialBackoff = 350 * time.Second

	firstLoadTimeout = 300 * time.Second
	loadTimeout      = 50 * time.Second
	titleWait        = 5 * time.Second
	titlePoll        = 250 * time.Millisecond
	provinceWait     = 10 * time.Second
)

// Scheduler drives the booking flow cycle after cycle until one attempt
// confirms an appointment or the cycle budget runs out. It owns Page for the
// whole run and closes it when the run ends.
type Scheduler struct {
	Page cita.PageSession
	// Book is the attempt template; Run fills in the intent and page.
	Book usecases.BookAttempt

	Journal  cita.Journal
	Notifier cita.Notifier

	PortalURL string
	// InitialRetries bounds the constant-backoff retries of the operation page load.
	InitialRetries int
	InitialBackoff time.Duration

	Logger *slog.Logger
	Sleep  func(ctx context.Context, d time.Duration) error
	Now    func() time.Time
}

func (s *Scheduler) Run(ctx context.Context, intent cita.Intent, maxCycles int) cita.Outcome {
	log := s.log()
	run := usecases.NewRunState(uuid.NewString())
	out := cita.Outcome{RunID: run.ID, Started: s.now()}

	book := s.Book
	book.Intent = intent
	book.Page = s.Page
	if book.PortalURL == "" {
		book.PortalURL = s.portalURL()
	}
	if book.Logger == nil {
		book.Logger = log
	}
	if book.Sleep == nil {
		book.Sleep = s.Sleep
	}
	if book.Now == nil {
		book.Now = s.Now
	}

	if intent.SMSWebhookToken != "" && book.Codes != nil {
		if err := book.Codes.Purge(ctx, intent.SMSWebhookToken); err != nil {
			log.Warn("purge sms inbox", "error", err)
		}
	}

	for i := 1; i <= maxCycles; i++ {
		if ctx.Err() != nil {
			log.Warn("run cancelled", "error", ctx.Err())
			break
		}
		run.Attempt = i
		log.Info("attempt", "run", run.ID, "attempt", i, "of", maxCycles)

		started := s.now()
		code, err := s.cycle(ctx, intent, book, run)
		s.record(ctx, intent, run, started, code, err)

		if err == nil {
			run.Success, run.Code = true, code
			log.Info("WIN", "attempt", i, "code", code)
			break
		}
		switch {
		case errors.Is(err, internaltypes.ErrTimeout):
			log.Error("timeout", "attempt", i, "error", err)
		case errors.Is(err, internaltypes.ErrStageFailure), errors.Is(err, internaltypes.ErrUnavailable):
			log.Info("attempt failed", "attempt", i, "error", err)
		default:
			log.Error("attempt broke", "attempt", i, "error", err)
		}
	}

	if !run.Success {
		log.Error("FAIL", "run", run.ID, "attempts", run.Attempt)
	}
	if err := s.Page.Close(); err != nil {
		log.Warn("close browser", "error", err)
	}

	out.Success = run.Success
	out.Code = run.Code
	out.Attempts = run.Attempt
	out.Finished = s.now()
	if s.Notifier != nil {
		if err := s.Notifier.Notify(ctx, intent, out); err != nil {
			log.Warn("notify outcome", "error", err)
		}
	}
	return out
}

func (s *Scheduler) cycle(ctx context.Context, intent cita.Intent, book usecases.BookAttempt, run *usecases.RunState) (string, error) {
	if run.FirstLoad {
		s.Page.SetPageLoadTimeout(firstLoadTimeout)
	} else {
		s.Page.SetPageLoadTimeout(loadTimeout)
	}
	if err := s.selectProvince(ctx, intent, run); err != nil {
		return "", fmt.Errorf("province page: %w", err)
	}
	if err := s.initialPage(ctx, intent, run); err != nil {
		return "", fmt.Errorf("operation page: %w", err)
	}
	return book.Execute(ctx, run)
}

func (s *Scheduler) selectProvince(ctx context.Context, intent cita.Intent, run *usecases.RunState) error {
	if run.FirstLoad {
		if err := s.Page.ClearCookies(ctx); err != nil {
			return err
		}
	}
	if err := s.Page.Navigate(ctx, cita.EntryURL(s.portalURL(), intent.Province)); err != nil {
		return err
	}

	deadline := s.now().Add(titleWait)
	for {
		title, err := s.Page.Title(ctx)
		if err == nil && title == cita.MarkerPortalTitle {
			return nil
		}
		if !s.now().Before(deadline) {
			return fmt.Errorf("portal title %q: %w", title, internaltypes.ErrTimeout)
		}
		if err := s.sleep(ctx, titlePoll); err != nil {
			return err
		}
	}
}

// initialPage loads the operation's direct-access page, retrying load timeouts
// at a constant interval.
func (s *Scheduler) initialPage(ctx context.Context, intent cita.Intent, run *usecases.RunState) error {
	url := cita.FastForwardURL(s.portalURL(), intent.Province, intent.Operation)
	err := backoff.RetryNotify(func() error {
		err := s.Page.Navigate(ctx, url)
		if err == nil {
			err = s.Page.WaitFor(ctx, cita.SelProvince, provinceWait)
		}
		if err != nil && !errors.Is(err, internaltypes.ErrTimeout) {
			return backoff.Permanent(err)
		}
		return err
	}, s.initialPolicy(ctx), func(err error, wait time.Duration) {
		s.log().Error("unable to load the initial page, backing off", "wait", wait, "error", err)
	})
	if err != nil {
		return err
	}
	run.FirstLoad = false
	return nil
}

// initialPolicy allows InitialRetries loads of the operation page, InitialBackoff apart.
func (s *Scheduler) initialPolicy(ctx context.Context) backoff.BackOff {
	retries := uint64(max(s.InitialRetries, 1) - 1)
	return backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(s.InitialBackoff), retries), ctx)
}

func (s *Scheduler) record(ctx context.Context, intent cita.Intent, run *usecases.RunState, started time.Time, code string, err error) {
	if s.Journal == nil {
		return
	}
	rec := cita.AttemptRecord{
		RunID:     run.ID,
		Attempt:   run.Attempt,
		Province:  intent.Province,
		Operation: intent.Operation,
		Status:    "booked",
		Code:      code,
		StartedAt: started,
		EndedAt:   s.now(),
	}
	switch {
	case err == nil:
	case errors.Is(err, internaltypes.ErrTimeout):
		rec.Status, rec.Detail = "timeout", err.Error()
	case errors.Is(err, internaltypes.ErrStageFailure),
		errors.Is(err, internaltypes.ErrUnavailable),
		errors.Is(err, internaltypes.ErrHardFailure):
		rec.Status, rec.Detail = "failed", err.Error()
	default:
		rec.Status, rec.Detail = "error", err.Error()
	}
	if jerr := s.Journal.Record(ctx, rec); jerr != nil {
		s.log().Warn("journal attempt", "attempt", run.Attempt, "error", jerr)
	}
}

func (s *Scheduler) portalURL() string {
	if s.PortalURL != "" {
		return s.PortalURL
	}
	return cita.DefaultPortalURL
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) error {
	if s.Sleep != nil {
		return s.Sleep(ctx, d)
	}
	return usecases.SleepContext(ctx, d)
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scheduler) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
