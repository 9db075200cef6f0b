package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/cita-scheduler/internal/domain/cita"
	"github.com/example/cita-scheduler/internal/internaltypes"
	"github.com/example/cita-scheduler/internal/pagehtml"
)

const (
	stageWait      = 30 * time.Second
	requestWait    = 7 * time.Second
	rendezvousWait = 1200 * time.Second

	refreshCycles = 12
	refreshPause  = 5 * time.Second
	officePause   = 300 * time.Millisecond
	submitPause   = 2 * time.Second
)

// BookAttempt walks the portal once, from the instructions page to the final
// confirmation. Execute returns the booking code on success. Every failure is
// an error wrapping one of the internaltypes sentinels.
type BookAttempt struct {
	Intent  cita.Intent
	Page    cita.PageSession
	Captcha cita.CaptchaGateway
	Codes   cita.CodeRetriever
	Human   cita.Prompter

	Artifacts *Artifacts
	PortalURL string

	// Probe stops after the instructions page and reports success.
	Probe bool

	Logger *slog.Logger
	Sleep  func(ctx context.Context, d time.Duration) error
	Now    func() time.Time
	Intn   func(int) int
}

func (u BookAttempt) Execute(ctx context.Context, run *RunState) (string, error) {
	if u.Page == nil {
		return "", fmt.Errorf("page session is nil")
	}
	d, ok := cita.Describe(u.Intent.Operation)
	if !ok {
		return "", fmt.Errorf("operation %q: %w", u.Intent.Operation, internaltypes.ErrHardFailure)
	}
	run.Descriptor = d

	if err := u.instructions(ctx); err != nil {
		return "", err
	}
	if u.Probe {
		u.log().Info("instructions page loaded")
		return "", nil
	}
	if err := u.personalInfo(ctx, run); err != nil {
		return "", err
	}
	if err := u.officeSelection(ctx, run); err != nil {
		return "", err
	}
	if err := u.contactInfo(ctx, run); err != nil {
		return "", err
	}
	if err := u.slotSelection(ctx, run); err != nil {
		return "", err
	}
	return u.confirmation(ctx, run)
}

func (u BookAttempt) instructions(ctx context.Context) error {
	if err := u.Page.WaitFor(ctx, cita.SelEnter, stageWait); err != nil {
		return stageFailed("instructions page", err)
	}
	if u.Probe {
		return nil
	}
	return u.Page.Submit(ctx, cita.SelEnter)
}

func (u BookAttempt) personalInfo(ctx context.Context, run *RunState) error {
	u.log().Info("personal info", "operation", run.Descriptor.Name)
	d := run.Descriptor
	in := u.Intent
	if err := u.Page.WaitFor(ctx, d.Ready, stageWait); err != nil {
		return stageFailed("personal info form", err)
	}

	for _, f := range d.Fields {
		var err error
		switch f {
		case cita.FieldDocType:
			if d.AcceptsDocType(in.DocType) {
				err = u.Page.Toggle(ctx, cita.DocTypeRadio(in.DocType), 0)
			}
		case cita.FieldDocValue:
			err = u.Page.Type(ctx, cita.SelDocValue, in.DocValue)
		case cita.FieldName:
			err = u.Page.Type(ctx, cita.SelName, in.Name)
		case cita.FieldYearOfBirth:
			err = u.Page.Type(ctx, cita.SelYearOfBirth, in.YearOfBirth)
		case cita.FieldCountry:
			err = u.Page.SelectByText(ctx, cita.SelCountry, in.Country)
		}
		if err != nil {
			return fmt.Errorf("fill %s: %w", f, err)
		}
	}

	if err := u.sleep(ctx, submitPause); err != nil {
		return err
	}
	if err := u.Page.Submit(ctx, cita.SelSendPersonal); err != nil {
		return fmt.Errorf("submit personal info: %w", err)
	}
	if err := u.Page.WaitFor(ctx, cita.SelRequest, requestWait); err != nil {
		u.log().Warn("request page slow to load", "error", err)
	}

	if len(in.WaitExactTime) > 0 {
		if err := u.rendezvous(ctx); err != nil {
			return stageFailed("exact time", err)
		}
	}
	return nil
}

// clockMarks parses "second minute" schedules that fire once an hour.
var clockMarks = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// rendezvous blocks until the wall clock shows the nearest of the configured
// (minute, second) marks.
func (u BookAttempt) rendezvous(ctx context.Context) error {
	now := u.now()
	var next time.Time
	for _, m := range u.Intent.WaitExactTime {
		if now.Minute() == m.Minute && now.Second() == m.Second {
			return nil
		}
		sched, err := clockMarks.Parse(fmt.Sprintf("%d %d * * * *", m.Second, m.Minute))
		if err != nil {
			return fmt.Errorf("clock mark %02d:%02d: %w", m.Minute, m.Second, err)
		}
		if t := sched.Next(now); next.IsZero() || t.Before(next) {
			next = t
		}
	}
	wait := next.Sub(now)
	if wait > rendezvousWait {
		return fmt.Errorf("next mark at %s: %w", next.Format(time.TimeOnly), internaltypes.ErrTimeout)
	}
	u.log().Info("waiting for exact time", "at", next.Format(time.TimeOnly), "wait", wait)
	return u.sleep(ctx, wait)
}

func (u BookAttempt) officeSelection(ctx context.Context, run *RunState) error {
	if err := u.Page.Exec(ctx, cita.ScriptRequestOffices); err != nil {
		return fmt.Errorf("request offices: %w", err)
	}

	for range refreshCycles {
		body := u.bodyText(ctx)
		switch {
		case strings.Contains(body, cita.MarkerOffices):
			u.log().Info("office selection")
			if err := u.sleep(ctx, officePause); err != nil {
				return err
			}
			if err := u.Page.WaitFor(ctx, cita.SelOfficeNext, stageWait); err != nil {
				return stageFailed("office list", err)
			}
			if err := u.selectOffice(ctx, run); err != nil {
				return fmt.Errorf("office selection: %w", err)
			}
			return u.Page.Submit(ctx, cita.SelOfficeNext)

		case strings.Contains(body, cita.MarkerNoAvailability):
			u.log().Info("no appointments right now, refreshing")
			if err := u.sleep(ctx, refreshPause); err != nil {
				return err
			}
			if err := u.Page.Refresh(ctx); err != nil {
				return fmt.Errorf("refresh: %w", err)
			}

		default:
			return fmt.Errorf("no offices offered: %w", internaltypes.ErrStageFailure)
		}
	}
	return fmt.Errorf("still nothing after %d refreshes: %w", refreshCycles, internaltypes.ErrUnavailable)
}

func (u BookAttempt) selectOffice(ctx context.Context, run *RunState) error {
	in := u.Intent
	if !in.AutoOffice {
		return u.await(ctx, "Select office and press ENTER")
	}

	markup, err := u.Page.HTML(ctx, cita.SelOffice)
	if err != nil {
		return fmt.Errorf("read office list: %w", err)
	}
	u.Artifacts.HTML("offices", markup)

	options, err := pagehtml.ParseOptions(markup)
	if err != nil {
		return fmt.Errorf("%w: %w", internaltypes.ErrStageFailure, err)
	}
	preferred := make([]string, 0, len(in.Offices))
	for _, o := range in.Offices {
		preferred = append(preferred, cita.OfficeValue(o))
	}
	excluded := make([]string, 0, len(in.ExceptOffices))
	for _, o := range in.ExceptOffices {
		excluded = append(excluded, cita.OfficeValue(o))
	}

	choice, err := cita.ChooseOffice(options, preferred, excluded, run.Descriptor.SingleOffice, u.Intn)
	if err != nil {
		return err
	}
	u.log().Info("office chosen", "value", choice.Value, "label", choice.Label)
	return u.Page.SelectByValue(ctx, cita.SelOffice, choice.Value)
}

func (u BookAttempt) contactInfo(ctx context.Context, run *RunState) error {
	in := u.Intent
	if err := u.Page.WaitFor(ctx, cita.SelPhone, stageWait); err != nil {
		return stageFailed("contact info page", err)
	}
	u.log().Info("contact info")
	if err := u.Page.Type(ctx, cita.SelPhone, in.Phone); err != nil {
		return fmt.Errorf("phone: %w", err)
	}

	if ok, _ := u.Page.Has(ctx, cita.SelEmail1); ok && in.Email != "" {
		for _, sel := range []string{cita.SelEmail1, cita.SelEmail2} {
			if err := u.Page.Type(ctx, sel, in.Email); err != nil {
				return fmt.Errorf("email: %w", err)
			}
		}
	}

	if run.Descriptor.RequiresReason {
		reason := in.Reason
		if reason == "" {
			reason = cita.DefaultReason
		}
		if err := u.Page.Type(ctx, cita.SelReason, reason); err != nil {
			u.log().Warn("reason field", "error", err)
		}
	}

	return u.Page.Exec(ctx, cita.ScriptSendContact)
}

// bodyText returns the rendered page text, or "" when the page did not render in time.
func (u BookAttempt) bodyText(ctx context.Context) string {
	if err := u.Page.WaitFor(ctx, "body", stageWait); err != nil {
		u.log().Info("timed out waiting for body", "error", err)
		return ""
	}
	text, err := u.Page.Text(ctx, "body")
	if err != nil {
		u.log().Warn("read body", "error", err)
	}
	return text
}

func (u BookAttempt) await(ctx context.Context, msg string) error {
	if u.Human == nil {
		return fmt.Errorf("%s: no operator attached: %w", msg, internaltypes.ErrStageFailure)
	}
	return u.Human.Await(ctx, msg)
}

func (u BookAttempt) sleep(ctx context.Context, d time.Duration) error {
	if u.Sleep != nil {
		return u.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

func (u BookAttempt) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

func (u BookAttempt) log() *slog.Logger {
	if u.Logger != nil {
		return u.Logger
	}
	return slog.Default()
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func stageFailed(what string, err error) error {
	if errors.Is(err, internaltypes.ErrStageFailure) {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%s: %w: %w", what, internaltypes.ErrStageFailure, err)
}
