package usecases

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/example/cita-scheduler/internal/domain/cita"
	"github.com/example/cita-scheduler/internal/internaltypes"
)

const minRecaptchaScore = 0.9

// solveCaptcha answers whichever challenge the slot page carries. A page
// without a challenge passes.
func (u BookAttempt) solveCaptcha(ctx context.Context, run *RunState) error {
	if !u.Intent.AutoCaptcha {
		return u.await(ctx, "Solve the captcha in the browser (select text, move the cursor) and press ENTER")
	}
	if u.Intent.CaptchaAPIKey == "" || u.Captcha == nil {
		return fmt.Errorf("captcha solver not configured: %w", internaltypes.ErrStageFailure)
	}

	if ok, _ := u.Page.Has(ctx, cita.SelScoreSiteKey); ok {
		return u.solveScore(ctx, run)
	}
	if ok, _ := u.Page.Has(ctx, cita.SelImageCaptcha); ok {
		return u.solveImage(ctx, run)
	}
	return nil
}

func (u BookAttempt) solveScore(ctx context.Context, run *RunState) error {
	if run.Score == nil {
		key, err := u.Page.Attr(ctx, cita.SelScoreSiteKey, "value")
		if err != nil {
			return stageFailed("recaptcha site key", err)
		}
		action, err := u.Page.Attr(ctx, cita.SelScoreAction, "value")
		if err != nil {
			return stageFailed("recaptcha action", err)
		}
		u.log().Info("recaptcha configured", "site_key", key, "action", action)
		run.Score = &cita.ScoreChallenge{
			WebsiteURL: u.portalURL(),
			SiteKey:    key,
			Action:     action,
			MinScore:   minRecaptchaScore,
		}
	}
	run.Solver = cita.CaptchaScore

	token, err := u.Captcha.SolveScore(ctx, *run.Score)
	if err != nil {
		return stageFailed("recaptcha", err)
	}
	u.log().Info("recaptcha solved")
	script := fmt.Sprintf("document.getElementById(%q).value = %q", cita.SelScoreResponse, token)
	return u.Page.Exec(ctx, script)
}

func (u BookAttempt) solveImage(ctx context.Context, run *RunState) error {
	run.Solver = cita.CaptchaImage

	src, err := u.Page.Attr(ctx, cita.SelImageCaptcha, "src")
	if err != nil {
		return stageFailed("captcha image", err)
	}
	_, payload, ok := strings.Cut(src, ",")
	if !ok {
		return fmt.Errorf("captcha image is not a data url: %w", internaltypes.ErrStageFailure)
	}
	img, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return stageFailed("captcha image", err)
	}

	text, err := u.Captcha.SolveImage(ctx, img)
	if err != nil {
		return stageFailed("image captcha", err)
	}
	u.log().Info("image captcha solved", "text", text)
	return u.Page.Type(ctx, cita.SelImageAnswer, text)
}

// reportCaptcha tells the solver whether its last answer got through. Nothing
// is reported when no challenge was solved in this run.
func (u BookAttempt) reportCaptcha(ctx context.Context, run *RunState, correct bool) {
	if run.Solver == cita.CaptchaNone || u.Captcha == nil {
		return
	}
	if err := u.Captcha.ReportOutcome(ctx, run.Solver, correct); err != nil {
		u.log().Warn("captcha report", "kind", run.Solver, "correct", correct, "error", err)
	}
}

func (u BookAttempt) portalURL() string {
	if u.PortalURL != "" {
		return strings.TrimRight(u.PortalURL, "/")
	}
	return cita.DefaultPortalURL
}
