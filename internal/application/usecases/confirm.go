package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/cita-scheduler/internal/domain/cita"
	"github.com/example/cita-scheduler/internal/internaltypes"
)

func (u BookAttempt) confirmation(ctx context.Context, run *RunState) (string, error) {
	body := u.bodyText(ctx)
	if !strings.Contains(body, cita.MarkerConfirmRequired) {
		u.log().Info("missed confirmation")
		u.reportCaptcha(ctx, run, false)
		u.Artifacts.Screenshot(ctx, u.Page, "failed-confirmation")
		return "", fmt.Errorf("confirmation page not reached: %w", internaltypes.ErrStageFailure)
	}
	u.log().Info("confirmation hit")
	u.reportCaptcha(ctx, run, true)

	if ok, _ := u.Page.Has(ctx, cita.SelSMSCode); ok {
		if err := u.enterSMSCode(ctx); err != nil {
			return "", err
		}
	}

	code, err := u.confirm(ctx)
	u.Artifacts.Screenshot(ctx, u.Page, "FINAL-SCREEN")
	return code, err
}

func (u BookAttempt) enterSMSCode(ctx context.Context) error {
	token := u.Intent.SMSWebhookToken
	if token == "" || u.Codes == nil {
		return u.await(ctx, "Type the SMS code in the browser and press ENTER")
	}
	code, ok, err := u.Codes.Retrieve(ctx, token)
	if err != nil {
		u.log().Error("sms code", "error", err)
		return nil
	}
	if !ok {
		u.log().Warn("no sms code arrived")
		return nil
	}
	u.log().Info("received sms code", "code", code)
	return u.Page.Type(ctx, cita.SelSMSCode, code)
}

// confirm ticks the consent boxes, submits, and classifies the answer page.
func (u BookAttempt) confirm(ctx context.Context) (string, error) {
	for _, sel := range []string{cita.SelConsentAll, cita.SelConsentMail} {
		if err := u.Page.Toggle(ctx, sel, 0); err != nil {
			return "", fmt.Errorf("consent %s: %w", sel, err)
		}
	}
	if err := u.Page.Submit(ctx, cita.SelConfirm); err != nil {
		return "", fmt.Errorf("confirm: %w", err)
	}

	body := u.bodyText(ctx)
	switch {
	case strings.Contains(body, cita.MarkerConfirmed):
		code, err := u.Page.Text(ctx, cita.SelReceipt)
		if err != nil {
			u.log().Warn("read receipt", "error", err)
		}
		code = strings.TrimSpace(code)
		u.log().Info("appointment confirmed", "code", code)
		u.Artifacts.Screenshot(ctx, u.Page, "CONFIRMED-CITA")
		return code, nil
	case strings.Contains(body, cita.MarkerIncorrectCode):
		u.log().Error("incorrect sms code entered")
		return "", fmt.Errorf("verification code rejected: %w", internaltypes.ErrStageFailure)
	}
	u.Artifacts.ScreenshotAlways(ctx, u.Page, "error")
	return "", fmt.Errorf("unrecognized confirmation answer: %w", internaltypes.ErrStageFailure)
}
