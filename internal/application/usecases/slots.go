package usecases

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/example/cita-scheduler/internal/domain/cita"
	"github.com/example/cita-scheduler/internal/internaltypes"
	"github.com/example/cita-scheduler/internal/pagehtml"
)

func (u BookAttempt) slotSelection(ctx context.Context, run *RunState) error {
	body := u.bodyText(ctx)
	switch {
	case strings.Contains(body, cita.MarkerCountdown):
		u.log().Info("slot selection", "page", "countdown")
		u.Artifacts.Screenshot(ctx, u.Page, "citas")
		return u.pickCountdown(ctx, run)
	case strings.Contains(body, cita.MarkerGrid):
		u.log().Info("slot selection", "page", "grid")
		u.Artifacts.Screenshot(ctx, u.Page, "citas")
		return u.pickGrid(ctx, run)
	}
	u.log().Info("missed slot selection")
	return fmt.Errorf("no slots offered: %w", internaltypes.ErrStageFailure)
}

// pickCountdown handles the first-come page: every label is one offered slot
// and the radio at the same row reserves it.
func (u BookAttempt) pickCountdown(ctx context.Context, run *RunState) error {
	labels, err := u.Page.Texts(ctx, cita.SelSlotLabels)
	if err != nil {
		return stageFailed("slot labels", err)
	}
	best, ok := cita.BestOf(labels, u.Intent.Dates)
	if !ok {
		u.log().Info("nothing inside the date window", "labels", len(labels))
		return fmt.Errorf("no acceptable slot: %w", internaltypes.ErrStageFailure)
	}
	row := slices.Index(labels, best)
	u.log().Info("slot chosen", "label", best, "row", row)

	if err := u.sleep(ctx, submitPause); err != nil {
		return err
	}
	if err := u.solveCaptcha(ctx, run); err != nil {
		return err
	}
	// A single offered slot usually comes preselected, so a missing radio is
	// not fatal and the form is submitted as rendered.
	if err := u.Page.Toggle(ctx, cita.SelSlotRadios, row); err != nil {
		u.log().Warn("slot radio", "row", row, "error", err)
	}
	if err := u.Page.ExecConfirm(ctx, cita.ScriptPickCountdown); err != nil {
		return fmt.Errorf("submit slot: %w", err)
	}
	return nil
}

func (u BookAttempt) pickGrid(ctx context.Context, run *RunState) error {
	markup, err := u.Page.HTML(ctx, cita.SelSlotGrid)
	if err != nil {
		return stageFailed("slot grid", err)
	}
	grid, err := pagehtml.ParseGrid(markup)
	if err != nil {
		return stageFailed("slot grid", err)
	}
	free := grid.FirstFree(u.Intent.Times)
	best, ok := cita.BestOf(slices.Collect(maps.Keys(free)), u.Intent.Dates)
	if !ok {
		u.log().Info("nothing inside the date/time window", "dates", len(grid.Dates))
		return fmt.Errorf("no acceptable slot: %w", internaltypes.ErrStageFailure)
	}
	slot := free[best]
	u.log().Info("slot chosen", "date", slot.Date, "time", slot.Time, "id", slot.ID)

	if err := u.sleep(ctx, submitPause); err != nil {
		return err
	}
	if err := u.solveCaptcha(ctx, run); err != nil {
		return err
	}
	script := fmt.Sprintf("confirmarHueco({id: '%s'}, %s);", slot.ID, strings.TrimPrefix(slot.ID, "HUECO"))
	if err := u.Page.ExecConfirm(ctx, script); err != nil {
		return fmt.Errorf("submit slot: %w", err)
	}
	return nil
}
