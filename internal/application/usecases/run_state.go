package usecases

import "github.com/example/cita-scheduler/internal/domain/cita"

// RunState is the mutable state of one run. The scheduler owns it; BookAttempt
// writes into it while walking the portal.
type RunState struct {
	ID string

	// FirstLoad stays true until the operation page loads once. While true the
	// page-load budget is long and cookies are cleared before navigating.
	FirstLoad bool

	Descriptor cita.OperationDescriptor

	// Solver is the captcha kind solved last in this run.
	Solver cita.CaptchaKind
	// Score is captured from the first score challenge and reused afterwards.
	Score *cita.ScoreChallenge

	Attempt int
	Success bool
	Code    string
}

func NewRunState(id string) *RunState {
	return &RunState{ID: id, FirstLoad: true}
}
