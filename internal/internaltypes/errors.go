package internaltypes

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrTimeout marks a page or element wait that exceeded its budget.
	ErrTimeout = errors.New("timeout")
	// ErrUnavailable means the portal currently offers no offices or slots.
	ErrUnavailable = errors.New("no availability")
	// ErrStageFailure aborts the current attempt only.
	ErrStageFailure = errors.New("stage failed")
	// ErrHardFailure is a configuration/portal mismatch that no fallback can fix within the attempt.
	ErrHardFailure = errors.New("hard failure")
)
