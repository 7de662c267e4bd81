package apperrors

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition for current phase")
	ErrTrialNotArmed     = errors.New("trial is not armed yet")
	ErrNoActiveTrial     = errors.New("no active trial")
	ErrTaskMisconfigured = errors.New("task is misconfigured")
	ErrStaleSession      = errors.New("session was reset or replaced")
	ErrDebugDisabled     = errors.New("debug tooling is disabled")
	ErrCalibrationFrozen = errors.New("calibration already completed")
)
