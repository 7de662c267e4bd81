package session

import "lightdark-study/internal/models"

// Event is an input to Transition.
type Event interface {
	eventName() string
}

// Start begins a new participant run from the consent screen.
type Start struct{}

// Next advances through the navigation phases.
type Next struct{}

// Arm begins the ready period of the active calibration trial.
type Arm struct {
	Token uint64
}

// TrialArmed is dispatched by the ready timer when the period has elapsed.
type TrialArmed struct {
	Epoch string
	Token uint64
}

// RecordFitts is the single response to the active pointing trial.
type RecordFitts struct {
	Token          uint64
	MovementTimeMs float64
	Success        bool
}

// RecordHicks is the single response to the active choice trial. When Key is
// set, correctness is decided against the trial's target and keys outside
// the active window are rejected.
type RecordHicks struct {
	Token          uint64
	ReactionTimeMs float64
	Key            string
	Correct        bool
}

// FinishCalibration fits both models and freezes the calibration data.
type FinishCalibration struct{}

// RecordTask stores the metrics of the current task.
type RecordTask struct {
	Input models.TaskInput
}

// Skip is the operator's debug shortcut.
type Skip struct{}

// Reset abandons the run and returns to the consent screen.
type Reset struct{}

func (Start) eventName() string             { return "start" }
func (Next) eventName() string              { return "next" }
func (Arm) eventName() string               { return "arm" }
func (TrialArmed) eventName() string        { return "trial_armed" }
func (RecordFitts) eventName() string       { return "record_fitts" }
func (RecordHicks) eventName() string       { return "record_hicks" }
func (FinishCalibration) eventName() string { return "finish_calibration" }
func (RecordTask) eventName() string        { return "record_task" }
func (Skip) eventName() string              { return "skip" }
func (Reset) eventName() string             { return "reset" }

// EventName returns the log name of an event.
func EventName(e Event) string {
	return e.eventName()
}
