package session

import (
	"time"

	"lightdark-study/internal/calibration"
	"lightdark-study/internal/models"
)

type Phase string

const (
	PhaseConsent           Phase = "consent"
	PhaseInstructions      Phase = "instructions"
	PhaseCalibration       Phase = "calibration"
	PhaseConditionIntro    Phase = "condition-intro"
	PhaseTask              Phase = "task"
	PhaseConditionComplete Phase = "condition-complete"
	PhaseCompletion        Phase = "completion"
)

// Stage is the calibration sub-state inside PhaseCalibration.
type Stage string

const (
	StageIdle     Stage = "idle"
	StageFitts    Stage = "running-fitts"
	StageHicks    Stage = "running-hicks"
	StageFitting  Stage = "fitting"
	StageComplete Stage = "complete"
)

// State is one committed snapshot of a participant session. States are
// values: transitions build a new State and never write through the slices
// of an old one.
type State struct {
	Epoch       string                  `json:"epoch"`
	Phase       Phase                   `json:"phase"`
	Participant *models.ParticipantData `json:"participant,omitempty"`

	Conditions     []models.Condition  `json:"conditions"`
	ConditionIndex int                 `json:"conditionIndex"`
	Tasks          []models.Task       `json:"tasks"`
	TaskIndex      int                 `json:"taskIndex"`
	Results        []models.TaskResult `json:"results"`

	Stage       Stage                     `json:"stage"`
	FittsSpecs  []models.FittsTrialSpec   `json:"-"`
	HicksSpecs  []models.HicksTrialSpec   `json:"-"`
	TrialIndex  int                       `json:"trialIndex"`
	FittsTrials []models.FittsTrialResult `json:"-"`
	HicksTrials []models.HicksTrialResult `json:"-"`
	FittsFit    *calibration.Result       `json:"fittsFit,omitempty"`
	HicksFit    *calibration.Result       `json:"hicksFit,omitempty"`
	Calibration *models.CalibrationData   `json:"calibration,omitempty"`

	// Token identifies the active calibration trial. It changes whenever
	// the trial changes so timers armed for an earlier trial are stale.
	Token   uint64    `json:"token"`
	Pending bool      `json:"pending"`
	Armed   bool      `json:"armed"`
	ArmedAt time.Time `json:"-"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// Active reports whether a participant run is in progress.
func (s State) Active() bool {
	return s.Participant != nil && s.Phase != PhaseConsent && s.Phase != PhaseCompletion
}

func (s State) CurrentCondition() (models.Condition, bool) {
	if s.ConditionIndex < 0 || s.ConditionIndex >= len(s.Conditions) {
		return models.Condition{}, false
	}
	return s.Conditions[s.ConditionIndex], true
}

func (s State) CurrentTask() (models.Task, bool) {
	if s.Phase != PhaseTask || s.TaskIndex < 0 || s.TaskIndex >= len(s.Tasks) {
		return models.Task{}, false
	}
	return s.Tasks[s.TaskIndex], true
}

func (s State) CurrentFittsSpec() (models.FittsTrialSpec, bool) {
	if s.Phase != PhaseCalibration || s.Stage != StageFitts || s.TrialIndex >= len(s.FittsSpecs) {
		return models.FittsTrialSpec{}, false
	}
	return s.FittsSpecs[s.TrialIndex], true
}

func (s State) CurrentHicksSpec() (models.HicksTrialSpec, bool) {
	if s.Phase != PhaseCalibration || s.Stage != StageHicks || s.TrialIndex >= len(s.HicksSpecs) {
		return models.HicksTrialSpec{}, false
	}
	return s.HicksSpecs[s.TrialIndex], true
}

// InterfaceMode is the theme the UI should render. Calibration always runs
// on the neutral theme.
func (s State) InterfaceMode() models.InterfaceMode {
	switch s.Phase {
	case PhaseConditionIntro, PhaseTask, PhaseConditionComplete:
		if c, ok := s.CurrentCondition(); ok {
			return c.InterfaceMode
		}
	}
	return models.InterfaceNeutral
}

// appendCopy returns a new slice holding s followed by v. The backing array
// of s is never written.
func appendCopy[T any](s []T, v T) []T {
	out := make([]T, len(s), len(s)+1)
	copy(out, s)
	return append(out, v)
}
