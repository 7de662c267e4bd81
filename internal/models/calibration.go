package models

import "time"

// FittsTrialSpec is one generated pointing trial.
type FittsTrialSpec struct {
	Width    float64 `json:"width"`
	Distance float64 `json:"distance"`
}

// HicksTrialSpec is one generated choice-reaction trial. TargetKey is drawn
// from the NumChoices keys of the alphabet starting at RangeStartIndex.
type HicksTrialSpec struct {
	NumChoices      int    `json:"numChoices"`
	TargetKey       string `json:"targetKey"`
	RangeStartIndex int    `json:"rangeStartIndex"`
}

// ActiveKeys returns the window of the alphabet this trial accepts.
func (s HicksTrialSpec) ActiveKeys(alphabet []string) []string {
	end := s.RangeStartIndex + s.NumChoices
	if s.RangeStartIndex < 0 || end > len(alphabet) {
		return nil
	}
	keys := make([]string, s.NumChoices)
	copy(keys, alphabet[s.RangeStartIndex:end])
	return keys
}

type FittsTrialResult struct {
	TrialIndex        int       `json:"trialIndex"`
	TargetWidth       float64   `json:"targetWidth"`
	TargetDistance    float64   `json:"targetDistance"`
	MovementTimeMs    float64   `json:"movementTimeMs"`
	IndexOfDifficulty float64   `json:"indexOfDifficulty"`
	Success           bool      `json:"success"`
	Timestamp         time.Time `json:"timestamp"`
}

type HicksTrialResult struct {
	TrialIndex      int       `json:"trialIndex"`
	NumChoices      int       `json:"numChoices"`
	TargetKey       string    `json:"targetKey"`
	ReactionTimeMs  float64   `json:"reactionTimeMs"`
	Correct         bool      `json:"correct"`
	Timestamp       time.Time `json:"timestamp"`
	RangeStartIndex int       `json:"rangeStartIndex"`
	ActiveKeys      []string  `json:"activeKeys,omitempty"`
}

// Equation is a fitted linear model y = A + B*x.
type Equation struct {
	A  float64 `json:"a"`
	B  float64 `json:"b"`
	R2 float64 `json:"r2"`
}

// CalibrationData is frozen once at the end of the calibration phase.
type CalibrationData struct {
	FittsTrials         []FittsTrialResult `json:"fittsTrials"`
	HicksTrials         []HicksTrialResult `json:"hicksTrials"`
	FittsEquation       *Equation          `json:"fittsEquation,omitempty"`
	HicksEquation       *Equation          `json:"hicksEquation,omitempty"`
	CalibrationComplete bool               `json:"calibrationComplete"`
}
