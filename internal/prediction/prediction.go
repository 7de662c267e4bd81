package prediction

import (
	"math"
	"unicode/utf8"

	"lightdark-study/internal/calibration"
	"lightdark-study/internal/models"
)

// Equations are the participant's fitted models. Either may be nil before
// calibration completes.
type Equations struct {
	Fitts *models.Equation
	Hicks *models.Equation
}

// FromCalibration extracts the equations of a calibration snapshot.
func FromCalibration(data *models.CalibrationData) Equations {
	if data == nil {
		return Equations{}
	}
	return Equations{Fitts: data.FittsEquation, Hicks: data.HicksEquation}
}

// Predictor computes the expected completion time of one task result. The
// second return value is false when a required input is missing.
type Predictor func(eq Equations, r models.TaskResult) (float64, bool)

type Params struct {
	KeystrokeSeconds    float64
	VisualSearchFloorMs float64
}

func DefaultParams() Params {
	return Params{KeystrokeSeconds: 0.2, VisualSearchFloorMs: 100}
}

// Service annotates task results with a predicted time and an efficiency
// score. Task types without a registered predictor get neither.
type Service struct {
	params Params
	table  map[models.TaskType]Predictor
}

func NewService(params Params) *Service {
	s := &Service{params: params, table: make(map[models.TaskType]Predictor)}
	s.Register(models.TaskButtonClick, predictButtonClick)
	s.Register(models.TaskDragDrop, predictDragDrop)
	s.Register(models.TaskListSelect, predictListSelect)
	s.Register(models.TaskChoiceReaction, predictChoiceReaction)
	s.Register(models.TaskFormInput, s.predictFormInput)
	return s
}

// Register installs or replaces the predictor for a task type.
func (s *Service) Register(t models.TaskType, p Predictor) {
	s.table[t] = p
}

// Predict returns the rounded predicted completion time, or nil.
func (s *Service) Predict(eq Equations, r models.TaskResult) *float64 {
	predict, ok := s.table[r.TaskType]
	if !ok {
		return nil
	}
	ms, ok := predict(eq, r)
	if !ok || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return nil
	}
	return models.Float(math.Round(math.Max(0, ms)))
}

// Efficiency scores a result against its prediction. Visual search uses the
// search slope (completion − floor) / distractors instead of a ratio.
func (s *Service) Efficiency(r models.TaskResult, predicted *float64) *float64 {
	if r.TaskType == models.TaskVisualSearch {
		if r.DistractorCount == nil || *r.DistractorCount <= 0 {
			return nil
		}
		return models.Float((r.CompletionTimeMs - s.params.VisualSearchFloorMs) / float64(*r.DistractorCount))
	}
	if predicted == nil || r.CompletionTimeMs <= 0 {
		return nil
	}
	return models.Float(*predicted / r.CompletionTimeMs)
}

// Annotate returns r with PredictedTimeMs and Efficiency filled in.
func (s *Service) Annotate(eq Equations, r models.TaskResult) models.TaskResult {
	r.PredictedTimeMs = s.Predict(eq, r)
	r.Efficiency = s.Efficiency(r, r.PredictedTimeMs)
	return r
}

// KLM is the keystroke-level estimate (characters + 1) × keystroke time.
func KLM(characters int, keystrokeSeconds float64) float64 {
	return float64(characters+1) * keystrokeSeconds * 1000
}

func (s *Service) predictFormInput(_ Equations, r models.TaskResult) (float64, bool) {
	switch {
	case r.CharacterCount != nil:
		return KLM(*r.CharacterCount, s.params.KeystrokeSeconds), true
	case r.TargetText != "":
		return KLM(utf8.RuneCountInString(r.TargetText), s.params.KeystrokeSeconds), true
	}
	return 0, false
}

// predictButtonClick is one Fitts movement, plus a Hick's decision term when
// the widget reports how many buttons were on screen.
func predictButtonClick(eq Equations, r models.TaskResult) (float64, bool) {
	ms, ok := fitts(eq, r.TargetDistancePx, r.TargetWidthPx)
	if !ok {
		return 0, false
	}
	if r.NumChoices != nil && eq.Hicks != nil && *r.NumChoices >= 1 {
		ms += calibration.PredictHicks(*eq.Hicks, float64(*r.NumChoices))
	}
	return ms, true
}

// predictDragDrop sums the acquire movement and the transport movement.
func predictDragDrop(eq Equations, r models.TaskResult) (float64, bool) {
	acquire, ok := fitts(eq, r.AcquireDistancePx, r.AcquireWidthPx)
	if !ok {
		return 0, false
	}
	transport, ok := fitts(eq, r.DragDistancePx, r.DropWidthPx)
	if !ok {
		return 0, false
	}
	return acquire + transport, true
}

// predictListSelect is a Fitts movement to the item plus a Hick's decision
// over the list size.
func predictListSelect(eq Equations, r models.TaskResult) (float64, bool) {
	movement, ok := fitts(eq, r.TargetDistancePx, r.TargetWidthPx)
	if !ok || eq.Hicks == nil || r.NumChoices == nil || *r.NumChoices < 1 {
		return 0, false
	}
	return movement + calibration.PredictHicks(*eq.Hicks, float64(*r.NumChoices)), true
}

// predictChoiceReaction falls back to the click count as decision load when
// the number of alternatives is unknown.
func predictChoiceReaction(eq Equations, r models.TaskResult) (float64, bool) {
	if eq.Hicks == nil {
		return 0, false
	}
	if r.NumChoices != nil && *r.NumChoices >= 1 {
		return calibration.PredictHicks(*eq.Hicks, float64(*r.NumChoices)), true
	}
	return calibration.PredictHicks(*eq.Hicks, float64(r.TotalClicks+1)), true
}

func fitts(eq Equations, distance, width *float64) (float64, bool) {
	if eq.Fitts == nil || distance == nil || width == nil || *width <= 0 || *distance < 0 {
		return 0, false
	}
	return calibration.PredictFitts(*eq.Fitts, *distance, *width), true
}
