package session

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"strings"
	"time"

	"lightdark-study/internal/apperrors"
	"lightdark-study/internal/calibration"
	"lightdark-study/internal/metrics"
	"lightdark-study/internal/models"
	"lightdark-study/internal/prediction"
	"lightdark-study/internal/utils"
)

// errStaleTimer marks a ready-timer callback that belongs to a trial or
// session that no longer exists. The controller drops it.
var errStaleTimer = errors.New("stale trial timer")

// Env is everything a transition may consult besides the previous state.
// Rand is shared by trial generation, task shuffling and participant ids and
// must only be used under the controller's lock.
type Env struct {
	Now       func() time.Time
	Rand      *rand.Rand
	Design    calibration.Design
	Params    calibration.Params
	Predictor *prediction.Service
	Protocol  *models.Protocol
	NewEpoch  func() string
	Debug     bool
}

// NewState is the empty consent-screen state.
func NewState(env Env) State {
	return State{
		Epoch:     env.NewEpoch(),
		Phase:     PhaseConsent,
		Stage:     StageIdle,
		UpdatedAt: env.Now(),
	}
}

// Transition computes the state that follows prev under ev. On error prev
// is returned unchanged.
func Transition(prev State, ev Event, env Env) (State, error) {
	next, err := apply(prev, ev, env)
	if err != nil {
		return prev, err
	}
	next.UpdatedAt = env.Now()
	return next, nil
}

func apply(s State, ev Event, env Env) (State, error) {
	switch e := ev.(type) {
	case Start:
		return start(s, env)
	case Reset:
		return NewState(env), nil
	case Next:
		return next(s, env)
	case Arm:
		return arm(s, e)
	case TrialArmed:
		return trialArmed(s, e, env)
	case RecordFitts:
		return recordFitts(s, e, env)
	case RecordHicks:
		return recordHicks(s, e, env)
	case FinishCalibration:
		return finishCalibration(s, env)
	case RecordTask:
		return recordTask(s, e, env)
	case Skip:
		return skip(s, env)
	}
	return s, fmt.Errorf("unknown event %T: %w", ev, apperrors.ErrInvalidInput)
}

func invalid(s State, ev Event) error {
	return fmt.Errorf("%s during %s: %w", ev.eventName(), s.Phase, apperrors.ErrInvalidTransition)
}

func start(s State, env Env) (State, error) {
	if s.Phase != PhaseConsent {
		return s, invalid(s, Start{})
	}

	now := env.Now()
	conditions := env.Protocol.ConditionOrder(env.Rand)
	order := make([]string, len(conditions))
	for i, c := range conditions {
		order[i] = c.Label
	}

	return State{
		Epoch: env.NewEpoch(),
		Phase: PhaseInstructions,
		Participant: &models.ParticipantData{
			ParticipantID:  utils.GenerateParticipantID(now, env.Rand),
			StartTime:      now,
			ConditionOrder: order,
		},
		Conditions: conditions,
		Stage:      StageIdle,
		Token:      s.Token + 1,
	}, nil
}

func next(s State, env Env) (State, error) {
	switch s.Phase {
	case PhaseInstructions:
		s.Phase = PhaseCalibration
		s.Stage = StageIdle
		return s, nil

	case PhaseCalibration:
		if s.Stage != StageIdle {
			return s, invalid(s, Next{})
		}
		gen := calibration.NewGenerator(env.Design, env.Rand)
		s.Stage = StageFitts
		s.FittsSpecs = gen.FittsTrials()
		return resetTrial(s, 0), nil

	case PhaseConditionIntro:
		s.Phase = PhaseTask
		s.TaskIndex = 0
		return s, nil

	case PhaseConditionComplete:
		if s.ConditionIndex+1 < len(s.Conditions) {
			s.ConditionIndex++
			return enterConditionIntro(s, env), nil
		}
		participant := *s.Participant
		end := env.Now()
		participant.EndTime = &end
		participant.Completed = true
		s.Participant = &participant
		s.Phase = PhaseCompletion
		return s, nil
	}
	return s, invalid(s, Next{})
}

// enterConditionIntro draws a fresh task battery for the current condition.
func enterConditionIntro(s State, env Env) State {
	s.Phase = PhaseConditionIntro
	s.Tasks = env.Protocol.BuildTasks(env.Rand)
	s.TaskIndex = 0
	return s
}

// resetTrial makes index the active calibration trial with a fresh token.
func resetTrial(s State, index int) State {
	s.TrialIndex = index
	s.Token++
	s.Pending = false
	s.Armed = false
	s.ArmedAt = time.Time{}
	return s
}

func hasActiveTrial(s State) bool {
	switch s.Stage {
	case StageFitts:
		_, ok := s.CurrentFittsSpec()
		return ok
	case StageHicks:
		_, ok := s.CurrentHicksSpec()
		return ok
	}
	return false
}

func checkTrial(s State, ev Event, token uint64) error {
	if s.Phase != PhaseCalibration {
		return invalid(s, ev)
	}
	if !hasActiveTrial(s) {
		return fmt.Errorf("%s at stage %s: %w", ev.eventName(), s.Stage, apperrors.ErrNoActiveTrial)
	}
	if token != 0 && token != s.Token {
		return fmt.Errorf("token %d is not the active trial: %w", token, apperrors.ErrNoActiveTrial)
	}
	return nil
}

func arm(s State, e Arm) (State, error) {
	if err := checkTrial(s, e, e.Token); err != nil {
		return s, err
	}
	if s.Pending || s.Armed {
		return s, fmt.Errorf("trial already armed: %w", apperrors.ErrInvalidTransition)
	}
	s.Pending = true
	return s, nil
}

func trialArmed(s State, e TrialArmed, env Env) (State, error) {
	if e.Epoch != s.Epoch || e.Token != s.Token || !s.Pending {
		return s, errStaleTimer
	}
	s.Pending = false
	s.Armed = true
	s.ArmedAt = env.Now()
	return s, nil
}

// advanceTrial moves past the active trial. Finishing the pointing trials
// generates the choice trials; finishing those waits for the fit.
func advanceTrial(s State, env Env) State {
	s = resetTrial(s, s.TrialIndex+1)
	switch {
	case s.Stage == StageFitts && s.TrialIndex >= len(s.FittsSpecs):
		gen := calibration.NewGenerator(env.Design, env.Rand)
		s.Stage = StageHicks
		s.HicksSpecs = gen.HicksTrials()
		s.TrialIndex = 0
	case s.Stage == StageHicks && s.TrialIndex >= len(s.HicksSpecs):
		s.Stage = StageFitting
	}
	return s
}

func validDuration(ms float64) bool {
	return ms >= 0 && !math.IsNaN(ms) && !math.IsInf(ms, 0)
}

func recordFitts(s State, e RecordFitts, env Env) (State, error) {
	if err := checkTrial(s, e, e.Token); err != nil {
		return s, err
	}
	spec, ok := s.CurrentFittsSpec()
	if !ok {
		return s, fmt.Errorf("%s at stage %s: %w", e.eventName(), s.Stage, apperrors.ErrNoActiveTrial)
	}
	if !s.Armed {
		return s, apperrors.ErrTrialNotArmed
	}
	if !validDuration(e.MovementTimeMs) {
		return s, fmt.Errorf("movement time %v: %w", e.MovementTimeMs, apperrors.ErrInvalidInput)
	}

	s.FittsTrials = appendCopy(s.FittsTrials, models.FittsTrialResult{
		TrialIndex:        s.TrialIndex,
		TargetWidth:       spec.Width,
		TargetDistance:    spec.Distance,
		MovementTimeMs:    e.MovementTimeMs,
		IndexOfDifficulty: calibration.IndexOfDifficulty(spec.Distance, spec.Width),
		Success:           e.Success,
		Timestamp:         env.Now(),
	})
	return advanceTrial(s, env), nil
}

func recordHicks(s State, e RecordHicks, env Env) (State, error) {
	if err := checkTrial(s, e, e.Token); err != nil {
		return s, err
	}
	spec, ok := s.CurrentHicksSpec()
	if !ok {
		return s, fmt.Errorf("%s at stage %s: %w", e.eventName(), s.Stage, apperrors.ErrNoActiveTrial)
	}
	if !s.Armed {
		return s, apperrors.ErrTrialNotArmed
	}
	if !validDuration(e.ReactionTimeMs) {
		return s, fmt.Errorf("reaction time %v: %w", e.ReactionTimeMs, apperrors.ErrInvalidInput)
	}

	active := spec.ActiveKeys(env.Design.KeyAlphabet)
	correct := e.Correct
	if e.Key != "" {
		if !slices.ContainsFunc(active, func(k string) bool { return strings.EqualFold(k, e.Key) }) {
			return s, fmt.Errorf("key %q is not active: %w", e.Key, apperrors.ErrInvalidInput)
		}
		correct = strings.EqualFold(e.Key, spec.TargetKey)
	}

	s.HicksTrials = appendCopy(s.HicksTrials, models.HicksTrialResult{
		TrialIndex:      s.TrialIndex,
		NumChoices:      spec.NumChoices,
		TargetKey:       spec.TargetKey,
		ReactionTimeMs:  e.ReactionTimeMs,
		Correct:         correct,
		Timestamp:       env.Now(),
		RangeStartIndex: spec.RangeStartIndex,
		ActiveKeys:      active,
	})
	return advanceTrial(s, env), nil
}

func finishCalibration(s State, env Env) (State, error) {
	if s.Calibration != nil {
		return s, apperrors.ErrCalibrationFrozen
	}
	if s.Phase != PhaseCalibration || s.Stage != StageFitting {
		return s, invalid(s, FinishCalibration{})
	}

	fitts := calibration.FitFitts(s.FittsTrials, env.Params)
	hicks := calibration.FitHicks(s.HicksTrials, env.Params)
	fittsEq, hicksEq := fitts.Equation, hicks.Equation

	s.FittsFit = &fitts
	s.HicksFit = &hicks
	s.Calibration = &models.CalibrationData{
		FittsTrials:         s.FittsTrials,
		HicksTrials:         s.HicksTrials,
		FittsEquation:       &fittsEq,
		HicksEquation:       &hicksEq,
		CalibrationComplete: true,
	}
	s.Stage = StageComplete
	s.ConditionIndex = 0
	return enterConditionIntro(s, env), nil
}

func recordTask(s State, e RecordTask, env Env) (State, error) {
	if s.Phase != PhaseTask {
		return s, invalid(s, e)
	}
	task, ok := s.CurrentTask()
	if !ok {
		return s, invalid(s, e)
	}
	if task.ConfigError != "" {
		return s, fmt.Errorf("task %s: %s: %w", task.ID, task.ConfigError, apperrors.ErrTaskMisconfigured)
	}

	in := e.Input
	switch {
	case in.TaskID != "" && in.TaskID != task.ID:
		return s, fmt.Errorf("result for %s while %s is active: %w", in.TaskID, task.ID, apperrors.ErrInvalidInput)
	case in.TaskType != "" && in.TaskType != task.Type:
		return s, fmt.Errorf("result type %s for %s task: %w", in.TaskType, task.Type, apperrors.ErrInvalidInput)
	case !validDuration(in.CompletionTimeMs):
		return s, fmt.Errorf("completion time %v: %w", in.CompletionTimeMs, apperrors.ErrInvalidInput)
	case in.TotalClicks < 0 || in.IncorrectClicks < 0:
		return s, fmt.Errorf("negative click count: %w", apperrors.ErrInvalidInput)
	}

	condition, _ := s.CurrentCondition()
	result := models.TaskResult{
		ParticipantID:    s.Participant.ParticipantID,
		TaskID:           task.ID,
		TaskType:         task.Type,
		ConditionLabel:   condition.Label,
		InterfaceMode:    condition.InterfaceMode,
		RoomCondition:    condition.RoomCondition,
		CompletionTimeMs: in.CompletionTimeMs,
		TotalClicks:      in.TotalClicks,
		IncorrectClicks:  in.IncorrectClicks,
		Success:          in.Success,
		Timestamp:        env.Now(),
		Geometry:         in.Geometry,
		TargetText:       in.TargetText,
	}

	cursor := metrics.CalculateCursorMetrics(in.CursorPath)
	if in.CursorDistancePx != nil {
		result.CursorDistancePx = *in.CursorDistancePx
	} else {
		result.CursorDistancePx = cursor.DistancePx
	}
	if cursor.PathEfficiency.Calculated {
		result.PathEfficiency = models.Float(cursor.PathEfficiency.Value)
	}
	if cursor.AverageVelocity.Calculated {
		result.AverageVelocityPxPerSec = models.Float(cursor.AverageVelocity.Value)
	}

	result = env.Predictor.Annotate(prediction.FromCalibration(s.Calibration), result)
	s.Results = appendCopy(s.Results, result)
	return advanceTask(s), nil
}

func advanceTask(s State) State {
	s.TaskIndex++
	if s.TaskIndex >= len(s.Tasks) {
		s.Phase = PhaseConditionComplete
	}
	return s
}

func skip(s State, env Env) (State, error) {
	if !env.Debug {
		return s, apperrors.ErrDebugDisabled
	}

	switch s.Phase {
	case PhaseConsent, PhaseCompletion:
		return s, invalid(s, Skip{})
	case PhaseCalibration:
		switch {
		case hasActiveTrial(s):
			return advanceTrial(s, env), nil
		case s.Stage == StageFitting:
			return finishCalibration(s, env)
		}
	case PhaseTask:
		return advanceTask(s), nil
	}
	return next(s, env)
}
