package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"lightdark-study/internal/apperrors"
	"lightdark-study/internal/calibration"
	"lightdark-study/internal/models"
)

// Delays are the ready periods before a calibration stimulus accepts input.
type Delays struct {
	FittsReady time.Duration
	HicksMin   time.Duration
	HicksMax   time.Duration
}

func DefaultDelays() Delays {
	return Delays{
		FittsReady: 500 * time.Millisecond,
		HicksMin:   500 * time.Millisecond,
		HicksMax:   2000 * time.Millisecond,
	}
}

// ArmTicket tells the UI which trial was armed and when input opens.
type ArmTicket struct {
	Epoch   string        `json:"epoch"`
	Token   uint64        `json:"token"`
	Delay   time.Duration `json:"-"`
	DelayMs int64         `json:"delayMs"`
}

// TrialView describes the active calibration trial to the UI.
type TrialView struct {
	Stage             Stage                  `json:"stage"`
	Index             int                    `json:"index"`
	Total             int                    `json:"total"`
	Token             uint64                 `json:"token"`
	Pending           bool                   `json:"pending"`
	Armed             bool                   `json:"armed"`
	Fitts             *models.FittsTrialSpec `json:"fitts,omitempty"`
	IndexOfDifficulty float64                `json:"indexOfDifficulty,omitempty"`
	Hicks             *models.HicksTrialSpec `json:"hicks,omitempty"`
	ActiveKeys        []string               `json:"activeKeys,omitempty"`
}

// Preview is a live fit over the trials collected so far.
type Preview struct {
	Fitts calibration.Result `json:"fitts"`
	Hicks calibration.Result `json:"hicks"`
}

// Controller owns the single committed session state. Every change goes
// through Transition under mu, so HTTP handlers and timer callbacks always
// see a consistent snapshot.
type Controller struct {
	mu         sync.Mutex
	state      State
	env        Env
	newEnv     func() Env
	delays     Delays
	timer      *time.Timer
	onComplete func(State)
	log        *zap.Logger
}

type Option func(*Controller)

func WithDelays(d Delays) Option {
	return func(c *Controller) { c.delays = d }
}

// WithCompletionHook registers fn to run once each time a session reaches
// the completion phase. It runs outside the controller lock.
func WithCompletionHook(fn func(State)) Option {
	return func(c *Controller) { c.onComplete = fn }
}

// NewController builds a controller. newEnv is consulted at every Start and
// Reset so configuration changes apply to the next session only.
func NewController(newEnv func() Env, log *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		newEnv: newEnv,
		env:    newEnv(),
		delays: DefaultDelays(),
		log:    log,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = NewState(c.env)
	return c
}

// Snapshot returns the committed state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Debug reports whether debug tooling is enabled for the current session.
func (c *Controller) Debug() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.env.Debug
}

// Dispatch applies ev and commits the result.
func (c *Controller) Dispatch(ev Event) (State, error) {
	c.mu.Lock()
	next, completed, err := c.dispatchLocked(ev)
	hook := c.onComplete
	c.mu.Unlock()

	if completed && hook != nil {
		hook(next)
	}
	return next, err
}

// dispatchLocked reports whether this event moved the session into the
// completion phase.
func (c *Controller) dispatchLocked(ev Event) (State, bool, error) {
	prev := c.state
	env := c.env
	switch ev.(type) {
	case Start, Reset:
		env = c.newEnv()
	}

	next, err := Transition(prev, ev, env)
	if err != nil {
		if errors.Is(err, errStaleTimer) {
			c.log.Debug("Dropped stale trial timer", zap.String("epoch", prev.Epoch), zap.Uint64("token", prev.Token))
			return prev, false, nil
		}
		c.log.Warn("Rejected session event",
			zap.String("event", ev.eventName()),
			zap.String("phase", string(prev.Phase)),
			zap.String("stage", string(prev.Stage)),
			zap.Error(err),
		)
		return prev, false, err
	}

	if next.Epoch != prev.Epoch || next.Token != prev.Token {
		c.stopTimerLocked()
	}
	c.env = env
	c.state = next
	c.logTransition(ev, prev, next)
	return next, prev.Phase != PhaseCompletion && next.Phase == PhaseCompletion, nil
}

func (c *Controller) logTransition(ev Event, prev, next State) {
	fields := []zap.Field{
		zap.String("event", ev.eventName()),
		zap.String("phase", string(next.Phase)),
		zap.String("stage", string(next.Stage)),
	}
	if next.Participant != nil {
		fields = append(fields, zap.String("participant_id", next.Participant.ParticipantID))
	}
	c.log.Debug("Session transition", fields...)

	if next.Calibration != nil && prev.Calibration == nil {
		for _, fit := range []struct {
			model string
			res   *calibration.Result
		}{{"fitts", next.FittsFit}, {"hicks", next.HicksFit}} {
			c.log.Info("Calibration model fitted",
				zap.String("model", fit.model),
				zap.Float64("a", fit.res.Equation.A),
				zap.Float64("b", fit.res.Equation.B),
				zap.Float64("r2", fit.res.Equation.R2),
				zap.Int("kept_trials", fit.res.Kept),
				zap.Bool("fallback", !fit.res.Calibrated),
				zap.String("reason", fit.res.Reason),
			)
		}
	}

	if next.Phase == PhaseTask && (prev.Phase != PhaseTask || next.TaskIndex != prev.TaskIndex) {
		if task, ok := next.CurrentTask(); ok && task.ConfigError != "" {
			c.log.Error("Task is misconfigured", zap.String("task_id", task.ID), zap.String("error", task.ConfigError))
		}
	}
}

// Arm starts the ready period of the active calibration trial and schedules
// the timer that opens it for input.
func (c *Controller) Arm(token uint64) (ArmTicket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, _, err := c.dispatchLocked(Arm{Token: token})
	if err != nil {
		return ArmTicket{}, err
	}

	delay := c.delays.FittsReady
	if state.Stage == StageHicks {
		delay = c.delays.HicksMin
		if spread := c.delays.HicksMax - c.delays.HicksMin; spread > 0 {
			delay += time.Duration(c.env.Rand.Int63n(int64(spread)))
		}
	}

	ticket := ArmTicket{Epoch: state.Epoch, Token: state.Token, Delay: delay, DelayMs: delay.Milliseconds()}
	c.timer = time.AfterFunc(delay, func() {
		if _, err := c.Dispatch(TrialArmed{Epoch: ticket.Epoch, Token: ticket.Token}); err != nil {
			c.log.Debug("Arm timer rejected", zap.Error(err))
		}
	})
	return ticket, nil
}

// CurrentTrial returns the active calibration trial.
func (c *Controller) CurrentTrial() (TrialView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	view := TrialView{Stage: s.Stage, Index: s.TrialIndex, Token: s.Token, Pending: s.Pending, Armed: s.Armed}
	if spec, ok := s.CurrentFittsSpec(); ok {
		view.Total = len(s.FittsSpecs)
		view.Fitts = &spec
		view.IndexOfDifficulty = calibration.IndexOfDifficulty(spec.Distance, spec.Width)
		return view, nil
	}
	if spec, ok := s.CurrentHicksSpec(); ok {
		view.Total = len(s.HicksSpecs)
		view.Hicks = &spec
		view.ActiveKeys = spec.ActiveKeys(c.env.Design.KeyAlphabet)
		return view, nil
	}
	return view, fmt.Errorf("phase %s stage %s: %w", s.Phase, s.Stage, apperrors.ErrNoActiveTrial)
}

// Reset abandons the current run. Pending timers are stopped and any that
// already fired become no-ops.
func (c *Controller) Reset() State {
	state, _ := c.Dispatch(Reset{})
	return state
}

// Preview fits both models over the trials collected so far without
// changing state.
func (c *Controller) Preview() Preview {
	c.mu.Lock()
	state, params := c.state, c.env.Params
	c.mu.Unlock()

	return Preview{
		Fitts: calibration.FitFitts(state.FittsTrials, params),
		Hicks: calibration.FitHicks(state.HicksTrials, params),
	}
}

// Close stops any pending timer.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
}

// IsStale reports whether epoch no longer names the current session.
func (c *Controller) IsStale(epoch string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return epoch != c.state.Epoch
}

// CheckEpoch returns ErrStaleSession when epoch is not the current session.
func (c *Controller) CheckEpoch(epoch string) error {
	if c.IsStale(epoch) {
		return apperrors.ErrStaleSession
	}
	return nil
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
