package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"lightdark-study/internal/session"
)

// SessionController is the part of the session controller the background
// services need.
type SessionController interface {
	Snapshot() session.State
	Reset() session.State
}

// Watchdog resets a participant run that has been left idle. Sessions in
// consent or completion are never touched.
type Watchdog struct {
	log      *zap.Logger
	ctrl     SessionController
	timeout  func() time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewWatchdog builds a watchdog. timeout is read on every check so a
// reloaded configuration takes effect without a restart; a non-positive
// timeout disables resets.
func NewWatchdog(log *zap.Logger, ctrl SessionController, timeout func() time.Duration) *Watchdog {
	return &Watchdog{
		log:      log,
		ctrl:     ctrl,
		timeout:  timeout,
		interval: time.Minute,
		now:      time.Now,
	}
}

// Run checks the session on every tick until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) error {
	w.log.Info("Starting idle session watchdog...", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Idle session watchdog stopped.")
			return nil
		case <-ticker.C:
			w.check()
		}
	}
}

// check resets the session if it has been idle for longer than the timeout.
// It reports whether a reset happened.
func (w *Watchdog) check() bool {
	timeout := w.timeout()
	if timeout <= 0 {
		return false
	}

	state := w.ctrl.Snapshot()
	if !state.Active() {
		return false
	}

	idle := w.now().Sub(state.UpdatedAt)
	w.log.Debug("Running idle check", zap.Duration("idle", idle), zap.String("phase", string(state.Phase)))
	if idle < timeout {
		return false
	}

	w.log.Warn("Resetting idle session",
		zap.String("participant_id", state.Participant.ParticipantID),
		zap.String("phase", string(state.Phase)),
		zap.Duration("idle", idle),
	)
	w.ctrl.Reset()
	return true
}
