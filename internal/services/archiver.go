package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"lightdark-study/internal/export"
	"lightdark-study/internal/models"
	"lightdark-study/internal/session"
)

// SessionStore persists completed sessions.
type SessionStore interface {
	Save(ctx context.Context, s *models.ArchivedSession) error
}

// Archiver stores every session that reaches completion.
type Archiver struct {
	log     *zap.Logger
	store   SessionStore
	timeout time.Duration
	now     func() time.Time
}

func NewArchiver(log *zap.Logger, store SessionStore) *Archiver {
	return &Archiver{
		log:     log,
		store:   store,
		timeout: 10 * time.Second,
		now:     time.Now,
	}
}

// Hook is registered as the controller's completion hook.
func (a *Archiver) Hook(state session.State) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.Archive(ctx, state); err != nil {
		a.log.Error("Failed to archive completed session", zap.Error(err))
	}
}

// Archive renders the export documents of a completed session and stores
// them together with one row per task result.
func (a *Archiver) Archive(ctx context.Context, state session.State) error {
	if state.Phase != session.PhaseCompletion || state.Participant == nil {
		return fmt.Errorf("session in phase %s cannot be archived", state.Phase)
	}

	bundle, err := export.Build(state.Participant, state.Calibration, state.Results, a.now())
	if err != nil {
		return err
	}

	record := NewArchivedSession(state, bundle)
	if err := a.store.Save(ctx, record); err != nil {
		return fmt.Errorf("save session %s: %w", record.ParticipantID, err)
	}

	a.log.Info("Archived completed session",
		zap.String("participant_id", record.ParticipantID),
		zap.Int("results", len(record.TaskResults)),
	)
	return nil
}

// NewArchivedSession flattens a completed session into its archive row.
func NewArchivedSession(state session.State, bundle export.Bundle) *models.ArchivedSession {
	p := state.Participant
	record := &models.ArchivedSession{
		ParticipantID:  p.ParticipantID,
		StartTime:      p.StartTime,
		ConditionOrder: strings.Join(p.ConditionOrder, ","),
		ResultsCSV:     bundle.Results,
		CalibrationCSV: bundle.Calibration,
		StudyJSON:      bundle.JSON,
		TaskResults:    make([]models.ArchivedTaskResult, 0, len(state.Results)),
	}
	if p.EndTime != nil {
		record.EndTime = *p.EndTime
	}

	if data := state.Calibration; data != nil {
		record.FittsTrialsCount = len(data.FittsTrials)
		record.HicksTrialsCount = len(data.HicksTrials)
		if eq := data.FittsEquation; eq != nil {
			record.FittsA, record.FittsB, record.FittsR2 = models.Float(eq.A), models.Float(eq.B), models.Float(eq.R2)
		}
		if eq := data.HicksEquation; eq != nil {
			record.HicksA, record.HicksB, record.HicksR2 = models.Float(eq.A), models.Float(eq.B), models.Float(eq.R2)
		}
	}

	for _, r := range state.Results {
		record.TaskResults = append(record.TaskResults, models.NewArchivedTaskResult(r))
	}
	return record
}
