package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"lightdark-study/internal/apperrors"
	"lightdark-study/internal/models"
)

// ArchiveRepository stores completed participant sessions.
type ArchiveRepository struct {
	db *gorm.DB
}

func NewArchiveRepository(db *gorm.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// Save stores the session row and all of its task results in a single transaction.
// A participant can be archived only once.
func (r *ArchiveRepository) Save(ctx context.Context, session *models.ArchivedSession) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.ArchivedSession{}).
			Where("participant_id = ?", session.ParticipantID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("participant %s already archived: %w", session.ParticipantID, apperrors.ErrInvalidInput)
		}

		results := session.TaskResults
		session.TaskResults = nil
		if err := tx.Create(session).Error; err != nil {
			return fmt.Errorf("insert archived session: %w", err)
		}

		for i := range results {
			results[i].SessionID = session.ID
		}
		if len(results) > 0 {
			if err := tx.CreateInBatches(results, 100).Error; err != nil {
				return fmt.Errorf("insert archived task results: %w", err)
			}
		}
		session.TaskResults = results
		return nil
	})
}

// List returns archived sessions newest first, without their task results.
func (r *ArchiveRepository) List(ctx context.Context) ([]models.ArchivedSession, error) {
	var sessions []models.ArchivedSession
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&sessions).Error
	return sessions, err
}

// Get loads one archived session with its task results in recorded order.
func (r *ArchiveRepository) Get(ctx context.Context, participantID string) (*models.ArchivedSession, error) {
	var session models.ArchivedSession
	err := r.db.WithContext(ctx).
		Preload("TaskResults", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("participant_id = ?", participantID).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("participant %s: %w", participantID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}
