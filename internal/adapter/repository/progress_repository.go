package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
)

// ProgressRepository handles playback-progress data operations
type ProgressRepository struct {
	db *gorm.DB
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Upsert records the playback position for (user, chapter)
func (r *ProgressRepository) Upsert(ctx context.Context, progress *entities.PlaybackProgress) error {
	if progress == nil {
		return errors.New("progress cannot be nil")
	}
	if progress.ID == uuid.Nil {
		progress.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "chapter_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"position", "updated_at"}),
		}).
		Create(progress).Error
}

// Get retrieves the playback position for (user, chapter)
func (r *ProgressRepository) Get(ctx context.Context, userID, chapterID uuid.UUID) (*entities.PlaybackProgress, error) {
	var progress entities.PlaybackProgress
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND chapter_id = ?", userID, chapterID).
		First(&progress).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &progress, nil
}
