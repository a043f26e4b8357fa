package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
)

// ChapterRepository handles chapter data operations
type ChapterRepository struct {
	db *gorm.DB
}

// NewChapterRepository creates a new chapter repository
func NewChapterRepository(db *gorm.DB) *ChapterRepository {
	return &ChapterRepository{db: db}
}

// Create creates a new chapter
func (r *ChapterRepository) Create(ctx context.Context, chapter *entities.Chapter) error {
	if chapter == nil {
		return errors.New("chapter cannot be nil")
	}
	return r.db.WithContext(ctx).Create(chapter).Error
}

// GetByID retrieves a chapter by ID
func (r *ChapterRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Chapter, error) {
	var chapter entities.Chapter
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&chapter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &chapter, nil
}

// ListByNovel retrieves all chapters of a novel ordered by start position
func (r *ChapterRepository) ListByNovel(ctx context.Context, novelID uuid.UUID) ([]entities.Chapter, error) {
	var chapters []entities.Chapter
	if err := r.db.WithContext(ctx).
		Where("novel_id = ?", novelID).
		Order("start_position ASC").
		Find(&chapters).Error; err != nil {
		return nil, err
	}
	return chapters, nil
}

// NextAfter retrieves the chapter following the given start position
func (r *ChapterRepository) NextAfter(ctx context.Context, novelID uuid.UUID, startPosition int64) (*entities.Chapter, error) {
	var chapter entities.Chapter
	if err := r.db.WithContext(ctx).
		Where("novel_id = ? AND start_position > ?", novelID, startPosition).
		Order("start_position ASC").
		First(&chapter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &chapter, nil
}

// UpdateAudioStatus updates a chapter's audio status and optionally its file path
func (r *ChapterRepository) UpdateAudioStatus(ctx context.Context, id uuid.UUID, status entities.AudioStatus, audioPath string) error {
	updates := map[string]interface{}{"audio_status": status}
	if audioPath != "" {
		updates["audio_file_path"] = audioPath
	}
	return r.db.WithContext(ctx).
		Model(&entities.Chapter{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeleteByNovel removes all chapters of a novel
func (r *ChapterRepository) DeleteByNovel(ctx context.Context, novelID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entities.Chapter{}, "novel_id = ?", novelID).Error
}
