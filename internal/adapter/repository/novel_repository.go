package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
)

// NovelRepository handles novel data operations
type NovelRepository struct {
	db *gorm.DB
}

// NewNovelRepository creates a new novel repository
func NewNovelRepository(db *gorm.DB) *NovelRepository {
	return &NovelRepository{db: db}
}

// Create creates a new novel
func (r *NovelRepository) Create(ctx context.Context, novel *entities.Novel) error {
	if novel == nil {
		return errors.New("novel cannot be nil")
	}
	return r.db.WithContext(ctx).Create(novel).Error
}

// GetByID retrieves a novel by ID
func (r *NovelRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Novel, error) {
	var novel entities.Novel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&novel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &novel, nil
}

// ListByUser retrieves all novels owned by a user
func (r *NovelRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]entities.Novel, error) {
	var novels []entities.Novel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("upload_date DESC").
		Find(&novels).Error; err != nil {
		return nil, err
	}
	return novels, nil
}

// Update updates a novel
func (r *NovelRepository) Update(ctx context.Context, novel *entities.Novel) error {
	if novel == nil {
		return errors.New("novel cannot be nil")
	}
	return r.db.WithContext(ctx).
		Model(&entities.Novel{}).
		Where("id = ?", novel.ID).
		Save(novel).Error
}

// Delete removes a novel record
func (r *NovelRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entities.Novel{}, "id = ?", id).Error
}
