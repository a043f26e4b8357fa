package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
)

// CharacterRepository handles voice-registry data operations
type CharacterRepository struct {
	db *gorm.DB
}

// NewCharacterRepository creates a new character repository
func NewCharacterRepository(db *gorm.DB) *CharacterRepository {
	return &CharacterRepository{db: db}
}

// Create creates a new character
func (r *CharacterRepository) Create(ctx context.Context, character *entities.Character) error {
	if character == nil {
		return errors.New("character cannot be nil")
	}
	return r.db.WithContext(ctx).Create(character).Error
}

// GetByName retrieves a character by its unique name
func (r *CharacterRepository) GetByName(ctx context.Context, name string) (*entities.Character, error) {
	var character entities.Character
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&character).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &character, nil
}

// List retrieves all registered characters
func (r *CharacterRepository) List(ctx context.Context) ([]entities.Character, error) {
	var characters []entities.Character
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&characters).Error; err != nil {
		return nil, err
	}
	return characters, nil
}
