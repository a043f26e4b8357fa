package repositories

import (
	"context"

	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
)

// CharacterRepository defines voice-registry data operations
type CharacterRepository interface {
	Create(ctx context.Context, character *entities.Character) error
	GetByName(ctx context.Context, name string) (*entities.Character, error)
	List(ctx context.Context) ([]entities.Character, error)
}
