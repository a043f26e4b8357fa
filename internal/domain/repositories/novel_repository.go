package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
)

// NovelRepository defines novel data operations
type NovelRepository interface {
	Create(ctx context.Context, novel *entities.Novel) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Novel, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entities.Novel, error)
	Update(ctx context.Context, novel *entities.Novel) error
	Delete(ctx context.Context, id uuid.UUID) error
}
