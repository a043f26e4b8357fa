package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
)

// ChapterRepository defines chapter data operations
type ChapterRepository interface {
	Create(ctx context.Context, chapter *entities.Chapter) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Chapter, error)
	// ListByNovel returns chapters ordered by their start position
	ListByNovel(ctx context.Context, novelID uuid.UUID) ([]entities.Chapter, error)
	// NextAfter returns the chapter following the given start position within
	// a novel, or nil when it is the last chapter
	NextAfter(ctx context.Context, novelID uuid.UUID, startPosition int64) (*entities.Chapter, error)
	UpdateAudioStatus(ctx context.Context, id uuid.UUID, status entities.AudioStatus, audioPath string) error
	DeleteByNovel(ctx context.Context, novelID uuid.UUID) error
}
