package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
)

// ProgressRepository defines playback-progress data operations
type ProgressRepository interface {
	// Upsert records the playback position for (user, chapter)
	Upsert(ctx context.Context, progress *entities.PlaybackProgress) error
	Get(ctx context.Context, userID, chapterID uuid.UUID) (*entities.PlaybackProgress, error)
}
