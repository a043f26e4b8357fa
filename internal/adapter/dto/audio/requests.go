package audio

import (
	"github.com/google/uuid"

	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
)

// StatusResponse reports the generation state of a chapter for polling.
// ArchiveURL carries a time-limited object-storage link once the chapter is
// complete and an archive backend is configured.
type StatusResponse struct {
	ChapterID  uuid.UUID            `json:"chapter_id"`
	Status     entities.AudioStatus `json:"status"`
	ArchiveURL string               `json:"archive_url,omitempty"`
}

// SaveProgressRequest records the playback position of a chapter in seconds
type SaveProgressRequest struct {
	NovelID  uuid.UUID `json:"novel_id" validate:"required"`
	Position float64   `json:"position" validate:"gte=0"`
}

// ProgressResponse is the API shape of a saved playback position
type ProgressResponse struct {
	NovelID   uuid.UUID `json:"novel_id"`
	ChapterID uuid.UUID `json:"chapter_id"`
	Position  float64   `json:"position"`
}
