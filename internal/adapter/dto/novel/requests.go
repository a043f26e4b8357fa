package novel

import (
	"time"

	"github.com/google/uuid"

	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
)

// UploadNovelRequest carries the metadata fields of a novel upload; the text
// itself arrives as the multipart file
type UploadNovelRequest struct {
	Title  string `form:"title" validate:"required,max=200"`
	Author string `form:"author" validate:"max=100"`
}

// UpdateLLMRequest sets per-novel voice-script LLM overrides
type UpdateLLMRequest struct {
	APIKey  string `json:"api_key" validate:"max=500"`
	BaseURL string `json:"base_url" validate:"omitempty,url,max=500"`
	Model   string `json:"model" validate:"max=100"`
}

// NovelResponse is the API shape of a novel
type NovelResponse struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	Author            string     `json:"author,omitempty"`
	UploadDate        time.Time  `json:"upload_date"`
	LastReadChapterID *uuid.UUID `json:"last_read_chapter_id,omitempty"`
	ChapterCount      int        `json:"chapter_count,omitempty"`
}

// ChapterResponse is the API shape of a chapter
type ChapterResponse struct {
	ID          uuid.UUID            `json:"id"`
	NovelID     uuid.UUID            `json:"novel_id"`
	Title       string               `json:"title"`
	AudioStatus entities.AudioStatus `json:"audio_status"`
}

// FromNovel converts a novel entity to its API shape
func FromNovel(n *entities.Novel) NovelResponse {
	return NovelResponse{
		ID:                n.ID,
		Title:             n.Title,
		Author:            n.Author,
		UploadDate:        n.UploadDate,
		LastReadChapterID: n.LastReadChapterID,
	}
}

// FromChapter converts a chapter entity to its API shape
func FromChapter(c *entities.Chapter) ChapterResponse {
	return ChapterResponse{
		ID:          c.ID,
		NovelID:     c.NovelID,
		Title:       c.Title,
		AudioStatus: c.AudioStatus,
	}
}
