package entities

import (
	"time"

	"github.com/google/uuid"
)

// AudioStatus represents the narration state of a chapter.
// Transitions: idle -> generating -> {complete, failed};
// failed -> generating is permitted via a fresh task resuming from checkpoint.
type AudioStatus string

const (
	AudioStatusIdle       AudioStatus = ""           // no generation attempted yet
	AudioStatusGenerating AudioStatus = "generating" // pipeline is writing the file
	AudioStatusComplete   AudioStatus = "complete"   // file fully written, immutable
	AudioStatusFailed     AudioStatus = "failed"     // terminal error, checkpoint retained
)

// Chapter represents one chapter of a novel, addressed by byte offsets into
// the novel's source file
type Chapter struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	NovelID       uuid.UUID `json:"novel_id" gorm:"type:uuid;not null;index"`
	Title         string    `json:"title" gorm:"type:varchar(200);not null"`
	StartPosition int64     `json:"start_position" gorm:"not null"`

	AudioFilePath string      `json:"audio_file_path,omitempty" gorm:"type:varchar(300)"`
	AudioStatus   AudioStatus `json:"audio_status,omitempty" gorm:"type:varchar(20);index"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// NewChapter creates a new chapter record
func NewChapter(novelID uuid.UUID, title string, startPosition int64) *Chapter {
	return &Chapter{
		ID:            uuid.New(),
		NovelID:       novelID,
		Title:         title,
		StartPosition: startPosition,
	}
}

// CanStartGeneration reports whether a new generation task may be admitted
func (c *Chapter) CanStartGeneration() bool {
	return c.AudioStatus == AudioStatusIdle || c.AudioStatus == AudioStatusFailed
}

// MarkGenerating marks the chapter as being narrated
func (c *Chapter) MarkGenerating() {
	c.AudioStatus = AudioStatusGenerating
	c.UpdatedAt = time.Now()
}

// MarkComplete marks the chapter audio as fully generated
func (c *Chapter) MarkComplete(audioPath string) {
	c.AudioStatus = AudioStatusComplete
	c.AudioFilePath = audioPath
	c.UpdatedAt = time.Now()
}

// MarkFailed marks the chapter audio generation as failed
func (c *Chapter) MarkFailed() {
	c.AudioStatus = AudioStatusFailed
	c.UpdatedAt = time.Now()
}

// TableName specifies the table name for GORM
func (Chapter) TableName() string {
	return "chapters"
}
