package entities

import (
	"time"

	"github.com/google/uuid"
)

// PlaybackProgress stores the last playback position (in seconds) per
// (user, novel, chapter), so a client can resume the UI where it left off
type PlaybackProgress struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_progress_user_chapter"`
	NovelID   uuid.UUID `json:"novel_id" gorm:"type:uuid;not null;index"`
	ChapterID uuid.UUID `json:"chapter_id" gorm:"type:uuid;not null;uniqueIndex:idx_progress_user_chapter"`
	Position  float64   `json:"position" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (PlaybackProgress) TableName() string {
	return "playback_progress"
}
