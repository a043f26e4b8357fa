package entities

import (
	"time"

	"github.com/google/uuid"
)

// Novel represents an uploaded long-form text split into chapters
type Novel struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Title      string    `json:"title" gorm:"type:varchar(200);not null"`
	Author     string    `json:"author,omitempty" gorm:"type:varchar(100)"`
	FilePath   string    `json:"file_path" gorm:"type:varchar(300);not null"`
	UploadDate time.Time `json:"upload_date" gorm:"not null"`
	UserID     uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`

	LastReadChapterID *uuid.UUID `json:"last_read_chapter_id,omitempty" gorm:"type:uuid"`

	// Per-novel voice-script LLM overrides; empty values fall back to the
	// process-wide LLM configuration.
	LLMAPIKey  string `json:"-" gorm:"type:varchar(500)"`
	LLMBaseURL string `json:"llm_base_url,omitempty" gorm:"type:varchar(500)"`
	LLMModel   string `json:"llm_model,omitempty" gorm:"type:varchar(100)"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// NewNovel creates a new novel record
func NewNovel(userID uuid.UUID, title, author, filePath string) *Novel {
	return &Novel{
		ID:         uuid.New(),
		Title:      title,
		Author:     author,
		FilePath:   filePath,
		UploadDate: time.Now(),
		UserID:     userID,
	}
}

// TableName specifies the table name for GORM
func (Novel) TableName() string {
	return "novels"
}
