package entities

import (
	"time"

	"github.com/google/uuid"
)

// Character is a voice-registry row: a named speaker discovered by the
// script LLM, bound to a concrete TTS voice by (gender, personality)
type Character struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name        string    `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Gender      string    `json:"gender" gorm:"type:varchar(10);not null"`
	Personality string    `json:"personality" gorm:"type:varchar(50);not null"`
	Voice       string    `json:"voice,omitempty" gorm:"type:varchar(100)"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// NewCharacter creates a new character record
func NewCharacter(name, gender, personality, voice string) *Character {
	return &Character{
		ID:          uuid.New(),
		Name:        name,
		Gender:      gender,
		Personality: personality,
		Voice:       voice,
	}
}

// TableName specifies the table name for GORM
func (Character) TableName() string {
	return "characters"
}
