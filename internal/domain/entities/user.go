package entities

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account that owns novels and playback state
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Username     string    `json:"username" gorm:"type:varchar(80);uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"type:varchar(128);not null"`
	IsSuperuser  bool      `json:"is_superuser" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// CanAccessNovel reports whether the user may read the given novel
func (u *User) CanAccessNovel(n *Novel) bool {
	if n == nil {
		return false
	}
	return u.IsSuperuser || n.UserID == u.ID
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}
