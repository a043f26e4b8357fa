package auth

import (
	"github.com/google/uuid"
)

// LoginRequest authenticates a user by username and password
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=80"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest exchanges a refresh token for a new access token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse carries a freshly issued token pair
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
}

// MeResponse describes the authenticated user
type MeResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	IsSuperuser bool      `json:"is_superuser"`
}
