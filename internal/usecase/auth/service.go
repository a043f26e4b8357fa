package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/novelvoice-team/novelvoice/errors"
	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
	"github.com/novelvoice-team/novelvoice/internal/domain/repositories"
	"github.com/novelvoice-team/novelvoice/pkg/jwt"
)

// Service handles password login and token issuance
type Service struct {
	userRepo   repositories.UserRepository
	jwtManager *jwt.Manager
}

// NewService creates an auth service
func NewService(userRepo repositories.UserRepository, jwtManager *jwt.Manager) *Service {
	return &Service{userRepo: userRepo, jwtManager: jwtManager}
}

// TokenPair is a freshly issued access/refresh token pair
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Login verifies credentials and issues a token pair
func (s *Service) Login(ctx context.Context, username, password string) (*entities.User, *TokenPair, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, nil, apperrors.ErrUnauthenticated()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apperrors.ErrUnauthenticated()
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh validates a refresh token and issues a new token pair
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*entities.User, *TokenPair, error) {
	userID, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, apperrors.ErrInvalidToken()
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, nil, apperrors.ErrInvalidToken()
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// GetUser returns a user by id, or nil when none exists
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// CreateUser registers a new account with a bcrypt password hash
func (s *Service) CreateUser(ctx context.Context, username, password string, superuser bool) (*entities.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entities.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		IsSuperuser:  superuser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *Service) issueTokens(user *entities.User) (*TokenPair, error) {
	access, err := s.jwtManager.GenerateAccessToken(user.ID, user.Username, user.IsSuperuser)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
