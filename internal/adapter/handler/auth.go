package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/novelvoice-team/novelvoice/errors"
	authdto "github.com/novelvoice-team/novelvoice/internal/adapter/dto/auth"
	"github.com/novelvoice-team/novelvoice/internal/infrastructure/http/middleware"
	authusecase "github.com/novelvoice-team/novelvoice/internal/usecase/auth"
	"github.com/novelvoice-team/novelvoice/pkg/jwt"
	"github.com/novelvoice-team/novelvoice/pkg/validator"
)

// Auth handles login and token refresh
type Auth struct {
	svc        *authusecase.Service
	jwtManager *jwt.Manager
	validator  *validator.CustomValidator
	logger     *zap.Logger
}

// NewAuth creates the auth handler
func NewAuth(svc *authusecase.Service, jwtManager *jwt.Manager, v *validator.CustomValidator, logger *zap.Logger) *Auth {
	return &Auth{svc: svc, jwtManager: jwtManager, validator: v, logger: logger}
}

// Login verifies credentials and returns a token pair
func (h *Auth) Login(c echo.Context) error {
	var req authdto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, h.logger, errors.ErrInvalidPayload())
	}
	if err := h.validator.Validate(&req); err != nil {
		return handleError(c, h.logger, errors.ErrInvalidArgument(err.Error()))
	}

	_, pair, err := h.svc.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return handleSuccess(c, h.logger, authdto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int64(h.jwtManager.GetAccessExpiry().Seconds()),
	})
}

// Refresh exchanges a refresh token for a new token pair
func (h *Auth) Refresh(c echo.Context) error {
	var req authdto.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, h.logger, errors.ErrInvalidPayload())
	}
	if err := h.validator.Validate(&req); err != nil {
		return handleError(c, h.logger, errors.ErrInvalidArgument(err.Error()))
	}

	_, pair, err := h.svc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return handleSuccess(c, h.logger, authdto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int64(h.jwtManager.GetAccessExpiry().Seconds()),
	})
}

// Me describes the authenticated caller
func (h *Auth) Me(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return handleError(c, h.logger, errors.ErrUnauthenticated())
	}

	user, err := h.svc.GetUser(c.Request().Context(), userID)
	if err != nil {
		return handleError(c, h.logger, errors.ErrDBQuery(err))
	}
	if user == nil {
		return handleError(c, h.logger, errors.ErrNotFound("user"))
	}

	return handleSuccess(c, h.logger, authdto.MeResponse{
		ID:          user.ID,
		Username:    user.Username,
		IsSuperuser: user.IsSuperuser,
	})
}
