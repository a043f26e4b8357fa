package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/novelvoice-team/novelvoice/pkg/jwt"
)

const (
	// UserIDContextKey is the echo context key for the authenticated user id
	UserIDContextKey = "user_id"
	// ClaimsContextKey is the echo context key for the full token claims
	ClaimsContextKey = "claims"
)

// AuthMiddleware validates access tokens and exposes the caller's identity.
// Audio and HLS delivery only need a stable user id for admission and
// playlist keying; full session management lives elsewhere.
type AuthMiddleware struct {
	jwtManager *jwt.Manager
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *jwt.Manager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager}
}

// Authenticate validates the JWT token and stores the user id on the context
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := extractToken(c)
		if token == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "missing authorization token",
			})
		}

		claims, err := m.jwtManager.ValidateAccessToken(token)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid or expired token",
			})
		}

		c.Set(UserIDContextKey, claims.UserID)
		c.Set(ClaimsContextKey, claims)
		return next(c)
	}
}

// extractToken reads the token from the Authorization header, an
// access_token cookie, or a token query parameter. The query form exists for
// media players that cannot set headers on playlist/segment requests.
func extractToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if cookie, err := c.Cookie("access_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return c.QueryParam("token")
}

// UserID returns the authenticated user id from the context
func UserID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(UserIDContextKey).(uuid.UUID)
	return id, ok
}

// GetClaims returns the full token claims from the context
func GetClaims(c echo.Context) (*jwt.Claims, bool) {
	claims, ok := c.Get(ClaimsContextKey).(*jwt.Claims)
	return claims, ok
}
