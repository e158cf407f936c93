package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"snackswap/internal/usecase"
	"snackswap/pkg/errors"
	"snackswap/pkg/logger"
	"snackswap/pkg/response"
)

type AuthMiddleware struct {
	verifier usecase.TokenVerifier
}

func NewAuthMiddleware(verifier usecase.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// bearerToken returns the token of an "Authorization: Bearer <token>" header.
func bearerToken(c echo.Context) (string, bool) {
	parts := strings.Fields(c.Request().Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's id under "uid".
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Header.Get("Authorization") == "" {
			return response.Error(c, errors.Unauthorized("Authorization header is required", nil))
		}

		token, ok := bearerToken(c)
		if !ok {
			return response.Error(c, errors.Unauthorized("Invalid authorization format", nil))
		}

		uid, err := m.verifier.VerifyToken(c.Request().Context(), token)
		if err != nil || uid == "" {
			logger.Debug("Token verification failed: %v", err)
			return response.Error(c, errors.Unauthorized("Invalid or expired token", err))
		}

		c.Set("uid", uid)
		return next(c)
	}
}

// Optional sets "uid" when a valid token is present and lets every request
// through.
func (m *AuthMiddleware) Optional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if token, ok := bearerToken(c); ok {
			if uid, err := m.verifier.VerifyToken(c.Request().Context(), token); err == nil && uid != "" {
				c.Set("uid", uid)
			}
		}
		return next(c)
	}
}
