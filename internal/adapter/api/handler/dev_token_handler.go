package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"snackswap/internal/infrastructure/jwtauth"
	"snackswap/internal/usecase"
	"snackswap/pkg/errors"
	"snackswap/pkg/response"
)

type DevTokenHandler struct {
	tokens      *jwtauth.Service
	userUseCase *usecase.UserUseCase
}

var devTokenHandler *DevTokenHandler

func NewDevTokenHandler(tokens *jwtauth.Service, userUseCase *usecase.UserUseCase) *DevTokenHandler {
	return &DevTokenHandler{
		tokens:      tokens,
		userUseCase: userUseCase,
	}
}

func SetupDevTokenHandler(tokens *jwtauth.Service, userUseCase *usecase.UserUseCase) {
	devTokenHandler = NewDevTokenHandler(tokens, userUseCase)
}

func GetDevTokenHandler() *DevTokenHandler {
	return devTokenHandler
}

type devTokenRequest struct {
	UserID string `json:"user_id" validate:"required,max=128"`
	Name   string `json:"name"`
	Email  string `json:"email" validate:"omitempty,email"`
}

// IssueToken signs a bearer token for any user id and makes sure the user
// has a profile.
func (h *DevTokenHandler) IssueToken(c echo.Context) error {
	var req devTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	user, err := h.userUseCase.EnsureProfile(c.Request().Context(), req.UserID, req.Name, req.Email)
	if err != nil {
		return response.Error(c, err)
	}

	token, expiresAt, err := h.tokens.Issue(user.ID, user.Name, user.Email)
	if err != nil {
		return response.Error(c, errors.Internal("Failed to issue token", err))
	}

	return response.Created(c, map[string]interface{}{
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
		"user":       user,
	})
}
