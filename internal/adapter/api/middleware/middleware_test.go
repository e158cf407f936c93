package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"snackswap/internal/infrastructure/ratelimit"
)

type stubVerifier struct {
	tokens map[string]string
}

func (v stubVerifier) VerifyToken(_ context.Context, token string) (string, error) {
	if uid, ok := v.tokens[token]; ok {
		return uid, nil
	}
	return "", errors.New("unknown token")
}

func echoUID(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	return c.String(http.StatusOK, uid)
}

func serve(h echo.HandlerFunc, authorization string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	_ = h(e.NewContext(req, rec))
	return rec
}

func TestAuthenticate(t *testing.T) {
	m := NewAuthMiddleware(stubVerifier{tokens: map[string]string{"good": "alice"}})
	h := m.Authenticate(echoUID)

	tests := []struct {
		name          string
		authorization string
		wantStatus    int
		wantBody      string
	}{
		{"valid token", "Bearer good", http.StatusOK, "alice"},
		{"lowercase scheme", "bearer good", http.StatusOK, "alice"},
		{"missing header", "", http.StatusUnauthorized, "Authorization header is required"},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, "Invalid authorization format"},
		{"no token", "Bearer", http.StatusUnauthorized, "Invalid authorization format"},
		{"unknown token", "Bearer bad", http.StatusUnauthorized, "Invalid or expired token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.authorization)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestOptional(t *testing.T) {
	m := NewAuthMiddleware(stubVerifier{tokens: map[string]string{"good": "alice"}})
	h := m.Optional(echoUID)

	rec := serve(h, "Bearer good")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", rec.Body.String())

	rec = serve(h, "Bearer bad")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = serve(h, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewRateLimiterWithPolicies(map[string]ratelimit.Policy{
		ratelimit.ActionRequest: {Burst: 1, Every: time.Minute},
	})
	m := NewAuthMiddleware(stubVerifier{tokens: map[string]string{"a": "alice", "b": "bob"}})
	h := m.Authenticate(RateLimit(limiter)(echoUID))

	assert.Equal(t, http.StatusOK, serve(h, "Bearer a").Code)

	rec := serve(h, "Bearer a")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, serve(h, "Bearer b").Code)
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "1", formatSeconds(0))
	assert.Equal(t, "1", formatSeconds(0.2))
	assert.Equal(t, "3", formatSeconds(2.01))
}
