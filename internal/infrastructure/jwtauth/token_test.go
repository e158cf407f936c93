package jwtauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewService("secret", time.Hour)

	token, expiresAt, err := svc.Issue("user-1", "Ann", "ann@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	uid, err := svc.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", uid)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "Ann", claims.Name)
	assert.Equal(t, "ann@example.com", claims.Email)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, _, err := NewService("secret", time.Hour).Issue("user-1", "", "")
	require.NoError(t, err)

	_, err = NewService("other", time.Hour).VerifyToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	svc := NewService("secret", time.Hour)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := svc.Issue("user-1", "", "")
	require.NoError(t, err)

	_, err = svc.VerifyToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewService("secret", time.Hour).VerifyToken(context.Background(), "abc.def")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
