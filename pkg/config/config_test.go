package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DevelopmentDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("STORAGE_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)
	// An explicitly empty variable wins over the default.
	assert.Equal(t, "", cfg.StorageDriver)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("STORE_TIMEOUT_MS", "1500")
	t.Setenv("UNREAD_CACHE_TTL_SECONDS", "30")
	t.Setenv("OFFER_TRANSITION_ATTEMPTS", "0")
	t.Setenv("JWT_EXPIRY", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 1500*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, 30*time.Second, cfg.UnreadCacheTTL)
	assert.Equal(t, 1, cfg.OfferTransitionAttempts, "attempts are clamped to one")
	assert.Equal(t, int64(24*60*60), cfg.JWTExpiry, "unparsable values fall back")
}

func TestGetEnv(t *testing.T) {
	t.Setenv("SNACKSWAP_TEST_KEY", "value")
	assert.Equal(t, "value", getEnv("SNACKSWAP_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", getEnv("SNACKSWAP_TEST_MISSING", "fallback"))
}
