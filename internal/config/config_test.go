package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "NODE_ENV", "PORT", "DATABASE_URL", "JWT_SECRET", "JWT_REFRESH_SECRET",
		"JWT_ACCESS_TTL", "JWT_REFRESH_TTL", "COOKIE_SECURE", "GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET",
		"GOOGLE_REDIRECT_URL", "GOOGLE_EXCHANGE_TIMEOUT", "CLIENT_URL", "ADMIN_EMAIL", "CORS_ALLOWED_ORIGINS",
		"REDIS_ADDR", "REDIS_PASSWORD", "BOOKING_LOCK_TTL", "COMPLETION_SWEEP_INTERVAL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 50*time.Minute, cfg.JWTAccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTRefreshTTL)
	assert.Equal(t, 24*time.Hour, cfg.CompletionSweepInterval)
	assert.False(t, cfg.CookieSecure)
	assert.False(t, cfg.GoogleEnabled())
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSAllowedOrigins)
}

func TestLoad_NormalizesValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("ADMIN_EMAIL", "  Pio@Example.COM ")
	t.Setenv("CLIENT_URL", "https://studio.example.com/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("GOOGLE_REDIRECT_URL", "https://api.example.com/api/auth/google/callback")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "pio@example.com", cfg.AdminEmail)
	assert.Equal(t, "https://studio.example.com", cfg.ClientURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.GoogleEnabled())
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("NODE_ENV", "production")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "a-real-secret")
	t.Setenv("JWT_REFRESH_SECRET", "another-real-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.CookieSecure)

	t.Setenv("COOKIE_SECURE", "false")
	_, err = Load()
	assert.ErrorContains(t, err, "COOKIE_SECURE")
}

func TestLoad_RejectsBadDurations(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_ACCESS_TTL", "soon")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_ACCESS_TTL")

	t.Setenv("JWT_ACCESS_TTL", "200h")
	_, err = Load()
	assert.ErrorContains(t, err, "JWT_REFRESH_TTL")
}

func TestLoad_RejectsSharedSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "same")
	t.Setenv("JWT_REFRESH_SECRET", "same")
	_, err := Load()
	assert.ErrorContains(t, err, "must differ")
}
