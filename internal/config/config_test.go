package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setMinimalEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("DOWNLOAD_SIGNING_SECRET", "secret")
	t.Setenv("AUTH_HMAC_SECRET", "operator-secret")
}

func TestLoadDefaults(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
	assert.Equal(t, 24*time.Hour, cfg.ExportRetention)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 10, cfg.IntakeRateLimit)
	assert.False(t, cfg.NotificationsEnabled())
	assert.False(t, cfg.CRMEnabled())
}

func TestLoadOverrides(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("PUBLIC_BASE_URL", "https://leads.example/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("EXPORT_RETENTION", "2h")
	t.Setenv("MAIL_HOST", "smtp.example")
	t.Setenv("NOTIFY_EMAIL", "sales@example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "https://leads.example", cfg.PublicBaseURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 2*time.Hour, cfg.ExportRetention)
	assert.True(t, cfg.NotificationsEnabled())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad port", "PORT", "eighty"},
		{"bad level", "LOG_LEVEL", "loud"},
		{"bad format", "LOG_FORMAT", "xml"},
		{"bad driver", "STORE_DRIVER", "dynamo"},
		{"postgres without url", "STORE_DRIVER", "postgres"},
		{"zero retention", "EXPORT_RETENTION", "0s"},
		{"bad timeout", "HTTP_READ_TIMEOUT", "soon"},
		{"no signing secret", "DOWNLOAD_SIGNING_SECRET", ""},
		{"kommo url without token", "KOMMO_BASE_URL", "https://acme.kommo.com/api/v4"},
		{"bad kommo status", "KOMMO_STATUS_ID", "first"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setMinimalEnv(t)
			t.Setenv("DATABASE_URL", "")
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresAuth(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("AUTH_HMAC_SECRET", "")
	t.Setenv("AUTH_JWKS_URL", "")
	_, err := Load()
	assert.ErrorContains(t, err, "AUTH_JWKS_URL")
}
