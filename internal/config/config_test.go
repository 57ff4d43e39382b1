package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:             8080,
		DBPath:           "data/catalog.db",
		JWTSecret:        "0123456789abcdef0123",
		SessionKey:       "0123456789abcdef0123456789abcdef",
		SessionTTL:       time.Hour,
		LoginRateLimit:   "10-M",
		LatestItemsLimit: 10,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(""))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "data/catalog.db", cfg.DBPath)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "10-M", cfg.LoginRateLimit)
	assert.Equal(t, 10, cfg.LatestItemsLimit)
	assert.Equal(t, "http://localhost:8080/login/google/authorized", cfg.GoogleCallbackURL)
	assert.False(t, cfg.GoogleEnabled())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("SECURE_COOKIES", "true")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("GOOGLE_CLIENT_ID", "client")

	cfg, err := Load(New(""))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.SecureCookies)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.GoogleEnabled())
	assert.Equal(t, "http://localhost:9090/login/google/authorized", cfg.GoogleCallbackURL)
}

func TestLoad_EnvFile(t *testing.T) {
	// Registers a restore of the original value, then clears it so the
	// file can set it.
	t.Setenv("REDIS_ADDR", "")
	require.NoError(t, os.Unsetenv("REDIS_ADDR"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("REDIS_ADDR=localhost:6379\n"), 0o600))

	cfg, err := Load(New(path))
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("SESSION_TTL", "forever")

	_, err := Load(New(""))
	assert.ErrorContains(t, err, "SESSION_TTL")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"short jwt secret", func(c *Config) { c.JWTSecret = "short" }, "JWT_SECRET"},
		{"short session key", func(c *Config) { c.SessionKey = "short" }, "SESSION_KEY"},
		{"bad port", func(c *Config) { c.Port = 0 }, "PORT"},
		{"google without secret", func(c *Config) { c.GoogleClientID = "id" }, "GOOGLE_CLIENT_SECRET"},
		{"bad rate", func(c *Config) { c.LoginRateLimit = "lots" }, "LOGIN_RATE_LIMIT"},
		{"bad latest limit", func(c *Config) { c.LatestItemsLimit = 0 }, "LATEST_ITEMS_LIMIT"},
		{"bad level", func(c *Config) { c.LogLevel = "verbose" }, "LOG_LEVEL"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestValidate_ReportsEverything(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = ""
	cfg.SessionKey = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "SESSION_KEY")
}

func TestSlogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.LogLevel = "debug"

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}
