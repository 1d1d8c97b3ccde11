package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", t.TempDir())
	cfg := fromViper(newViper())

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./secid.db", cfg.DatabasePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.EqualValues(t, 10*1024*1024, cfg.MaxUploadSizeBytes)
	assert.Equal(t, 60*time.Minute, cfg.AccessTokenExpiry)
	assert.Equal(t, 15*time.Minute, cfg.SessionCacheTTL)
	assert.Equal(t, 10.0, cfg.RateLimitPerSecond)
	assert.Equal(t, 30, cfg.RateLimitBurst)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.False(t, cfg.AuthEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestFromViper_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_PATH", "/tmp/ids.db")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "2h")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg := fromViper(newViper())
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/tmp/ids.db", cfg.DatabasePath)
	assert.Equal(t, 2*time.Hour, cfg.AccessTokenExpiry)
	assert.Equal(t, 5, cfg.RateLimitBurst)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestFromViper_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("port: \"7070\"\nlog_level: debug\nsession_cache_ttl: 1m\n"), 0o600))
	t.Setenv("CONFIG_PATH", dir)
	t.Setenv("LOG_LEVEL", "warn")

	v := newViper()
	require.NoError(t, v.ReadInConfig())
	cfg := fromViper(v)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "warn", cfg.LogLevel, "environment wins over the file")
	assert.Equal(t, time.Minute, cfg.SessionCacheTTL)
}

func TestValidate_ReportsEverything(t *testing.T) {
	cfg := &AppConfig{
		Port:               "",
		LogLevel:           "loud",
		MaxUploadSizeBytes: 0,
		AdminPasswordHash:  "$2a$12$abc",
		JWTSecret:          "short",
		RateLimitBurst:     1,
	}
	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"PORT", "MAX_UPLOAD_SIZE_BYTES", "ACCESS_TOKEN_EXPIRY", "SESSION_CACHE_TTL",
		"RATE_LIMIT_PER_SECOND", "LOG_LEVEL", "JWT_SECRET",
	} {
		assert.True(t, strings.Contains(msg, want), "missing %s in %q", want, msg)
	}
	assert.NotContains(t, msg, "RATE_LIMIT_BURST")
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a ,, b "))
}
