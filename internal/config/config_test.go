package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
listen: ":9090"
auth:
  jwt_secret: "a-very-long-test-secret"
  token_ttl: 2h
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", c.Listen)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "data/chatmemo.db", c.Database.Path)
	assert.Equal(t, 2*time.Hour, c.Auth.TokenTTL)
	assert.False(t, c.Auth.Google.Enabled())
	assert.Empty(t, c.Redis.Addr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "a-very-long-test-secret"
`)
	t.Setenv("CHATMEMO_LISTEN", ":7070")
	t.Setenv("CHATMEMO_REDIS_ADDR", "localhost:6379")
	t.Setenv("CHATMEMO_AUTH_JWT_SECRET", "secret-from-the-environment")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", c.Listen)
	assert.Equal(t, "localhost:6379", c.Redis.Addr)
	assert.Equal(t, "secret-from-the-environment", c.Auth.JWTSecret)
	assert.Equal(t, 24*time.Hour, c.Auth.TokenTTL)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{"missing secret", `listen: ":8080"`},
		{"short secret", `auth: {jwt_secret: "short"}`},
		{"bad log level", "log_level: loud\nauth: {jwt_secret: \"a-very-long-test-secret\"}"},
		{"google without secret", "auth:\n  jwt_secret: \"a-very-long-test-secret\"\n  google: {client_id: id, callback_url: http://x/cb}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.config))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoadClient(t *testing.T) {
	path := writeConfig(t, `server: "http://memo.local:8080/"`)

	c, err := LoadClient(path)
	require.NoError(t, err)
	assert.Equal(t, "http://memo.local:8080", c.Server)
	assert.NotEmpty(t, c.TokenFile)
}
