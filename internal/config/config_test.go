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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.Server.Listen)
	assert.Equal(t, "http://localhost:8090", cfg.Server.PublicOrigin)
	assert.Empty(t, cfg.Server.AllowedEmbedders)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  listen: ":9000"
  public_origin: "https://scout.example.com"
  allowed_embedders:
    - "https://portal.example.com"
auth:
  secret: "s3cret"
  token_ttl: 5m
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Listen)
	assert.Equal(t, "https://scout.example.com", cfg.Server.PublicOrigin)
	assert.Equal(t, []string{"https://portal.example.com"}, cfg.Server.AllowedEmbedders)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, 5*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  listen: ":9000"
`)

	t.Setenv("SCOUT_SERVER_LISTEN", ":7777")
	t.Setenv("SCOUT_SERVER_ALLOWED_EMBEDDERS", "https://a.example.com,https://b.example.com")
	t.Setenv("SCOUT_AUTH_SECRET", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7777", cfg.Server.Listen)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedEmbedders)
	assert.Equal(t, "from-env", cfg.Auth.Secret)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "empty listen",
			mutate:  func(c *Config) { c.Server.Listen = "" },
			wantErr: "server.listen",
		},
		{
			name:    "public origin without scheme",
			mutate:  func(c *Config) { c.Server.PublicOrigin = "scout.example.com" },
			wantErr: "server.public_origin",
		},
		{
			name:    "public origin with path",
			mutate:  func(c *Config) { c.Server.PublicOrigin = "https://scout.example.com/embed" },
			wantErr: "server.public_origin",
		},
		{
			name:    "embedder entry not an origin",
			mutate:  func(c *Config) { c.Server.AllowedEmbedders = []string{"portal.example.com"} },
			wantErr: "allowed_embedders",
		},
		{
			name:    "negative token ttl",
			mutate:  func(c *Config) { c.Auth.TokenTTL = -time.Minute },
			wantErr: "token_ttl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
