// Package config loads embed server configuration from YAML files and
// environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/dimagi-rad/scout-widget/internal/constants"
)

// Config is the root embed server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Auth   AuthConfig   `yaml:"auth"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig configures the embed server's listener and public identity.
type ServerConfig struct {
	// Listen is the address the server binds to.
	Listen string `yaml:"listen" env:"SCOUT_SERVER_LISTEN"`

	// PublicOrigin is the origin embed URLs are served under. Hosts load
	// the widget from this origin and scope their messages to it.
	PublicOrigin string `yaml:"public_origin" env:"SCOUT_SERVER_PUBLIC_ORIGIN"`

	// AllowedEmbedders lists host page origins permitted to open embed
	// channels. Empty allows any origin (development mode).
	AllowedEmbedders []string `yaml:"allowed_embedders" env:"SCOUT_SERVER_ALLOWED_EMBEDDERS" envSeparator:","`
}

// AuthConfig configures embed session authentication.
type AuthConfig struct {
	// Secret signs embed session tokens. Empty disables token
	// verification and treats every session as authenticated.
	Secret string `yaml:"secret" env:"SCOUT_AUTH_SECRET"`

	// TokenTTL bounds the lifetime of issued session tokens.
	TokenTTL time.Duration `yaml:"token_ttl" env:"SCOUT_AUTH_TOKEN_TTL"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	Level string `yaml:"level" env:"SCOUT_LOG_LEVEL"`

	// Pretty enables human-readable console output.
	Pretty bool `yaml:"pretty" env:"SCOUT_LOG_PRETTY"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:       constants.DefaultListenAddr,
			PublicOrigin: constants.DefaultPublicOrigin,
		},
		Auth: AuthConfig{
			TokenTTL: 15 * time.Minute,
		},
		Log: LogConfig{
			Level:  constants.DefaultLogLevel,
			Pretty: true,
		},
	}
}

// Load reads configuration from path, layering file values over defaults
// and environment variables over both. A missing file is not an error;
// defaults plus environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen must not be empty")
	}

	u, err := url.Parse(c.Server.PublicOrigin)
	if err != nil {
		return fmt.Errorf("server.public_origin is not a valid URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server.public_origin must be an http or https origin, got %q", c.Server.PublicOrigin)
	}
	if u.Path != "" && u.Path != "/" {
		return fmt.Errorf("server.public_origin must not contain a path, got %q", c.Server.PublicOrigin)
	}

	for _, origin := range c.Server.AllowedEmbedders {
		eu, err := url.Parse(origin)
		if err != nil || (eu.Scheme != "http" && eu.Scheme != "https") || eu.Host == "" {
			return fmt.Errorf("server.allowed_embedders entry %q is not an origin", origin)
		}
	}

	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("auth.token_ttl must not be negative")
	}

	return nil
}
