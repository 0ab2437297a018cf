// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package config loads the go-passkey application configuration from a
// YAML file with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-passkey/pkg/passkey"
)

// Config represents the complete application configuration.
type Config struct {
	RelyingParty passkey.Config `yaml:"relying_party"`
	Token        TokenConfig    `yaml:"token"`
	Storage      StorageConfig  `yaml:"storage"`
	Logging      LoggingConfig  `yaml:"logging"`
}

// TokenConfig controls session token issuance.
type TokenConfig struct {
	// Secret is the HMAC signing secret. Prefer setting it through the
	// PASSKEY_TOKEN_SECRET environment variable over the config file.
	Secret string `yaml:"secret"`

	// Issuer is the JWT issuer claim.
	Issuer string `yaml:"issuer"`

	// Audience is the JWT audience claim.
	Audience []string `yaml:"audience"`

	// TTL is how long issued tokens remain valid.
	TTL time.Duration `yaml:"ttl"`
}

// StorageConfig controls credential persistence.
type StorageConfig struct {
	// Path is the SQLite database path.
	Path string `yaml:"path"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// DefaultConfig returns a configuration with development defaults.
func DefaultConfig() *Config {
	return &Config{
		RelyingParty: passkey.Config{
			RPID:          "localhost",
			RPDisplayName: "go-passkey",
			RPOrigins:     []string{"http://localhost:3000"},
		},
		Token: TokenConfig{
			Issuer: "go-passkey",
			TTL:    30 * time.Minute,
		},
		Storage: StorageConfig{
			Path: "passkey.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration file at path, applies environment
// overrides, and validates the result. A missing file is not an error;
// defaults plus environment overrides are used.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Fall through to defaults and environment.
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies PASSKEY_* environment variables on top of the
// file-based configuration.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PASSKEY_RP_ID"); v != "" {
		c.RelyingParty.RPID = v
	}
	if v := os.Getenv("PASSKEY_RP_NAME"); v != "" {
		c.RelyingParty.RPDisplayName = v
	}
	if v := os.Getenv("PASSKEY_RP_ORIGINS"); v != "" {
		c.RelyingParty.RPOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("PASSKEY_TOKEN_SECRET"); v != "" {
		c.Token.Secret = v
	}
	if v := os.Getenv("PASSKEY_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Token.TTL = d
		}
	}
	if v := os.Getenv("PASSKEY_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("PASSKEY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	c.RelyingParty.SetDefaults()
	if err := c.RelyingParty.Validate(); err != nil {
		return fmt.Errorf("relying_party: %w", err)
	}

	if c.Token.TTL < 0 {
		return fmt.Errorf("token: ttl must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
		// Valid
	default:
		return fmt.Errorf("logging: invalid level %q", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
		// Valid
	default:
		return fmt.Errorf("logging: invalid format %q", c.Logging.Format)
	}

	return nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
