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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.RelyingParty.RPID)
	assert.Equal(t, "go-passkey", cfg.Token.Issuer)
	assert.Equal(t, 30*time.Minute, cfg.Token.TTL)
	assert.Equal(t, "passkey.db", cfg.Storage.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passkey.yaml")
	data := `
relying_party:
  id: example.com
  display_name: Example Corp
  origins:
    - https://example.com
    - https://www.example.com
  user_verification: required
  challenge_ttl: 5m
token:
  issuer: example-rp
  ttl: 15m
storage:
  path: /var/lib/passkey/passkey.db
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "example.com", cfg.RelyingParty.RPID)
	assert.Equal(t, "Example Corp", cfg.RelyingParty.RPDisplayName)
	assert.Len(t, cfg.RelyingParty.RPOrigins, 2)
	assert.Equal(t, "required", cfg.RelyingParty.UserVerification)
	assert.Equal(t, 5*time.Minute, cfg.RelyingParty.ChallengeTTL)
	assert.Equal(t, "example-rp", cfg.Token.Issuer)
	assert.Equal(t, 15*time.Minute, cfg.Token.TTL)
	assert.Equal(t, "/var/lib/passkey/passkey.db", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("relying_party: ["), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PASSKEY_RP_ID", "env.example.com")
	t.Setenv("PASSKEY_RP_ORIGINS", "https://env.example.com, https://alt.example.com")
	t.Setenv("PASSKEY_TOKEN_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("PASSKEY_TOKEN_TTL", "45m")
	t.Setenv("PASSKEY_STORAGE_PATH", "/tmp/env-passkey.db")
	t.Setenv("PASSKEY_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env.example.com", cfg.RelyingParty.RPID)
	assert.Equal(t, []string{"https://env.example.com", "https://alt.example.com"},
		cfg.RelyingParty.RPOrigins)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.Token.Secret)
	assert.Equal(t, 45*time.Minute, cfg.Token.TTL)
	assert.Equal(t, "/tmp/env-passkey.db", cfg.Storage.Path)
	assert.Equal(t, "warn", cfg.Logging.Level)
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
			name:    "missing rp id",
			mutate:  func(c *Config) { c.RelyingParty.RPID = "" },
			wantErr: "relying_party",
		},
		{
			name:    "negative token ttl",
			mutate:  func(c *Config) { c.Token.TTL = -time.Minute },
			wantErr: "token",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid level",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "invalid format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
