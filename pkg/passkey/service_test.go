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

package passkey

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	return &Config{
		RPID:          "example.com",
		RPDisplayName: "Example Corp",
		RPOrigins:     []string{"https://example.com"},
	}
}

func testIssuer(t *testing.T) *JWTIssuer {
	t.Helper()
	issuer, err := NewJWTIssuer(&JWTIssuerConfig{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
	})
	require.NoError(t, err)
	return issuer
}

func newTestService(t *testing.T, cfg *Config) *Service {
	t.Helper()
	if cfg == nil {
		cfg = validTestConfig()
	}
	svc, err := NewService(ServiceParams{
		Config:          cfg,
		UserStore:       NewMemoryUserStore(),
		CredentialStore: NewMemoryCredentialStore(),
		ChallengeCache:  NewMemoryChallengeCache(2 * time.Minute),
		TokenIssuer:     testIssuer(t),
	})
	require.NoError(t, err)
	return svc
}

func TestNewService(t *testing.T) {
	tests := []struct {
		name    string
		params  ServiceParams
		wantErr string
	}{
		{
			name:    "nil config",
			params:  ServiceParams{},
			wantErr: "config is required",
		},
		{
			name: "nil user store",
			params: ServiceParams{
				Config: validTestConfig(),
			},
			wantErr: "user store is required",
		},
		{
			name: "nil credential store",
			params: ServiceParams{
				Config:    validTestConfig(),
				UserStore: NewMemoryUserStore(),
			},
			wantErr: "credential store is required",
		},
		{
			name: "nil challenge cache",
			params: ServiceParams{
				Config:          validTestConfig(),
				UserStore:       NewMemoryUserStore(),
				CredentialStore: NewMemoryCredentialStore(),
			},
			wantErr: "challenge cache is required",
		},
		{
			name: "nil token issuer",
			params: ServiceParams{
				Config:          validTestConfig(),
				UserStore:       NewMemoryUserStore(),
				CredentialStore: NewMemoryCredentialStore(),
				ChallengeCache:  NewMemoryChallengeCache(time.Minute),
			},
			wantErr: "token issuer is required",
		},
		{
			name: "invalid config",
			params: ServiceParams{
				Config:          &Config{}, // missing required fields
				UserStore:       NewMemoryUserStore(),
				CredentialStore: NewMemoryCredentialStore(),
				ChallengeCache:  NewMemoryChallengeCache(time.Minute),
				TokenIssuer:     mustIssuer(),
			},
			wantErr: "invalid config",
		},
		{
			name: "valid params",
			params: ServiceParams{
				Config:          validTestConfig(),
				UserStore:       NewMemoryUserStore(),
				CredentialStore: NewMemoryCredentialStore(),
				ChallengeCache:  NewMemoryChallengeCache(time.Minute),
				TokenIssuer:     mustIssuer(),
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.params)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, svc)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, svc)
				assert.NotNil(t, svc.Config())
			}
		})
	}
}

func mustIssuer() *JWTIssuer {
	issuer, err := NewJWTIssuer(&JWTIssuerConfig{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
	})
	if err != nil {
		panic(err)
	}
	return issuer
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"valid email style", "alice@example.com", false},
		{"valid plain", "alice", false},
		{"valid with allowed punctuation", "a.b_c+d-e", false},
		{"minimum length", "abc", false},
		{"too short", "ab", true},
		{"too long", strings.Repeat("a", UsernameMaxLen+1), true},
		{"maximum length", strings.Repeat("a", UsernameMaxLen), false},
		{"empty", "", true},
		{"whitespace", "alice smith", true},
		{"control characters", "alice\x00", true},
		{"slash", "alice/admin", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateUsername(tt.username)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateDisplayName(t *testing.T) {
	tests := []struct {
		name        string
		displayName string
		wantErr     bool
	}{
		{"valid", "Alice Smith", false},
		{"single character", "A", false},
		{"unicode", "Álice Ωmega", false},
		{"maximum length", strings.Repeat("x", DisplayNameMaxLen), false},
		{"empty", "", true},
		{"too long", strings.Repeat("x", DisplayNameMaxLen+1), true},
		{"control characters", "Alice\nSmith", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDisplayName(tt.displayName)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBeginRegistration_InvalidInput(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	_, _, err := svc.BeginRegistration(ctx, "ab", "Short Name")
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, _, err = svc.BeginRegistration(ctx, "valid@example.com", "")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestBeginRegistration_MintsUnpersistedUser(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	options, key, err := svc.BeginRegistration(ctx, "newuser@example.com", "New User")
	require.NoError(t, err)
	require.NotNil(t, options)
	require.NotEmpty(t, key)

	// The user handle is minted but the record must not be durable until
	// the ceremony completes.
	_, err = svc.GetUserByUsername(ctx, "newuser@example.com")
	assert.True(t, IsUserNotFound(err))
}

func TestBeginLogin_UnknownUserIndistinguishable(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	// Unknown usernames receive the same shape of response as an empty
	// username: generic options with an empty allow list.
	optsUnknown, keyUnknown, err := svc.BeginLogin(ctx, "nobody@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, keyUnknown)

	optsEmpty, keyEmpty, err := svc.BeginLogin(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, keyEmpty)

	assert.Empty(t, optsUnknown.Response.AllowedCredentials)
	assert.Empty(t, optsEmpty.Response.AllowedCredentials)
	assert.NotEqual(t, keyUnknown, keyEmpty)
}

func TestBeginLogin_InvalidUsername(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	_, _, err := svc.BeginLogin(ctx, "bad user name")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestFinishRegistration_UnknownChallenge(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	_, err := svc.FinishRegistration(ctx, "user@example.com", []byte(`{}`), "no-such-key")
	require.Error(t, err)
	assert.True(t, IsChallengeNotFound(err))
}

func TestFinishRegistration_UsernameMismatch(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	_, key, err := svc.BeginRegistration(ctx, "alice@example.com", "Alice")
	require.NoError(t, err)

	_, err = svc.FinishRegistration(ctx, "mallory@example.com", []byte(`{}`), key)
	require.Error(t, err)
	assert.True(t, IsChallengeMismatch(err))

	// The mismatch still consumed the challenge.
	_, err = svc.FinishRegistration(ctx, "alice@example.com", []byte(`{}`), key)
	require.Error(t, err)
	assert.True(t, IsChallengeNotFound(err))
}

func TestFinishLogin_PurposeMismatch(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	// A registration challenge must not complete a login ceremony.
	_, key, err := svc.BeginRegistration(ctx, "alice@example.com", "Alice")
	require.NoError(t, err)

	_, err = svc.FinishLogin(ctx, "AAAA", []byte(`{}`), key)
	require.Error(t, err)
	assert.True(t, IsChallengeMismatch(err))
}

func TestFinishLogin_MalformedCredentialID(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	_, key, err := svc.BeginLogin(ctx, "")
	require.NoError(t, err)

	_, err = svc.FinishLogin(ctx, "not!base64url", []byte(`{}`), key)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestFinishLogin_UnknownCredential(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	_, key, err := svc.BeginLogin(ctx, "")
	require.NoError(t, err)

	_, err = svc.FinishLogin(ctx, "AAAAAAAAAAAAAAAAAAAAAA", []byte(`{}`), key)
	require.Error(t, err)
	assert.True(t, IsCredentialNotFound(err))
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }

func TestBeginCeremony_RateLimited(t *testing.T) {
	ctx := context.Background()

	svc, err := NewService(ServiceParams{
		Config:          validTestConfig(),
		UserStore:       NewMemoryUserStore(),
		CredentialStore: NewMemoryCredentialStore(),
		ChallengeCache:  NewMemoryChallengeCache(time.Minute),
		TokenIssuer:     testIssuer(t),
		RateLimiter:     denyAllLimiter{},
	})
	require.NoError(t, err)

	_, _, err = svc.BeginRegistration(ctx, "alice@example.com", "Alice")
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))

	_, _, err = svc.BeginLogin(ctx, "alice@example.com")
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
}

func TestValidateToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	_, err := svc.ValidateToken(ctx, "not-a-token")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
