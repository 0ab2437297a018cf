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
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestNewJWTIssuer(t *testing.T) {
	tests := []struct {
		name    string
		config  *JWTIssuerConfig
		wantErr bool
	}{
		{"nil config", nil, true},
		{"empty secret", &JWTIssuerConfig{}, true},
		{"short secret", &JWTIssuerConfig{Secret: []byte("too-short")}, true},
		{"valid", &JWTIssuerConfig{Secret: testSecret}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issuer, err := NewJWTIssuer(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, issuer)
			}
		})
	}
}

func TestJWTIssuer_Defaults(t *testing.T) {
	issuer, err := NewJWTIssuer(&JWTIssuerConfig{Secret: testSecret})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, issuer.ExpiresIn())
}

func TestJWTIssuer_RoundTrip(t *testing.T) {
	ctx := context.Background()
	issuer, err := NewJWTIssuer(&JWTIssuerConfig{
		Secret:    testSecret,
		Issuer:    "test-rp",
		Audience:  []string{"test-rp"},
		ExpiresIn: time.Hour,
	})
	require.NoError(t, err)

	user := &User{ID: uuid.New(), Username: "alice@example.com"}

	token, err := issuer.Issue(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, BearerTokenType, token.TokenType)
	assert.NotEmpty(t, token.AccessToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, 5*time.Second)

	subject, err := issuer.Validate(ctx, token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, subject)
}

func TestJWTIssuer_Expired(t *testing.T) {
	ctx := context.Background()
	issuer, err := NewJWTIssuer(&JWTIssuerConfig{
		Secret:    testSecret,
		ExpiresIn: -time.Minute,
	})
	require.NoError(t, err)

	token, err := issuer.Issue(ctx, &User{ID: uuid.New()})
	require.NoError(t, err)

	_, err = issuer.Validate(ctx, token.AccessToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestJWTIssuer_WrongSecret(t *testing.T) {
	ctx := context.Background()
	issuerA, err := NewJWTIssuer(&JWTIssuerConfig{Secret: testSecret})
	require.NoError(t, err)
	issuerB, err := NewJWTIssuer(&JWTIssuerConfig{
		Secret: []byte("ffffffffffffffffffffffffffffffff"),
	})
	require.NoError(t, err)

	token, err := issuerA.Issue(ctx, &User{ID: uuid.New()})
	require.NoError(t, err)

	_, err = issuerB.Validate(ctx, token.AccessToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTIssuer_WrongIssuerClaim(t *testing.T) {
	ctx := context.Background()
	issuerA, err := NewJWTIssuer(&JWTIssuerConfig{Secret: testSecret, Issuer: "rp-a"})
	require.NoError(t, err)
	issuerB, err := NewJWTIssuer(&JWTIssuerConfig{Secret: testSecret, Issuer: "rp-b"})
	require.NoError(t, err)

	token, err := issuerA.Issue(ctx, &User{ID: uuid.New()})
	require.NoError(t, err)

	_, err = issuerB.Validate(ctx, token.AccessToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTIssuer_RejectsUnsignedToken(t *testing.T) {
	ctx := context.Background()
	issuer, err := NewJWTIssuer(&JWTIssuerConfig{Secret: testSecret})
	require.NoError(t, err)

	// alg=none tokens must never validate.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    "go-passkey",
		Audience:  jwt.ClaimStrings{"go-passkey"},
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.Validate(ctx, raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTIssuer_MalformedSubject(t *testing.T) {
	ctx := context.Background()
	issuer, err := NewJWTIssuer(&JWTIssuerConfig{Secret: testSecret})
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{
		Issuer:    "go-passkey",
		Audience:  jwt.ClaimStrings{"go-passkey"},
		Subject:   "not-a-uuid",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = issuer.Validate(ctx, raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTIssuer_Garbage(t *testing.T) {
	ctx := context.Background()
	issuer, err := NewJWTIssuer(&JWTIssuerConfig{Secret: testSecret})
	require.NoError(t, err)

	for _, raw := range []string{"", "garbage", "a.b.c"} {
		_, err := issuer.Validate(ctx, raw)
		assert.ErrorIs(t, err, ErrTokenInvalid, "input %q", raw)
	}
}
