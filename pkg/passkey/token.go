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
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTIssuer mints HS256-signed JWTs as session tokens. Tokens are
// self-contained: validation needs only the shared secret, never a store
// lookup.
type JWTIssuer struct {
	secret    []byte
	issuer    string
	audience  []string
	expiresIn time.Duration
}

// JWTIssuerConfig contains configuration for the JWT issuer.
type JWTIssuerConfig struct {
	// Secret is the HMAC signing secret (required, at least 32 bytes).
	Secret []byte

	// Issuer is the JWT issuer claim (default: "go-passkey").
	Issuer string

	// Audience is the JWT audience claim (default: ["go-passkey"]).
	Audience []string

	// ExpiresIn is how long tokens are valid (default: 30 minutes).
	ExpiresIn time.Duration
}

// MinSecretLen is the minimum accepted HMAC secret length.
const MinSecretLen = 32

// NewJWTIssuer creates a new JWT issuer with the given configuration.
func NewJWTIssuer(config *JWTIssuerConfig) (*JWTIssuer, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if len(config.Secret) < MinSecretLen {
		return nil, fmt.Errorf("secret must be at least %d bytes", MinSecretLen)
	}

	issuer := config.Issuer
	if issuer == "" {
		issuer = "go-passkey"
	}

	audience := config.Audience
	if len(audience) == 0 {
		audience = []string{"go-passkey"}
	}

	expiresIn := config.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 30 * time.Minute
	}

	return &JWTIssuer{
		secret:    config.Secret,
		issuer:    issuer,
		audience:  audience,
		expiresIn: expiresIn,
	}, nil
}

// Issue mints a session token with subject = user ID.
func (g *JWTIssuer) Issue(ctx context.Context, user *User) (*SessionToken, error) {
	now := time.Now()
	expiresAt := now.Add(g.expiresIn)

	claims := jwt.RegisteredClaims{
		Issuer:    g.issuer,
		Audience:  jwt.ClaimStrings(g.audience),
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return nil, WrapError("sign token", err)
	}

	return &SessionToken{
		AccessToken: signed,
		TokenType:   BearerTokenType,
		ExpiresAt:   expiresAt.UTC(),
	}, nil
}

// Validate verifies signature and expiry and returns the subject user ID.
func (g *JWTIssuer) Validate(ctx context.Context, token string) (uuid.UUID, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return g.secret, nil
		},
		jwt.WithIssuer(g.issuer),
		jwt.WithAudience(g.audience[0]),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, NewError("validate token", ErrTokenExpired)
		}
		return uuid.Nil, NewError("validate token",
			fmt.Errorf("%w: %v", ErrTokenInvalid, err))
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return uuid.Nil, NewError("validate token", ErrTokenInvalid)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, NewError("validate token",
			fmt.Errorf("%w: malformed subject", ErrTokenInvalid))
	}
	return id, nil
}

// ExpiresIn returns the token expiration duration.
func (g *JWTIssuer) ExpiresIn() time.Duration {
	return g.expiresIn
}
