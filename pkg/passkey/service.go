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
	"fmt"
	"log/slog"
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

// Username and display name policy bounds.
const (
	UsernameMinLen    = 3
	UsernameMaxLen    = 50
	DisplayNameMinLen = 1
	DisplayNameMaxLen = 100
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._@+-]+$`)

// Service provides passkey registration and authentication ceremonies.
type Service struct {
	webauthn   *webauthn.WebAuthn
	config     *Config
	users      UserStore
	creds      CredentialStore
	challenges ChallengeCache
	issuer     TokenIssuer
	limiter    RateLimiter
	logger     *slog.Logger
	configured bool
}

// ServiceParams contains dependencies for creating a passkey service.
type ServiceParams struct {
	// Config is the relying-party configuration (required).
	Config *Config

	// UserStore is the user persistence layer (required).
	UserStore UserStore

	// CredentialStore is the credential persistence layer (required).
	CredentialStore CredentialStore

	// ChallengeCache holds outstanding ceremony challenges (required).
	ChallengeCache ChallengeCache

	// TokenIssuer mints session tokens after authentication (required).
	TokenIssuer TokenIssuer

	// RateLimiter optionally throttles ceremony starts per username.
	// Nil disables throttling.
	RateLimiter RateLimiter

	// Logger is an optional structured logger. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewService creates a new passkey service with the provided dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if params.UserStore == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if params.CredentialStore == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if params.ChallengeCache == nil {
		return nil, fmt.Errorf("challenge cache is required")
	}
	if params.TokenIssuer == nil {
		return nil, fmt.Errorf("token issuer is required")
	}

	// Set defaults and validate
	params.Config.SetDefaults()
	if err := params.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Create the go-webauthn instance
	wa, err := webauthn.New(params.Config.ToWebAuthnConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create webauthn instance: %w", err)
	}

	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		webauthn:   wa,
		config:     params.Config,
		users:      params.UserStore,
		creds:      params.CredentialStore,
		challenges: params.ChallengeCache,
		issuer:     params.TokenIssuer,
		limiter:    params.RateLimiter,
		logger:     logger,
		configured: true,
	}, nil
}

// allowCeremony consults the optional rate limiter for a ceremony start.
func (s *Service) allowCeremony(ceremony, key string) error {
	if s.limiter == nil || s.limiter.Allow(key) {
		return nil
	}
	RateLimited.WithLabelValues(ceremony).Inc()
	s.logger.Warn("ceremony start rate limited",
		"ceremony", ceremony,
		"key", key)
	return ErrRateLimited
}

// Config returns the service configuration.
func (s *Service) Config() *Config {
	return s.config
}

// GetUser retrieves a user by their identifier.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}
	return s.users.GetByID(ctx, id)
}

// GetUserByUsername retrieves a user by their username.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}
	return s.users.GetByUsername(ctx, username)
}

// GetCredentials retrieves all credentials for a user.
func (s *Service) GetCredentials(ctx context.Context, userID uuid.UUID) ([]*Credential, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}
	return s.creds.GetByUserID(ctx, userID)
}

// ValidateToken verifies a session token and returns the subject user ID.
// Collaborators guarding protected operations call this; no store lookup
// is performed.
func (s *Service) ValidateToken(ctx context.Context, token string) (uuid.UUID, error) {
	if !s.configured {
		return uuid.Nil, ErrNotConfigured
	}
	return s.issuer.Validate(ctx, token)
}

// validateUsername enforces the username length and charset policy.
func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < UsernameMinLen || n > UsernameMaxLen {
		return fmt.Errorf("%w: username must be %d-%d characters",
			ErrValidation, UsernameMinLen, UsernameMaxLen)
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: username contains unsupported characters", ErrValidation)
	}
	return nil
}

// validateDisplayName enforces the display name length policy and rejects
// control characters.
func validateDisplayName(displayName string) error {
	n := utf8.RuneCountInString(displayName)
	if n < DisplayNameMinLen || n > DisplayNameMaxLen {
		return fmt.Errorf("%w: display name must be %d-%d characters",
			ErrValidation, DisplayNameMinLen, DisplayNameMaxLen)
	}
	for _, r := range displayName {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: display name contains control characters", ErrValidation)
		}
	}
	return nil
}
