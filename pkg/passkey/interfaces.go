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

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

// UserStore is the interface applications implement for user persistence.
// This interface is intentionally minimal - applications bring their own
// user model behind it.
type UserStore interface {
	// GetByID retrieves a user by their identifier (WebAuthn user handle).
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByUsername retrieves a user by their unique username.
	// Returns ErrUserNotFound if the user does not exist.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// Save persists a new or updated user.
	Save(ctx context.Context, user *User) error
}

// CredentialStore manages WebAuthn credential persistence.
// Credentials are the public-key records stored by the Relying Party.
type CredentialStore interface {
	// Save stores a new credential. Returns ErrDuplicateCredential if the
	// credential ID already exists.
	Save(ctx context.Context, cred *Credential) error

	// GetByCredentialID retrieves a credential by its ID.
	// Returns ErrCredentialNotFound if the credential does not exist.
	GetByCredentialID(ctx context.Context, credID []byte) (*Credential, error)

	// GetByUserID retrieves all credentials for a user.
	// Returns an empty slice if the user has no credentials.
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*Credential, error)

	// UpdateCounter advances a credential's signature counter and marks
	// it used. The update is conditional on the stored counter still
	// equalling oldCount; a conflicting concurrent update fails with
	// ErrCounterRegression so that lost updates cannot occur.
	UpdateCounter(ctx context.Context, credID []byte, oldCount, newCount uint32) error
}

// ChallengePurpose distinguishes registration challenges from
// authentication challenges.
type ChallengePurpose string

const (
	// PurposeRegistration marks challenges minted for attestation ceremonies.
	PurposeRegistration ChallengePurpose = "registration"

	// PurposeAuthentication marks challenges minted for assertion ceremonies.
	PurposeAuthentication ChallengePurpose = "authentication"
)

// Challenge is an outstanding ceremony challenge. The Key is an opaque
// random token used for lookup; the cryptographic challenge bytes live in
// the embedded go-webauthn session data.
type Challenge struct {
	// Key is the opaque lookup token returned to the client.
	Key string `json:"key"`

	// Purpose records which ceremony this challenge was minted for.
	Purpose ChallengePurpose `json:"purpose"`

	// Username optionally binds the challenge to an account name.
	Username string `json:"username,omitempty"`

	// DisplayName carries the requested display name through a
	// registration ceremony. Empty for authentication challenges.
	DisplayName string `json:"display_name,omitempty"`

	// Session is the go-webauthn session data (challenge bytes, user
	// handle, allowed credentials) needed to verify the response.
	Session webauthn.SessionData `json:"session"`
}

// ChallengeCache is the short-lived store of outstanding ceremony
// challenges. Implementations must provide atomic take-and-remove
// semantics per key: once Consume returns a challenge, every other call
// for the same key observes ErrChallengeNotFound, including concurrent
// racing calls.
type ChallengeCache interface {
	// Create mints a challenge key, stores the challenge with a TTL, and
	// returns the key.
	Create(ctx context.Context, ch *Challenge) (string, error)

	// Consume atomically looks up and deletes a challenge. Returns
	// ErrChallengeNotFound if the key is unknown, already consumed, or
	// expired; the three cases are indistinguishable to the caller.
	Consume(ctx context.Context, key string) (*Challenge, error)

	// Sweep removes expired challenges and reports how many were removed.
	Sweep(ctx context.Context) int
}

// RateLimiter gates ceremony starts per key. Implementations must be
// safe for concurrent use.
type RateLimiter interface {
	// Allow reports whether a request for the given key is within the
	// rate limit.
	Allow(key string) bool
}

// TokenIssuer mints and validates the bearer tokens returned after a
// successful authentication ceremony. Tokens are self-contained: Validate
// must not require a store lookup.
type TokenIssuer interface {
	// Issue mints a session token with subject = user ID.
	Issue(ctx context.Context, user *User) (*SessionToken, error)

	// Validate verifies signature and expiry and returns the subject user
	// ID. Fails with ErrTokenExpired or ErrTokenInvalid.
	Validate(ctx context.Context, token string) (uuid.UUID, error)
}
