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
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

// User is an account that owns passkey credentials. The UUID doubles as
// the WebAuthn user handle; it is minted when registration options are
// generated, but the record is only persisted on the first successful
// registration ceremony.
type User struct {
	// ID is the user identifier and WebAuthn user handle.
	ID uuid.UUID `json:"id"`

	// Username is the unique account name.
	Username string `json:"username"`

	// DisplayName is the human-readable name shown by authenticators.
	DisplayName string `json:"display_name"`

	// CreatedAt is when the user completed their first registration.
	CreatedAt time.Time `json:"created_at"`

	// Credentials are the user's registered passkeys.
	Credentials []*Credential `json:"credentials,omitempty"`
}

// WebAuthnID returns the user's WebAuthn ID (user handle).
func (u *User) WebAuthnID() []byte {
	return u.ID[:]
}

// WebAuthnName returns the user's account name.
func (u *User) WebAuthnName() string {
	return u.Username
}

// WebAuthnDisplayName returns the user's display name.
func (u *User) WebAuthnDisplayName() string {
	if u.DisplayName == "" {
		return u.Username
	}
	return u.DisplayName
}

// WebAuthnCredentials returns the user's registered credentials.
func (u *User) WebAuthnCredentials() []webauthn.Credential {
	creds := make([]webauthn.Credential, len(u.Credentials))
	for i, c := range u.Credentials {
		creds[i] = c.ToWebAuthn()
	}
	return creds
}

// AddCredential adds a new credential to the user.
func (u *User) AddCredential(cred *Credential) {
	u.Credentials = append(u.Credentials, cred)
}

// Credential is a WebAuthn public-key credential stored by the Relying
// Party. It wraps the go-webauthn Credential type with ownership and
// lifecycle metadata.
type Credential struct {
	// ID is the credential identifier assigned by the authenticator.
	// It is globally unique and base64url-encoded on the wire.
	ID []byte `json:"id"`

	// UserID is the user this credential belongs to.
	UserID uuid.UUID `json:"user_id"`

	// PublicKey is the credential's public key in COSE format.
	PublicKey []byte `json:"public_key"`

	// AttestationType indicates the type of attestation used.
	AttestationType string `json:"attestation_type"`

	// Transports lists the transports supported by the authenticator.
	Transports []protocol.AuthenticatorTransport `json:"transports,omitempty"`

	// Flags contains authenticator flags.
	Flags CredentialFlags `json:"flags"`

	// AAGUID is the authenticator's model identifier.
	AAGUID []byte `json:"aaguid"`

	// SignCount is the signature counter for clone detection. It is
	// monotonically non-decreasing; zero means the authenticator does
	// not maintain a counter.
	SignCount uint32 `json:"sign_count"`

	// CloneWarning indicates a potential cloned authenticator was seen.
	CloneWarning bool `json:"clone_warning"`

	// CreatedAt is when the credential was registered.
	CreatedAt time.Time `json:"created_at"`

	// LastUsedAt is when the credential last completed an authentication.
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// CredentialFlags contains authenticator capability flags.
type CredentialFlags struct {
	// UserPresent indicates the user was present during the operation.
	UserPresent bool `json:"user_present"`

	// UserVerified indicates the user was verified (e.g., biometric, PIN).
	UserVerified bool `json:"user_verified"`

	// BackupEligible indicates the credential can be backed up.
	BackupEligible bool `json:"backup_eligible"`

	// BackupState indicates the credential is currently backed up.
	BackupState bool `json:"backup_state"`
}

// ToWebAuthn converts a Credential to the go-webauthn library's Credential type.
func (c *Credential) ToWebAuthn() webauthn.Credential {
	return webauthn.Credential{
		ID:              c.ID,
		PublicKey:       c.PublicKey,
		AttestationType: c.AttestationType,
		Transport:       c.Transports,
		Flags: webauthn.CredentialFlags{
			UserPresent:    c.Flags.UserPresent,
			UserVerified:   c.Flags.UserVerified,
			BackupEligible: c.Flags.BackupEligible,
			BackupState:    c.Flags.BackupState,
		},
		Authenticator: webauthn.Authenticator{
			AAGUID:       c.AAGUID,
			SignCount:    c.SignCount,
			CloneWarning: c.CloneWarning,
		},
	}
}

// FromWebAuthnCredential creates a Credential from the go-webauthn library's type.
func FromWebAuthnCredential(userID uuid.UUID, wc *webauthn.Credential) *Credential {
	return &Credential{
		ID:              wc.ID,
		UserID:          userID,
		PublicKey:       wc.PublicKey,
		AttestationType: wc.AttestationType,
		Transports:      wc.Transport,
		Flags: CredentialFlags{
			UserPresent:    wc.Flags.UserPresent,
			UserVerified:   wc.Flags.UserVerified,
			BackupEligible: wc.Flags.BackupEligible,
			BackupState:    wc.Flags.BackupState,
		},
		AAGUID:       wc.Authenticator.AAGUID,
		SignCount:    wc.Authenticator.SignCount,
		CloneWarning: wc.Authenticator.CloneWarning,
		CreatedAt:    time.Now().UTC(),
	}
}

// BearerTokenType is the token type reported alongside issued session tokens.
const BearerTokenType = "Bearer"

// SessionToken is a self-contained bearer token minted after a successful
// authentication ceremony.
type SessionToken struct {
	// AccessToken is the compact signed token string.
	AccessToken string `json:"accessToken"`

	// TokenType is always "Bearer".
	TokenType string `json:"tokenType"`

	// ExpiresAt is when the token stops validating.
	ExpiresAt time.Time `json:"expiresAt"`
}
