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

// Package passkey implements passwordless authentication with WebAuthn
// (FIDO2) public-key credentials.
//
// This package wraps the go-webauthn/webauthn library and provides:
//   - Registration and authentication ceremony flows with a read-once
//     challenge cache keyed by opaque challenge keys
//   - Pluggable storage interfaces for users and credentials
//   - In-memory storage implementations for development/testing
//   - Signature-counter regression detection (cloned authenticators)
//   - Stateless bearer-token issuance after successful authentication
//
// # Architecture
//
// The package is designed with a layered architecture:
//
//  1. Service layer (Service) - Ceremony state machine and verification
//  2. Challenge layer (ChallengeCache) - Short-lived, consume-once challenges
//  3. Storage layer (UserStore, CredentialStore) - Pluggable persistence
//  4. Token layer (TokenIssuer) - Self-contained session tokens
//
// # Usage
//
// Basic usage with in-memory storage (for development):
//
//	issuer, _ := passkey.NewJWTIssuer(&passkey.JWTIssuerConfig{
//	    Secret: []byte("change-me"),
//	})
//	svc, err := passkey.NewService(passkey.ServiceParams{
//	    Config: &passkey.Config{
//	        RPID:          "localhost",
//	        RPDisplayName: "My App",
//	        RPOrigins:     []string{"https://localhost:3000"},
//	    },
//	    UserStore:       passkey.NewMemoryUserStore(),
//	    CredentialStore: passkey.NewMemoryCredentialStore(),
//	    ChallengeCache:  passkey.NewMemoryChallengeCache(2 * time.Minute),
//	    TokenIssuer:     issuer,
//	})
//
// For production, implement the storage interfaces with your database, or
// use the SQLite-backed stores in the sqlite subpackage.
//
// # Ceremony contract
//
// The browser-side ceremony is outside this package. Callers pass the
// authenticator's attestation/assertion payloads through as opaque JSON
// together with the challenge key returned by the matching Begin call.
// A challenge key is consumed exactly once; retried or replayed
// submissions fail with ErrChallengeNotFound.
//
// # WebAuthn Specification Compliance
//
// This implementation follows the W3C Web Authentication specification:
//   - https://www.w3.org/TR/webauthn-2/
//   - https://www.w3.org/TR/webauthn-3/
//
// Note: WebAuthn requires HTTPS for all operations. Browsers will only
// expose the WebAuthn API in secure contexts.
package passkey
