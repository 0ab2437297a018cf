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
	"errors"
	"fmt"
)

// Sentinel errors for passkey ceremony operations.
var (
	// ErrValidation is returned when request input fails the shape or
	// length policy (user-correctable).
	ErrValidation = errors.New("invalid input")

	// ErrChallengeNotFound is returned when a challenge key is unknown,
	// already consumed, or expired. Expired and missing challenges are
	// deliberately indistinguishable.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrChallengeMismatch is returned when a consumed challenge was
	// issued for a different purpose or a different identity.
	ErrChallengeMismatch = errors.New("challenge mismatch")

	// ErrUserNotFound is returned when a user cannot be found.
	ErrUserNotFound = errors.New("user not found")

	// ErrCredentialNotFound is returned when a credential cannot be found.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrDuplicateCredential is returned when attempting to register a
	// credential ID that already exists.
	ErrDuplicateCredential = errors.New("credential already exists")

	// ErrAttestationFailed is returned when the attestation response is
	// rejected during registration verification.
	ErrAttestationFailed = errors.New("attestation verification failed")

	// ErrAssertionFailed is returned when the assertion response is
	// rejected during authentication verification.
	ErrAssertionFailed = errors.New("assertion verification failed")

	// ErrCounterRegression is returned when an assertion reports a
	// signature counter at or below the stored value while counters are
	// in use. This is a possible cloned-authenticator signal.
	ErrCounterRegression = errors.New("signature counter regression")

	// ErrTokenExpired is returned when a session token is past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid is returned when a session token fails signature or
	// claim validation.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrRateLimited is returned when a ceremony start is refused because
	// the caller exceeded the configured rate limit.
	ErrRateLimited = errors.New("rate limited")

	// ErrNotConfigured is returned when the service is not properly configured.
	ErrNotConfigured = errors.New("passkey service not configured")
)

// Error wraps an error with the operation that produced it.
type Error struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with the given operation and error.
func NewError(op string, err error) error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// WrapError wraps an error with an operation name if it's not nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(op, err)
}

// IsValidation returns true if the error indicates rejected input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsChallengeNotFound returns true if the error indicates a missing,
// consumed, or expired challenge.
func IsChallengeNotFound(err error) bool {
	return errors.Is(err, ErrChallengeNotFound)
}

// IsChallengeMismatch returns true if the error indicates a purpose or
// identity mismatch on a consumed challenge.
func IsChallengeMismatch(err error) bool {
	return errors.Is(err, ErrChallengeMismatch)
}

// IsUserNotFound returns true if the error indicates a user was not found.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsCredentialNotFound returns true if the error indicates a credential was not found.
func IsCredentialNotFound(err error) bool {
	return errors.Is(err, ErrCredentialNotFound)
}

// IsCounterRegression returns true if the error indicates a signature
// counter regression.
func IsCounterRegression(err error) bool {
	return errors.Is(err, ErrCounterRegression)
}

// IsRateLimited returns true if the error indicates the caller exceeded
// the rate limit.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
