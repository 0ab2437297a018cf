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
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

// BeginRegistration starts the registration ceremony for a username.
// Existing credential IDs are listed as exclusions so the same
// authenticator cannot re-register. The returned challenge key must be
// echoed back to FinishRegistration.
//
// The user record is NOT persisted here; a fresh user handle is minted
// and carried through the challenge until the ceremony completes.
func (s *Service) BeginRegistration(ctx context.Context, username, displayName string) (*protocol.CredentialCreation, string, error) {
	if !s.configured {
		return nil, "", ErrNotConfigured
	}

	if err := validateUsername(username); err != nil {
		return nil, "", WrapError("begin registration", err)
	}
	if err := validateDisplayName(displayName); err != nil {
		return nil, "", WrapError("begin registration", err)
	}
	if err := s.allowCeremony(ceremonyRegistration, username); err != nil {
		return nil, "", NewError("begin registration", err)
	}

	// Re-registration reuses the existing handle; first registration
	// mints a new one that only becomes durable on verify.
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if !IsUserNotFound(err) {
			return nil, "", WrapError("get user by username", err)
		}
		user = &User{
			ID:          uuid.New(),
			Username:    username,
			DisplayName: displayName,
		}
	}

	existingCreds, err := s.creds.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, "", WrapError("get credentials", err)
	}

	excludeList := make([]protocol.CredentialDescriptor, len(existingCreds))
	for i, cred := range existingCreds {
		excludeList[i] = protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: cred.ID,
			Transport:    cred.Transports,
		}
	}

	options, session, err := s.webauthn.BeginRegistration(user,
		webauthn.WithExclusions(excludeList),
	)
	if err != nil {
		return nil, "", WrapError("begin registration", err)
	}

	key, err := s.challenges.Create(ctx, &Challenge{
		Purpose:     PurposeRegistration,
		Username:    username,
		DisplayName: displayName,
		Session:     *session,
	})
	if err != nil {
		return nil, "", WrapError("store challenge", err)
	}

	return options, key, nil
}

// FinishRegistration completes the registration ceremony. The attestation
// payload is passed through as opaque JSON exactly as produced by the
// browser; parsing and cryptographic verification are delegated to
// go-webauthn. On success the credential is persisted under the (possibly
// newly created) user and returned.
func (s *Service) FinishRegistration(ctx context.Context, username string, attestationJSON []byte, challengeKey string) (*Credential, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}

	cred, err := s.finishRegistration(ctx, username, attestationJSON, challengeKey)
	if err != nil {
		CeremoniesTotal.WithLabelValues(ceremonyRegistration, statusError).Inc()
		return nil, err
	}
	CeremoniesTotal.WithLabelValues(ceremonyRegistration, statusSuccess).Inc()
	return cred, nil
}

func (s *Service) finishRegistration(ctx context.Context, username string, attestationJSON []byte, challengeKey string) (*Credential, error) {
	ch, err := s.challenges.Consume(ctx, challengeKey)
	if err != nil {
		return nil, WrapError("consume challenge", err)
	}

	if ch.Purpose != PurposeRegistration || ch.Username != username {
		return nil, NewError("finish registration", ErrChallengeMismatch)
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(attestationJSON))
	if err != nil {
		return nil, NewError("parse attestation",
			fmt.Errorf("%w: %v", ErrAttestationFailed, err))
	}

	// Resolve the owning user. The user handle minted at begin rides in
	// the session data, so first-time users are only created now.
	user, err := s.users.GetByUsername(ctx, username)
	newUser := false
	if err != nil {
		if !IsUserNotFound(err) {
			return nil, WrapError("get user by username", err)
		}
		id, idErr := uuid.FromBytes(ch.Session.UserID)
		if idErr != nil {
			return nil, WrapError("decode user handle", idErr)
		}
		user = &User{
			ID:          id,
			Username:    username,
			DisplayName: ch.DisplayName,
			CreatedAt:   time.Now().UTC(),
		}
		newUser = true
	}

	waCred, err := s.webauthn.CreateCredential(user, ch.Session, parsed)
	if err != nil {
		return nil, NewError("create credential",
			fmt.Errorf("%w: %v", ErrAttestationFailed, err))
	}

	cred := FromWebAuthnCredential(user.ID, waCred)
	if _, err := s.creds.GetByCredentialID(ctx, cred.ID); err == nil {
		return nil, NewError("save credential", ErrDuplicateCredential)
	} else if !IsCredentialNotFound(err) {
		return nil, WrapError("check credential", err)
	}

	if newUser {
		if err := s.users.Save(ctx, user); err != nil {
			return nil, WrapError("save user", err)
		}
	}
	if err := s.creds.Save(ctx, cred); err != nil {
		return nil, WrapError("save credential", err)
	}

	user.AddCredential(cred)
	if err := s.users.Save(ctx, user); err != nil {
		return nil, WrapError("save user", err)
	}

	s.logger.Info("passkey registered",
		"username", username,
		"user_id", user.ID.String(),
		"attestation_type", cred.AttestationType)

	return cred, nil
}
