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
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

// BeginLogin starts the authentication ceremony. With a username the
// options list that user's credentials as the allow list; with an empty
// username the options rely on discoverable credentials (empty allow
// list).
//
// An unknown username, or a known user without credentials, also receives
// generic discoverable options: disclosing the difference would let
// callers enumerate registered usernames.
func (s *Service) BeginLogin(ctx context.Context, username string) (*protocol.CredentialAssertion, string, error) {
	if !s.configured {
		return nil, "", ErrNotConfigured
	}

	// Discoverable requests share one bucket; bound requests are keyed
	// by the claimed account name.
	if err := s.allowCeremony(ceremonyAuthentication, username); err != nil {
		return nil, "", NewError("begin login", err)
	}

	var options *protocol.CredentialAssertion
	var session *webauthn.SessionData
	bound := ""

	if username != "" {
		if err := validateUsername(username); err != nil {
			return nil, "", WrapError("begin login", err)
		}

		user, err := s.users.GetByUsername(ctx, username)
		switch {
		case err == nil && len(user.Credentials) > 0:
			options, session, err = s.webauthn.BeginLogin(user)
			if err != nil {
				return nil, "", WrapError("begin login", err)
			}
			bound = username
		case err != nil && !IsUserNotFound(err):
			return nil, "", WrapError("get user by username", err)
		default:
			// Unknown user or no credentials: fall through to the
			// discoverable flow so both cases answer identically.
			s.logger.Debug("login options for unresolvable username",
				"username", username)
		}
	}

	if options == nil {
		var err error
		options, session, err = s.webauthn.BeginDiscoverableLogin()
		if err != nil {
			return nil, "", WrapError("begin discoverable login", err)
		}
	}

	key, err := s.challenges.Create(ctx, &Challenge{
		Purpose:  PurposeAuthentication,
		Username: bound,
		Session:  *session,
	})
	if err != nil {
		return nil, "", WrapError("store challenge", err)
	}

	return options, key, nil
}

// FinishLogin completes the authentication ceremony and mints a session
// token for the credential's owner. The assertion payload is passed
// through as opaque JSON; signature, origin, RP ID, and flag checks are
// delegated to go-webauthn. A signature counter that fails to advance is
// refused with ErrCounterRegression and leaves the stored counter
// untouched.
func (s *Service) FinishLogin(ctx context.Context, credentialIDB64 string, assertionJSON []byte, challengeKey string) (*SessionToken, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}

	token, err := s.finishLogin(ctx, credentialIDB64, assertionJSON, challengeKey)
	if err != nil {
		CeremoniesTotal.WithLabelValues(ceremonyAuthentication, statusError).Inc()
		return nil, err
	}
	CeremoniesTotal.WithLabelValues(ceremonyAuthentication, statusSuccess).Inc()
	return token, nil
}

func (s *Service) finishLogin(ctx context.Context, credentialIDB64 string, assertionJSON []byte, challengeKey string) (*SessionToken, error) {
	ch, err := s.challenges.Consume(ctx, challengeKey)
	if err != nil {
		return nil, WrapError("consume challenge", err)
	}

	if ch.Purpose != PurposeAuthentication {
		return nil, NewError("finish login", ErrChallengeMismatch)
	}

	credID, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(credentialIDB64, "="))
	if err != nil {
		return nil, NewError("decode credential id",
			fmt.Errorf("%w: credential id is not base64url", ErrValidation))
	}

	cred, err := s.creds.GetByCredentialID(ctx, credID)
	if err != nil {
		return nil, WrapError("get credential", err)
	}

	owner, err := s.users.GetByID(ctx, cred.UserID)
	if err != nil {
		return nil, WrapError("get credential owner", err)
	}

	if ch.Username != "" && ch.Username != owner.Username {
		return nil, NewError("finish login", ErrChallengeMismatch)
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(assertionJSON))
	if err != nil {
		return nil, NewError("parse assertion",
			fmt.Errorf("%w: %v", ErrAssertionFailed, err))
	}
	if !bytes.Equal(parsed.RawID, credID) {
		return nil, NewError("finish login",
			fmt.Errorf("%w: assertion credential id mismatch", ErrValidation))
	}

	var verified *webauthn.Credential
	if ch.Username != "" {
		verified, err = s.webauthn.ValidateLogin(owner, ch.Session, parsed)
	} else {
		verified, err = s.webauthn.ValidateDiscoverableLogin(s.discoverableUserHandler(ctx), ch.Session, parsed)
	}
	if err != nil {
		return nil, NewError("validate assertion",
			fmt.Errorf("%w: %v", ErrAssertionFailed, err))
	}

	// Counter regression check. Counters are in use once either side is
	// non-zero; a non-advancing counter then signals a possible clone and
	// the authentication is refused without touching stored state.
	newCount := verified.Authenticator.SignCount
	stored := cred.SignCount
	if (stored != 0 || newCount != 0) && newCount <= stored {
		CounterRegressions.Inc()
		s.logger.Warn("signature counter regression, possible cloned authenticator",
			"credential_id", credentialIDB64,
			"username", owner.Username,
			"stored_count", stored,
			"reported_count", newCount)
		return nil, NewError("finish login", ErrCounterRegression)
	}

	if err := s.creds.UpdateCounter(ctx, credID, stored, newCount); err != nil {
		if IsCounterRegression(err) {
			// A concurrent authentication advanced the counter first.
			CounterRegressions.Inc()
			s.logger.Warn("concurrent signature counter conflict",
				"credential_id", credentialIDB64,
				"username", owner.Username)
		}
		return nil, WrapError("update counter", err)
	}

	token, err := s.issuer.Issue(ctx, owner)
	if err != nil {
		return nil, WrapError("issue token", err)
	}
	TokensIssued.Inc()

	s.logger.Info("passkey authentication succeeded",
		"username", owner.Username,
		"user_id", owner.ID.String())

	return token, nil
}

// discoverableUserHandler resolves the account for a discoverable login
// from the user handle reported by the authenticator.
func (s *Service) discoverableUserHandler(ctx context.Context) webauthn.DiscoverableUserHandler {
	return func(rawID, userHandle []byte) (webauthn.User, error) {
		id, err := uuid.FromBytes(userHandle)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed user handle", ErrUserNotFound)
		}
		return s.users.GetByID(ctx, id)
	}
}
