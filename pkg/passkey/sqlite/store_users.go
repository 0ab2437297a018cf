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

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
)

// SaveUser persists a new or updated user.
func (s *Store) SaveUser(ctx context.Context, user *passkey.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, display_name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			display_name = excluded.display_name`,
		user.ID.String(), user.Username, user.DisplayName, toMillis(user.CreatedAt))
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// GetByID retrieves a user and their credentials by identifier.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*passkey.User, error) {
	return s.getUser(ctx, `SELECT id, username, display_name, created_at FROM users WHERE id = ?`, id.String())
}

// GetByUsername retrieves a user and their credentials by username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*passkey.User, error) {
	return s.getUser(ctx, `SELECT id, username, display_name, created_at FROM users WHERE username = ?`, username)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (*passkey.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		rawID       string
		username    string
		displayName string
		createdAt   int64
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&rawID, &username, &displayName, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, passkey.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}

	user := &passkey.User{
		ID:          id,
		Username:    username,
		DisplayName: displayName,
		CreatedAt:   fromMillis(createdAt),
	}

	// Hydrate credentials so webauthn.User exposes them during ceremonies.
	creds, err := s.GetByUserID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Credentials = creds

	return user, nil
}
