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
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
)

// SaveCredential stores a new credential. The insert and the duplicate
// check run in one transaction so a racing second registration of the
// same credential ID fails with passkey.ErrDuplicateCredential.
func (s *Store) SaveCredential(ctx context.Context, cred *passkey.Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cred == nil || len(cred.ID) == 0 {
		return fmt.Errorf("credential id is required")
	}

	blob, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	credKey := hex.EncodeToString(cred.ID)

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM credentials WHERE credential_id = ?`, credKey).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check credential: %w", err)
	}
	if exists > 0 {
		return passkey.ErrDuplicateCredential
	}

	lastUsed := sql.NullInt64{}
	if !cred.LastUsedAt.IsZero() {
		lastUsed = sql.NullInt64{Int64: toMillis(cred.LastUsedAt), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credentials (credential_id, user_id, credential_json, sign_count, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		credKey, cred.UserID.String(), string(blob), cred.SignCount,
		toMillis(cred.CreatedAt), lastUsed)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}

	return tx.Commit()
}

// GetByCredentialID retrieves a credential by its ID.
func (s *Store) GetByCredentialID(ctx context.Context, credID []byte) (*passkey.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT credential_json, sign_count, last_used_at
		FROM credentials WHERE credential_id = ?`,
		hex.EncodeToString(credID))

	cred, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, passkey.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return cred, nil
}

// GetByUserID retrieves all credentials for a user.
func (s *Store) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*passkey.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT credential_json, sign_count, last_used_at
		FROM credentials WHERE user_id = ? ORDER BY created_at`,
		userID.String())
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	creds := []*passkey.Credential{}
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("list credentials: %w", err)
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return creds, nil
}

// UpdateCounter conditionally advances a credential's signature counter.
// The WHERE clause compares against the expected counter, so of two
// concurrent authentications only one can win; the loser reports
// passkey.ErrCounterRegression.
func (s *Store) UpdateCounter(ctx context.Context, credID []byte, oldCount, newCount uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	credKey := hex.EncodeToString(credID)

	res, err := s.db.ExecContext(ctx, `
		UPDATE credentials
		SET sign_count = ?, last_used_at = ?
		WHERE credential_id = ? AND sign_count = ?`,
		newCount, toMillis(timeNow()), credKey, oldCount)
	if err != nil {
		return fmt.Errorf("update counter: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update counter: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM credentials WHERE credential_id = ?`, credKey).Scan(&exists); err != nil {
			return fmt.Errorf("update counter: %w", err)
		}
		if exists == 0 {
			return passkey.ErrCredentialNotFound
		}
		return passkey.ErrCounterRegression
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*passkey.Credential, error) {
	var (
		blob      string
		signCount uint32
		lastUsed  sql.NullInt64
	)
	if err := row.Scan(&blob, &signCount, &lastUsed); err != nil {
		return nil, err
	}

	cred := &passkey.Credential{}
	if err := json.Unmarshal([]byte(blob), cred); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}

	// Mutable fields live in their own columns; the JSON document is the
	// registration-time snapshot.
	cred.SignCount = signCount
	if lastUsed.Valid {
		cred.LastUsedAt = fromMillis(lastUsed.Int64)
	}
	return cred, nil
}
