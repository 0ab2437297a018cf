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
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jeremyhahn/go-passkey/pkg/passkey"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY,
	username     TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL,
	created_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS credentials (
	credential_id   TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL REFERENCES users(id),
	credential_json TEXT NOT NULL,
	sign_count      INTEGER NOT NULL DEFAULT 0,
	created_at      INTEGER NOT NULL,
	last_used_at    INTEGER
);

CREATE INDEX IF NOT EXISTS idx_credentials_user_id ON credentials(user_id);
`

// Store is a SQLite-backed passkey store. The Users and Credentials
// views satisfy passkey.UserStore and passkey.CredentialStore.
type Store struct {
	db *sql.DB
}

// userView adapts the store to passkey.UserStore.
type userView struct{ *Store }

func (v userView) Save(ctx context.Context, user *passkey.User) error {
	return v.SaveUser(ctx, user)
}

// Users returns the passkey.UserStore view of the store.
func (s *Store) Users() passkey.UserStore {
	return userView{s}
}

// credentialView adapts the store to passkey.CredentialStore.
type credentialView struct{ *Store }

func (v credentialView) Save(ctx context.Context, cred *passkey.Credential) error {
	return v.SaveCredential(ctx, cred)
}

// Credentials returns the passkey.CredentialStore view of the store.
func (s *Store) Credentials() passkey.CredentialStore {
	return credentialView{s}
}

// Open opens (and creates if necessary) a passkey store at the given
// path. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY between the pool's connections.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure sqlite store: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// timeNow is swapped out by tests.
var timeNow = time.Now

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
