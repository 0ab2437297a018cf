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

// Package sqlite provides SQLite-backed implementations of the passkey
// UserStore and CredentialStore interfaces using the pure-Go
// modernc.org/sqlite driver.
//
// A single Store satisfies both interfaces. Credentials are persisted as
// a JSON document plus dedicated columns for the mutable fields
// (signature counter, last-used timestamp) so the counter can be advanced
// with a conditional UPDATE instead of a read-modify-write of the blob.
package sqlite
