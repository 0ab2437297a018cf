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
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryUserStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()

	user := &User{
		ID:          uuid.New(),
		Username:    "alice@example.com",
		DisplayName: "Alice",
	}

	_, err := store.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = store.GetByUsername(ctx, user.Username)
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, store.Save(ctx, user))
	assert.Equal(t, 1, store.Count())

	got, err := store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, got.Username)

	got, err = store.GetByUsername(ctx, user.Username)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	store.Clear()
	assert.Equal(t, 0, store.Count())
}

func TestMemoryCredentialStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()
	userID := uuid.New()

	cred := &Credential{
		ID:     []byte{0x01, 0x02, 0x03},
		UserID: userID,
	}

	_, err := store.GetByCredentialID(ctx, cred.ID)
	assert.ErrorIs(t, err, ErrCredentialNotFound)

	require.NoError(t, store.Save(ctx, cred))

	// Credential IDs are globally unique, even across users.
	err = store.Save(ctx, &Credential{ID: cred.ID, UserID: uuid.New()})
	assert.ErrorIs(t, err, ErrDuplicateCredential)

	got, err := store.GetByCredentialID(ctx, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)

	creds, err := store.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, creds, 1)

	creds, err = store.GetByUserID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, creds)
}

func TestMemoryCredentialStore_UpdateCounter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()

	cred := &Credential{
		ID:        []byte{0xaa, 0xbb},
		UserID:    uuid.New(),
		SignCount: 5,
	}
	require.NoError(t, store.Save(ctx, cred))

	err := store.UpdateCounter(ctx, []byte{0xde, 0xad}, 5, 6)
	assert.ErrorIs(t, err, ErrCredentialNotFound)

	// Stale expected value: a concurrent update has already advanced the
	// counter.
	err = store.UpdateCounter(ctx, cred.ID, 4, 6)
	assert.ErrorIs(t, err, ErrCounterRegression)

	require.NoError(t, store.UpdateCounter(ctx, cred.ID, 5, 6))

	got, err := store.GetByCredentialID(ctx, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(6), got.SignCount)
	assert.False(t, got.LastUsedAt.IsZero())
}

func TestMemoryCredentialStore_UpdateCounterRace(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()

	cred := &Credential{
		ID:        []byte{0x01},
		UserID:    uuid.New(),
		SignCount: 10,
	}
	require.NoError(t, store.Save(ctx, cred))

	const racers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	start := make(chan struct{})

	// All racers observed counter 10 and try to advance it. Only one
	// conditional update may succeed.
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(n uint32) {
			defer wg.Done()
			<-start
			if err := store.UpdateCounter(ctx, []byte{0x01}, 10, 11+n); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(uint32(i))
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one conditional counter update should win")
}
