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
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

// challengeKeyBytes is the entropy of a challenge key. 24 random bytes
// encode to a 32-character base64url token.
const challengeKeyBytes = 24

// MemoryChallengeCache is a mutex-guarded in-memory ChallengeCache.
// Consumption is take-and-remove under the lock, so a challenge key is
// honored at most once even when verify calls race on it.
type MemoryChallengeCache struct {
	mu      sync.Mutex
	entries map[string]*challengeEntry
	ttl     time.Duration
	now     func() time.Time
}

type challengeEntry struct {
	challenge *Challenge
	expiresAt time.Time
}

// NewMemoryChallengeCache creates a new in-memory challenge cache. A zero
// or negative ttl falls back to 2 minutes.
func NewMemoryChallengeCache(ttl time.Duration) *MemoryChallengeCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &MemoryChallengeCache{
		entries: make(map[string]*challengeEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Create mints a random challenge key and stores the challenge with the
// cache's TTL.
func (c *MemoryChallengeCache) Create(ctx context.Context, ch *Challenge) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	keyBytes := make([]byte, challengeKeyBytes)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", WrapError("mint challenge key", err)
	}
	key := base64.RawURLEncoding.EncodeToString(keyBytes)
	ch.Key = key

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &challengeEntry{
		challenge: ch,
		expiresAt: c.now().Add(c.ttl),
	}

	ChallengesIssued.WithLabelValues(string(ch.Purpose)).Inc()
	return key, nil
}

// Consume atomically takes and removes a challenge. Expired entries are
// removed and reported as not found; callers cannot distinguish expired
// from never-issued keys.
func (c *MemoryChallengeCache) Consume(ctx context.Context, key string) (*Challenge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	delete(c.entries, key)

	if c.now().After(entry.expiresAt) {
		ChallengesExpired.Inc()
		return nil, ErrChallengeNotFound
	}
	return entry.challenge, nil
}

// Sweep removes expired challenges and returns how many were removed.
func (c *MemoryChallengeCache) Sweep(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		ChallengesExpired.Add(float64(removed))
	}
	return removed
}

// StartSweeper runs a periodic Sweep until the context is canceled.
// Abandoned ceremonies hold no state beyond their TTL plus one interval.
func (c *MemoryChallengeCache) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Sweep(ctx)
			}
		}
	}()
}

// Count returns the number of outstanding challenges, expired included.
func (c *MemoryChallengeCache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes all challenges from the cache.
func (c *MemoryChallengeCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*challengeEntry)
}
