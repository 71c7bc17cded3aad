// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

// Package cache provides the two-tier cache for derived similarity results:
// a bounded in-process LRU in front of a persistent file-per-key tier.
// Failures in the persistent tier degrade to cache misses and are only
// logged; nothing here surfaces errors to callers.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	semerr "github.com/semdex-dev/semdex/pkg/errors"
)

// Cache is the contract the similarity engine depends on. Get reports a
// miss for expired or unreadable entries; Put is write-through; pattern
// invalidation matches raw keys by substring in both tiers.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration)
	Invalidate(ctx context.Context, key string)
	InvalidatePattern(ctx context.Context, substring string) int
	Clear(ctx context.Context)
	Close() error
}

// Compile-time interface check.
var _ Cache = (*Tiered)(nil)

// Tiered is the production Cache: LRU memory tier backed by a disk tier.
// There is no background sweeper; expiry is checked lazily on read.
type Tiered struct {
	mem  *lruStore
	disk *diskStore
	now  func() time.Time
}

// New creates a tiered cache persisting under dir with the given memory
// capacity in entries.
func New(dir string, capacity int) (*Tiered, error) {
	if capacity <= 0 {
		return nil, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"cache capacity must be positive, got %d", capacity)
	}

	disk, err := newDiskStore(dir)
	if err != nil {
		return nil, err
	}

	return &Tiered{
		mem:  newLRUStore(capacity),
		disk: disk,
		now:  time.Now,
	}, nil
}

// Get returns the cached value for key. The memory tier is consulted first;
// a fresh disk hit is promoted into memory with its remaining lifetime.
func (t *Tiered) Get(_ context.Context, key string) ([]byte, bool) {
	now := t.now()

	if value, ok := t.mem.get(key, now); ok {
		return value, true
	}

	value, expiry, ok := t.disk.read(key, now)
	if !ok {
		return nil, false
	}

	t.mem.put(key, value, expiry)
	return value, true
}

// Put writes the value through both tiers. A non-positive ttl stores the
// entry without expiry.
func (t *Tiered) Put(_ context.Context, key string, value []byte, ttl time.Duration) {
	var expiry time.Time
	if ttl > 0 {
		expiry = t.now().Add(ttl)
	}

	t.mem.put(key, value, expiry)
	t.disk.write(key, value, t.now(), expiry)
}

// Invalidate removes the key from both tiers.
func (t *Tiered) Invalidate(_ context.Context, key string) {
	t.mem.remove(key)
	t.disk.remove(key)
}

// InvalidatePattern removes every entry whose raw key contains substring
// from both tiers and returns the number of distinct keys removed.
func (t *Tiered) InvalidatePattern(_ context.Context, substring string) int {
	removed := map[string]struct{}{}
	for _, key := range t.mem.removeMatching(substring) {
		removed[key] = struct{}{}
	}
	for _, key := range t.disk.removeMatching(substring) {
		removed[key] = struct{}{}
	}
	return len(removed)
}

// Clear empties both tiers.
func (t *Tiered) Clear(_ context.Context) {
	t.mem.clear()
	t.disk.clear()
}

// Close releases nothing today; the handle exists so wiring can shut the
// cache down like every other component.
func (t *Tiered) Close() error { return nil }

// maxKeyFileLen bounds the sanitized key used as a file name; longer keys
// keep their head and tail with a hash of the full key between them.
const maxKeyFileLen = 200

// sanitizeKey maps a raw cache key to a filesystem-safe name: every
// non-alphanumeric byte becomes '_', and overlong keys are shortened to
// head + sha256 fragment + tail. Distinct keys can collide after the
// transform, which is why the raw key is stored inside the entry payload.
func sanitizeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}

	s := b.String()
	if len(s) <= maxKeyFileLen {
		return s
	}

	sum := sha256.Sum256([]byte(key))
	digest := hex.EncodeToString(sum[:])[:16]
	return s[:80] + "_" + digest + "_" + s[len(s)-80:]
}
