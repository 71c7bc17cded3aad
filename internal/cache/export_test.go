// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package cache

import "time"

// SanitizeKey exposes the filesystem-safe key transform for direct unit
// testing.
func SanitizeKey(key string) string { return sanitizeKey(key) }

// SetNow overrides the cache clock so tests can drive TTL expiry without
// sleeping.
func (t *Tiered) SetNow(now func() time.Time) { t.now = now }

// MemLen exposes the memory tier's entry count.
func (t *Tiered) MemLen() int { return t.mem.len() }
