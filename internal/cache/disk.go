// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package cache

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	semerr "github.com/semdex-dev/semdex/pkg/errors"
)

// diskEntry is the persistent payload, one JSON file per sanitized key.
// The raw key rides inside so pattern invalidation can match it after the
// filesystem-safe transform mangled the file name.
type diskEntry struct {
	Key       string `json:"key"`
	Value     []byte `json:"value"`
	CreatedAt int64  `json:"created_at"`
	Expiry    int64  `json:"expiry_timestamp"` // unix seconds, 0 = never
}

// diskStore is the persistent tier. Writes are serialized per process; all
// failures degrade to misses or no-ops and are logged.
type diskStore struct {
	dir     string
	writeMu sync.Mutex
}

func newDiskStore(dir string) (*diskStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, semerr.Wrap(err, semerr.CodeCacheDiskWriteFailure, "creating cache dir", semerr.FieldPath(dir))
	}
	return &diskStore{dir: dir}, nil
}

func (s *diskStore) path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".json")
}

// read returns the value and absolute expiry for key. Missing, corrupt,
// colliding, or expired entries are all misses; corrupt and expired files
// are removed on the way out.
func (s *diskStore) read(key string, now time.Time) ([]byte, time.Time, bool) {
	path := s.path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("cache disk read failed, treating as miss", "key", key, "error", err)
		}
		return nil, time.Time{}, false
	}

	var entry diskEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		slog.Warn("cache entry corrupt, removing", "key", key, "error", err)
		s.removeFile(path, key)
		return nil, time.Time{}, false
	}

	if entry.Key != key {
		// Sanitized-name collision with a different raw key.
		return nil, time.Time{}, false
	}

	var expiry time.Time
	if entry.Expiry != 0 {
		expiry = time.Unix(entry.Expiry, 0)
		if now.After(expiry) {
			s.removeFile(path, key)
			return nil, time.Time{}, false
		}
	}

	return entry.Value, expiry, true
}

// write persists the entry. Failures are logged and dropped; the memory
// tier already holds the value.
func (s *diskStore) write(key string, value []byte, now, expiry time.Time) {
	entry := diskEntry{
		Key:       key,
		Value:     value,
		CreatedAt: now.Unix(),
	}
	if !expiry.IsZero() {
		entry.Expiry = expiry.Unix()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		slog.Warn("cache entry encode failed, skipping persist", "key", key, "error", err)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := os.WriteFile(s.path(key), data, 0o600); err != nil {
		slog.Warn("cache disk write failed, skipping persist", "key", key, "error", err)
	}
}

func (s *diskStore) remove(key string) {
	s.removeFile(s.path(key), key)
}

func (s *diskStore) removeFile(path, key string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("cache disk remove failed", "key", key, "error", err)
	}
}

// removeMatching scans every entry file, removes those whose raw key
// contains substring, and returns the removed keys.
func (s *diskStore) removeMatching(substring string) []string {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		slog.Warn("cache dir scan failed", "dir", s.dir, "error", err)
		return nil
	}

	var removed []string
	for _, de := range dirents {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, de.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("cache disk read failed during scan", "path", path, "error", err)
			continue
		}
		var entry diskEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			slog.Warn("cache entry corrupt, removing", "path", path, "error", err)
			s.removeFile(path, "")
			continue
		}

		if strings.Contains(entry.Key, substring) {
			s.removeFile(path, entry.Key)
			removed = append(removed, entry.Key)
		}
	}
	return removed
}

// clear removes every entry file.
func (s *diskStore) clear() {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		slog.Warn("cache dir scan failed", "dir", s.dir, "error", err)
		return
	}

	for _, de := range dirents {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		s.removeFile(filepath.Join(s.dir, de.Name()), "")
	}
}
