// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package corpus

import (
	"context"
	"maps"
	"slices"
	"sync"

	semerr "github.com/semdex-dev/semdex/pkg/errors"
)

// Map is an in-memory Source over a fixed set of documents. It backs tests
// and any caller that already holds its corpus as strings.
type Map struct {
	mu    sync.RWMutex
	files map[string]string
}

var _ Source = (*Map)(nil)

// NewMap returns a Map seeded with the given path-to-content entries.
func NewMap(files map[string]string) *Map {
	m := &Map{files: make(map[string]string, len(files))}
	for path, content := range files {
		m.files[path] = content
	}
	return m
}

// Set adds or replaces a file.
func (m *Map) Set(path, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = content
}

// Delete removes a file if present.
func (m *Map) Delete(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
}

// List returns every path in sorted order.
func (m *Map) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.files)), nil
}

// Read returns the content stored for path.
func (m *Map) Read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	content, ok := m.files[path]
	if !ok {
		return "", semerr.New(semerr.CodeCorpusFileNotFound, "file not in corpus", semerr.FieldPath(path))
	}
	return content, nil
}

// Size returns the stored content length in bytes.
func (m *Map) Size(ctx context.Context, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	content, ok := m.files[path]
	if !ok {
		return 0, semerr.New(semerr.CodeCorpusFileNotFound, "file not in corpus", semerr.FieldPath(path))
	}
	return int64(len(content)), nil
}
