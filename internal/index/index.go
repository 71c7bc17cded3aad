// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

// Package index provides the append-only vector index used for
// nearest-neighbor queries over corpus files. Backends register themselves
// by name; the memory backend is always available, the sqlite backend is
// activated by a blank import.
package index

import (
	"context"
	"sync"

	semerr "github.com/semdex-dev/semdex/pkg/errors"
)

// DefaultBackend is used when the config names none.
const DefaultBackend = "memory"

// Index stores embeddings alongside their path identifiers, positionally
// aligned. Entries are append-only; Reset discards everything so the index
// can be rebuilt from the corpus.
type Index interface {
	// Add appends an embedding and its path to the index.
	Add(ctx context.Context, path string, embedding []float32) error

	// Search returns up to k matches by descending cosine similarity as
	// parallel score and position slices. Ties keep insertion order. A
	// zero-norm vector (query or stored) has similarity 0 to everything.
	// An empty index returns empty results and no error.
	Search(ctx context.Context, query []float32, k int) ([]float64, []int, error)

	// Paths maps positions from Search back to path identifiers, silently
	// skipping out-of-range positions.
	Paths(indices []int) []string

	// Len reports the number of indexed entries.
	Len() int

	// Reset discards all entries.
	Reset(ctx context.Context) error

	Close() error
}

// Factory builds an Index backend. dataDir is the directory persistent
// backends may place files in; dims is the embedding dimension.
type Factory func(dataDir string, dims int) (Index, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named index backend. Backend
// packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// New builds the named backend, defaulting to "memory" when name is empty.
func New(name, dataDir string, dims int) (Index, error) {
	if name == "" {
		name = DefaultBackend
	}

	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, semerr.Errorf(semerr.CodeIndexBackendUnsupported, "unsupported index backend: %q", name)
	}
	if dims <= 0 {
		return nil, semerr.Errorf(semerr.CodeIndexDimensionMismatch, "index dimensions must be positive, got %d", dims)
	}

	return factory(dataDir, dims)
}
