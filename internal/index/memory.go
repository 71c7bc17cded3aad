// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package index

import (
	"context"
	"runtime"
	"sort"
	"sync"

	semerr "github.com/semdex-dev/semdex/pkg/errors"
	"github.com/viant/vec/search"
)

func init() {
	RegisterBackend("memory", func(_ string, dims int) (Index, error) {
		return NewMemory(dims), nil
	})
}

// parallelScanMin is the entry count above which Search partitions scoring
// across goroutines. Below it the goroutine overhead outweighs the win.
const parallelScanMin = 4096

// Compile-time interface check.
var _ Index = (*Memory)(nil)

// Memory is the in-process index backend: a brute-force scan over stored
// vectors with precomputed magnitudes. It is the reference implementation
// for tie and zero-vector semantics.
type Memory struct {
	mu    sync.RWMutex
	dims  int
	vecs  [][]float32
	mags  []float32
	paths []string
}

// NewMemory creates an empty in-process index for vectors of the given
// dimension.
func NewMemory(dims int) *Memory {
	return &Memory{dims: dims}
}

// Add appends an embedding and its path. Zero-norm embeddings are stored;
// they score 0 against every query.
func (m *Memory) Add(_ context.Context, path string, embedding []float32) error {
	if len(embedding) != m.dims {
		return semerr.Errorf(semerr.CodeIndexDimensionMismatch,
			"embedding has %d dimensions, index expects %d", len(embedding), m.dims)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.vecs = append(m.vecs, embedding)
	m.mags = append(m.mags, search.Float32s(embedding).Magnitude())
	m.paths = append(m.paths, path)
	return nil
}

// Search scores the query against every stored vector and returns up to k
// results by descending cosine similarity, ties in insertion order.
func (m *Memory) Search(ctx context.Context, query []float32, k int) ([]float64, []int, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if len(query) != m.dims {
		return nil, nil, semerr.Errorf(semerr.CodeIndexDimensionMismatch,
			"query has %d dimensions, index expects %d", len(query), m.dims)
	}
	if k <= 0 {
		return nil, nil, nil
	}

	m.mu.RLock()
	n := len(m.vecs)
	if n == 0 {
		m.mu.RUnlock()
		return nil, nil, nil
	}

	scores := make([]float64, n)
	if qmag := search.Float32s(query).Magnitude(); qmag != 0 {
		m.scoreAll(query, qmag, scores)
	}
	m.mu.RUnlock()

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > n {
		k = n
	}
	outScores := make([]float64, k)
	outIdx := make([]int, k)
	for i := 0; i < k; i++ {
		outIdx[i] = order[i]
		outScores[i] = scores[order[i]]
	}
	return outScores, outIdx, nil
}

// scoreAll fills scores with cosine similarity against the query, writing
// disjoint ranges from multiple goroutines for large indexes. Callers hold
// the read lock.
func (m *Memory) scoreAll(query []float32, qmag float32, scores []float64) {
	n := len(scores)
	if n < parallelScanMin {
		m.scoreRange(query, qmag, scores, 0, n)
		return
	}

	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	stride := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * stride
		hi := lo + stride
		if hi > n {
			hi = n
		}
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			m.scoreRange(query, qmag, scores, lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}

func (m *Memory) scoreRange(query []float32, qmag float32, scores []float64, lo, hi int) {
	for i := lo; i < hi; i++ {
		if m.mags[i] == 0 {
			continue
		}
		scores[i] = dot(query, m.vecs[i]) / (float64(qmag) * float64(m.mags[i]))
	}
}

// dot accumulates in float64 so long vectors do not lose precision.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Paths maps positions back to path identifiers, skipping out-of-range
// positions.
func (m *Memory) Paths(indices []int) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(m.paths) {
			continue
		}
		out = append(out, m.paths[idx])
	}
	return out
}

// Len reports the number of indexed entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.paths)
}

// Reset discards all entries.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vecs = nil
	m.mags = nil
	m.paths = nil
	return nil
}

// Close releases nothing; the memory backend holds no external resources.
func (m *Memory) Close() error { return nil }
