// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

// Package local implements a deterministic offline embedder based on
// feature hashing over a bag of words. Texts sharing vocabulary score high
// cosine similarity; disjoint texts score near zero. It needs no network or
// credentials, which makes it the default provider for trials and tests. It
// does not model semantics beyond word overlap.
package local

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/semdex-dev/semdex/internal/embed"
	semerr "github.com/semdex-dev/semdex/pkg/errors"
)

// Embedder hashes tokens into a fixed number of signed buckets and
// L2-normalizes the result.
type Embedder struct {
	dims int
}

// New creates a local embedder emitting vectors of the given dimension.
func New(dims int) (*Embedder, error) {
	if dims <= 0 {
		return nil, semerr.Errorf(semerr.CodeEmbedRequestInvalid, "local: dimensions must be positive, got %d", dims)
	}
	return &Embedder{dims: dims}, nil
}

func (e *Embedder) Name() string { return "local" }

func (e *Embedder) Dimensions() int { return e.dims }

func (e *Embedder) Close() error { return nil }

// Encode embeds a single text. Blank input yields the zero vector.
func (e *Embedder) Encode(_ context.Context, text string) ([]float32, error) {
	return e.encode(text), nil
}

// EncodeBatch embeds texts positionally. It checks for cancellation between
// items so large batches stay responsive.
func (e *Embedder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, semerr.Wrapf(err, semerr.CodeEmbedUpstreamFailure, "local: batch cancelled at item %d", i)
		}
		out[i] = e.encode(text)
	}
	return out, nil
}

func (e *Embedder) encode(text string) []float32 {
	vec := embed.ZeroVector(e.dims)
	if embed.IsBlank(text) {
		return vec
	}

	for token, count := range termFrequencies(text) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()

		bucket := int(sum % uint64(e.dims))
		// The top hash bit picks the sign, so colliding tokens cancel out
		// in expectation instead of inflating similarity.
		sign := float32(1)
		if sum>>63 == 1 {
			sign = -1
		}
		vec[bucket] += sign * float32(count)
	}

	normalize(vec)
	return vec
}

// termFrequencies lower-cases the text and counts runs of letters and digits.
func termFrequencies(text string) map[string]int {
	freq := make(map[string]int)
	var token strings.Builder

	flush := func() {
		if token.Len() > 0 {
			freq[token.String()]++
			token.Reset()
		}
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			token.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()

	return freq
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
