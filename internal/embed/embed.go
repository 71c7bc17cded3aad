// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

// Package embed defines the embedding capability: turning text into
// fixed-length float32 vectors compared by cosine similarity.
package embed

import (
	"context"
	"strings"
)

// Model maps text to fixed-length numeric vectors. Implementations must
// return the all-zero vector for blank input rather than an error; every
// other failure is reported honestly and handled by the caller.
type Model interface {
	// Encode embeds a single text.
	Encode(ctx context.Context, text string) ([]float32, error)

	// EncodeBatch embeds texts positionally: result[i] corresponds to
	// texts[i].
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector length this model emits.
	Dimensions() int

	// Name identifies the provider ("openai", "google", "local").
	Name() string

	// Close releases any underlying resources.
	Close() error
}

// ZeroVector returns the all-zero embedding of dimension d. Zero vectors
// carry similarity 0 to everything, so they trivially fail any positive
// threshold.
func ZeroVector(d int) []float32 {
	return make([]float32, d)
}

// IsBlank reports whether text has no embeddable content.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
