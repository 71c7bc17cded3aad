// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/semdex-dev/semdex/internal/embed"
	"github.com/semdex-dev/semdex/internal/embed/openai"
	semerr "github.com/semdex-dev/semdex/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface satisfaction check.
var _ embed.Model = (*openai.Embedder)(nil)

func TestOpenAIEmbedder_Name(t *testing.T) {
	e := mustNewEmbedder(t)
	assert.Equal(t, "openai", e.Name())
}

func TestOpenAIEmbedder_Dimensions(t *testing.T) {
	e := mustNewEmbedder(t)
	assert.Equal(t, 8, e.Dimensions())
}

func TestOpenAIEmbedder_MissingAPIKey(t *testing.T) {
	_, err := openai.New(openai.Config{Dimensions: 8})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
	assert.True(t, semerr.IsInvalidInput(err), "missing API key should be CodeEmbedRequestInvalid")
	assert.True(t, semerr.HasCode(err, semerr.CodeEmbedRequestInvalid))
}

func TestOpenAIEmbedder_NonPositiveDimensions(t *testing.T) {
	for _, dims := range []int{0, -1} {
		_, err := openai.New(openai.Config{APIKey: "test-key-not-real", Dimensions: dims})
		require.Error(t, err, "dimensions=%d should be rejected", dims)
		assert.True(t, semerr.IsInvalidInput(err))
	}
}

func TestOpenAIEmbedder_BlankInput_NoRequest(t *testing.T) {
	// Blank texts are resolved locally; no HTTP call should happen, so a
	// dummy key and no server is enough.
	e := mustNewEmbedder(t)

	vecs, err := e.EncodeBatch(context.Background(), []string{"", "   ", "\n\t"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for i, vec := range vecs {
		assert.Equal(t, embed.ZeroVector(8), vec, "texts[%d] should be the zero vector", i)
	}

	vec, err := e.Encode(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, embed.ZeroVector(8), vec)
}

func TestOpenAIEmbedder_EmptyBatch(t *testing.T) {
	e := mustNewEmbedder(t)
	vecs, err := e.EncodeBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestOpenAIEmbedder_EncodeBatch(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		// Answer out of order; the client must realign by index.
		writeEmbeddings(w, [][]float64{{0, 0, 1}, {1, 0, 0}}, []int{1, 0})
	}))
	defer srv.Close()

	e, err := openai.New(openai.Config{
		APIKey:     "test-key-not-real",
		Dimensions: 3,
		BaseURL:    srv.URL,
	})
	require.NoError(t, err)

	vecs, err := e.EncodeBatch(context.Background(), []string{"alpha", " ", "beta"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	// Blank input at position 1 never reached the server.
	assert.Equal(t, []float32{1, 0, 0}, vecs[0])
	assert.Equal(t, embed.ZeroVector(3), vecs[1])
	assert.Equal(t, []float32{0, 0, 1}, vecs[2])

	assert.Equal(t, openai.DefaultModel, gotBody["model"], "empty Config.Model should fall back to the default")
	assert.Equal(t, []any{"alpha", "beta"}, gotBody["input"], "blank entries should be filtered from the request")
	assert.Equal(t, float64(3), gotBody["dimensions"])
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEmbeddings(w, [][]float64{{1, 0}}, []int{0})
	}))
	defer srv.Close()

	e, err := openai.New(openai.Config{
		APIKey:     "test-key-not-real",
		Dimensions: 3,
		BaseURL:    srv.URL,
	})
	require.NoError(t, err)

	_, err = e.EncodeBatch(context.Background(), []string{"alpha"})
	require.Error(t, err)
	assert.True(t, semerr.HasCode(err, semerr.CodeEmbedResponseInvalid))
}

func TestOpenAIEmbedder_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEmbeddings(w, [][]float64{{1, 0, 0}}, []int{0})
	}))
	defer srv.Close()

	e, err := openai.New(openai.Config{
		APIKey:     "test-key-not-real",
		Dimensions: 3,
		BaseURL:    srv.URL,
	})
	require.NoError(t, err)

	_, err = e.EncodeBatch(context.Background(), []string{"alpha", "beta"})
	require.Error(t, err)
	assert.True(t, semerr.HasCode(err, semerr.CodeEmbedResponseInvalid))
}

func TestOpenAIEmbedder_Close(t *testing.T) {
	e := mustNewEmbedder(t)
	assert.NoError(t, e.Close())
}

// mustNewEmbedder creates an embedder with a dummy API key for unit tests.
func mustNewEmbedder(t *testing.T) *openai.Embedder {
	t.Helper()
	e, err := openai.New(openai.Config{
		APIKey:     "test-key-not-real",
		Dimensions: 8,
	})
	require.NoError(t, err)
	return e
}

// writeEmbeddings renders an embeddings API response with the given vectors
// and explicit index values.
func writeEmbeddings(w http.ResponseWriter, vecs [][]float64, indexes []int) {
	data := make([]map[string]any, len(vecs))
	for i, vec := range vecs {
		data[i] = map[string]any{
			"object":    "embedding",
			"index":     indexes[i],
			"embedding": vec,
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data":   data,
		"model":  "text-embedding-3-small",
		"usage":  map[string]any{"prompt_tokens": 2, "total_tokens": 2},
	})
}
