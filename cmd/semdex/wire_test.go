// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/semdex-dev/semdex/internal/config"
	"github.com/semdex-dev/semdex/internal/embed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testAppConfig builds a minimal config wiring the local embedder over the
// given corpus root.
func testAppConfig(corpusRoot string) *config.Config {
	return &config.Config{
		Embedding: config.EmbeddingConfig{Provider: "local", Dimensions: 64},
		Index:     config.IndexConfig{Backend: "memory"},
		Cache:     config.CacheConfig{Capacity: 32, TTL: time.Minute},
		Corpus:    config.CorpusConfig{Root: corpusRoot},
	}
}

func writeCorpusFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestWireApp(t *testing.T) {
	dataDir := t.TempDir()
	corpusRoot := t.TempDir()
	writeCorpusFiles(t, corpusRoot, map[string]string{"readme.txt": "hello"})

	app, err := WireApp(context.Background(), testAppConfig(corpusRoot), dataDir)
	require.NoError(t, err)
	defer func() { _ = app.Close() }()

	assert.NotNil(t, app.Engine)
	assert.NotNil(t, app.Model)
	assert.NotNil(t, app.Index)
	assert.NotNil(t, app.Cache)
	assert.NotNil(t, app.Corpus)
	assert.Equal(t, "local", app.Model.Name())
}

func TestWireApp_EmptyAPIKeyFallsBackToLocal(t *testing.T) {
	dataDir := t.TempDir()
	corpusRoot := t.TempDir()

	cfg := testAppConfig(corpusRoot)
	cfg.Embedding.Provider = "openai"
	cfg.Embedding.APIKey = ""

	app, err := WireApp(context.Background(), cfg, dataDir)
	require.NoError(t, err, "missing API key should fall back, not fail")
	defer func() { _ = app.Close() }()

	assert.Equal(t, "local", app.Model.Name())
}

func TestWireApp_UnknownProvider(t *testing.T) {
	cfg := testAppConfig(t.TempDir())
	cfg.Embedding.Provider = "mystery"

	_, err := WireApp(context.Background(), cfg, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mystery")
}

func TestWireApp_ModelCreationFailureSurfaces(t *testing.T) {
	// Inject a factory that always fails to exercise the err != nil path.
	orig := builtinModelFactories["openai"]
	builtinModelFactories["openai"] = func(_ config.EmbeddingConfig) (embed.Model, error) {
		return nil, fmt.Errorf("injected failure")
	}
	t.Cleanup(func() { builtinModelFactories["openai"] = orig })

	cfg := testAppConfig(t.TempDir())
	cfg.Embedding.Provider = "openai"
	cfg.Embedding.APIKey = "test-key-not-real"

	_, err := WireApp(context.Background(), cfg, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "injected failure")
}

func TestWireApp_BadCorpusRoot(t *testing.T) {
	cfg := testAppConfig(filepath.Join(t.TempDir(), "missing"))

	_, err := WireApp(context.Background(), cfg, t.TempDir())
	assert.Error(t, err)
}

func TestApp_EnsureIndexed(t *testing.T) {
	dataDir := t.TempDir()
	corpusRoot := t.TempDir()
	writeCorpusFiles(t, corpusRoot, map[string]string{
		"a.txt": "alpha",
		"b.txt": "beta",
	})

	app, err := WireApp(context.Background(), testAppConfig(corpusRoot), dataDir)
	require.NoError(t, err)
	defer func() { _ = app.Close() }()

	out := app.EnsureIndexed(context.Background())
	assert.True(t, out.IsOK(), "indexing a readable corpus should succeed: %v", out.Reasons)
	assert.Equal(t, 2, app.Index.Len())

	// A populated index is left alone.
	out = app.EnsureIndexed(context.Background())
	assert.True(t, out.IsOK())
	assert.Equal(t, 2, app.Index.Len())
}

func TestApp_CloseIsIdempotentAcrossNilFields(t *testing.T) {
	app := &App{}
	assert.NoError(t, app.Close())
}
