// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/semdex-dev/semdex/internal/cache"
	"github.com/semdex-dev/semdex/internal/config"
	"github.com/semdex-dev/semdex/internal/corpus"
	"github.com/semdex-dev/semdex/internal/embed"
	googleemb "github.com/semdex-dev/semdex/internal/embed/google"
	localemb "github.com/semdex-dev/semdex/internal/embed/local"
	openaiemb "github.com/semdex-dev/semdex/internal/embed/openai"
	"github.com/semdex-dev/semdex/internal/engine"
	"github.com/semdex-dev/semdex/internal/index"
	_ "github.com/semdex-dev/semdex/internal/index/sqlite" // register sqlite backend
	semerr "github.com/semdex-dev/semdex/pkg/errors"
	"github.com/spf13/viper"
)

// App holds all wired subsystems and manages their lifecycle.
type App struct {
	Engine *engine.Engine
	Model  embed.Model
	Index  index.Index
	Cache  cache.Cache
	Corpus *corpus.Dir
}

// wireApp builds the production App. Declared as a variable so command tests
// can substitute a pre-wired fixture.
var wireApp = WireApp

// WireApp creates all subsystems and wires them into an engine.
// The dataDir is the root directory for all persistent state.
func WireApp(ctx context.Context, cfg *config.Config, dataDir string) (*App, error) {
	// Ensure the data directory exists.
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, semerr.Errorf(semerr.CodeCLISetupFailure, "creating data directory: %w", err)
	}

	// 1. Embedding model.
	model, err := buildModel(cfg)
	if err != nil {
		return nil, semerr.Wrapf(err, semerr.CodeCLISetupFailure, "creating embedding model")
	}

	// 2. Corpus source.
	source, err := corpus.NewDir(cfg.Corpus.Root)
	if err != nil {
		_ = model.Close()
		return nil, semerr.Wrapf(err, semerr.CodeCLISetupFailure, "opening corpus root %s", cfg.Corpus.Root)
	}

	// 3. Vector index. Persistent backends place their files under
	// index.path, falling back to the data directory.
	indexDir := cfg.Index.Path
	if indexDir == "" {
		indexDir = dataDir
	}
	idx, err := index.New(cfg.Index.Backend, indexDir, model.Dimensions())
	if err != nil {
		_ = model.Close()
		return nil, semerr.Wrapf(err, semerr.CodeCLISetupFailure, "creating %s index", cfg.Index.Backend)
	}

	// 4. Result cache.
	cacheDir := cfg.Cache.Dir
	if cacheDir == "" {
		cacheDir = filepath.Join(dataDir, "cache")
	}
	store, err := cache.New(cacheDir, cfg.Cache.Capacity)
	if err != nil {
		_ = idx.Close()
		_ = model.Close()
		return nil, semerr.Wrapf(err, semerr.CodeCLISetupFailure, "creating cache in %s", cacheDir)
	}

	// 5. Similarity engine over the lot.
	eng := engine.New(engine.Params{
		Model:  model,
		Index:  idx,
		Cache:  store,
		Source: source,

		Threshold:    cfg.Search.Threshold,
		MaxResults:   cfg.Search.MaxResults,
		MinGroupSize: cfg.Search.MinGroupSize,
		MaxFileBytes: cfg.Search.MaxFileBytes,
		CacheTTL:     cfg.Cache.TTL,

		ChunkSize:    cfg.Batch.ChunkSize,
		ChunkTimeout: cfg.Batch.ChunkTimeout,
		Pause:        cfg.Batch.Pause,
	})

	slog.Debug("app wired",
		"provider", model.Name(),
		"dimensions", model.Dimensions(),
		"index_backend", cfg.Index.Backend,
		"corpus_root", source.Root(),
	)

	return &App{
		Engine: eng,
		Model:  model,
		Index:  idx,
		Cache:  store,
		Corpus: source,
	}, nil
}

// EnsureIndexed builds the index when it is empty, so a fresh start needs no
// explicit index run before querying.
func (a *App) EnsureIndexed(ctx context.Context) engine.Outcome {
	if a.Index.Len() > 0 {
		return engine.OK()
	}
	slog.Info("index is empty, indexing corpus first")
	_, out := a.Engine.Reindex(ctx)
	return out
}

// Close releases all resources held by the app.
func (a *App) Close() error {
	type closer interface{ Close() error }
	closers := []closer{a.Cache, a.Index, a.Model}

	var errs []error
	for _, c := range closers {
		if c != nil {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// modelFactory builds an embed.Model from the embedding config section.
type modelFactory func(config.EmbeddingConfig) (embed.Model, error)

// builtinModelFactories maps provider names to their constructors.
// Declared as a variable so tests can inject failing factories.
var builtinModelFactories = map[string]modelFactory{
	"openai": func(ec config.EmbeddingConfig) (embed.Model, error) {
		return openaiemb.New(openaiemb.Config{APIKey: ec.APIKey, Model: ec.Model, Dimensions: ec.Dimensions, BaseURL: ec.Endpoint})
	},
	"google": func(ec config.EmbeddingConfig) (embed.Model, error) {
		return googleemb.New(googleemb.Config{APIKey: ec.APIKey, Model: ec.Model, Dimensions: ec.Dimensions})
	},
	"local": func(ec config.EmbeddingConfig) (embed.Model, error) {
		return localemb.New(ec.Dimensions)
	},
}

// buildModel constructs the configured embedding model. A remote provider
// without an API key falls back to the local embedder with a warning, so the
// tool stays usable before credentials are set up.
func buildModel(cfg *config.Config) (embed.Model, error) {
	ec := cfg.Embedding

	name := ec.Provider
	if requiresKey(name) && ec.APIKey == "" {
		slog.Warn("no API key configured, falling back to the local embedder", "provider", name)
		name = "local"
	}

	factory, ok := builtinModelFactories[name]
	if !ok {
		return nil, semerr.Errorf(semerr.CodeEmbedProviderNotFound, "unknown embedding provider: %q", name)
	}
	return factory(ec)
}

// requiresKey reports whether the provider needs an API key to operate.
func requiresKey(provider string) bool {
	return provider == "openai" || provider == "google"
}

// resolveDataDir prefers an explicit data_dir setting over the home default.
func resolveDataDir() string {
	if dataDir := viper.GetString("data_dir"); dataDir != "" {
		return dataDir
	}
	return config.DefaultDataDir()
}
