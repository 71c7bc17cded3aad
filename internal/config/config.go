// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package config

import (
	"errors"
	"strings"
	"time"

	semerr "github.com/semdex-dev/semdex/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the top-level semdex configuration.
type Config struct {
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Index     IndexConfig     `mapstructure:"index"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Search    SearchConfig    `mapstructure:"search"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Corpus    CorpusConfig    `mapstructure:"corpus"`
}

// EmbeddingConfig selects the embedding provider and its credentials.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
	APIKey     string `mapstructure:"api_key"`
	Endpoint   string `mapstructure:"endpoint"`
}

// IndexConfig selects the vector index backend.
type IndexConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// CacheConfig controls the two-tier result cache.
type CacheConfig struct {
	Dir      string        `mapstructure:"dir"`
	Capacity int           `mapstructure:"capacity"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// SearchConfig holds similarity defaults applied when a caller passes none.
type SearchConfig struct {
	Threshold    float64 `mapstructure:"threshold"`
	MaxResults   int     `mapstructure:"max_results"`
	MinGroupSize int     `mapstructure:"min_group_size"`
	MaxFileBytes int64   `mapstructure:"max_file_bytes"`
}

// BatchConfig bounds concurrent embedding work.
type BatchConfig struct {
	ChunkSize    int           `mapstructure:"chunk_size"`
	ChunkTimeout time.Duration `mapstructure:"chunk_timeout"`
	Pause        time.Duration `mapstructure:"pause"`
}

// CorpusConfig points at the document tree being indexed.
type CorpusConfig struct {
	Root  string      `mapstructure:"root"`
	Watch WatchConfig `mapstructure:"watch"`
}

// WatchConfig controls the filesystem watcher.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// SetDefaults installs every default value on the given Viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("embedding.provider", "local")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.dimensions", 256)
	v.SetDefault("index.backend", "memory")
	v.SetDefault("index.path", "")
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.capacity", 512)
	v.SetDefault("cache.ttl", 300*time.Second)
	v.SetDefault("search.threshold", 0.7)
	v.SetDefault("search.max_results", 10)
	v.SetDefault("search.min_group_size", 2)
	v.SetDefault("search.max_file_bytes", int64(1_000_000))
	v.SetDefault("batch.chunk_size", 8)
	v.SetDefault("batch.chunk_timeout", 30*time.Second)
	v.SetDefault("batch.pause", 100*time.Millisecond)
	v.SetDefault("corpus.root", ".")
	v.SetDefault("corpus.watch.debounce", 500*time.Millisecond)
}

// SetupEnv binds SEMDEX_* environment variables, with dots mapped to
// underscores (embedding.provider -> SEMDEX_EMBEDDING_PROVIDER).
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("SEMDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, semerr.Errorf(semerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates configuration from an already
// initialized Viper instance. Commands use this after initViper has layered
// flags, env vars, and the config file.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, semerr.Errorf(semerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, semerr.Errorf(semerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. Every problem found
// is returned, not just the first, so a bad file can be fixed in one pass.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateEmbedding()...)
	errs = append(errs, c.validateIndex()...)
	errs = append(errs, c.validateCache()...)
	errs = append(errs, c.validateSearch()...)
	errs = append(errs, c.validateBatch()...)
	errs = append(errs, c.validateCorpus()...)

	return errs
}

func (c *Config) validateEmbedding() []error {
	var errs []error

	validProviders := map[string]bool{"openai": true, "google": true, "local": true}
	if !validProviders[c.Embedding.Provider] {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: embedding.provider must be one of [openai, google, local], got %q",
			c.Embedding.Provider,
		))
	}

	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: embedding.dimensions must be greater than 0, got %d",
			c.Embedding.Dimensions,
		))
	}

	return errs
}

func (c *Config) validateIndex() []error {
	var errs []error

	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if !validBackends[c.Index.Backend] {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: index.backend must be one of [memory, sqlite], got %q",
			c.Index.Backend,
		))
	}

	return errs
}

func (c *Config) validateCache() []error {
	var errs []error

	if c.Cache.Capacity <= 0 {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: cache.capacity must be greater than 0, got %d",
			c.Cache.Capacity,
		))
	}

	if c.Cache.TTL <= 0 {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: cache.ttl must be greater than 0, got %s",
			c.Cache.TTL,
		))
	}

	return errs
}

func (c *Config) validateSearch() []error {
	var errs []error

	// Cosine similarity lives in [-1, 1]; thresholds outside that range can
	// never match anything or match everything.
	if c.Search.Threshold < -1 || c.Search.Threshold > 1 {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: search.threshold must be within [-1, 1], got %g",
			c.Search.Threshold,
		))
	}

	if c.Search.MaxResults <= 0 {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: search.max_results must be greater than 0, got %d",
			c.Search.MaxResults,
		))
	}

	if c.Search.MinGroupSize < 1 {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: search.min_group_size must be at least 1, got %d",
			c.Search.MinGroupSize,
		))
	}

	if c.Search.MaxFileBytes <= 0 {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: search.max_file_bytes must be greater than 0, got %d",
			c.Search.MaxFileBytes,
		))
	}

	return errs
}

func (c *Config) validateBatch() []error {
	var errs []error

	if c.Batch.ChunkSize <= 0 {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: batch.chunk_size must be greater than 0, got %d",
			c.Batch.ChunkSize,
		))
	}

	if c.Batch.ChunkTimeout <= 0 {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: batch.chunk_timeout must be greater than 0, got %s",
			c.Batch.ChunkTimeout,
		))
	}

	if c.Batch.Pause < 0 {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: batch.pause must not be negative, got %s",
			c.Batch.Pause,
		))
	}

	return errs
}

func (c *Config) validateCorpus() []error {
	var errs []error

	if c.Corpus.Root == "" {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: corpus.root must not be empty"))
	}

	if c.Corpus.Watch.Debounce < 0 {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: corpus.watch.debounce must not be negative, got %s",
			c.Corpus.Watch.Debounce,
		))
	}

	return errs
}
