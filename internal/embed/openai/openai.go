// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

// Package openai implements embed.Model on the OpenAI embeddings API.
package openai

import (
	"context"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/semdex-dev/semdex/internal/embed"
	semerr "github.com/semdex-dev/semdex/pkg/errors"
)

// DefaultModel is used when the config names none.
const DefaultModel = "text-embedding-3-small"

// Config holds OpenAI embedder configuration.
type Config struct {
	APIKey     string
	Model      string
	Dimensions int
	BaseURL    string // optional, useful for testing against a mock server
}

// Embedder implements embed.Model using the OpenAI embeddings endpoint.
type Embedder struct {
	client openaisdk.Client
	model  string
	dims   int
}

// New creates an OpenAI embedder. Returns an error if the API key is missing
// or dimensions are not positive.
func New(cfg Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, semerr.New(semerr.CodeEmbedRequestInvalid, "openai: missing api_key in config", semerr.FieldProvider("openai"))
	}
	if cfg.Dimensions <= 0 {
		return nil, semerr.Errorf(semerr.CodeEmbedRequestInvalid, "openai: dimensions must be positive, got %d", cfg.Dimensions)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Embedder{
		client: openaisdk.NewClient(opts...),
		model:  model,
		dims:   cfg.Dimensions,
	}, nil
}

func (e *Embedder) Name() string { return "openai" }

func (e *Embedder) Dimensions() int { return e.dims }

func (e *Embedder) Close() error { return nil }

// Encode embeds a single text. Blank input yields the zero vector without a
// network call.
func (e *Embedder) Encode(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EncodeBatch embeds texts positionally. Blank entries become zero vectors
// locally; the remainder go out in a single API request.
func (e *Embedder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var payload []string
	var positions []int
	for i, text := range texts {
		if embed.IsBlank(text) {
			out[i] = embed.ZeroVector(e.dims)
			continue
		}
		payload = append(payload, text)
		positions = append(positions, i)
	}

	if len(payload) == 0 {
		return out, nil
	}

	params := openaisdk.EmbeddingNewParams{
		Input:          openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: payload},
		Model:          openaisdk.EmbeddingModel(e.model),
		Dimensions:     param.NewOpt(int64(e.dims)),
		EncodingFormat: openaisdk.EmbeddingNewParamsEncodingFormatFloat,
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, semerr.Wrapf(err, semerr.CodeEmbedUpstreamFailure, "openai: embedding %d texts with %s", len(payload), e.model)
	}

	if len(resp.Data) != len(payload) {
		return nil, semerr.Errorf(semerr.CodeEmbedResponseInvalid,
			"openai: expected %d embeddings, got %d", len(payload), len(resp.Data))
	}

	for _, datum := range resp.Data {
		idx := int(datum.Index)
		if idx < 0 || idx >= len(positions) {
			return nil, semerr.Errorf(semerr.CodeEmbedResponseInvalid, "openai: embedding index %d out of range", idx)
		}
		vec, err := toFloat32(datum.Embedding, e.dims)
		if err != nil {
			return nil, err
		}
		out[positions[idx]] = vec
	}

	return out, nil
}

func toFloat32(raw []float64, want int) ([]float32, error) {
	if len(raw) != want {
		return nil, semerr.Errorf(semerr.CodeEmbedResponseInvalid,
			"openai: embedding has %d dimensions, want %d", len(raw), want)
	}
	vec := make([]float32, len(raw))
	for i, f := range raw {
		vec[i] = float32(f)
	}
	return vec, nil
}
