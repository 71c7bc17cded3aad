// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

// Package google implements embed.Model on the Gemini embedding API.
package google

import (
	"context"

	"github.com/semdex-dev/semdex/internal/embed"
	semerr "github.com/semdex-dev/semdex/pkg/errors"
	"google.golang.org/genai"
)

// DefaultModel is used when the config names none.
const DefaultModel = "gemini-embedding-001"

// Config holds Google embedder configuration.
type Config struct {
	APIKey     string
	Model      string
	Dimensions int
}

// Embedder implements embed.Model using Gemini EmbedContent.
type Embedder struct {
	client *genai.Client
	model  string
	dims   int
}

// New creates a Google embedder. Returns an error if the API key is missing
// or dimensions are not positive.
func New(cfg Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, semerr.New(semerr.CodeEmbedRequestInvalid, "google: missing api_key in config", semerr.FieldProvider("google"))
	}
	if cfg.Dimensions <= 0 {
		return nil, semerr.Errorf(semerr.CodeEmbedRequestInvalid, "google: dimensions must be positive, got %d", cfg.Dimensions)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, semerr.Wrapf(err, semerr.CodeEmbedUpstreamFailure, "google: creating client")
	}

	return &Embedder{
		client: client,
		model:  model,
		dims:   cfg.Dimensions,
	}, nil
}

func (e *Embedder) Name() string { return "google" }

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

	var contents []*genai.Content
	var positions []int
	for i, text := range texts {
		if embed.IsBlank(text) {
			out[i] = embed.ZeroVector(e.dims)
			continue
		}
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{
				{Text: text},
			},
		})
		positions = append(positions, i)
	}

	if len(contents) == 0 {
		return out, nil
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(int32(e.dims)),
	})
	if err != nil {
		return nil, semerr.Wrapf(err, semerr.CodeEmbedUpstreamFailure, "google: embedding %d texts with %s", len(contents), e.model)
	}

	if len(resp.Embeddings) != len(contents) {
		return nil, semerr.Errorf(semerr.CodeEmbedResponseInvalid,
			"google: expected %d embeddings, got %d", len(contents), len(resp.Embeddings))
	}

	for j, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) != e.dims {
			got := 0
			if emb != nil {
				got = len(emb.Values)
			}
			return nil, semerr.Errorf(semerr.CodeEmbedResponseInvalid,
				"google: embedding has %d dimensions, want %d", got, e.dims)
		}
		vec := make([]float32, e.dims)
		copy(vec, emb.Values)
		out[positions[j]] = vec
	}

	return out, nil
}
