// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package engine_test

import (
	"context"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semdex-dev/semdex/internal/cache"
	"github.com/semdex-dev/semdex/internal/corpus"
	"github.com/semdex-dev/semdex/internal/embed"
	"github.com/semdex-dev/semdex/internal/engine"
	"github.com/semdex-dev/semdex/internal/index"
	semerr "github.com/semdex-dev/semdex/pkg/errors"
)

// stubModel returns canned vectors by exact text match; unknown text maps to
// the zero vector. Encode calls are counted so tests can observe cache hits.
type stubModel struct {
	dims  int
	vecs  map[string][]float32
	fails map[string]bool
	calls atomic.Int32
}

var _ embed.Model = (*stubModel)(nil)

func newStub(dims int) *stubModel {
	return &stubModel{
		dims:  dims,
		vecs:  make(map[string][]float32),
		fails: make(map[string]bool),
	}
}

func (m *stubModel) on(text string, vec []float32) *stubModel {
	m.vecs[text] = vec
	return m
}

func (m *stubModel) failOn(text string) *stubModel {
	m.fails[text] = true
	return m
}

func (m *stubModel) Encode(_ context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if m.fails[text] {
		return nil, semerr.New(semerr.CodeEmbedUpstreamFailure, "stub provider down")
	}
	if vec, ok := m.vecs[text]; ok {
		return vec, nil
	}
	return embed.ZeroVector(m.dims), nil
}

func (m *stubModel) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Encode(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (m *stubModel) Dimensions() int { return m.dims }
func (m *stubModel) Name() string    { return "stub" }
func (m *stubModel) Close() error    { return nil }

// flakySource fails reads for chosen paths while delegating the rest.
type flakySource struct {
	corpus.Source
	failPaths map[string]bool
}

func (s *flakySource) Read(ctx context.Context, path string) (string, error) {
	if s.failPaths[path] {
		return "", semerr.New(semerr.CodeCorpusReadFailure, "disk flaked", semerr.FieldPath(path))
	}
	return s.Source.Read(ctx, path)
}

// unit returns a 2-d unit vector whose cosine against [1, 0] is exactly s.
func unit(s float64) []float32 {
	return []float32{float32(s), float32(math.Sqrt(1 - s*s))}
}

// searchCorpus pins exact cosine scores between "query text" and each doc.
func searchCorpus() (*stubModel, *corpus.Map) {
	model := newStub(2).
		on("query text", []float32{1, 0}).
		on("high doc", unit(0.9)).
		on("mid doc", unit(0.8)).
		on("low doc", unit(0.5))

	source := corpus.NewMap(map[string]string{
		"high.txt": "high doc",
		"mid.txt":  "mid doc",
		"low.txt":  "low doc",
	})
	return model, source
}

// fiveDocCorpus holds two topic clusters: doc1/doc2/doc4 and doc3/doc5.
func fiveDocCorpus() (*stubModel, *corpus.Map) {
	model := newStub(3).
		on("python machine learning basics", []float32{1, 0, 0}).
		on("python machine learning guide", []float32{0.97, 0.05, 0}).
		on("python machine learning notes", []float32{0.95, 0.1, 0}).
		on("javascript web development intro", []float32{0, 1, 0}).
		on("javascript web development handbook", []float32{0.05, 0.97, 0})

	source := corpus.NewMap(map[string]string{
		"doc1.txt": "python machine learning basics",
		"doc2.txt": "python machine learning guide",
		"doc3.txt": "javascript web development intro",
		"doc4.txt": "python machine learning notes",
		"doc5.txt": "javascript web development handbook",
	})
	return model, source
}

func newTestCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.New(t.TempDir(), 64)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestEngine_Search_ThresholdAndOrder(t *testing.T) {
	model, source := searchCorpus()
	eng := engine.New(engine.Params{Model: model, Index: index.NewMemory(2), Source: source})

	_, out := eng.Reindex(context.Background())
	require.True(t, out.IsOK())

	paths, out := eng.Search(context.Background(), "query text", engine.Options{Threshold: 0.75, MaxResults: 10})
	require.True(t, out.IsOK())
	assert.Equal(t, []string{"high.txt", "mid.txt"}, paths)
}

func TestEngine_Search_ThresholdMonotonicity(t *testing.T) {
	model, source := searchCorpus()
	eng := engine.New(engine.Params{Model: model, Index: index.NewMemory(2), Source: source})

	_, out := eng.Reindex(context.Background())
	require.True(t, out.IsOK())

	prev := math.MaxInt
	for _, threshold := range []float64{0.4, 0.6, 0.85, 0.95} {
		paths, out := eng.Search(context.Background(), "query text", engine.Options{Threshold: threshold, MaxResults: 10})
		require.True(t, out.IsOK())
		assert.LessOrEqual(t, len(paths), prev, "threshold %g", threshold)
		prev = len(paths)
	}
	assert.Zero(t, prev, "nothing scores 0.95 or better")
}

func TestEngine_Search_EmptyIndex(t *testing.T) {
	model, source := searchCorpus()
	eng := engine.New(engine.Params{Model: model, Index: index.NewMemory(2), Source: source})

	paths, out := eng.Search(context.Background(), "query text", engine.Options{Threshold: 0.5, MaxResults: 10})
	assert.Empty(t, paths)
	assert.True(t, out.IsOK(), "an empty index legitimately has no matches")
}

func TestEngine_Search_MissingDependencies(t *testing.T) {
	model, _ := searchCorpus()

	tests := []struct {
		name   string
		params engine.Params
	}{
		{name: "no model", params: engine.Params{Index: index.NewMemory(2)}},
		{name: "no index", params: engine.Params{Model: model}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := engine.New(tt.params)
			paths, out := eng.Search(context.Background(), "anything", engine.Options{})
			assert.Empty(t, paths)
			assert.Equal(t, engine.StateFailed, out.State)
			assert.NotEmpty(t, out.Reasons)
		})
	}
}

func TestEngine_Search_CachesCleanResults(t *testing.T) {
	model, source := searchCorpus()
	eng := engine.New(engine.Params{
		Model:  model,
		Index:  index.NewMemory(2),
		Cache:  newTestCache(t),
		Source: source,
	})

	_, out := eng.Reindex(context.Background())
	require.True(t, out.IsOK())
	base := model.calls.Load()

	opts := engine.Options{Threshold: 0.75, MaxResults: 10}
	first, out := eng.Search(context.Background(), "query text", opts)
	require.True(t, out.IsOK())
	assert.Equal(t, base+1, model.calls.Load())

	second, out := eng.Search(context.Background(), "query text", opts)
	require.True(t, out.IsOK())
	assert.Equal(t, first, second)
	assert.Equal(t, base+1, model.calls.Load(), "identical search must hit the cache")

	// A different threshold is a different cache key.
	_, out = eng.Search(context.Background(), "query text", engine.Options{Threshold: 0.6, MaxResults: 10})
	require.True(t, out.IsOK())
	assert.Equal(t, base+2, model.calls.Load())
}

func TestEngine_Search_CandidatesRestrictResults(t *testing.T) {
	model, source := searchCorpus()
	eng := engine.New(engine.Params{
		Model:  model,
		Index:  index.NewMemory(2),
		Cache:  newTestCache(t),
		Source: source,
	})

	_, out := eng.Reindex(context.Background())
	require.True(t, out.IsOK())

	paths, out := eng.Search(context.Background(), "query text", engine.Options{
		Threshold:  0.4,
		MaxResults: 10,
		Candidates: []string{"mid.txt", "low.txt"},
	})
	require.True(t, out.IsOK())
	assert.Equal(t, []string{"mid.txt", "low.txt"}, paths, "non-candidates must be excluded, order stays best first")

	// MaxResults caps the filtered set, not the raw index scan.
	paths, out = eng.Search(context.Background(), "query text", engine.Options{
		Threshold:  0.4,
		MaxResults: 1,
		Candidates: []string{"low.txt"},
	})
	require.True(t, out.IsOK())
	assert.Equal(t, []string{"low.txt"}, paths, "a candidate outside the global top 1 is still found")
}

func TestEngine_Search_CandidatesBypassCache(t *testing.T) {
	model, source := searchCorpus()
	eng := engine.New(engine.Params{
		Model:  model,
		Index:  index.NewMemory(2),
		Cache:  newTestCache(t),
		Source: source,
	})

	_, out := eng.Reindex(context.Background())
	require.True(t, out.IsOK())
	base := model.calls.Load()

	opts := engine.Options{Threshold: 0.4, MaxResults: 10, Candidates: []string{"mid.txt"}}
	first, out := eng.Search(context.Background(), "query text", opts)
	require.True(t, out.IsOK())

	second, out := eng.Search(context.Background(), "query text", opts)
	require.True(t, out.IsOK())
	assert.Equal(t, first, second)
	assert.Equal(t, base+2, model.calls.Load(), "restricted searches must not read or write the cache")

	// The restricted result must not leak into the unrestricted key.
	paths, out := eng.Search(context.Background(), "query text", engine.Options{Threshold: 0.4, MaxResults: 10})
	require.True(t, out.IsOK())
	assert.Equal(t, []string{"high.txt", "mid.txt", "low.txt"}, paths)
}

func TestEngine_Search_EmbedFailureDegradesAndSkipsCache(t *testing.T) {
	model, source := searchCorpus()
	model.failOn("query text")
	eng := engine.New(engine.Params{
		Model:  model,
		Index:  index.NewMemory(2),
		Cache:  newTestCache(t),
		Source: source,
	})

	paths, out := eng.Search(context.Background(), "query text", engine.Options{Threshold: 0.5, MaxResults: 10})
	assert.Empty(t, paths, "zero vector fails every positive threshold")
	assert.Equal(t, engine.StateDegraded, out.State)
	require.NotEmpty(t, out.Reasons)
	assert.Contains(t, out.Reasons[0], "zero vector")
	calls := model.calls.Load()

	_, out = eng.Search(context.Background(), "query text", engine.Options{Threshold: 0.5, MaxResults: 10})
	assert.Equal(t, engine.StateDegraded, out.State)
	assert.Equal(t, calls+1, model.calls.Load(), "degraded results must not be cached")
}

func TestEngine_SimilarFiles_ExcludesSelf(t *testing.T) {
	model, source := searchCorpus()
	eng := engine.New(engine.Params{Model: model, Index: index.NewMemory(2), Source: source})

	_, out := eng.Reindex(context.Background())
	require.True(t, out.IsOK())

	matches, out := eng.SimilarFiles(context.Background(), "mid.txt", engine.Options{Threshold: 0.8, MaxResults: 10})
	require.True(t, out.IsOK())

	require.Len(t, matches, 2)
	assert.Equal(t, "high.txt", matches[0].Path)
	assert.InDelta(t, 0.9815, matches[0].Score, 1e-3)
	assert.Equal(t, "low.txt", matches[1].Path)
	assert.InDelta(t, 0.9196, matches[1].Score, 1e-3)
	for _, m := range matches {
		assert.NotEqual(t, "mid.txt", m.Path, "a file is never similar to itself")
	}
}

func TestEngine_SimilarFiles_ExtraNeighborCoversSelf(t *testing.T) {
	model, source := searchCorpus()
	eng := engine.New(engine.Params{Model: model, Index: index.NewMemory(2), Source: source})

	_, out := eng.Reindex(context.Background())
	require.True(t, out.IsOK())

	// k=1 would return only the file itself; the engine queries one extra.
	matches, out := eng.SimilarFiles(context.Background(), "mid.txt", engine.Options{Threshold: 0.8, MaxResults: 1})
	require.True(t, out.IsOK())
	require.Len(t, matches, 1)
	assert.Equal(t, "high.txt", matches[0].Path)
}

func TestEngine_SimilarFiles_UnreadableFile(t *testing.T) {
	model, source := searchCorpus()
	eng := engine.New(engine.Params{Model: model, Index: index.NewMemory(2), Source: source})

	matches, out := eng.SimilarFiles(context.Background(), "ghost.txt", engine.Options{})
	assert.Empty(t, matches)
	assert.Equal(t, engine.StateFailed, out.State)
	require.NotEmpty(t, out.Reasons)
	assert.Contains(t, out.Reasons[0], "reading")
}

func TestEngine_SimilarFiles_CachedAndInvalidatedByPath(t *testing.T) {
	model, source := searchCorpus()
	eng := engine.New(engine.Params{
		Model:  model,
		Index:  index.NewMemory(2),
		Cache:  newTestCache(t),
		Source: source,
	})

	_, out := eng.Reindex(context.Background())
	require.True(t, out.IsOK())
	base := model.calls.Load()

	opts := engine.Options{Threshold: 0.8, MaxResults: 10}
	first, out := eng.SimilarFiles(context.Background(), "mid.txt", opts)
	require.True(t, out.IsOK())
	assert.Equal(t, base+1, model.calls.Load())

	second, out := eng.SimilarFiles(context.Background(), "mid.txt", opts)
	require.True(t, out.IsOK())
	assert.Equal(t, first, second)
	assert.Equal(t, base+1, model.calls.Load(), "repeat lookup must hit the cache")

	removed := eng.InvalidatePath(context.Background(), "mid.txt")
	assert.Positive(t, removed)

	_, out = eng.SimilarFiles(context.Background(), "mid.txt", opts)
	require.True(t, out.IsOK())
	assert.Equal(t, base+2, model.calls.Load(), "invalidated path must be recomputed")
}

func TestEngine_InvalidatePath_NoCache(t *testing.T) {
	eng := engine.New(engine.Params{})
	assert.Zero(t, eng.InvalidatePath(context.Background(), "anything.txt"))
}

func TestEngine_FileGroups_TwoTopicScenario(t *testing.T) {
	model, source := fiveDocCorpus()
	eng := engine.New(engine.Params{Model: model, Source: source})

	opts := engine.Options{Threshold: 0.6, MinGroupSize: 2}
	groups, out := eng.FileGroups(context.Background(), opts)
	require.True(t, out.IsOK())

	want := []engine.Group{
		{Members: []string{"doc1.txt", "doc2.txt", "doc4.txt"}},
		{Members: []string{"doc3.txt", "doc5.txt"}},
	}
	assert.Equal(t, want, groups)
}

func TestEngine_FileGroups_OrderIndependentMembership(t *testing.T) {
	model, source := fiveDocCorpus()
	eng := engine.New(engine.Params{Model: model, Source: source})

	opts := engine.Options{
		Threshold:    0.6,
		MinGroupSize: 2,
		Candidates:   []string{"doc5.txt", "doc1.txt", "doc4.txt", "doc2.txt", "doc3.txt"},
	}
	groups, out := eng.FileGroups(context.Background(), opts)
	require.True(t, out.IsOK())

	// Same two groups; members follow embedding-production order, which is
	// the candidate order here, and groups are ordered by first member.
	want := []engine.Group{
		{Members: []string{"doc5.txt", "doc3.txt"}},
		{Members: []string{"doc1.txt", "doc4.txt", "doc2.txt"}},
	}
	assert.Equal(t, want, groups)
}

func TestEngine_FileGroups_MinGroupSizeFilter(t *testing.T) {
	model, source := fiveDocCorpus()
	eng := engine.New(engine.Params{Model: model, Source: source})

	groups, out := eng.FileGroups(context.Background(), engine.Options{Threshold: 0.6, MinGroupSize: 3})
	require.True(t, out.IsOK())

	want := []engine.Group{
		{Members: []string{"doc1.txt", "doc2.txt", "doc4.txt"}},
	}
	assert.Equal(t, want, groups, "the two-member group falls under min size 3")
}

func TestEngine_FileGroups_SizeCeilingSkips(t *testing.T) {
	model, source := fiveDocCorpus()
	padded := "python machine learning notes padded well past the ceiling"
	model.on(padded, []float32{0.95, 0.1, 0})
	source.Set("doc4.txt", padded)

	eng := engine.New(engine.Params{Model: model, Source: source, MaxFileBytes: 40})

	groups, out := eng.FileGroups(context.Background(), engine.Options{Threshold: 0.6, MinGroupSize: 2})
	assert.Equal(t, engine.StateDegraded, out.State)
	require.NotEmpty(t, out.Reasons)
	assert.Contains(t, out.Reasons[0], "ceiling")

	want := []engine.Group{
		{Members: []string{"doc1.txt", "doc2.txt"}},
		{Members: []string{"doc3.txt", "doc5.txt"}},
	}
	assert.Equal(t, want, groups, "the oversize file is skipped, the rest still group")
}

func TestEngine_FileGroups_UnreadableExcludedPerItem(t *testing.T) {
	model, source := fiveDocCorpus()
	eng := engine.New(engine.Params{
		Model:  model,
		Source: &flakySource{Source: source, failPaths: map[string]bool{"doc2.txt": true}},
	})

	groups, out := eng.FileGroups(context.Background(), engine.Options{Threshold: 0.6, MinGroupSize: 2})
	assert.Equal(t, engine.StateDegraded, out.State)

	want := []engine.Group{
		{Members: []string{"doc1.txt", "doc4.txt"}},
		{Members: []string{"doc3.txt", "doc5.txt"}},
	}
	assert.Equal(t, want, groups)
}

func TestEngine_FileGroups_EmbedFailureDegradesToZeroVector(t *testing.T) {
	model, source := fiveDocCorpus()
	model.failOn("python machine learning basics")
	eng := engine.New(engine.Params{Model: model, Source: source})

	groups, out := eng.FileGroups(context.Background(), engine.Options{Threshold: 0.6, MinGroupSize: 2})
	assert.Equal(t, engine.StateDegraded, out.State)

	// doc1 embeds as the zero vector: similarity 0 to everything, so it
	// joins no group but does not block the others.
	want := []engine.Group{
		{Members: []string{"doc2.txt", "doc4.txt"}},
		{Members: []string{"doc3.txt", "doc5.txt"}},
	}
	assert.Equal(t, want, groups)
}

func TestEngine_FileGroups_EmptyCorpus(t *testing.T) {
	eng := engine.New(engine.Params{Model: newStub(3), Source: corpus.NewMap(nil)})

	groups, out := eng.FileGroups(context.Background(), engine.Options{})
	assert.Empty(t, groups)
	assert.True(t, out.IsOK())
}

func TestEngine_FileGroups_MissingModel(t *testing.T) {
	eng := engine.New(engine.Params{Source: corpus.NewMap(nil)})

	groups, out := eng.FileGroups(context.Background(), engine.Options{})
	assert.Empty(t, groups)
	assert.Equal(t, engine.StateFailed, out.State)
}

func TestEngine_FileGroups_CachesCleanResults(t *testing.T) {
	model, source := fiveDocCorpus()
	eng := engine.New(engine.Params{Model: model, Cache: newTestCache(t), Source: source})

	opts := engine.Options{Threshold: 0.6, MinGroupSize: 2}
	first, out := eng.FileGroups(context.Background(), opts)
	require.True(t, out.IsOK())
	calls := model.calls.Load()

	second, out := eng.FileGroups(context.Background(), opts)
	require.True(t, out.IsOK())
	assert.Equal(t, first, second)
	assert.Equal(t, calls, model.calls.Load(), "repeat grouping must hit the cache")
}

func TestEngine_FileGroups_CandidateSubsetsOfEqualSizeStayDistinct(t *testing.T) {
	model, source := fiveDocCorpus()
	eng := engine.New(engine.Params{Model: model, Cache: newTestCache(t), Source: source})

	opts := engine.Options{Threshold: 0.6, MinGroupSize: 2}

	opts.Candidates = []string{"doc1.txt", "doc2.txt", "doc4.txt"}
	first, out := eng.FileGroups(context.Background(), opts)
	require.True(t, out.IsOK())
	require.Equal(t, []engine.Group{{Members: []string{"doc1.txt", "doc2.txt", "doc4.txt"}}}, first)

	// Same candidate count, different subset: must not be served the
	// previous call's groups.
	opts.Candidates = []string{"doc3.txt", "doc5.txt", "doc1.txt"}
	second, out := eng.FileGroups(context.Background(), opts)
	require.True(t, out.IsOK())
	assert.Equal(t, []engine.Group{{Members: []string{"doc3.txt", "doc5.txt"}}}, second)

	// Restricted calls must not have polluted the whole-corpus entry.
	opts.Candidates = nil
	calls := model.calls.Load()
	whole, out := eng.FileGroups(context.Background(), opts)
	require.True(t, out.IsOK())
	assert.Greater(t, model.calls.Load(), calls, "whole-corpus grouping must compute, not inherit a restricted entry")
	assert.Len(t, whole, 2)
}

func TestEngine_Idempotence(t *testing.T) {
	model, source := fiveDocCorpus()
	eng := engine.New(engine.Params{Model: model, Index: index.NewMemory(3), Source: source})

	_, out := eng.Reindex(context.Background())
	require.True(t, out.IsOK())

	opts := engine.Options{Threshold: 0.6, MinGroupSize: 2, MaxResults: 10}
	groups1, _ := eng.FileGroups(context.Background(), opts)
	groups2, _ := eng.FileGroups(context.Background(), opts)
	assert.Equal(t, groups1, groups2)

	paths1, _ := eng.Search(context.Background(), "python machine learning basics", opts)
	paths2, _ := eng.Search(context.Background(), "python machine learning basics", opts)
	assert.Equal(t, paths1, paths2)
	assert.NotEmpty(t, paths1)
}

func TestEngine_Reindex_StatsAndRebuild(t *testing.T) {
	model, source := fiveDocCorpus()
	idx := index.NewMemory(3)
	eng := engine.New(engine.Params{Model: model, Index: idx, Source: source})

	stats, out := eng.Reindex(context.Background())
	require.True(t, out.IsOK())
	assert.Equal(t, 5, stats.Indexed)
	assert.Zero(t, stats.Skipped)
	assert.Zero(t, stats.Failed)
	assert.Zero(t, stats.Degraded)
	assert.Equal(t, 5, idx.Len())

	// A rebuild replaces, never appends.
	stats, out = eng.Reindex(context.Background())
	require.True(t, out.IsOK())
	assert.Equal(t, 5, stats.Indexed)
	assert.Equal(t, 5, idx.Len())
}

func TestEngine_Reindex_SkipsOversize(t *testing.T) {
	model, source := fiveDocCorpus()
	padded := "python machine learning notes padded well past the ceiling"
	model.on(padded, []float32{0.95, 0.1, 0})
	source.Set("doc4.txt", padded)

	idx := index.NewMemory(3)
	eng := engine.New(engine.Params{Model: model, Index: idx, Source: source, MaxFileBytes: 40})

	stats, out := eng.Reindex(context.Background())
	assert.Equal(t, engine.StateDegraded, out.State)
	assert.Equal(t, 4, stats.Indexed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 4, idx.Len())
}

func TestEngine_Reindex_MissingDependencies(t *testing.T) {
	eng := engine.New(engine.Params{})

	stats, out := eng.Reindex(context.Background())
	assert.Equal(t, engine.StateFailed, out.State)
	assert.Zero(t, stats.Indexed)
}

func TestEngine_Reindex_ClearsDerivedCache(t *testing.T) {
	model, source := searchCorpus()
	eng := engine.New(engine.Params{
		Model:  model,
		Index:  index.NewMemory(2),
		Cache:  newTestCache(t),
		Source: source,
	})

	_, out := eng.Reindex(context.Background())
	require.True(t, out.IsOK())
	base := model.calls.Load()

	opts := engine.Options{Threshold: 0.75, MaxResults: 10}
	_, out = eng.Search(context.Background(), "query text", opts)
	require.True(t, out.IsOK())
	_, out = eng.Search(context.Background(), "query text", opts)
	require.True(t, out.IsOK())
	assert.Equal(t, base+1, model.calls.Load(), "second search served from cache")

	_, out = eng.Reindex(context.Background())
	require.True(t, out.IsOK())
	mid := model.calls.Load()

	_, out = eng.Search(context.Background(), "query text", opts)
	require.True(t, out.IsOK())
	assert.Equal(t, mid+1, model.calls.Load(), "reindex must drop derived cache entries")
}

func TestEngine_DefaultOptions(t *testing.T) {
	t.Run("package defaults", func(t *testing.T) {
		opts := engine.New(engine.Params{}).DefaultOptions()
		assert.Equal(t, engine.DefaultThreshold, opts.Threshold)
		assert.Equal(t, engine.DefaultMaxResults, opts.MaxResults)
		assert.Equal(t, engine.DefaultMinGroupSize, opts.MinGroupSize)
	})

	t.Run("configured values win", func(t *testing.T) {
		opts := engine.New(engine.Params{Threshold: 0.5, MaxResults: 3, MinGroupSize: 4}).DefaultOptions()
		assert.Equal(t, 0.5, opts.Threshold)
		assert.Equal(t, 3, opts.MaxResults)
		assert.Equal(t, 4, opts.MinGroupSize)
	})
}
