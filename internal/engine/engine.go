// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

// Package engine orchestrates embedding, indexing, caching, and batching
// into the corpus queries semdex answers: text search, file-to-file
// neighbors, and corpus-wide clustering. Operations never return errors;
// every failure degrades to fewer results plus a typed Outcome.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/semdex-dev/semdex/internal/batch"
	"github.com/semdex-dev/semdex/internal/cache"
	"github.com/semdex-dev/semdex/internal/corpus"
	"github.com/semdex-dev/semdex/internal/embed"
	"github.com/semdex-dev/semdex/internal/index"
)

// Defaults applied when Params or Options leave the matching field unset.
const (
	DefaultThreshold    = 0.7
	DefaultMaxResults   = 10
	DefaultMinGroupSize = 2
	DefaultMaxFileBytes = 1_000_000
	DefaultCacheTTL     = 300 * time.Second
)

// Match pairs a corpus path with its cosine similarity to the query.
type Match struct {
	Path  string  `json:"path"`
	Score float64 `json:"score"`
}

// Group is a cluster of mutually similar corpus paths. Members keep the
// order their embeddings were produced in.
type Group struct {
	Members []string `json:"members"`
}

// Stats summarizes a Reindex run.
type Stats struct {
	Indexed  int           `json:"indexed"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Degraded int           `json:"degraded"`
	Duration time.Duration `json:"duration"`
}

// Options tunes a single engine call. Start from DefaultOptions and overlay
// the fields to change. A zero or out-of-range field falls back to the
// engine's configured value; an effectively-zero threshold can be expressed
// with a tiny positive epsilon.
type Options struct {
	Threshold    float64
	MaxResults   int
	MinGroupSize int

	// Candidates restricts Search and FileGroups to the given paths; empty
	// means the whole corpus.
	Candidates []string
}

// Params wires an Engine. Model, Index, Cache, and Source may each be nil;
// operations needing a missing dependency answer empty with a failed
// outcome instead of erroring.
type Params struct {
	Model  embed.Model
	Index  index.Index
	Cache  cache.Cache
	Source corpus.Source

	Threshold    float64
	MaxResults   int
	MinGroupSize int
	MaxFileBytes int64
	CacheTTL     time.Duration

	ChunkSize    int
	ChunkTimeout time.Duration
	Pause        time.Duration
}

// Engine answers similarity queries over a corpus. It holds no state beyond
// its injected collaborators and is safe for concurrent use. The engine does
// not own those collaborators; whoever assembled it closes them.
type Engine struct {
	model  embed.Model
	index  index.Index
	cache  cache.Cache
	source corpus.Source

	threshold    float64
	maxResults   int
	minGroupSize int
	maxFileBytes int64
	ttl          time.Duration
	batchOpts    batch.Options
}

// New builds an Engine, filling unset tuning parameters with package
// defaults.
func New(p Params) *Engine {
	e := &Engine{
		model:        p.Model,
		index:        p.Index,
		cache:        p.Cache,
		source:       p.Source,
		threshold:    p.Threshold,
		maxResults:   p.MaxResults,
		minGroupSize: p.MinGroupSize,
		maxFileBytes: p.MaxFileBytes,
		ttl:          p.CacheTTL,
		batchOpts: batch.Options{
			ChunkSize:    p.ChunkSize,
			ChunkTimeout: p.ChunkTimeout,
			Pause:        p.Pause,
		},
	}

	if e.threshold == 0 || e.threshold < -1 || e.threshold > 1 {
		e.threshold = DefaultThreshold
	}
	if e.maxResults < 1 {
		e.maxResults = DefaultMaxResults
	}
	if e.minGroupSize < 1 {
		e.minGroupSize = DefaultMinGroupSize
	}
	if e.maxFileBytes <= 0 {
		e.maxFileBytes = DefaultMaxFileBytes
	}
	if e.ttl <= 0 {
		e.ttl = DefaultCacheTTL
	}

	return e
}

// DefaultOptions returns the engine's configured per-call defaults.
func (e *Engine) DefaultOptions() Options {
	return Options{
		Threshold:    e.threshold,
		MaxResults:   e.maxResults,
		MinGroupSize: e.minGroupSize,
	}
}

// Search embeds the query text and returns corpus paths whose stored
// vectors score at or above the threshold, best first.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]string, Outcome) {
	if e.model == nil {
		return nil, Failed("embedding model not configured")
	}
	if e.index == nil {
		return nil, Failed("vector index not configured")
	}

	threshold := e.thresholdOf(opts)
	maxResults := e.maxResultsOf(opts)

	// Candidate-restricted searches are not cached; the key namespace only
	// spans whole-corpus queries.
	restricted := len(opts.Candidates) > 0

	key := searchKey(query, threshold, maxResults)
	if !restricted {
		if paths, ok := fromCache[[]string](ctx, e.cache, key); ok {
			return paths, OK()
		}
	}

	vec, out := e.encodeQuery(ctx, query, OK())

	k := maxResults
	if restricted {
		// Rank the whole index so matches outside the top k are not lost
		// to candidates filtered away.
		k = e.index.Len()
	}

	scores, indices, err := e.index.Search(ctx, vec, k)
	if err != nil {
		slog.Warn("index search failed", "error", err)
		return nil, out.Fail("index search failed")
	}

	var allowed map[string]struct{}
	if restricted {
		allowed = make(map[string]struct{}, len(opts.Candidates))
		for _, p := range opts.Candidates {
			allowed[p] = struct{}{}
		}
	}

	found := e.index.Paths(indices)
	paths := make([]string, 0, maxResults)
	for i, p := range found {
		if scores[i] < threshold {
			break
		}
		if allowed != nil {
			if _, ok := allowed[p]; !ok {
				continue
			}
		}
		paths = append(paths, p)
		if len(paths) == maxResults {
			break
		}
	}

	// Degraded results are not cached; the next call retries cleanly.
	if out.IsOK() && !restricted {
		intoCache(ctx, e.cache, key, paths, e.ttl)
	}
	return paths, out
}

// SimilarFiles returns the closest corpus files to the one at path, never
// including the file itself.
func (e *Engine) SimilarFiles(ctx context.Context, path string, opts Options) ([]Match, Outcome) {
	if e.model == nil {
		return nil, Failed("embedding model not configured")
	}
	if e.index == nil {
		return nil, Failed("vector index not configured")
	}
	if e.source == nil {
		return nil, Failed("corpus source not configured")
	}

	threshold := e.thresholdOf(opts)
	maxResults := e.maxResultsOf(opts)

	key := similarKey(path, threshold, maxResults)
	if matches, ok := fromCache[[]Match](ctx, e.cache, key); ok {
		return matches, OK()
	}

	text, err := e.source.Read(ctx, path)
	if err != nil {
		slog.Warn("reading file for similarity failed", "path", path, "error", err)
		return nil, Failed("reading " + path + " failed")
	}

	vec, out := e.encodeQuery(ctx, text, OK())

	// One extra neighbor so the file itself can be dropped.
	scores, indices, err := e.index.Search(ctx, vec, maxResults+1)
	if err != nil {
		slog.Warn("index search failed", "path", path, "error", err)
		return nil, out.Fail("index search failed")
	}

	found := e.index.Paths(indices)
	matches := make([]Match, 0, maxResults)
	for i, p := range found {
		if p == path || scores[i] < threshold {
			continue
		}
		matches = append(matches, Match{Path: p, Score: scores[i]})
		if len(matches) == maxResults {
			break
		}
	}

	if out.IsOK() {
		intoCache(ctx, e.cache, key, matches, e.ttl)
	}
	return matches, out
}

// FileGroups clusters the corpus into groups of mutually similar files.
// Files over the size ceiling are skipped and unreadable files are excluded
// per item; both degrade the outcome without blocking the rest.
func (e *Engine) FileGroups(ctx context.Context, opts Options) ([]Group, Outcome) {
	if e.model == nil {
		return nil, Failed("embedding model not configured")
	}
	if e.source == nil {
		return nil, Failed("corpus source not configured")
	}

	threshold := e.thresholdOf(opts)
	minSize := e.minGroupSizeOf(opts)

	// Candidate-restricted calls are not cached: the groups key carries
	// only the candidate count, and two different subsets of equal size
	// must not share an entry.
	restricted := len(opts.Candidates) > 0

	candidates := opts.Candidates
	if !restricted {
		listed, err := e.source.List(ctx)
		if err != nil {
			slog.Warn("listing corpus for grouping failed", "error", err)
			return nil, Failed("listing corpus failed")
		}
		candidates = listed
	}
	if len(candidates) == 0 {
		return nil, OK()
	}

	key := groupsKey(threshold, minSize, len(candidates))
	if !restricted {
		if groups, ok := fromCache[[]Group](ctx, e.cache, key); ok {
			return groups, OK()
		}
	}

	out := OK()

	eligible, oversize, unsized := e.sizeFilter(ctx, candidates)
	if oversize > 0 {
		out = out.Degrade(fmt.Sprintf("%d files over the %d byte ceiling skipped", oversize, e.maxFileBytes))
	}
	if unsized > 0 {
		out = out.Degrade(fmt.Sprintf("%d files could not be sized", unsized))
	}
	if len(eligible) == 0 {
		return nil, out
	}

	vecs, kept, excluded, zeroed := e.embedAll(ctx, eligible)
	if excluded > 0 {
		out = out.Degrade(fmt.Sprintf("%d files excluded after read or batch failures", excluded))
	}
	if zeroed > 0 {
		out = out.Degrade(fmt.Sprintf("%d embeddings degraded to zero vectors", zeroed))
	}
	if len(vecs) == 0 {
		return nil, out.Fail("no files could be embedded")
	}

	clusters := clusterAverage(distanceMatrix(vecs), 1-threshold)

	groups := make([]Group, 0, len(clusters))
	for _, c := range clusters {
		if len(c) < minSize {
			continue
		}
		members := make([]string, len(c))
		for i, idx := range c {
			members[i] = kept[idx]
		}
		groups = append(groups, Group{Members: members})
	}

	if out.IsOK() && !restricted {
		intoCache(ctx, e.cache, key, groups, e.ttl)
	}
	return groups, out
}

// Reindex rebuilds the vector index from the corpus and drops every derived
// cache entry. The old index is replaced only after embedding finishes, so
// a collapsed batch leaves it intact.
func (e *Engine) Reindex(ctx context.Context) (Stats, Outcome) {
	start := time.Now()

	if e.model == nil {
		return Stats{}, Failed("embedding model not configured")
	}
	if e.index == nil {
		return Stats{}, Failed("vector index not configured")
	}
	if e.source == nil {
		return Stats{}, Failed("corpus source not configured")
	}

	paths, err := e.source.List(ctx)
	if err != nil {
		slog.Warn("listing corpus for reindex failed", "error", err)
		return Stats{}, Failed("listing corpus failed")
	}

	out := OK()
	var stats Stats

	eligible, oversize, unsized := e.sizeFilter(ctx, paths)
	stats.Skipped = oversize
	stats.Failed = unsized

	vecs, kept, excluded, zeroed := e.embedAll(ctx, eligible)
	stats.Failed += excluded
	stats.Degraded = zeroed

	if err := e.index.Reset(ctx); err != nil {
		slog.Warn("resetting index failed", "error", err)
		return stats, out.Fail("resetting index failed")
	}
	for i, vec := range vecs {
		if err := e.index.Add(ctx, kept[i], vec); err != nil {
			slog.Warn("indexing file failed", "path", kept[i], "error", err)
			stats.Failed++
			continue
		}
		stats.Indexed++
	}
	stats.Duration = time.Since(start)

	if stats.Skipped > 0 {
		out = out.Degrade(fmt.Sprintf("%d files over the size ceiling skipped", stats.Skipped))
	}
	if stats.Failed > 0 {
		out = out.Degrade(fmt.Sprintf("%d files failed", stats.Failed))
	}
	if stats.Degraded > 0 {
		out = out.Degrade(fmt.Sprintf("%d files indexed with zero vectors", stats.Degraded))
	}
	if stats.Indexed == 0 && stats.Failed > 0 {
		out = out.Fail("nothing indexed")
	}

	dropped := e.invalidateDerived(ctx)
	slog.Info("reindex finished",
		"indexed", stats.Indexed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"degraded", stats.Degraded,
		"cache_entries_dropped", dropped,
		"duration", stats.Duration,
	)

	return stats, out
}

// InvalidatePath drops cached entries mentioning the given path. The
// watcher calls this for every changed file.
func (e *Engine) InvalidatePath(ctx context.Context, path string) int {
	if e.cache == nil || path == "" {
		return 0
	}
	return e.cache.InvalidatePattern(ctx, path)
}

// sizeFilter keeps candidates at or under the size ceiling, counting
// oversize files and files that could not be sized.
func (e *Engine) sizeFilter(ctx context.Context, candidates []string) (eligible []string, oversize, unsized int) {
	eligible = make([]string, 0, len(candidates))
	for _, p := range candidates {
		size, err := e.source.Size(ctx, p)
		if err != nil {
			slog.Warn("sizing corpus file failed", "path", p, "error", err)
			unsized++
			continue
		}
		if size > e.maxFileBytes {
			slog.Debug("file over size ceiling, skipping", "path", p, "size", size)
			oversize++
			continue
		}
		eligible = append(eligible, p)
	}
	return eligible, oversize, unsized
}

// embedAll reads and embeds the given paths through the batch pipeline.
// Read failures exclude the item; embedding failures degrade it to the zero
// vector. Returned vecs and kept are parallel and keep embedding order.
func (e *Engine) embedAll(ctx context.Context, paths []string) (vecs [][]float32, kept []string, excluded, zeroed int) {
	var zeroCount atomic.Int64

	results := batch.Process(ctx, paths, func(ctx context.Context, p string) ([]float32, error) {
		text, err := e.source.Read(ctx, p)
		if err != nil {
			return nil, err
		}
		vec, err := e.model.Encode(ctx, text)
		if err != nil {
			slog.Warn("embedding failed, degrading to zero vector", "path", p, "error", err)
			zeroCount.Add(1)
			return embed.ZeroVector(e.model.Dimensions()), nil
		}
		return vec, nil
	}, e.batchOpts)

	vecs = make([][]float32, 0, len(paths))
	kept = make([]string, 0, len(paths))
	for i, r := range results {
		if r.Err != nil {
			excluded++
			continue
		}
		vecs = append(vecs, r.Value)
		kept = append(kept, paths[i])
	}
	return vecs, kept, excluded, int(zeroCount.Load())
}

// encodeQuery embeds text, degrading a provider failure to the zero vector
// so the operation can answer "no matches" instead of erroring.
func (e *Engine) encodeQuery(ctx context.Context, text string, out Outcome) ([]float32, Outcome) {
	vec, err := e.model.Encode(ctx, text)
	if err != nil {
		slog.Warn("embedding failed, degrading to zero vector", "error", err)
		return embed.ZeroVector(e.model.Dimensions()), out.Degrade("embedding degraded to zero vector")
	}
	return vec, out
}

// invalidateDerived drops every cached query result; all of them are stale
// once the index changes.
func (e *Engine) invalidateDerived(ctx context.Context) int {
	if e.cache == nil {
		return 0
	}
	n := e.cache.InvalidatePattern(ctx, "search:")
	n += e.cache.InvalidatePattern(ctx, "similar:")
	n += e.cache.InvalidatePattern(ctx, "groups:")
	return n
}

func (e *Engine) thresholdOf(opts Options) float64 {
	if opts.Threshold == 0 || opts.Threshold < -1 || opts.Threshold > 1 {
		return e.threshold
	}
	return opts.Threshold
}

func (e *Engine) maxResultsOf(opts Options) int {
	if opts.MaxResults < 1 {
		return e.maxResults
	}
	return opts.MaxResults
}

func (e *Engine) minGroupSizeOf(opts Options) int {
	if opts.MinGroupSize < 1 {
		return e.minGroupSize
	}
	return opts.MinGroupSize
}

// fromCache returns the decoded cached value for key, treating every
// failure as a miss.
func fromCache[T any](ctx context.Context, c cache.Cache, key string) (T, bool) {
	var v T
	if c == nil {
		return v, false
	}

	raw, ok := c.Get(ctx, key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		slog.Warn("cached value undecodable, treating as miss", "cache_key", key, "error", err)
		return v, false
	}
	return v, true
}

// intoCache stores v under key.
func intoCache[T any](ctx context.Context, c cache.Cache, key string, v T, ttl time.Duration) {
	if c == nil {
		return
	}

	raw, err := json.Marshal(v)
	if err != nil {
		slog.Warn("encoding cache value failed", "cache_key", key, "error", err)
		return
	}
	c.Put(ctx, key, raw, ttl)
}

func searchKey(text string, threshold float64, maxResults int) string {
	return "search:" + text + ":" + formatThreshold(threshold) + ":" + strconv.Itoa(maxResults)
}

func similarKey(path string, threshold float64, maxResults int) string {
	return "similar:" + path + ":" + formatThreshold(threshold) + ":" + strconv.Itoa(maxResults)
}

func groupsKey(threshold float64, minGroupSize, corpusSize int) string {
	return "groups:" + formatThreshold(threshold) + ":" + strconv.Itoa(minGroupSize) + ":" + strconv.Itoa(corpusSize)
}

func formatThreshold(t float64) string {
	return strconv.FormatFloat(t, 'g', -1, 64)
}
