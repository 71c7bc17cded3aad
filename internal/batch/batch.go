// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

// Package batch runs embedding work in fixed-size chunks. The chunk size is
// the concurrency ceiling: one goroutine per item in the active chunk and
// nothing in flight across chunks. Item failures and panics are isolated;
// a chunk timeout salvages whatever finished and cancels the rest.
package batch

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	semerr "github.com/semdex-dev/semdex/pkg/errors"
)

// DefaultChunkSize bounds concurrency when Options names no chunk size.
const DefaultChunkSize = 8

// Op computes the result for a single item.
type Op[T, R any] func(ctx context.Context, item T) (R, error)

// Result holds one item's outcome. Err == nil means the value is present;
// a set Err means the item failed, panicked, timed out, or was cancelled.
type Result[R any] struct {
	Value R
	Err   error
}

// Options bound a batch run.
type Options struct {
	// ChunkSize is the number of items processed concurrently. Values <= 0
	// fall back to DefaultChunkSize.
	ChunkSize int
	// ChunkTimeout caps each chunk's wall time. On expiry the chunk context
	// is cancelled, finished results are kept, and unfinished items are
	// marked failed. <= 0 disables the deadline.
	ChunkTimeout time.Duration
	// Pause is slept between chunks. <= 0 skips the pause.
	Pause time.Duration
}

// Process runs op over items and returns results positionally aligned with
// the input. It never returns early with a short slice: cancellation and
// timeouts mark the affected items failed instead.
func Process[T, R any](ctx context.Context, items []T, op Op[T, R], opts Options) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	size := opts.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}

	batchID := uuid.NewString()
	slog.Debug("batch run starting",
		"batch_id", batchID,
		"items", len(items),
		"chunk_size", size,
		"chunk_timeout", opts.ChunkTimeout,
	)

	for start := 0; start < len(items); start += size {
		if err := ctx.Err(); err != nil {
			for i := start; i < len(items); i++ {
				results[i] = Result[R]{Err: err}
			}
			slog.Warn("batch run cancelled",
				"batch_id", batchID, "processed_items", start, "error", err)
			return results
		}

		end := start + size
		if end > len(items) {
			end = len(items)
		}
		runChunk(ctx, batchID, start, items[start:end], results[start:end], op, opts.ChunkTimeout)

		if end < len(items) && opts.Pause > 0 {
			pauseBetweenChunks(ctx, opts.Pause)
		}
	}

	ok, failed := 0, 0
	for i := range results {
		if results[i].Err != nil {
			failed++
		} else {
			ok++
		}
	}
	slog.Debug("batch run finished", "batch_id", batchID, "ok", ok, "failed", failed)
	return results
}

// runChunk fills results for one chunk of items. results is the chunk's
// window into the full result slice; offset is only for logging.
func runChunk[T, R any](ctx context.Context, batchID string, offset int, items []T, results []Result[R], op Op[T, R], timeout time.Duration) {
	var cctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		cctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		cctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	type itemResult struct {
		idx   int
		value R
		err   error
	}
	// Buffered to chunk size so abandoned workers can always complete
	// their send and exit.
	ch := make(chan itemResult, len(items))

	for i := range items {
		go func(i int, item T) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("batch item panic recovered",
						"batch_id", batchID,
						"item", offset+i,
						"panic", r,
						"stack", string(debug.Stack()))
					ch <- itemResult{idx: i, err: semerr.Errorf(semerr.CodeBatchItemPanic,
						"item panic: %v", r)}
				}
			}()
			value, err := op(cctx, item)
			ch <- itemResult{idx: i, value: value, err: err}
		}(i, items[i])
	}

	seen := make([]bool, len(items))
	collected := 0
	for collected < len(items) {
		select {
		case r := <-ch:
			if r.err != nil {
				slog.Warn("batch item failed",
					"batch_id", batchID, "item", offset+r.idx, "error", r.err)
			}
			seen[r.idx] = true
			results[r.idx] = Result[R]{Value: r.value, Err: r.err}
			collected++

		case <-cctx.Done():
			// Salvage results that were already delivered.
			for {
				select {
				case r := <-ch:
					if r.err != nil {
						slog.Warn("batch item failed",
							"batch_id", batchID, "item", offset+r.idx, "error", r.err)
					}
					seen[r.idx] = true
					results[r.idx] = Result[R]{Value: r.value, Err: r.err}
					collected++
					continue
				default:
				}
				break
			}

			var itemErr error
			if err := ctx.Err(); err != nil {
				itemErr = err
			} else {
				itemErr = semerr.New(semerr.CodeBatchChunkTimeout,
					"chunk timed out before item finished", semerr.FieldBatchID(batchID))
			}

			abandoned := 0
			for i := range items {
				if !seen[i] {
					results[i] = Result[R]{Err: itemErr}
					abandoned++
				}
			}
			slog.Warn("batch chunk interrupted, salvaging completed items",
				"batch_id", batchID,
				"chunk_offset", offset,
				"salvaged", collected,
				"abandoned", abandoned,
				"error", cctx.Err())
			return
		}
	}
}

// pauseBetweenChunks sleeps for the inter-chunk pause, waking early on
// cancellation; the caller's next loop iteration handles the cancel.
func pauseBetweenChunks(ctx context.Context, pause time.Duration) {
	timer := time.NewTimer(pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
