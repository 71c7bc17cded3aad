// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package corpus_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semdex-dev/semdex/internal/corpus"
)

func TestRelevantOp(t *testing.T) {
	tests := []struct {
		name string
		op   fsnotify.Op
		want bool
	}{
		{name: "write", op: fsnotify.Write, want: true},
		{name: "create", op: fsnotify.Create, want: true},
		{name: "remove", op: fsnotify.Remove, want: true},
		{name: "rename", op: fsnotify.Rename, want: true},
		{name: "chmod", op: fsnotify.Chmod, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, corpus.RelevantOp(tt.op))
		})
	}
}

func TestHiddenPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{path: "a.txt", want: false},
		{path: "docs/readme.md", want: false},
		{path: ".git/config", want: true},
		{path: "docs/.draft.md", want: true},
		{path: "deep/.cache/entry", want: true},
		{path: ".", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, corpus.HiddenPath(tt.path))
		})
	}
}

// batchRecorder collects watcher callbacks for assertion.
type batchRecorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *batchRecorder) record(paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, paths)
}

func (r *batchRecorder) flat() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

func (r *batchRecorder) sortedBatches() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.batches {
		if !slices.IsSorted(b) {
			return false
		}
	}
	return true
}

// startWatcher runs a Watcher over root until test cleanup.
func startWatcher(t *testing.T, root string, debounce time.Duration) *batchRecorder {
	t.Helper()

	dir, err := corpus.NewDir(root)
	require.NoError(t, err)

	w, err := corpus.NewWatcher(dir, debounce)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	rec := &batchRecorder{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx, rec.record)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop after cancel")
		}
		_ = w.Close()
	})

	return rec
}

func TestWatcher_ReportsChangesAfterQuietPeriod(t *testing.T) {
	root := t.TempDir()
	rec := startWatcher(t, root, 30*time.Millisecond)

	writeFile(t, root, "a.txt", "alpha")
	writeFile(t, root, "b.txt", "bravo")

	require.Eventually(t, func() bool {
		seen := rec.flat()
		return slices.Contains(seen, "a.txt") && slices.Contains(seen, "b.txt")
	}, 5*time.Second, 20*time.Millisecond)

	assert.True(t, rec.sortedBatches(), "each batch must be sorted")
}

func TestWatcher_IgnoresHiddenFiles(t *testing.T) {
	root := t.TempDir()
	rec := startWatcher(t, root, 30*time.Millisecond)

	writeFile(t, root, ".secret", "hidden")
	writeFile(t, root, "visible.txt", "shown")

	require.Eventually(t, func() bool {
		return slices.Contains(rec.flat(), "visible.txt")
	}, 5*time.Second, 20*time.Millisecond)

	assert.NotContains(t, rec.flat(), ".secret")
}

func TestWatcher_PicksUpNewDirectories(t *testing.T) {
	root := t.TempDir()
	rec := startWatcher(t, root, 30*time.Millisecond)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "newdir"), 0o755))

	// Give the watch loop time to register the new directory before
	// writing into it.
	time.Sleep(300 * time.Millisecond)
	writeFile(t, root, "newdir/c.txt", "charlie")

	require.Eventually(t, func() bool {
		return slices.Contains(rec.flat(), "newdir/c.txt")
	}, 5*time.Second, 20*time.Millisecond)
}
