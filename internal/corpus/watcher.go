// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package corpus

import (
	"context"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	semerr "github.com/semdex-dev/semdex/pkg/errors"
)

// DefaultDebounce is the quiet period a Watcher waits out before reporting a
// batch of changes.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports filesystem changes under a corpus root. Events are
// debounced: the callback fires once per quiet period with the sorted set of
// relative paths that changed since the last report.
type Watcher struct {
	fsw      *fsnotify.Watcher
	root     string
	debounce time.Duration
}

// NewWatcher builds a recursive watcher over the Dir's tree. Hidden
// directories are not watched.
func NewWatcher(dir *Dir, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, semerr.Wrapf(err, semerr.CodeCorpusWatchFailure, "creating filesystem watcher")
	}

	if err := addWatchDirs(fsw, dir.Root()); err != nil {
		_ = fsw.Close()
		return nil, semerr.Wrapf(err, semerr.CodeCorpusWatchFailure, "watching corpus root %s", dir.Root())
	}

	return &Watcher{fsw: fsw, root: dir.Root(), debounce: debounce}, nil
}

// Run blocks, invoking onChange with each debounced batch of changed paths.
// It returns when ctx is cancelled or the underlying watcher closes. The
// callback runs on the watch loop, so events arriving during a slow callback
// queue up for the next batch.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) error {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.ignore(event) {
				continue
			}

			// Directories created after the initial walk are not covered
			// by it; pick them up here so nested writes keep arriving.
			if event.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					if err := addWatchDirs(w.fsw, event.Name); err != nil {
						slog.Warn("watching new corpus directory failed", "path", event.Name, "error", err)
					}
					continue
				}
			}

			rel, err := filepath.Rel(w.root, event.Name)
			if err != nil {
				continue
			}
			pending[filepath.ToSlash(rel)] = struct{}{}

			// Trailing debounce: every event pushes the report out by the
			// full quiet period.
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("corpus watch error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := slices.Sorted(maps.Keys(pending))
			pending = make(map[string]struct{})
			onChange(paths)
		}
	}
}

// Close stops the watcher. A blocked Run returns after Close.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// ignore filters out events for hidden paths and operations that cannot
// change file content.
func (w *Watcher) ignore(event fsnotify.Event) bool {
	if !relevantOp(event.Op) {
		return true
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return true
	}
	return hiddenPath(filepath.ToSlash(rel))
}

// relevantOp reports whether the operation can alter corpus content.
func relevantOp(op fsnotify.Op) bool {
	return op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}

// hiddenPath reports whether any component of a relative slash path is
// dot-prefixed.
func hiddenPath(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if hidden(part) {
			return true
		}
	}
	return false
}

// addWatchDirs registers root and every non-hidden subdirectory.
func addWatchDirs(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if hidden(entry.Name()) && path != root {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}
