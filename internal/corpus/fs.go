// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

// Package corpus supplies the document tree that gets embedded and indexed:
// listing, reading, and sizing files, plus a filesystem watcher that reports
// batches of changed paths after a quiet period.
package corpus

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	semerr "github.com/semdex-dev/semdex/pkg/errors"
)

// Source supplies the files of a corpus. Paths are slash-separated and
// relative to the corpus root; List, Read, and Size all speak that same form.
type Source interface {
	// List returns every file path in the corpus in deterministic order.
	List(ctx context.Context) ([]string, error)

	// Read returns the text content of the file at path.
	Read(ctx context.Context, path string) (string, error)

	// Size returns the size of the file at path in bytes.
	Size(ctx context.Context, path string) (int64, error)
}

// Dir is a Source backed by a directory tree. Hidden entries (dot-prefixed
// files and directories) are excluded from listings.
type Dir struct {
	root string
}

var _ Source = (*Dir)(nil)

// NewDir returns a Dir rooted at the given directory.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, semerr.Errorf(semerr.CodeCorpusWalkFailure, "resolving corpus root %s: %w", root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, semerr.Errorf(semerr.CodeCorpusWalkFailure, "statting corpus root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, semerr.Errorf(semerr.CodeCorpusWalkFailure, "corpus root %s is not a directory", abs)
	}

	return &Dir{root: abs}, nil
}

// Root returns the absolute corpus root directory.
func (d *Dir) Root() string { return d.root }

// List walks the tree and returns relative slash-separated paths of every
// regular file, in lexical walk order.
func (d *Dir) List(ctx context.Context) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		name := entry.Name()
		if entry.IsDir() {
			if hidden(name) && path != d.root {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden(name) || !entry.Type().IsRegular() {
			return nil
		}

		rel, relErr := filepath.Rel(d.root, path)
		if relErr != nil {
			return relErr
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, semerr.Wrapf(err, semerr.CodeCorpusWalkFailure, "walking corpus root %s", d.root)
	}

	return paths, nil
}

// Read returns the file's content as text.
func (d *Dir) Read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	full, err := d.resolve(path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", semerr.New(semerr.CodeCorpusFileNotFound, "file not in corpus", semerr.FieldPath(path))
		}
		return "", semerr.Wrapf(err, semerr.CodeCorpusReadFailure, "reading corpus file %s", path)
	}

	return string(data), nil
}

// Size returns the file size in bytes.
func (d *Dir) Size(ctx context.Context, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	full, err := d.resolve(path)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, semerr.New(semerr.CodeCorpusFileNotFound, "file not in corpus", semerr.FieldPath(path))
		}
		return 0, semerr.Wrapf(err, semerr.CodeCorpusReadFailure, "statting corpus file %s", path)
	}

	return info.Size(), nil
}

// resolve maps a relative corpus path to an absolute one, rejecting paths
// that would land outside the root.
func (d *Dir) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", semerr.Errorf(semerr.CodeCorpusReadFailure, "path %q escapes the corpus root", path)
	}
	return filepath.Join(d.root, clean), nil
}

// hidden reports whether a file or directory name is dot-prefixed.
func hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
