// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

// Package sqlite implements the persistent index backend on SQLite with the
// sqlite-vec extension. Blank-import this package to activate the "sqlite"
// backend.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/semdex-dev/semdex/internal/index"
	semerr "github.com/semdex-dev/semdex/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// Compile-time interface check.
var _ index.Index = (*Store)(nil)

// Store implements index.Index backed by SQLite with a vec0 virtual table
// using the cosine distance metric. Positions are assigned in insertion
// order, so search results line up with the memory backend's.
type Store struct {
	db   *sql.DB
	dims int

	mu    sync.Mutex
	count int
}

// Open opens (or creates) the index database at dbPath. If the database was
// built with a different embedding dimension it is reset, since stored
// vectors from another model are not comparable.
func Open(dbPath string, dims int) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, semerr.Wrap(err, semerr.CodeIndexDatabaseFailure, "opening index db", semerr.FieldPath(dbPath))
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, semerr.Wrap(err, semerr.CodeIndexDatabaseFailure, "pinging index db", semerr.FieldPath(dbPath))
	}

	if err := migrate(db, dims); err != nil {
		_ = db.Close()
		return nil, semerr.Wrap(err, semerr.CodeIndexDatabaseFailure, "migrating index db", semerr.FieldPath(dbPath))
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&count); err != nil {
		_ = db.Close()
		return nil, semerr.Wrap(err, semerr.CodeIndexDatabaseFailure, "counting index entries", semerr.FieldPath(dbPath))
	}

	return &Store{db: db, dims: dims, count: count}, nil
}

func migrate(db *sql.DB, dims int) error {
	const metaDDL = `
CREATE TABLE IF NOT EXISTS index_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`
	if _, err := db.Exec(metaDDL); err != nil {
		return err
	}

	var stored string
	err := db.QueryRow(`SELECT value FROM index_meta WHERE key = 'dimensions'`).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Fresh database.
	case err != nil:
		return err
	case stored != strconv.Itoa(dims):
		slog.Warn("index dimensions changed, resetting index; run a reindex",
			"stored", stored, "configured", dims)
		if _, err := db.Exec(`DROP TABLE IF EXISTS vectors`); err != nil {
			return err
		}
		if _, err := db.Exec(`DROP TABLE IF EXISTS entries`); err != nil {
			return err
		}
	}

	const entriesDDL = `
CREATE TABLE IF NOT EXISTS entries (
	pos  INTEGER PRIMARY KEY,
	path TEXT NOT NULL
)`
	if _, err := db.Exec(entriesDDL); err != nil {
		return err
	}

	vecDDL := `CREATE VIRTUAL TABLE IF NOT EXISTS vectors USING vec0(embedding float[` +
		strconv.Itoa(dims) + `] distance_metric=cosine)`
	if _, err := db.Exec(vecDDL); err != nil {
		return err
	}

	const metaQ = `INSERT INTO index_meta(key, value) VALUES ('dimensions', ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := db.Exec(metaQ, strconv.Itoa(dims)); err != nil {
		return err
	}

	return nil
}

// Add appends an embedding and its path. Zero-norm embeddings get an entry
// row but no vec0 row: cosine distance is undefined for them, and under the
// cosine metric they can never match anyway.
func (s *Store) Add(ctx context.Context, path string, embedding []float32) error {
	if len(embedding) != s.dims {
		return semerr.Errorf(semerr.CodeIndexDimensionMismatch,
			"embedding has %d dimensions, index expects %d", len(embedding), s.dims)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	pos := s.count

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return semerr.Wrap(err, semerr.CodeIndexDatabaseFailure, "beginning index append", semerr.FieldPath(path))
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO entries(pos, path) VALUES (?, ?)`, pos, path); err != nil {
		return semerr.Wrap(err, semerr.CodeIndexDatabaseFailure, "inserting index entry", semerr.FieldPath(path))
	}

	if !isZero(embedding) {
		blob, err := sqlite_vec.SerializeFloat32(embedding)
		if err != nil {
			return semerr.Wrap(err, semerr.CodeIndexDatabaseFailure, "serializing embedding", semerr.FieldPath(path))
		}
		// vec0 rowids are kept positive by offsetting the 0-based position.
		if _, err := tx.ExecContext(ctx, `INSERT INTO vectors(rowid, embedding) VALUES (?, ?)`, pos+1, blob); err != nil {
			return semerr.Wrap(err, semerr.CodeIndexDatabaseFailure, "inserting vector", semerr.FieldPath(path))
		}
	}

	if err := tx.Commit(); err != nil {
		return semerr.Wrap(err, semerr.CodeIndexDatabaseFailure, "committing index append", semerr.FieldPath(path))
	}
	s.count++
	return nil
}

// Search performs a k-nearest-neighbor query. Scores are cosine similarity
// (1 - vec0 cosine distance). A zero-norm query scores 0 against everything,
// so the first k entries are returned in insertion order.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]float64, []int, error) {
	if len(query) != s.dims {
		return nil, nil, semerr.Errorf(semerr.CodeIndexDimensionMismatch,
			"query has %d dimensions, index expects %d", len(query), s.dims)
	}
	if k <= 0 || s.Len() == 0 {
		return nil, nil, nil
	}

	if isZero(query) {
		return s.zeroQueryResults(ctx, k)
	}

	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, nil, semerr.Wrapf(err, semerr.CodeIndexSearchFailure, "serializing query vector")
	}

	const q = `SELECT rowid, distance FROM vectors WHERE embedding MATCH ? AND k = ? ORDER BY distance`
	rows, err := s.db.QueryContext(ctx, q, blob, k)
	if err != nil {
		return nil, nil, semerr.Wrapf(err, semerr.CodeIndexSearchFailure, "searching vectors")
	}
	defer func() { _ = rows.Close() }()

	var scores []float64
	var indices []int
	for rows.Next() {
		var rowid int
		var dist float64
		if err := rows.Scan(&rowid, &dist); err != nil {
			return nil, nil, semerr.Wrapf(err, semerr.CodeIndexSearchFailure, "scanning search result")
		}
		scores = append(scores, 1-dist)
		indices = append(indices, rowid-1)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, semerr.Wrapf(err, semerr.CodeIndexSearchFailure, "iterating search results")
	}

	return scores, indices, nil
}

// zeroQueryResults returns the first k entries with similarity 0, matching
// the memory backend's zero-norm query behavior.
func (s *Store) zeroQueryResults(ctx context.Context, k int) ([]float64, []int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT pos FROM entries ORDER BY pos LIMIT ?`, k)
	if err != nil {
		return nil, nil, semerr.Wrapf(err, semerr.CodeIndexSearchFailure, "listing index entries")
	}
	defer func() { _ = rows.Close() }()

	var scores []float64
	var indices []int
	for rows.Next() {
		var pos int
		if err := rows.Scan(&pos); err != nil {
			return nil, nil, semerr.Wrapf(err, semerr.CodeIndexSearchFailure, "scanning index entry")
		}
		scores = append(scores, 0)
		indices = append(indices, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, semerr.Wrapf(err, semerr.CodeIndexSearchFailure, "iterating index entries")
	}

	return scores, indices, nil
}

// Paths maps positions back to path identifiers, skipping out-of-range
// positions. Lookup failures are logged and treated as missing.
func (s *Store) Paths(indices []int) []string {
	out := make([]string, 0, len(indices))
	if len(indices) == 0 {
		return out
	}

	placeholders := strings.Repeat("?,", len(indices))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(indices))
	for i, idx := range indices {
		args[i] = idx
	}

	rows, err := s.db.Query(`SELECT pos, path FROM entries WHERE pos IN (`+placeholders+`)`, args...)
	if err != nil {
		slog.Warn("index path lookup failed", "error", err)
		return out
	}
	defer func() { _ = rows.Close() }()

	found := make(map[int]string, len(indices))
	for rows.Next() {
		var pos int
		var path string
		if err := rows.Scan(&pos, &path); err != nil {
			slog.Warn("index path lookup failed", "error", err)
			return out
		}
		found[pos] = path
	}
	if err := rows.Err(); err != nil {
		slog.Warn("index path lookup failed", "error", err)
		return out
	}

	for _, idx := range indices {
		if path, ok := found[idx]; ok {
			out = append(out, path)
		}
	}
	return out
}

// Len reports the number of indexed entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Reset discards all entries.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return semerr.Wrapf(err, semerr.CodeIndexDatabaseFailure, "beginning index reset")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return semerr.Wrapf(err, semerr.CodeIndexDatabaseFailure, "clearing index entries")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vectors`); err != nil {
		return semerr.Wrapf(err, semerr.CodeIndexDatabaseFailure, "clearing vectors")
	}
	if err := tx.Commit(); err != nil {
		return semerr.Wrapf(err, semerr.CodeIndexDatabaseFailure, "committing index reset")
	}

	s.count = 0
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func isZero(v []float32) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}
