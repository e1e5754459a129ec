//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package sqlite provides a SQLite-backed checkpoint store. A single file
// holds all checkpoints, which makes it a good fit for local deployments
// that need durability across restarts without an external service.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trpc.group/trpc-go/trpc-flow-go/graph"
)

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL,
	graph_id   TEXT NOT NULL,
	ts         INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	data       BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_run ON checkpoints(run_id);
CREATE INDEX IF NOT EXISTS idx_checkpoints_graph ON checkpoints(graph_id);
`

// Store is a SQLite-backed graph.CheckpointStore. Each checkpoint is one
// row: the JSON document plus the columns needed for indexed lookups and
// expiry sweeps.
type Store struct {
	db         *sql.DB
	serializer *graph.Serializer
}

// Option configures the store.
type Option func(*options)

type options struct {
	db   *sql.DB
	path string
}

// WithDB uses an existing database handle.
func WithDB(db *sql.DB) Option {
	return func(opts *options) {
		opts.db = db
	}
}

// WithPath opens (or creates) the database file at path.
// WithDB has higher priority when both are specified.
func WithPath(path string) Option {
	return func(opts *options) {
		opts.path = path
	}
}

// New creates a SQLite checkpoint store and ensures the schema exists.
func New(opts ...Option) (*Store, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	db := o.db
	if db == nil {
		if o.path == "" {
			return nil, errors.New("sqlite checkpoint store requires a database handle or a path")
		}
		var err error
		db, err = sql.Open("sqlite3", o.path+"?_journal_mode=WAL&_busy_timeout=5000")
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("initialize checkpoint schema: %w", err)
	}
	return &Store{db: db, serializer: graph.NewSerializer()}, nil
}

// Save writes the checkpoint, overwriting any existing row with the same id.
func (s *Store) Save(ctx context.Context, cp *graph.Checkpoint) (string, error) {
	if cp == nil {
		return "", &graph.CheckpointError{Message: "cannot save a nil checkpoint"}
	}
	data, err := s.serializer.Marshal(cp)
	if err != nil {
		return "", &graph.CheckpointError{Message: "serialize failed", CheckpointID: cp.ID, Err: err}
	}
	var expiresAt int64
	if cp.ExpiresAt != nil {
		expiresAt = cp.ExpiresAt.UnixMilli()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO checkpoints (id, run_id, graph_id, ts, expires_at, data)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		cp.ID, cp.RunID, cp.GraphID, cp.Timestamp.UnixMilli(), expiresAt, data)
	if err != nil {
		return "", &graph.CheckpointError{Message: "save failed", CheckpointID: cp.ID, Err: err}
	}
	return cp.ID, nil
}

// Load returns the checkpoint with the given id.
func (s *Store) Load(ctx context.Context, id string) (*graph.Checkpoint, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM checkpoints WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &graph.CheckpointError{
			Message:      "load failed",
			CheckpointID: id,
			Err:          graph.ErrCheckpointNotFound,
		}
	}
	if err != nil {
		return nil, &graph.CheckpointError{Message: "load failed", CheckpointID: id, Err: err}
	}
	cp, err := s.serializer.Unmarshal(data)
	if err != nil {
		return nil, &graph.CheckpointError{Message: "deserialize failed", CheckpointID: id, Err: err}
	}
	return cp, nil
}

// ListByRun returns the checkpoints of a run, newest first.
func (s *Store) ListByRun(ctx context.Context, runID string) ([]*graph.Checkpoint, error) {
	return s.list(ctx, `SELECT data FROM checkpoints WHERE run_id = ? ORDER BY ts DESC`, runID)
}

// ListByGraph returns the checkpoints of a graph, newest first.
func (s *Store) ListByGraph(ctx context.Context, graphID string) ([]*graph.Checkpoint, error) {
	return s.list(ctx, `SELECT data FROM checkpoints WHERE graph_id = ? ORDER BY ts DESC`, graphID)
}

func (s *Store) list(ctx context.Context, query, arg string) ([]*graph.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, &graph.CheckpointError{Message: "list failed", Err: err}
	}
	defer rows.Close()
	var out []*graph.Checkpoint
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, &graph.CheckpointError{Message: "list failed", Err: err}
		}
		cp, err := s.serializer.Unmarshal(data)
		if err != nil {
			return nil, &graph.CheckpointError{Message: "deserialize failed", Err: err}
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, &graph.CheckpointError{Message: "list failed", Err: err}
	}
	return out, nil
}

// Delete removes the checkpoint with the given id. Deleting a missing id
// is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE id = ?`, id); err != nil {
		return &graph.CheckpointError{Message: "delete failed", CheckpointID: id, Err: err}
	}
	return nil
}

// DeleteByRun removes all checkpoints of a run.
func (s *Store) DeleteByRun(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE run_id = ?`, runID); err != nil {
		return &graph.CheckpointError{Message: "delete by run failed", Err: err}
	}
	return nil
}

// DeleteExpired removes expired checkpoints and returns the count. A zero
// expires_at means the checkpoint never expires.
func (s *Store) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM checkpoints WHERE expires_at > 0 AND expires_at <= ?`,
		time.Now().UnixMilli())
	if err != nil {
		return 0, &graph.CheckpointError{Message: "delete expired failed", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &graph.CheckpointError{Message: "delete expired failed", Err: err}
	}
	return int(n), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
