//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package redis provides a Redis-backed checkpoint store for graph
// execution state persistence and recovery.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"trpc.group/trpc-go/trpc-flow-go/graph"
	"trpc.group/trpc-go/trpc-flow-go/log"
)

const (
	keyPrefixCheckpoint = "ckpt:"
	keyPrefixRunIndex   = "ckpt_run:"
	keyPrefixGraphIndex = "ckpt_graph:"
)

// Store is a Redis-backed graph.CheckpointStore. Checkpoints are stored as
// JSON strings keyed by checkpoint id, with set-based indexes per run id
// and per graph id. Index updates run in one transactional pipeline with
// the primary write so a save is observed as a single logical operation.
type Store struct {
	client     redis.UniversalClient
	serializer *graph.Serializer
}

// Option configures the store.
type Option func(*options)

type options struct {
	client redis.UniversalClient
	url    string
}

// WithClient uses an existing redis client.
func WithClient(client redis.UniversalClient) Option {
	return func(opts *options) {
		opts.client = client
	}
}

// WithClientURL creates a redis client from the URL.
// WithClient has higher priority when both are specified.
func WithClientURL(url string) Option {
	return func(opts *options) {
		opts.url = url
	}
}

// New creates a Redis checkpoint store.
func New(opts ...Option) (*Store, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	client := o.client
	if client == nil {
		if o.url == "" {
			return nil, errors.New("redis checkpoint store requires a client or a client URL")
		}
		redisOpts, err := redis.ParseURL(o.url)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(redisOpts)
	}
	return &Store{client: client, serializer: graph.NewSerializer()}, nil
}

func checkpointKey(id string) string      { return keyPrefixCheckpoint + id }
func runIndexKey(runID string) string     { return keyPrefixRunIndex + runID }
func graphIndexKey(graphID string) string { return keyPrefixGraphIndex + graphID }

// Save writes the checkpoint and updates both indexes atomically.
func (s *Store) Save(ctx context.Context, cp *graph.Checkpoint) (string, error) {
	if cp == nil {
		return "", &graph.CheckpointError{Message: "cannot save a nil checkpoint"}
	}
	data, err := s.serializer.Marshal(cp)
	if err != nil {
		return "", &graph.CheckpointError{Message: "serialize failed", CheckpointID: cp.ID, Err: err}
	}
	// Overwrite of an existing id may move the checkpoint between runs or
	// graphs; read the old record to fix the indexes.
	old, err := s.load(ctx, cp.ID)
	if err != nil && !errors.Is(err, graph.ErrCheckpointNotFound) {
		return "", &graph.CheckpointError{Message: "read before save failed", CheckpointID: cp.ID, Err: err}
	}

	pipe := s.client.TxPipeline()
	if old != nil && (old.RunID != cp.RunID || old.GraphID != cp.GraphID) {
		pipe.SRem(ctx, runIndexKey(old.RunID), cp.ID)
		pipe.SRem(ctx, graphIndexKey(old.GraphID), cp.ID)
	}
	pipe.Set(ctx, checkpointKey(cp.ID), data, 0)
	pipe.SAdd(ctx, runIndexKey(cp.RunID), cp.ID)
	pipe.SAdd(ctx, graphIndexKey(cp.GraphID), cp.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", &graph.CheckpointError{Message: "save failed", CheckpointID: cp.ID, Err: err}
	}
	return cp.ID, nil
}

// Load returns the checkpoint with the given id.
func (s *Store) Load(ctx context.Context, id string) (*graph.Checkpoint, error) {
	cp, err := s.load(ctx, id)
	if err != nil {
		return nil, &graph.CheckpointError{Message: "load failed", CheckpointID: id, Err: err}
	}
	return cp, nil
}

func (s *Store) load(ctx context.Context, id string) (*graph.Checkpoint, error) {
	data, err := s.client.Get(ctx, checkpointKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, graph.ErrCheckpointNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.serializer.Unmarshal(data)
}

// ListByRun returns the checkpoints of a run, newest first.
func (s *Store) ListByRun(ctx context.Context, runID string) ([]*graph.Checkpoint, error) {
	return s.list(ctx, runIndexKey(runID))
}

// ListByGraph returns the checkpoints of a graph, newest first.
func (s *Store) ListByGraph(ctx context.Context, graphID string) ([]*graph.Checkpoint, error) {
	return s.list(ctx, graphIndexKey(graphID))
}

func (s *Store) list(ctx context.Context, indexKey string) ([]*graph.Checkpoint, error) {
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, &graph.CheckpointError{Message: "list failed", Err: err}
	}
	out := make([]*graph.Checkpoint, 0, len(ids))
	for _, id := range ids {
		cp, err := s.load(ctx, id)
		if errors.Is(err, graph.ErrCheckpointNotFound) {
			// Stale index entry; self-heal.
			if serr := s.client.SRem(ctx, indexKey, id).Err(); serr != nil {
				log.Warnf("redis checkpoint store: cannot drop stale index entry %s: %v", id, serr)
			}
			continue
		}
		if err != nil {
			return nil, &graph.CheckpointError{Message: "list failed", CheckpointID: id, Err: err}
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// Delete removes the checkpoint from the primary store and both indexes.
func (s *Store) Delete(ctx context.Context, id string) error {
	cp, err := s.load(ctx, id)
	if errors.Is(err, graph.ErrCheckpointNotFound) {
		return nil
	}
	if err != nil {
		return &graph.CheckpointError{Message: "delete failed", CheckpointID: id, Err: err}
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, checkpointKey(id))
	pipe.SRem(ctx, runIndexKey(cp.RunID), id)
	pipe.SRem(ctx, graphIndexKey(cp.GraphID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return &graph.CheckpointError{Message: "delete failed", CheckpointID: id, Err: err}
	}
	return nil
}

// DeleteByRun removes all checkpoints of a run.
func (s *Store) DeleteByRun(ctx context.Context, runID string) error {
	ids, err := s.client.SMembers(ctx, runIndexKey(runID)).Result()
	if err != nil {
		return &graph.CheckpointError{Message: "delete by run failed", Err: err}
	}
	pipe := s.client.TxPipeline()
	for _, id := range ids {
		cp, err := s.load(ctx, id)
		if err == nil {
			pipe.SRem(ctx, graphIndexKey(cp.GraphID), id)
		}
		pipe.Del(ctx, checkpointKey(id))
	}
	pipe.Del(ctx, runIndexKey(runID))
	if _, err := pipe.Exec(ctx); err != nil {
		return &graph.CheckpointError{Message: "delete by run failed", Err: err}
	}
	return nil
}

// DeleteExpired removes expired checkpoints and returns the count.
// The scan walks the primary keyspace; eviction is best effort.
func (s *Store) DeleteExpired(ctx context.Context) (int, error) {
	var cursor uint64
	count := 0
	for {
		keys, next, err := s.client.Scan(ctx, cursor, keyPrefixCheckpoint+"*", 100).Result()
		if err != nil {
			return count, &graph.CheckpointError{Message: "scan failed", Err: err}
		}
		for _, key := range keys {
			id := key[len(keyPrefixCheckpoint):]
			cp, err := s.load(ctx, id)
			if err != nil {
				continue
			}
			if cp.IsExpired() {
				if err := s.Delete(ctx, id); err != nil {
					log.Warnf("redis checkpoint store: cannot evict %s: %v", id, err)
					continue
				}
				count++
			}
		}
		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
