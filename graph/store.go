//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package graph

import "context"

// CheckpointStore persists checkpoints, indexed by run id and graph id.
//
// Implementations keep the primary storage and both indexes consistent
// under every operation: a checkpoint is either present in all three or
// absent from all three. Saving an existing id overwrites without
// duplicating index entries. All operations are safe under concurrent
// access.
type CheckpointStore interface {
	// Save writes the checkpoint and returns its id.
	Save(ctx context.Context, cp *Checkpoint) (string, error)
	// Load returns the checkpoint with the given id, or
	// ErrCheckpointNotFound.
	Load(ctx context.Context, id string) (*Checkpoint, error)
	// ListByRun returns the checkpoints of a run, newest first.
	ListByRun(ctx context.Context, runID string) ([]*Checkpoint, error)
	// ListByGraph returns the checkpoints of a graph, newest first.
	ListByGraph(ctx context.Context, graphID string) ([]*Checkpoint, error)
	// Delete removes the checkpoint from the primary store and both
	// indexes. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
	// DeleteByRun removes all checkpoints of a run.
	DeleteByRun(ctx context.Context, runID string) error
}

// ExpiringCheckpointStore is implemented by stores that support eviction of
// expired checkpoints. Expiration is otherwise checked lazily on access.
type ExpiringCheckpointStore interface {
	CheckpointStore
	// DeleteExpired removes expired checkpoints and returns the count.
	DeleteExpired(ctx context.Context) (int, error)
}
