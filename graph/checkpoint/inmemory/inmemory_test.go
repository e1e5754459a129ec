//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package inmemory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-flow-go/graph"
	"trpc.group/trpc-go/trpc-flow-go/message"
)

func testCheckpoint(runID, graphID string) *graph.Checkpoint {
	return &graph.Checkpoint{
		ID:             graph.NewCheckpointID(),
		RunID:          runID,
		GraphID:        graphID,
		CurrentNodeID:  "node",
		State:          map[string]any{"k": "v"},
		Metadata:       map[string]any{},
		Message:        message.New("client", "hello"),
		ExecutionState: graph.ExecStateWaitingForHuman,
		Timestamp:      time.Now().UTC(),
	}
}

func TestSaveAndLoad(t *testing.T) {
	store := New()
	ctx := context.Background()
	cp := testCheckpoint("r1", "g1")

	id, err := store.Save(ctx, cp)
	require.NoError(t, err)
	assert.Equal(t, cp.ID, id)

	loaded, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, cp.RunID, loaded.RunID)
	assert.Equal(t, "v", loaded.State["k"])

	// The stored copy is isolated from later mutations.
	loaded.State["k"] = "changed"
	again, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "v", again.State["k"])
}

func TestSaveValidation(t *testing.T) {
	store := New()
	_, err := store.Save(context.Background(), nil)
	require.Error(t, err)
	_, err = store.Save(context.Background(), &graph.Checkpoint{})
	require.Error(t, err)
}

func TestLoadMissing(t *testing.T) {
	store := New()
	_, err := store.Load(context.Background(), "cp_0_0")
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrCheckpointNotFound)
}

func TestListByRunNewestFirst(t *testing.T) {
	store := New()
	ctx := context.Background()

	older := testCheckpoint("r1", "g1")
	older.Timestamp = time.Now().Add(-time.Hour)
	newer := testCheckpoint("r1", "g1")
	other := testCheckpoint("r2", "g1")

	for _, cp := range []*graph.Checkpoint{older, newer, other} {
		_, err := store.Save(ctx, cp)
		require.NoError(t, err)
	}

	list, err := store.ListByRun(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	empty, err := store.ListByRun(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestListByGraph(t *testing.T) {
	store := New()
	ctx := context.Background()
	_, err := store.Save(ctx, testCheckpoint("r1", "g1"))
	require.NoError(t, err)
	_, err = store.Save(ctx, testCheckpoint("r2", "g1"))
	require.NoError(t, err)
	_, err = store.Save(ctx, testCheckpoint("r3", "g2"))
	require.NoError(t, err)

	list, err := store.ListByGraph(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestOverwriteReindexes(t *testing.T) {
	store := New()
	ctx := context.Background()
	cp := testCheckpoint("r1", "g1")
	_, err := store.Save(ctx, cp)
	require.NoError(t, err)

	moved := cp.Clone()
	moved.RunID = "r2"
	_, err = store.Save(ctx, moved)
	require.NoError(t, err)

	assert.Equal(t, 1, store.Size())
	list, err := store.ListByRun(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = store.ListByRun(ctx, "r2")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDelete(t *testing.T) {
	store := New()
	ctx := context.Background()
	cp := testCheckpoint("r1", "g1")
	_, err := store.Save(ctx, cp)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, cp.ID))
	_, err = store.Load(ctx, cp.ID)
	assert.ErrorIs(t, err, graph.ErrCheckpointNotFound)

	list, err := store.ListByRun(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, list)

	// Deleting a missing id is not an error.
	assert.NoError(t, store.Delete(ctx, "cp_0_0"))
}

func TestDeleteByRun(t *testing.T) {
	store := New()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := store.Save(ctx, testCheckpoint("r1", "g1"))
		require.NoError(t, err)
	}
	_, err := store.Save(ctx, testCheckpoint("r2", "g1"))
	require.NoError(t, err)

	require.NoError(t, store.DeleteByRun(ctx, "r1"))
	assert.Equal(t, 1, store.Size())
	list, err := store.ListByGraph(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDeleteExpired(t *testing.T) {
	store := New()
	ctx := context.Background()

	expired := testCheckpoint("r1", "g1")
	past := time.Now().Add(-time.Minute)
	expired.ExpiresAt = &past

	fresh := testCheckpoint("r1", "g1")
	fresh.WithExpiry(time.Hour)

	forever := testCheckpoint("r1", "g1")

	for _, cp := range []*graph.Checkpoint{expired, fresh, forever} {
		_, err := store.Save(ctx, cp)
		require.NoError(t, err)
	}

	count, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 2, store.Size())
	_, err = store.Load(ctx, expired.ID)
	assert.ErrorIs(t, err, graph.ErrCheckpointNotFound)
}

func TestStartReaper(t *testing.T) {
	store := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expired := testCheckpoint("r1", "g1")
	past := time.Now().Add(-time.Minute)
	expired.ExpiresAt = &past
	_, err := store.Save(ctx, expired)
	require.NoError(t, err)

	store.StartReaper(ctx, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return store.Size() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestConcurrentAccess(t *testing.T) {
	store := New()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			runID := fmt.Sprintf("r%d", n%3)
			for j := 0; j < 20; j++ {
				cp := testCheckpoint(runID, "g1")
				if _, err := store.Save(ctx, cp); err != nil {
					t.Error(err)
					return
				}
				if _, err := store.Load(ctx, cp.ID); err != nil {
					t.Error(err)
					return
				}
				if _, err := store.ListByRun(ctx, runID); err != nil {
					t.Error(err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 200, store.Size())
}
