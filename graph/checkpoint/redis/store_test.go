//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-flow-go/graph"
	"trpc.group/trpc-go/trpc-flow-go/message"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := New(WithClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()})))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

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

func TestNewRequiresClientOrURL(t *testing.T) {
	_, err := New()
	require.Error(t, err)
	_, err = New(WithClientURL("://not-a-url"))
	require.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	cp := testCheckpoint("r1", "g1")

	id, err := store.Save(ctx, cp)
	require.NoError(t, err)
	assert.Equal(t, cp.ID, id)

	loaded, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "r1", loaded.RunID)
	assert.Equal(t, "v", loaded.State["k"])
	require.NotNil(t, loaded.Message)
	assert.Equal(t, "hello", loaded.Message.Content)
}

func TestLoadMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Load(context.Background(), "cp_0_0")
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrCheckpointNotFound)
}

func TestSaveNil(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Save(context.Background(), nil)
	require.Error(t, err)
}

func TestListByRunNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := testCheckpoint("r1", "g1")
	older.Timestamp = time.Now().Add(-time.Hour).UTC()
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
}

func TestListByGraph(t *testing.T) {
	store := newTestStore(t)
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

func TestOverwriteMovesIndexes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	cp := testCheckpoint("r1", "g1")
	_, err := store.Save(ctx, cp)
	require.NoError(t, err)

	moved := cp.Clone()
	moved.RunID = "r2"
	_, err = store.Save(ctx, moved)
	require.NoError(t, err)

	list, err := store.ListByRun(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = store.ListByRun(ctx, "r2")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
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

	assert.NoError(t, store.Delete(ctx, "cp_0_0"))
}

func TestDeleteByRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := store.Save(ctx, testCheckpoint("r1", "g1"))
		require.NoError(t, err)
	}
	keep := testCheckpoint("r2", "g1")
	_, err := store.Save(ctx, keep)
	require.NoError(t, err)

	require.NoError(t, store.DeleteByRun(ctx, "r1"))
	list, err := store.ListByRun(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = store.ListByGraph(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)
}

func TestDeleteExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	expired := testCheckpoint("r1", "g1")
	past := time.Now().Add(-time.Minute).UTC()
	expired.ExpiresAt = &past

	fresh := testCheckpoint("r1", "g1")
	fresh.WithExpiry(time.Hour)

	_, err := store.Save(ctx, expired)
	require.NoError(t, err)
	_, err = store.Save(ctx, fresh)
	require.NoError(t, err)

	count, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	_, err = store.Load(ctx, expired.ID)
	assert.ErrorIs(t, err, graph.ErrCheckpointNotFound)
	_, err = store.Load(ctx, fresh.ID)
	assert.NoError(t, err)
}
