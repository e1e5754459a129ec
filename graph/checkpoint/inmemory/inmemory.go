//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides the reference in-memory checkpoint store.
// It is suitable for testing and single-process deployments.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-flow-go/graph"
	"trpc.group/trpc-go/trpc-flow-go/log"
)

// Store is an in-memory graph.CheckpointStore. Checkpoints are kept in a
// primary map keyed by id, with secondary indexes from run id and graph id
// to id sets. All three are updated under one lock so a checkpoint is
// either present everywhere or nowhere.
type Store struct {
	mu          sync.RWMutex
	checkpoints map[string]*graph.Checkpoint
	byRun       map[string]map[string]struct{}
	byGraph     map[string]map[string]struct{}
}

// New creates an empty store.
func New() *Store {
	return &Store{
		checkpoints: make(map[string]*graph.Checkpoint),
		byRun:       make(map[string]map[string]struct{}),
		byGraph:     make(map[string]map[string]struct{}),
	}
}

// Save writes the checkpoint and returns its id. Saving an existing id
// overwrites it and reindexes as needed.
func (s *Store) Save(_ context.Context, cp *graph.Checkpoint) (string, error) {
	if cp == nil {
		return "", &graph.CheckpointError{Message: "cannot save a nil checkpoint"}
	}
	if cp.ID == "" {
		return "", &graph.CheckpointError{Message: "checkpoint has no id"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.checkpoints[cp.ID]; ok {
		s.unindex(old)
	}
	stored := cp.Clone()
	s.checkpoints[stored.ID] = stored
	s.index(stored)
	return stored.ID, nil
}

// Load returns the checkpoint with the given id.
func (s *Store) Load(_ context.Context, id string) (*graph.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.checkpoints[id]
	if !ok {
		return nil, &graph.CheckpointError{
			Message:      "load failed",
			CheckpointID: id,
			Err:          graph.ErrCheckpointNotFound,
		}
	}
	return cp.Clone(), nil
}

// ListByRun returns the checkpoints of a run, newest first.
func (s *Store) ListByRun(_ context.Context, runID string) ([]*graph.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byRun[runID]), nil
}

// ListByGraph returns the checkpoints of a graph, newest first.
func (s *Store) ListByGraph(_ context.Context, graphID string) ([]*graph.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byGraph[graphID]), nil
}

// Delete removes the checkpoint from the primary store and both indexes.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(id)
	return nil
}

// DeleteByRun removes all checkpoints of a run.
func (s *Store) DeleteByRun(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.byRun[runID] {
		s.remove(id)
	}
	return nil
}

// DeleteExpired removes expired checkpoints and returns the count.
func (s *Store) DeleteExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, cp := range s.checkpoints {
		if cp.IsExpired() {
			s.remove(id)
			count++
		}
	}
	return count, nil
}

// StartReaper periodically evicts expired checkpoints until ctx is done.
func (s *Store) StartReaper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				count, err := s.DeleteExpired(ctx)
				if err != nil {
					log.Warnf("checkpoint reaper: %v", err)
					continue
				}
				if count > 0 {
					log.Debugf("checkpoint reaper evicted %d checkpoints", count)
				}
			}
		}
	}()
}

// Size returns the number of stored checkpoints. Testing helper.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.checkpoints)
}

// Clear removes everything. Testing helper.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints = make(map[string]*graph.Checkpoint)
	s.byRun = make(map[string]map[string]struct{})
	s.byGraph = make(map[string]map[string]struct{})
}

func (s *Store) collect(ids map[string]struct{}) []*graph.Checkpoint {
	out := make([]*graph.Checkpoint, 0, len(ids))
	for id := range ids {
		if cp, ok := s.checkpoints[id]; ok {
			out = append(out, cp.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func (s *Store) index(cp *graph.Checkpoint) {
	if s.byRun[cp.RunID] == nil {
		s.byRun[cp.RunID] = make(map[string]struct{})
	}
	s.byRun[cp.RunID][cp.ID] = struct{}{}
	if s.byGraph[cp.GraphID] == nil {
		s.byGraph[cp.GraphID] = make(map[string]struct{})
	}
	s.byGraph[cp.GraphID][cp.ID] = struct{}{}
}

func (s *Store) unindex(cp *graph.Checkpoint) {
	if ids, ok := s.byRun[cp.RunID]; ok {
		delete(ids, cp.ID)
		if len(ids) == 0 {
			delete(s.byRun, cp.RunID)
		}
	}
	if ids, ok := s.byGraph[cp.GraphID]; ok {
		delete(ids, cp.ID)
		if len(ids) == 0 {
			delete(s.byGraph, cp.GraphID)
		}
	}
}

func (s *Store) remove(id string) {
	cp, ok := s.checkpoints[id]
	if !ok {
		return
	}
	delete(s.checkpoints, id)
	s.unindex(cp)
}
