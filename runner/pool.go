//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package runner

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-flow-go/graph"
	"trpc.group/trpc-go/trpc-flow-go/message"
)

// RunResult is the outcome of one pooled run.
type RunResult struct {
	// Message is the final message of the run.
	Message *message.Message
	// Checkpoint is the saved pause checkpoint, if the run paused.
	Checkpoint *graph.Checkpoint
	// Err is the execution error, if any.
	Err error
}

// Pool drives multiple runs concurrently over a bounded goroutine pool.
// Submission order is not execution order.
type Pool struct {
	runner *Runner
	pool   *ants.Pool
	wg     sync.WaitGroup
}

// NewPool creates a pool executing at most size runs concurrently.
func NewPool(r *Runner, size int) (*Pool, error) {
	p, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	return &Pool{runner: r, pool: p}, nil
}

// Submit schedules one checkpoint-aware run. done is invoked with the
// outcome from the worker goroutine; it may be nil.
func (p *Pool) Submit(ctx context.Context, g *graph.Graph, msg *message.Message, done func(RunResult)) error {
	p.wg.Add(1)
	err := p.pool.Submit(func() {
		defer p.wg.Done()
		result, cp, execErr := p.runner.ExecuteWithCheckpoint(ctx, g, msg)
		if done != nil {
			done(RunResult{Message: result, Checkpoint: cp, Err: execErr})
		}
	})
	if err != nil {
		p.wg.Done()
		return err
	}
	return nil
}

// Wait blocks until every submitted run finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Release waits for in-flight runs and shuts the pool down.
func (p *Pool) Release() {
	p.wg.Wait()
	p.pool.Release()
}
