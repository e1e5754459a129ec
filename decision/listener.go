//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package decision

import (
	"time"

	"trpc.group/trpc-go/trpc-flow-go/message"
)

// Listener observes the lifecycle of a decision-node execution. All hooks
// are optional and must not panic; the runner guards against misbehaving
// implementations but treats a panic as a listener bug.
type Listener interface {
	// OnDecisionStart fires before the engine evaluates.
	OnDecisionStart(nodeID string, msg *message.Message)
	// OnDecisionComplete fires after a target was resolved.
	OnDecisionComplete(nodeID string, result *Result, target string, elapsed time.Duration)
	// OnDecisionError fires when the engine fails or no route exists.
	OnDecisionError(nodeID string, err error, elapsed time.Duration)
	// OnDecisionFallback fires when the fallback target was used.
	OnDecisionFallback(nodeID string, resultID, target string, elapsed time.Duration)
}

// NoopListener is a Listener that ignores every hook.
type NoopListener struct{}

// OnDecisionStart implements Listener.
func (NoopListener) OnDecisionStart(string, *message.Message) {}

// OnDecisionComplete implements Listener.
func (NoopListener) OnDecisionComplete(string, *Result, string, time.Duration) {}

// OnDecisionError implements Listener.
func (NoopListener) OnDecisionError(string, error, time.Duration) {}

// OnDecisionFallback implements Listener.
func (NoopListener) OnDecisionFallback(string, string, string, time.Duration) {}
