//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package event defines the execution events emitted by the graph runner
// and the emitter interface callers implement to observe them.
package event

import (
	"context"
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-flow-go/message"
)

// Type classifies an execution event.
type Type string

const (
	// TypeNodeStart fires before a node executes.
	TypeNodeStart Type = "node.start"
	// TypeNodeComplete fires after a node executed successfully.
	TypeNodeComplete Type = "node.complete"
	// TypeGraphCompleted fires when a run reaches COMPLETED.
	TypeGraphCompleted Type = "graph.completed"
	// TypeToolCallCompleted fires when a pending human-in-the-loop tool
	// call is answered during resumption.
	TypeToolCallCompleted Type = "tool_call.completed"
)

// Payload keys of TypeToolCallCompleted events.
const (
	// KeyOriginalEventID is the id of the pending request tool call.
	KeyOriginalEventID = "originalEventId"
	// KeyResponseEventID is the id of the answering user_response call.
	KeyResponseEventID = "responseEventId"
	// KeyDurationMillis is the elapsed time between checkpoint and answer.
	KeyDurationMillis = "durationMs"
)

// Event is one observation of graph execution.
type Event struct {
	// ID is the unique identifier of the event.
	ID string `json:"id"`
	// Type classifies the event.
	Type Type `json:"type"`
	// RunID identifies the run that produced the event.
	RunID string `json:"runId,omitempty"`
	// GraphID identifies the executed graph.
	GraphID string `json:"graphId,omitempty"`
	// NodeID identifies the node the event concerns, if any.
	NodeID string `json:"nodeId,omitempty"`
	// Timestamp is when the event was created.
	Timestamp time.Time `json:"timestamp"`
	// Payload carries event-specific details.
	Payload map[string]any `json:"payload,omitempty"`
}

// New creates an event with a generated id and the current timestamp.
func New(t Type, runID, graphID, nodeID string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      t,
		RunID:     runID,
		GraphID:   graphID,
		NodeID:    nodeID,
		Timestamp: time.Now().UTC(),
	}
}

// NewToolCallCompleted creates the event emitted when a pending tool call
// is answered. original is the request-* call, response the user_response
// call, elapsed the time between checkpoint creation and resumption.
func NewToolCallCompleted(runID, graphID, nodeID string,
	original, response message.ToolCall, elapsed time.Duration) *Event {
	evt := New(TypeToolCallCompleted, runID, graphID, nodeID)
	evt.Payload = map[string]any{
		KeyOriginalEventID: original.ID,
		KeyResponseEventID: response.ID,
		KeyDurationMillis:  elapsed.Milliseconds(),
		"originalToolCall": original,
		"responseToolCall": response,
	}
	return evt
}

// Emitter receives execution events. Implementations must be safe for
// concurrent use; emission is best-effort and must not block the run for
// long.
type Emitter interface {
	Emit(ctx context.Context, evt *Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ctx context.Context, evt *Event)

// Emit implements Emitter.
func (f EmitterFunc) Emit(ctx context.Context, evt *Event) { f(ctx, evt) }

// NopEmitter discards every event.
var NopEmitter Emitter = EmitterFunc(func(context.Context, *Event) {})
