//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"fmt"
	"math/rand"
	"time"

	"trpc.group/trpc-go/trpc-flow-go/message"
)

// ExecutionState is the graph-level state recorded on a checkpoint.
type ExecutionState string

const (
	// ExecStateRunning indicates the run was in progress.
	ExecStateRunning ExecutionState = "RUNNING"
	// ExecStateWaitingForHuman indicates the run paused on human input.
	ExecStateWaitingForHuman ExecutionState = "WAITING_FOR_HUMAN"
	// ExecStateCompleted indicates the run finished successfully.
	ExecStateCompleted ExecutionState = "COMPLETED"
	// ExecStateFailed indicates the run failed.
	ExecStateFailed ExecutionState = "FAILED"
	// ExecStateCancelled indicates the run was cancelled by the caller.
	ExecStateCancelled ExecutionState = "CANCELLED"
)

// Checkpoint is a durable snapshot of a run at a pause point.
type Checkpoint struct {
	// ID is the unique checkpoint identifier, "cp_<epochMillis>_<rand>".
	ID string `json:"id"`
	// RunID identifies the run the checkpoint belongs to.
	RunID string `json:"runId"`
	// GraphID identifies the executed graph.
	GraphID string `json:"graphId"`
	// CurrentNodeID is the node at which the run paused.
	CurrentNodeID string `json:"currentNodeId"`
	// State carries the message data at checkpoint time.
	State map[string]any `json:"state"`
	// Metadata carries checkpoint bookkeeping values.
	Metadata map[string]any `json:"metadata"`
	// Message is the full paused message, if captured.
	Message *message.Message `json:"message"`
	// ExecutionState is the graph-level state.
	ExecutionState ExecutionState `json:"executionState"`
	// PendingToolCall is the most recent unanswered request-* tool call.
	PendingToolCall *message.ToolCall `json:"pendingToolCall"`
	// ResponseToolCall is set after resumption with a user response.
	ResponseToolCall *message.ToolCall `json:"responseToolCall"`
	// Timestamp is when the checkpoint was created.
	Timestamp time.Time `json:"timestamp"`
	// ExpiresAt is when the checkpoint stops being resumable. Nil means
	// it never expires.
	ExpiresAt *time.Time `json:"expiresAt"`
}

// NewCheckpointID generates a checkpoint identifier of the form
// cp_<decimal epoch milliseconds>_<decimal random below 1000000>.
func NewCheckpointID() string {
	return fmt.Sprintf("cp_%d_%d", time.Now().UnixMilli(), rand.Intn(1000000))
}

// CheckpointFromMessage captures a checkpoint from a message. A WAITING
// message must carry a node id; the pending tool call is the most recent
// request-* call on the message.
func CheckpointFromMessage(msg *message.Message, graphID, runID string) (*Checkpoint, error) {
	if msg == nil {
		return nil, &ValidationError{Message: "cannot checkpoint a nil message"}
	}
	if msg.State == message.StateWaiting && msg.NodeID == "" {
		return nil, &ValidationError{Message: "waiting message has no node id"}
	}
	cp := &Checkpoint{
		ID:              NewCheckpointID(),
		RunID:           runID,
		GraphID:         graphID,
		CurrentNodeID:   msg.NodeID,
		State:           msg.Clone().Data,
		Metadata:        make(map[string]any),
		Message:         msg.Clone(),
		ExecutionState:  executionStateOf(msg.State),
		PendingToolCall: msg.LastHITLRequest(),
		Timestamp:       time.Now().UTC(),
	}
	return cp, nil
}

func executionStateOf(s message.State) ExecutionState {
	switch s {
	case message.StateWaiting:
		return ExecStateWaitingForHuman
	case message.StateCompleted:
		return ExecStateCompleted
	case message.StateFailed:
		return ExecStateFailed
	default:
		return ExecStateRunning
	}
}

// IsExpired reports whether the checkpoint is past its expiry. A checkpoint
// whose ExpiresAt equals the current instant is already expired.
func (c *Checkpoint) IsExpired() bool {
	return c.ExpiresAt != nil && !time.Now().Before(*c.ExpiresAt)
}

// WithExpiry returns the checkpoint with ExpiresAt set to now+ttl.
// A non-positive ttl clears the expiry.
func (c *Checkpoint) WithExpiry(ttl time.Duration) *Checkpoint {
	if ttl <= 0 {
		c.ExpiresAt = nil
		return c
	}
	expires := time.Now().UTC().Add(ttl)
	c.ExpiresAt = &expires
	return c
}

// Clone returns a deep copy of the checkpoint. The copy keeps the same ID;
// saving it overwrites the original.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	clone := *c
	clone.State = cloneValueMap(c.State)
	clone.Metadata = cloneValueMap(c.Metadata)
	clone.Message = c.Message.Clone()
	if c.PendingToolCall != nil {
		tc := c.PendingToolCall.Clone()
		clone.PendingToolCall = &tc
	}
	if c.ResponseToolCall != nil {
		tc := c.ResponseToolCall.Clone()
		clone.ResponseToolCall = &tc
	}
	if c.ExpiresAt != nil {
		expires := *c.ExpiresAt
		clone.ExpiresAt = &expires
	}
	return &clone
}

func cloneValueMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return cloneValueMap(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
