//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package message provides the immutable message type that flows through a
// graph, together with its lifecycle state machine.
package message

import (
	"time"

	"github.com/google/uuid"
)

// Type represents the kind of payload a message carries.
type Type string

const (
	// TypeText is a plain text message.
	TypeText Type = "TEXT"
	// TypeToolCall is a message that requests a tool invocation.
	TypeToolCall Type = "TOOL_CALL"
	// TypeToolResult is a message that carries a tool result.
	TypeToolResult Type = "TOOL_RESULT"
	// TypeSystem is a system message.
	TypeSystem Type = "SYSTEM"
	// TypeError is an error message.
	TypeError Type = "ERROR"
)

// Message is the unit of work driven through a graph.
//
// Messages are immutable: every mutation produces a new message, and a new
// StateHistory entry whenever the state changed. Fields are exported for
// serialization only and must not be mutated in place.
type Message struct {
	// ID is an opaque unique identifier.
	ID string `json:"id"`
	// From is the identifier of the originating actor.
	From string `json:"from"`
	// Content is the primary text payload.
	Content string `json:"content"`
	// Type is the message type.
	Type Type `json:"type"`
	// Data carries arbitrary structured values keyed by string.
	Data map[string]any `json:"data,omitempty"`
	// Metadata carries tracing and tenant-scoping values.
	Metadata map[string]any `json:"metadata,omitempty"`
	// ToolCalls is the ordered sequence of tool calls recorded on the message.
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
	// State is the current lifecycle state.
	State State `json:"state"`
	// StateHistory is the append-only record of prior transitions.
	StateHistory []StateTransition `json:"stateHistory,omitempty"`
	// GraphID identifies the graph being executed.
	GraphID string `json:"graphId,omitempty"`
	// NodeID identifies the node the message currently points at.
	NodeID string `json:"nodeId,omitempty"`
	// RunID uniquely identifies one execution of one graph. Stable across
	// all transitions of that execution.
	RunID string `json:"runId,omitempty"`
	// AgentContext carries tenant/user/session/correlation identifiers.
	AgentContext *AgentContext `json:"agentContext,omitempty"`
}

// New creates a READY text message.
func New(from, content string) *Message {
	return &Message{
		ID:      uuid.New().String(),
		From:    from,
		Content: content,
		Type:    TypeText,
		State:   StateReady,
	}
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	clone := *m
	clone.Data = cloneAnyMap(m.Data)
	clone.Metadata = cloneAnyMap(m.Metadata)
	if m.ToolCalls != nil {
		clone.ToolCalls = make([]ToolCall, 0, len(m.ToolCalls))
		for _, tc := range m.ToolCalls {
			clone.ToolCalls = append(clone.ToolCalls, tc.Clone())
		}
	}
	if m.StateHistory != nil {
		clone.StateHistory = make([]StateTransition, len(m.StateHistory))
		copy(clone.StateHistory, m.StateHistory)
	}
	if m.AgentContext != nil {
		clone.AgentContext = NewAgentContext(m.AgentContext.Values())
	}
	return &clone
}

// TransitionTo returns a new message in the target state with a transition
// appended to the history. The timestamp is assigned here, not by the caller.
// It returns an InvalidTransitionError when the transition is not legal.
func (m *Message) TransitionTo(target State, reason, nodeID string) (*Message, error) {
	if !m.State.CanTransitionTo(target) {
		return nil, &InvalidTransitionError{From: m.State, To: target}
	}
	clone := m.Clone()
	clone.StateHistory = append(clone.StateHistory, StateTransition{
		From:      m.State,
		To:        target,
		Timestamp: time.Now().UTC(),
		Reason:    reason,
		NodeID:    nodeID,
	})
	clone.State = target
	return clone, nil
}

// WithContent returns a copy with the content replaced.
func (m *Message) WithContent(content string) *Message {
	clone := m.Clone()
	clone.Content = content
	return clone
}

// WithData returns a copy with one data value set.
func (m *Message) WithData(key string, value any) *Message {
	clone := m.Clone()
	if clone.Data == nil {
		clone.Data = make(map[string]any)
	}
	clone.Data[key] = value
	return clone
}

// WithDataMap returns a copy with all given values merged into data.
func (m *Message) WithDataMap(values map[string]any) *Message {
	clone := m.Clone()
	if clone.Data == nil {
		clone.Data = make(map[string]any, len(values))
	}
	for k, v := range values {
		clone.Data[k] = v
	}
	return clone
}

// WithMetadata returns a copy with one metadata value set.
func (m *Message) WithMetadata(key string, value any) *Message {
	clone := m.Clone()
	if clone.Metadata == nil {
		clone.Metadata = make(map[string]any)
	}
	clone.Metadata[key] = value
	return clone
}

// WithToolCall returns a copy with the tool call appended.
func (m *Message) WithToolCall(tc ToolCall) *Message {
	clone := m.Clone()
	clone.ToolCalls = append(clone.ToolCalls, tc.Clone())
	return clone
}

// WithToolCalls returns a copy with all given tool calls appended.
func (m *Message) WithToolCalls(tcs []ToolCall) *Message {
	clone := m.Clone()
	for _, tc := range tcs {
		clone.ToolCalls = append(clone.ToolCalls, tc.Clone())
	}
	return clone
}

// WithGraphID returns a copy bound to the given graph.
func (m *Message) WithGraphID(graphID string) *Message {
	clone := m.Clone()
	clone.GraphID = graphID
	return clone
}

// WithNodeID returns a copy pointing at the given node.
func (m *Message) WithNodeID(nodeID string) *Message {
	clone := m.Clone()
	clone.NodeID = nodeID
	return clone
}

// WithRunID returns a copy bound to the given run.
func (m *Message) WithRunID(runID string) *Message {
	clone := m.Clone()
	clone.RunID = runID
	return clone
}

// WithAgentContext returns a copy carrying the given agent context.
func (m *Message) WithAgentContext(ac *AgentContext) *Message {
	clone := m.Clone()
	clone.AgentContext = ac
	return clone
}

// Reply creates a READY reply message that inherits the graph context and
// agent context of m.
func (m *Message) Reply(from, content string) *Message {
	reply := New(from, content)
	reply.GraphID = m.GraphID
	reply.NodeID = m.NodeID
	reply.RunID = m.RunID
	if m.AgentContext != nil {
		reply.AgentContext = NewAgentContext(m.AgentContext.Values())
	}
	return reply
}

// LastHITLRequest returns the most recent tool call whose function name is
// one of the three request-* names, or nil if none exists. The last call
// wins so that retry loops that accumulate requests resolve to the newest.
func (m *Message) LastHITLRequest() *ToolCall {
	for i := len(m.ToolCalls) - 1; i >= 0; i-- {
		if m.ToolCalls[i].IsHITLRequest() {
			tc := m.ToolCalls[i].Clone()
			return &tc
		}
	}
	return nil
}

// LastUserResponse returns the most recent user_response tool call, or nil.
func (m *Message) LastUserResponse() *ToolCall {
	for i := len(m.ToolCalls) - 1; i >= 0; i-- {
		if m.ToolCalls[i].IsUserResponse() {
			tc := m.ToolCalls[i].Clone()
			return &tc
		}
	}
	return nil
}

// IsPendingHITL reports whether the message carries a human-in-the-loop
// request that has not yet been answered: there is at least one request-*
// tool call and no user_response recorded after the last of them.
func (m *Message) IsPendingHITL() bool {
	lastRequest := -1
	lastResponse := -1
	for i, tc := range m.ToolCalls {
		if tc.IsHITLRequest() {
			lastRequest = i
		}
		if tc.IsUserResponse() {
			lastResponse = i
		}
	}
	return lastRequest >= 0 && lastResponse < lastRequest
}

func cloneAnyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneAnyValue(v)
	}
	return out
}

func cloneAnyValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return cloneAnyMap(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = cloneAnyValue(e)
		}
		return out
	default:
		return v
	}
}
