//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	msg := New("client", "hello")
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "client", msg.From)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, TypeText, msg.Type)
	assert.Equal(t, StateReady, msg.State)
}

func TestWithDataDoesNotMutateOriginal(t *testing.T) {
	msg := New("client", "hello").WithData("a", 1)
	updated := msg.WithData("b", 2)

	assert.Len(t, msg.Data, 1)
	assert.Len(t, updated.Data, 2)
	assert.Equal(t, 1, updated.Data["a"])
}

func TestCloneIsDeep(t *testing.T) {
	msg := New("client", "hello").
		WithData("nested", map[string]any{"k": "v"}).
		WithToolCall(NewToolCall(FunctionRequestUserInput, map[string]any{"prompt_message": "?"}))
	clone := msg.Clone()

	clone.Data["nested"].(map[string]any)["k"] = "changed"
	clone.ToolCalls[0].Function.Arguments["prompt_message"] = "changed"

	assert.Equal(t, "v", msg.Data["nested"].(map[string]any)["k"])
	assert.Equal(t, "?", msg.ToolCalls[0].Function.Arguments["prompt_message"])
}

func TestWithDataMapMergesValues(t *testing.T) {
	msg := New("client", "hello").WithData("a", 1)
	updated := msg.WithDataMap(map[string]any{"a": 10, "b": 2})
	assert.Equal(t, 10, updated.Data["a"])
	assert.Equal(t, 2, updated.Data["b"])
}

func TestReplyInheritsContext(t *testing.T) {
	ac := NewAgentContext(map[string]string{ContextKeyTenantID: "acme"})
	msg := New("client", "hello").
		WithGraphID("g1").
		WithRunID("r1").
		WithNodeID("n1").
		WithAgentContext(ac)

	reply := msg.Reply("agent", "hi")
	assert.Equal(t, "g1", reply.GraphID)
	assert.Equal(t, "r1", reply.RunID)
	assert.Equal(t, "n1", reply.NodeID)
	assert.Equal(t, StateReady, reply.State)
	require.NotNil(t, reply.AgentContext)
	assert.Equal(t, "acme", reply.AgentContext.TenantID())
	assert.NotEqual(t, msg.ID, reply.ID)
}

func TestLastHITLRequestPicksNewest(t *testing.T) {
	first := NewToolCall(FunctionRequestUserInput, map[string]any{"prompt_message": "first"})
	second := NewToolCall(FunctionRequestUserSelection, map[string]any{"prompt_message": "second"})
	msg := New("client", "hello").WithToolCall(first).WithToolCall(second)

	req := msg.LastHITLRequest()
	require.NotNil(t, req)
	assert.Equal(t, second.ID, req.ID)
}

func TestIsPendingHITL(t *testing.T) {
	msg := New("client", "hello")
	assert.False(t, msg.IsPendingHITL())

	req := NewToolCall(FunctionRequestUserInput, nil)
	pending := msg.WithToolCall(req)
	assert.True(t, pending.IsPendingHITL())

	answered := pending.WithToolCall(NewToolCall(FunctionUserResponse, map[string]any{"text": "yes"}))
	assert.False(t, answered.IsPendingHITL())
	require.NotNil(t, answered.LastUserResponse())

	// A new request after a response is pending again.
	reasked := answered.WithToolCall(NewToolCall(FunctionRequestUserConfirmation, nil))
	assert.True(t, reasked.IsPendingHITL())
}

func TestMessageJSONRoundTrip(t *testing.T) {
	msg := New("client", "hello").
		WithData("key", "value").
		WithAgentContext(NewAgentContext(map[string]string{ContextKeyTenantID: "acme"}))
	running, err := msg.TransitionTo(StateRunning, "started", "entry")
	require.NoError(t, err)

	data, err := json.Marshal(running)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, running.ID, decoded.ID)
	assert.Equal(t, StateRunning, decoded.State)
	assert.Equal(t, "value", decoded.Data["key"])
	require.Len(t, decoded.StateHistory, 1)
	assert.Equal(t, "started", decoded.StateHistory[0].Reason)
	require.NotNil(t, decoded.AgentContext)
	assert.Equal(t, "acme", decoded.AgentContext.TenantID())
}
