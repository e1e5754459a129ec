//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-flow-go/message"
)

func TestNewEvent(t *testing.T) {
	evt := New(TypeNodeStart, "r1", "g1", "n1")
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, TypeNodeStart, evt.Type)
	assert.Equal(t, "r1", evt.RunID)
	assert.Equal(t, "g1", evt.GraphID)
	assert.Equal(t, "n1", evt.NodeID)
	assert.False(t, evt.Timestamp.IsZero())

	other := New(TypeNodeStart, "r1", "g1", "n1")
	assert.NotEqual(t, evt.ID, other.ID)
}

func TestNewToolCallCompleted(t *testing.T) {
	original := message.NewToolCall(message.FunctionRequestUserInput, nil)
	response := message.NewToolCall(message.FunctionUserResponse, nil)

	evt := NewToolCallCompleted("r1", "g1", "ask", original, response, 1500*time.Millisecond)
	assert.Equal(t, TypeToolCallCompleted, evt.Type)
	assert.Equal(t, original.ID, evt.Payload[KeyOriginalEventID])
	assert.Equal(t, response.ID, evt.Payload[KeyResponseEventID])
	assert.Equal(t, int64(1500), evt.Payload[KeyDurationMillis])
}

func TestEmitterFunc(t *testing.T) {
	var got *Event
	emitter := EmitterFunc(func(_ context.Context, evt *Event) { got = evt })
	evt := New(TypeGraphCompleted, "r1", "g1", "")
	emitter.Emit(context.Background(), evt)
	require.Same(t, evt, got)

	// NopEmitter must not panic.
	NopEmitter.Emit(context.Background(), evt)
}
