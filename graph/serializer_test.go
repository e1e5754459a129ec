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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-flow-go/message"
)

func TestSerializerRoundTrip(t *testing.T) {
	waiting := waitingMessage(t)
	cp, err := CheckpointFromMessage(waiting, "g1", "r1")
	require.NoError(t, err)
	cp.WithExpiry(time.Hour)

	s := NewSerializer()
	data, err := s.Marshal(cp)
	require.NoError(t, err)

	decoded, err := s.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, cp.ID, decoded.ID)
	assert.Equal(t, cp.RunID, decoded.RunID)
	assert.Equal(t, cp.CurrentNodeID, decoded.CurrentNodeID)
	assert.Equal(t, cp.ExecutionState, decoded.ExecutionState)
	assert.Equal(t, "one", decoded.State["step"])
	require.NotNil(t, decoded.Message)
	assert.Equal(t, message.StateWaiting, decoded.Message.State)
	assert.Len(t, decoded.Message.StateHistory, 2)
	require.NotNil(t, decoded.PendingToolCall)
	assert.Equal(t, cp.PendingToolCall.ID, decoded.PendingToolCall.ID)
	require.NotNil(t, decoded.ExpiresAt)
	assert.WithinDuration(t, *cp.ExpiresAt, *decoded.ExpiresAt, time.Millisecond)
}

func TestSerializerNoHTMLEscaping(t *testing.T) {
	cp := &Checkpoint{
		ID:    NewCheckpointID(),
		State: map[string]any{"query": "a<b && c>d", "url": "https://x?a=1&b=2"},
	}
	data, err := NewSerializer().Marshal(cp)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "a<b && c>d")
	assert.Contains(t, text, "https://x?a=1&b=2")
	assert.NotContains(t, text, `\u003c`)
	assert.NotContains(t, text, `\u0026`)
}

func TestSerializerCompactHasNoTrailingNewline(t *testing.T) {
	data, err := NewSerializer().Marshal(&Checkpoint{ID: "cp_1_1"})
	require.NoError(t, err)
	assert.False(t, strings.HasSuffix(string(data), "\n"))
}

func TestPrettySerializer(t *testing.T) {
	data, err := NewPrettySerializer().Marshal(&Checkpoint{ID: "cp_1_1"})
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  ")
}

func TestSerializerNilCheckpoint(t *testing.T) {
	_, err := NewSerializer().Marshal(nil)
	require.Error(t, err)
}

func TestSerializerUnmarshalIgnoresUnknownFields(t *testing.T) {
	cp, err := NewSerializer().Unmarshal([]byte(`{"id":"cp_1_1","futureField":true}`))
	require.NoError(t, err)
	assert.Equal(t, "cp_1_1", cp.ID)

	_, err = NewSerializer().Unmarshal([]byte(`{not json`))
	require.Error(t, err)
}
