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
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-flow-go/message"
)

var checkpointIDPattern = regexp.MustCompile(`^cp_\d+_\d{1,6}$`)

func TestNewCheckpointID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		id := NewCheckpointID()
		assert.Regexp(t, checkpointIDPattern, id)
		seen[id] = struct{}{}
	}
	// Collisions within one batch are overwhelmingly unlikely.
	assert.Greater(t, len(seen), 45)
}

func waitingMessage(t *testing.T) *message.Message {
	t.Helper()
	msg := message.New("client", "hello").
		WithGraphID("g1").
		WithRunID("r1").
		WithNodeID("ask").
		WithData("step", "one").
		WithToolCall(message.NewToolCall(message.FunctionRequestUserInput,
			map[string]any{"prompt_message": "name?"}))
	running, err := msg.TransitionTo(message.StateRunning, "started", "")
	require.NoError(t, err)
	waiting, err := running.TransitionTo(message.StateWaiting, "needs input", "ask")
	require.NoError(t, err)
	return waiting
}

func TestCheckpointFromMessage(t *testing.T) {
	waiting := waitingMessage(t)
	cp, err := CheckpointFromMessage(waiting, "g1", "r1")
	require.NoError(t, err)

	assert.Regexp(t, checkpointIDPattern, cp.ID)
	assert.Equal(t, "r1", cp.RunID)
	assert.Equal(t, "g1", cp.GraphID)
	assert.Equal(t, "ask", cp.CurrentNodeID)
	assert.Equal(t, ExecStateWaitingForHuman, cp.ExecutionState)
	assert.Equal(t, "one", cp.State["step"])
	require.NotNil(t, cp.PendingToolCall)
	assert.Equal(t, message.FunctionRequestUserInput, cp.PendingToolCall.Function.Name)
	require.NotNil(t, cp.Message)
	assert.Equal(t, message.StateWaiting, cp.Message.State)
	assert.Nil(t, cp.ExpiresAt)
	assert.False(t, cp.Timestamp.IsZero())
}

func TestCheckpointFromMessageValidation(t *testing.T) {
	_, err := CheckpointFromMessage(nil, "g", "r")
	require.Error(t, err)

	// A WAITING message without a node id cannot be resumed.
	msg := message.New("client", "hello")
	msg.State = message.StateWaiting
	_, err = CheckpointFromMessage(msg, "g", "r")
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestCheckpointExpiry(t *testing.T) {
	cp := &Checkpoint{ID: NewCheckpointID()}
	assert.False(t, cp.IsExpired())

	cp.WithExpiry(time.Hour)
	assert.False(t, cp.IsExpired())

	past := time.Now().Add(-time.Second)
	cp.ExpiresAt = &past
	assert.True(t, cp.IsExpired())

	// An expiry at the current instant counts as expired.
	now := time.Now()
	cp.ExpiresAt = &now
	assert.True(t, cp.IsExpired())

	cp.WithExpiry(0)
	assert.Nil(t, cp.ExpiresAt)
	assert.False(t, cp.IsExpired())
}

func TestCheckpointClone(t *testing.T) {
	waiting := waitingMessage(t)
	cp, err := CheckpointFromMessage(waiting, "g1", "r1")
	require.NoError(t, err)
	cp.Metadata["k"] = "v"
	cp.WithExpiry(time.Hour)

	clone := cp.Clone()
	clone.State["step"] = "changed"
	clone.Metadata["k"] = "changed"
	clone.Message.Data["step"] = "changed"
	clone.PendingToolCall.Function.Arguments["prompt_message"] = "changed"

	assert.Equal(t, cp.ID, clone.ID)
	assert.Equal(t, "one", cp.State["step"])
	assert.Equal(t, "v", cp.Metadata["k"])
	assert.Equal(t, "one", cp.Message.Data["step"])
	assert.Equal(t, "name?", cp.PendingToolCall.Function.Arguments["prompt_message"])
	require.NotNil(t, clone.ExpiresAt)
	assert.NotSame(t, cp.ExpiresAt, clone.ExpiresAt)

	var nilCP *Checkpoint
	assert.Nil(t, nilCP.Clone())
}
