//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package message

import "github.com/google/uuid"

// ToolCallTypeFunction is the only tool call type currently supported.
const ToolCallTypeFunction = "function"

// Well-known function names of the human-in-the-loop protocol.
const (
	// FunctionRequestUserInput requests free-text input from a human.
	FunctionRequestUserInput = "request_user_input"
	// FunctionRequestUserSelection requests a selection from a list of items.
	FunctionRequestUserSelection = "request_user_selection"
	// FunctionRequestUserConfirmation requests a yes/no style confirmation.
	FunctionRequestUserConfirmation = "request_user_confirmation"
	// FunctionUserResponse carries the human response back into the run.
	FunctionUserResponse = "user_response"
)

// FunctionCall describes the function invoked by a tool call.
type FunctionCall struct {
	// Name is the function name.
	Name string `json:"name"`
	// Arguments carries the structured arguments of the call.
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolCall is a structured record of an attempted or completed external
// operation carried on a message.
type ToolCall struct {
	// ID is the unique identifier of the call.
	ID string `json:"id"`
	// Type is the tool call type, always "function".
	Type string `json:"type"`
	// Function describes the invoked function.
	Function FunctionCall `json:"function"`
}

// NewToolCall creates a tool call with a generated ID.
func NewToolCall(name string, args map[string]any) ToolCall {
	return ToolCall{
		ID:   uuid.New().String(),
		Type: ToolCallTypeFunction,
		Function: FunctionCall{
			Name:      name,
			Arguments: cloneAnyMap(args),
		},
	}
}

// IsHITLRequest reports whether the tool call is one of the three
// human-in-the-loop request functions.
func (t ToolCall) IsHITLRequest() bool {
	switch t.Function.Name {
	case FunctionRequestUserInput, FunctionRequestUserSelection, FunctionRequestUserConfirmation:
		return true
	default:
		return false
	}
}

// IsUserResponse reports whether the tool call carries a human response.
func (t ToolCall) IsUserResponse() bool {
	return t.Function.Name == FunctionUserResponse
}

// Clone returns a deep copy of the tool call.
func (t ToolCall) Clone() ToolCall {
	clone := t
	clone.Function.Arguments = cloneAnyMap(t.Function.Arguments)
	return clone
}
