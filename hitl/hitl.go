//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package hitl implements the human-in-the-loop tool-call protocol: request
// builders for the three request-* functions, the user_response builder, and
// the parser that normalises responses.
package hitl

import "trpc.group/trpc-go/trpc-flow-go/message"

// Argument keys of the request-* functions.
const (
	ArgPromptMessage = "prompt_message"
	ArgInputType     = "input_type"
	ArgItems         = "items"
	ArgSelectionType = "selection_type"
	ArgMessage       = "message"
	ArgOptions       = "options"
)

// Argument keys of the user_response function.
const (
	ArgText            = "text"
	ArgStructuredData  = "structured_data"
	ArgSelectedOption  = "selected_option"
	ArgSelectedOptions = "selected_options"
	ArgQuantities      = "quantities"
)

// Selection types.
const (
	SelectionSingle   = "single"
	SelectionMultiple = "multiple"
)

// SelectionItem is one selectable option of a request_user_selection call.
type SelectionItem struct {
	// ID identifies the option.
	ID string `json:"id"`
	// Label is the human-readable text of the option.
	Label string `json:"label"`
	// Description optionally elaborates on the option.
	Description string `json:"description,omitempty"`
}

// NewInputRequest builds a request_user_input tool call. inputType is
// optional and hints at the expected input, e.g. "text" or "number".
func NewInputRequest(prompt, inputType string) message.ToolCall {
	args := map[string]any{ArgPromptMessage: prompt}
	if inputType != "" {
		args[ArgInputType] = inputType
	}
	return message.NewToolCall(message.FunctionRequestUserInput, args)
}

// NewSelectionRequest builds a request_user_selection tool call.
// selectionType is "single" or "multiple"; empty means "single".
func NewSelectionRequest(items []SelectionItem, prompt, selectionType string) message.ToolCall {
	encoded := make([]any, 0, len(items))
	for _, item := range items {
		m := map[string]any{"id": item.ID, "label": item.Label}
		if item.Description != "" {
			m["description"] = item.Description
		}
		encoded = append(encoded, m)
	}
	args := map[string]any{
		ArgItems:         encoded,
		ArgPromptMessage: prompt,
	}
	if selectionType != "" {
		args[ArgSelectionType] = selectionType
	}
	return message.NewToolCall(message.FunctionRequestUserSelection, args)
}

// NewConfirmationRequest builds a request_user_confirmation tool call.
func NewConfirmationRequest(msg string, options []string) message.ToolCall {
	args := map[string]any{ArgMessage: msg}
	if len(options) > 0 {
		encoded := make([]any, len(options))
		for i, opt := range options {
			encoded[i] = opt
		}
		args[ArgOptions] = encoded
	}
	return message.NewToolCall(message.FunctionRequestUserConfirmation, args)
}

// NewUserResponse builds a user_response tool call. Either argument may be
// empty; structured carries keys like "selected_option" or "quantities".
func NewUserResponse(text string, structured map[string]any) message.ToolCall {
	args := make(map[string]any)
	if text != "" {
		args[ArgText] = text
	}
	if len(structured) > 0 {
		args[ArgStructuredData] = structured
	}
	return message.NewToolCall(message.FunctionUserResponse, args)
}

// PendingRequest returns the most recent unanswered request-* tool call of
// the message, or nil when the message is not pending human input.
func PendingRequest(msg *message.Message) *message.ToolCall {
	if !msg.IsPendingHITL() {
		return nil
	}
	return msg.LastHITLRequest()
}
