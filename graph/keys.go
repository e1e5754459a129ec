//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package graph

// Reserved message data keys written by decision nodes. Every key begins
// with "_decision".
const (
	// KeyDecisionResult is the matched result identifier.
	KeyDecisionResult = "_decisionResult"
	// KeyDecisionTarget is the chosen target node id.
	KeyDecisionTarget = "_decisionTarget"
	// KeyDecisionEngine is the engine id.
	KeyDecisionEngine = "_decisionEngine"
	// KeyDecisionNodeID is the decision node id.
	KeyDecisionNodeID = "_decisionNodeId"
	// KeyDecisionDescription is the result description.
	KeyDecisionDescription = "_decisionDescription"
	// KeyDecisionUsedFallback reports whether the fallback target was used.
	KeyDecisionUsedFallback = "_decisionUsedFallback"
	// KeyDecisionMetadataPrefix prefixes engine metadata copied onto the
	// message: "_decision.<key>".
	KeyDecisionMetadataPrefix = "_decision."
)

// Message data keys written by tool nodes.
const (
	// KeyToolResult holds the opaque tool result.
	KeyToolResult = "toolResult"
	// KeyToolName holds the name of the executed tool.
	KeyToolName = "toolName"
	// KeyToolSuccess holds the success flag of the tool execution.
	KeyToolSuccess = "toolSuccess"
)

// Message data keys written during checkpoint resumption.
const (
	// KeyResponseText holds the text of the user response.
	KeyResponseText = "response_text"
	// KeySelectedOption holds the selected option id, if any.
	KeySelectedOption = "selected_option"
	// KeyUserResponseToolCall preserves the whole user_response tool call.
	KeyUserResponseToolCall = "user_response_tool_call"
)

// Internal bookkeeping keys written by human nodes so that a resumed run
// can tell an answered request from a fresh visit.
const (
	// KeyHITLNodeID is the id of the human node that issued the pending
	// request.
	KeyHITLNodeID = "_hitlNodeId"
	// KeyHITLRequestID is the id of the pending request tool call.
	KeyHITLRequestID = "_hitlRequestId"
)

// Checkpoint metadata keys maintained by the runner.
const (
	// KeyProcessedResponseIDs lists response tool call ids that already
	// produced a ToolCallCompleted event. Used for at-most-once emission.
	KeyProcessedResponseIDs = "processedResponseIds"
)
