//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package decision provides typed routing decisions and the pluggable
// engines that produce them.
package decision

// Standard result identifiers.
const (
	ResultYes       = "YES"
	ResultNo        = "NO"
	ResultSkip      = "SKIP"
	ResultRetry     = "RETRY"
	ResultError     = "ERROR"
	ResultDefault   = "DEFAULT"
	ResultUncertain = "UNCERTAIN"
)

// Delegation result identifiers.
const (
	ResultDelegateToLLM   = "DELEGATE_TO_LLM"
	ResultDelegateToAgent = "DELEGATE_TO_AGENT"
	ResultReorchestrate   = "REORCHESTRATE"
	ResultEscalate        = "ESCALATE"
)

// Selection result identifiers.
const (
	// ResultOptionSelected is the fixed identifier used when all options
	// route to the same target.
	ResultOptionSelected = "OPTION_SELECTED"
	// OptionPrefix prefixes per-option identifiers: "OPTION:{optionId}".
	OptionPrefix = "OPTION:"
)

// Metadata keys used by the delegation and selection constructors.
const (
	MetadataKeyAgentID        = "agentId"
	MetadataKeyTargetWorkflow = "targetWorkflow"
	MetadataKeyReason         = "reason"
	MetadataKeyOptionID       = "optionId"
)

// Result is a typed routing decision. The ResultID is the string used for
// edge matching in decision nodes.
type Result struct {
	// ResultID is the identifier matched against the routing table.
	ResultID string `json:"resultId"`
	// Description is a human-readable explanation of the decision.
	Description string `json:"description,omitempty"`
	// Metadata carries arbitrary decision details.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IsDefault reports whether the result is the DEFAULT decision.
func (r *Result) IsDefault() bool {
	return r != nil && r.ResultID == ResultDefault
}

// WithDescription returns a copy with the description replaced.
func (r *Result) WithDescription(description string) *Result {
	clone := r.clone()
	clone.Description = description
	return clone
}

// WithMetadata returns a copy with one metadata value set.
func (r *Result) WithMetadata(key string, value any) *Result {
	clone := r.clone()
	if clone.Metadata == nil {
		clone.Metadata = make(map[string]any)
	}
	clone.Metadata[key] = value
	return clone
}

func (r *Result) clone() *Result {
	clone := &Result{ResultID: r.ResultID, Description: r.Description}
	if r.Metadata != nil {
		clone.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			clone.Metadata[k] = v
		}
	}
	return clone
}

// Yes creates an affirmative decision.
func Yes() *Result { return &Result{ResultID: ResultYes} }

// No creates a negative decision.
func No() *Result { return &Result{ResultID: ResultNo} }

// Skip creates a decision to skip the current step.
func Skip() *Result { return &Result{ResultID: ResultSkip} }

// Retry creates a decision to retry the current step.
func Retry() *Result { return &Result{ResultID: ResultRetry} }

// Error creates an error decision with the given description.
func Error(description string) *Result {
	return &Result{ResultID: ResultError, Description: description}
}

// Default creates the neutral decision. Composite engines treat DEFAULT as
// "no opinion".
func Default() *Result { return &Result{ResultID: ResultDefault} }

// Uncertain creates a decision signalling the engine could not decide.
func Uncertain() *Result { return &Result{ResultID: ResultUncertain} }

// DelegateToLLM creates a decision to delegate routing to an LLM.
func DelegateToLLM() *Result { return &Result{ResultID: ResultDelegateToLLM} }

// DelegateToAgent creates a decision to delegate to a specific agent.
func DelegateToAgent(agentID string) *Result {
	return &Result{
		ResultID: ResultDelegateToAgent,
		Metadata: map[string]any{MetadataKeyAgentID: agentID},
	}
}

// Reorchestrate creates a decision to hand the run to another workflow.
func Reorchestrate(targetWorkflow string) *Result {
	return &Result{
		ResultID: ResultReorchestrate,
		Metadata: map[string]any{MetadataKeyTargetWorkflow: targetWorkflow},
	}
}

// Escalate creates a decision to escalate with the given reason.
func Escalate(reason string) *Result {
	return &Result{
		ResultID: ResultEscalate,
		Metadata: map[string]any{MetadataKeyReason: reason},
	}
}

// Option creates a per-option selection decision whose result identifier is
// "OPTION:{optionId}". Use it when each option routes to its own target.
func Option(optionID string) *Result {
	return &Result{
		ResultID: OptionPrefix + optionID,
		Metadata: map[string]any{MetadataKeyOptionID: optionID},
	}
}

// Selected creates a selection decision with the fixed identifier
// "OPTION_SELECTED". Use it when all options route to the same target; the
// chosen option stays available in the metadata.
func Selected(optionID string) *Result {
	return &Result{
		ResultID: ResultOptionSelected,
		Metadata: map[string]any{MetadataKeyOptionID: optionID},
	}
}

// Custom creates a decision with a user-defined result identifier.
func Custom(resultID, description string) *Result {
	return &Result{ResultID: resultID, Description: description}
}
