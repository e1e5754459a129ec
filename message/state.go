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
	"fmt"
	"time"
)

// State represents the lifecycle state of an in-flight message.
type State string

const (
	// StateReady indicates the message has been created but execution has not started.
	StateReady State = "READY"
	// StateRunning indicates the message is being executed by a runner.
	StateRunning State = "RUNNING"
	// StateWaiting indicates the run is suspended awaiting external input.
	StateWaiting State = "WAITING"
	// StateCompleted indicates the run finished successfully. Terminal.
	StateCompleted State = "COMPLETED"
	// StateFailed indicates the run finished with an error. Terminal.
	StateFailed State = "FAILED"
)

// CanTransitionTo reports whether a transition from s to target is legal.
//
// Allowed transitions:
//
//	READY   -> RUNNING
//	RUNNING -> WAITING | COMPLETED | FAILED
//	WAITING -> RUNNING | FAILED
//
// COMPLETED and FAILED are terminal.
func (s State) CanTransitionTo(target State) bool {
	switch s {
	case StateReady:
		return target == StateRunning
	case StateRunning:
		return target == StateWaiting || target == StateCompleted || target == StateFailed
	case StateWaiting:
		return target == StateRunning || target == StateFailed
	default:
		return false
	}
}

// IsTerminal reports whether s is a terminal state.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// StateTransition records one state change on a message.
type StateTransition struct {
	// From is the state before the transition.
	From State `json:"from"`
	// To is the state after the transition.
	To State `json:"to"`
	// Timestamp is when the transition happened. Assigned by the state
	// machine, never by the caller.
	Timestamp time.Time `json:"timestamp"`
	// Reason is an optional human-readable explanation.
	Reason string `json:"reason,omitempty"`
	// NodeID is the node at which the transition happened, if any.
	NodeID string `json:"nodeId,omitempty"`
}

// InvalidTransitionError is returned when a state machine rule is violated.
type InvalidTransitionError struct {
	From State
	To   State
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}
