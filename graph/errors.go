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
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.
var (
	// ErrCheckpointNotFound is returned by stores when no checkpoint
	// exists for the given id.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	// ErrCancelled is returned when the caller cancelled the run.
	ErrCancelled = errors.New("execution cancelled")
)

// ValidationError reports invalid inputs at an API boundary.
type ValidationError struct {
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NodeNotFoundError reports that a graph references a node absent from its
// registry.
type NodeNotFoundError struct {
	NodeID string
}

// Error implements the error interface.
func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("node not found: %s", e.NodeID)
}

// ExecutionError reports a node handler failure.
type ExecutionError struct {
	Message string
	NodeID  string
	Err     error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("execution error at node %s: %s", e.NodeID, e.Message)
	}
	return fmt.Sprintf("execution error: %s", e.Message)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error { return e.Err }

// RoutingError reports that a decision result had no mapping and no
// fallback target.
type RoutingError struct {
	Message          string
	EngineID         string
	ResultID         string
	NodeID           string
	AvailableTargets []string
}

// Error implements the error interface.
func (e *RoutingError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("no route for result %q at node %s", e.ResultID, e.NodeID)
	}
	if len(e.AvailableTargets) > 0 {
		msg += fmt.Sprintf(" (available: %s)", strings.Join(e.AvailableTargets, ", "))
	}
	return "routing error: " + msg
}

// CheckpointError reports a checkpoint save, load or delete failure.
type CheckpointError struct {
	Message      string
	CheckpointID string
	Err          error
}

// Error implements the error interface.
func (e *CheckpointError) Error() string {
	if e.CheckpointID != "" {
		return fmt.Sprintf("checkpoint error (%s): %s", e.CheckpointID, e.Message)
	}
	return fmt.Sprintf("checkpoint error: %s", e.Message)
}

// Unwrap returns the underlying cause.
func (e *CheckpointError) Unwrap() error { return e.Err }

// CheckpointExpiredError reports a resumption attempted past expiresAt.
type CheckpointExpiredError struct {
	CheckpointID string
}

// Error implements the error interface.
func (e *CheckpointExpiredError) Error() string {
	return fmt.Sprintf("checkpoint expired: %s", e.CheckpointID)
}

// RetryableError marks an error as eligible for retry classification.
// Node handlers wrap transient failures with Retryable so the default
// classifier schedules another attempt.
type RetryableError struct {
	Err error
}

// Error implements the error interface.
func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Err)
}

// Unwrap returns the wrapped error.
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err so the default classifier retries it.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err carries a RetryableError marker.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
