//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package runner provides the checkpoint-aware execution layer on top of
// the graph executor: it persists checkpoints per the configured policy,
// resumes paused runs from stored checkpoints, merges user responses back
// into the paused message, and cleans up after completed runs.
package runner

import (
	"context"
	"fmt"
	"time"

	"trpc.group/trpc-go/trpc-flow-go/event"
	"trpc.group/trpc-go/trpc-flow-go/graph"
	"trpc.group/trpc-go/trpc-flow-go/hitl"
	"trpc.group/trpc-go/trpc-flow-go/log"
	"trpc.group/trpc-go/trpc-flow-go/message"
)

// Runner executes graphs with checkpoint persistence. A Runner is safe for
// concurrent use; each call drives one run.
type Runner struct {
	store    graph.CheckpointStore
	config   graph.CheckpointConfig
	emitter  event.Emitter
	execOpts []graph.ExecutorOption
}

// Option configures a Runner.
type Option func(*Runner)

// WithCheckpointStore sets the checkpoint store. Without a store the
// checkpoint-aware entry points fail with a validation error.
func WithCheckpointStore(store graph.CheckpointStore) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// WithCheckpointConfig sets the checkpoint policy.
func WithCheckpointConfig(cfg graph.CheckpointConfig) Option {
	return func(r *Runner) {
		r.config = cfg
	}
}

// WithEmitter sets the event emitter shared by all runs.
func WithEmitter(emitter event.Emitter) Option {
	return func(r *Runner) {
		r.emitter = emitter
	}
}

// WithExecutorOptions forwards options to the underlying executor, e.g.
// retry policy or step limit.
func WithExecutorOptions(opts ...graph.ExecutorOption) Option {
	return func(r *Runner) {
		r.execOpts = append(r.execOpts, opts...)
	}
}

// New creates a Runner. The default policy is DefaultCheckpointConfig.
func New(opts ...Option) *Runner {
	r := &Runner{
		config:  graph.DefaultCheckpointConfig(),
		emitter: event.NopEmitter,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.emitter == nil {
		r.emitter = event.NopEmitter
	}
	return r
}

// Execute runs the graph without touching the checkpoint store.
func (r *Runner) Execute(ctx context.Context, g *graph.Graph, msg *message.Message) (*message.Message, error) {
	exec := graph.NewExecutor(r.executorOptions(nil)...)
	return exec.Execute(ctx, g, msg)
}

// ExecuteWithCheckpoint runs the graph and persists checkpoints per the
// configured policy: on human-in-the-loop pauses, after every N executed
// nodes, and best-effort on errors. It returns the final message and, when
// the run paused on human input, the saved checkpoint.
func (r *Runner) ExecuteWithCheckpoint(ctx context.Context, g *graph.Graph, msg *message.Message) (*message.Message, *graph.Checkpoint, error) {
	if r.store == nil {
		return msg, nil, &graph.ValidationError{Message: "runner has no checkpoint store"}
	}
	exec := graph.NewExecutor(r.executorOptions(r.periodicSave(g))...)
	result, err := exec.Execute(ctx, g, msg)
	return r.finish(ctx, g, result, err)
}

// ResumeFromCheckpoint loads a checkpoint and continues the run. A non-nil
// response is merged into the paused message before execution: its parsed
// fields land in the message data and the tool call itself is appended, so
// the paused human node sees its request answered. A nil response resumes
// the run as-is.
//
// Each response tool call id produces at most one ToolCallCompleted event,
// even when resumption is retried with the same response.
func (r *Runner) ResumeFromCheckpoint(ctx context.Context, g *graph.Graph, checkpointID string, response *message.ToolCall) (*message.Message, error) {
	if r.store == nil {
		return nil, &graph.ValidationError{Message: "runner has no checkpoint store"}
	}
	cp, err := r.store.Load(ctx, checkpointID)
	if err != nil {
		return nil, err
	}
	if cp.IsExpired() {
		return nil, &graph.CheckpointExpiredError{CheckpointID: checkpointID}
	}
	msg := cp.Message
	if msg == nil {
		return nil, &graph.CheckpointError{
			Message:      "checkpoint carries no message",
			CheckpointID: checkpointID,
		}
	}
	if msg.State.IsTerminal() {
		return nil, &graph.ValidationError{
			Message: fmt.Sprintf("cannot resume checkpoint %s: run already %s", checkpointID, msg.State),
		}
	}

	if response != nil {
		if !response.IsUserResponse() {
			return nil, &graph.ValidationError{
				Message: fmt.Sprintf("resume response must be %s, got %s",
					message.FunctionUserResponse, response.Function.Name),
			}
		}
		msg = mergeResponse(msg, *response)
		if msg.State == message.StateWaiting {
			resumed, terr := msg.TransitionTo(message.StateRunning, graph.ReasonResumedResponse, cp.CurrentNodeID)
			if terr != nil {
				return nil, terr
			}
			msg = resumed
		}
		r.recordResponse(ctx, cp, *response)
	} else if msg.State == message.StateWaiting {
		resumed, terr := msg.TransitionTo(message.StateRunning, graph.ReasonResumed, cp.CurrentNodeID)
		if terr != nil {
			return nil, terr
		}
		msg = resumed
	}

	exec := graph.NewExecutor(r.executorOptions(r.periodicSave(g))...)
	result, err := exec.Execute(ctx, g, msg)
	result, _, err = r.finish(ctx, g, result, err)
	return result, err
}

// finish applies the post-run checkpoint policy: save on error, save on
// human pause, clean up on completion.
func (r *Runner) finish(ctx context.Context, g *graph.Graph, result *message.Message, execErr error) (*message.Message, *graph.Checkpoint, error) {
	if execErr != nil {
		if r.config.SaveOnError && result != nil {
			if _, serr := r.save(ctx, g, result); serr != nil {
				log.Warnf("run %s: cannot save failure checkpoint: %v", result.RunID, serr)
			}
		}
		return result, nil, execErr
	}
	switch result.State {
	case message.StateWaiting:
		if !r.config.SaveOnHITL {
			return result, nil, nil
		}
		cp, err := r.save(ctx, g, result)
		if err != nil {
			return result, nil, err
		}
		return result, cp, nil
	case message.StateCompleted:
		if r.config.AutoCleanup {
			if err := r.store.DeleteByRun(ctx, result.RunID); err != nil {
				log.Warnf("run %s: checkpoint cleanup failed: %v", result.RunID, err)
			}
		}
	}
	return result, nil, nil
}

func (r *Runner) save(ctx context.Context, g *graph.Graph, msg *message.Message) (*graph.Checkpoint, error) {
	cp, err := graph.CheckpointFromMessage(msg, g.ID(), msg.RunID)
	if err != nil {
		return nil, err
	}
	cp.WithExpiry(r.expiry(g, msg))
	if _, err := r.store.Save(ctx, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// expiry returns the TTL for a checkpoint of msg. A run paused at a human
// node with a declared timeout is resumable for at most that long; the
// configured TTL still caps it.
func (r *Runner) expiry(g *graph.Graph, msg *message.Message) time.Duration {
	ttl := r.config.TTL
	if msg.State != message.StateWaiting {
		return ttl
	}
	node, ok := g.Node(msg.NodeID)
	if !ok || node.Human == nil || node.Human.Timeout <= 0 {
		return ttl
	}
	if ttl <= 0 || node.Human.Timeout < ttl {
		return node.Human.Timeout
	}
	return ttl
}

// periodicSave returns the per-node callback implementing SaveEveryNNodes,
// or nil when periodic saves are disabled. Save failures are logged, not
// propagated; a lost periodic checkpoint does not fail the run.
func (r *Runner) periodicSave(g *graph.Graph) graph.NodeCallback {
	n := r.config.SaveEveryNNodes
	if n <= 0 || r.store == nil {
		return nil
	}
	return func(ctx context.Context, msg *message.Message, executed int) {
		if executed%n != 0 {
			return
		}
		if _, err := r.save(ctx, g, msg); err != nil {
			log.Warnf("run %s: periodic checkpoint failed: %v", msg.RunID, err)
		}
	}
}

func (r *Runner) executorOptions(cb graph.NodeCallback) []graph.ExecutorOption {
	opts := append([]graph.ExecutorOption(nil), r.execOpts...)
	opts = append(opts, graph.WithEmitter(r.emitter))
	if cb != nil {
		opts = append(opts, graph.WithNodeCallback(cb))
	}
	return opts
}

// recordResponse writes an audit copy of the checkpoint carrying the
// response tool call, and emits ToolCallCompleted at most once per response
// id. The processed-id list in the checkpoint metadata is the dedup record:
// the event fires only after the list update was persisted.
func (r *Runner) recordResponse(ctx context.Context, cp *graph.Checkpoint, response message.ToolCall) {
	audit := cp.Clone()
	rc := response.Clone()
	audit.ResponseToolCall = &rc
	if audit.Metadata == nil {
		audit.Metadata = make(map[string]any)
	}
	processed := stringList(audit.Metadata[graph.KeyProcessedResponseIDs])
	for _, id := range processed {
		if id == response.ID {
			return
		}
	}
	audit.Metadata[graph.KeyProcessedResponseIDs] = append(processed, response.ID)
	if _, err := r.store.Save(ctx, audit); err != nil {
		log.Warnf("checkpoint %s: cannot record response %s: %v", cp.ID, response.ID, err)
		return
	}
	if cp.PendingToolCall != nil {
		r.emitter.Emit(ctx, event.NewToolCallCompleted(
			cp.RunID, cp.GraphID, cp.CurrentNodeID,
			*cp.PendingToolCall, response, time.Since(cp.Timestamp)))
	}
}

// mergeResponse folds a user_response tool call into the paused message:
// the call is appended and its parsed fields are written into the data so
// downstream nodes can read the answer without re-parsing tool calls.
// A free-text answer accompanying a structured selection is kept alongside
// it; the selected id only stands in for response_text when no text came.
func mergeResponse(msg *message.Message, response message.ToolCall) *message.Message {
	values := map[string]any{
		graph.KeyUserResponseToolCall: response.Clone(),
	}
	text, _ := response.Function.Arguments[hitl.ArgText].(string)
	if text != "" {
		values[graph.KeyResponseText] = text
	}
	if parsed, ok := hitl.ParseResponse(response.Function.Arguments, hitl.DefaultParseOptions()); ok {
		switch parsed.Kind {
		case hitl.KindSingle:
			values[graph.KeySelectedOption] = parsed.SelectedID
			if text == "" {
				values[graph.KeyResponseText] = parsed.SelectedID
			}
		case hitl.KindMulti:
			ids := make([]any, len(parsed.SelectedIDs))
			for i, id := range parsed.SelectedIDs {
				ids[i] = id
			}
			values[hitl.ArgSelectedOptions] = ids
			if text == "" {
				values[graph.KeyResponseText] = joinIDs(parsed.SelectedIDs)
			}
		case hitl.KindQuantity:
			quantities := make(map[string]any, len(parsed.Quantities))
			for id, n := range parsed.Quantities {
				quantities[id] = n
			}
			values[hitl.ArgQuantities] = quantities
		case hitl.KindText:
			if text == "" {
				values[graph.KeyResponseText] = parsed.Text
			}
		}
	}
	return msg.WithToolCall(response).WithDataMap(values)
}

func joinIDs(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += id
	}
	return out
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, e := range list {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
