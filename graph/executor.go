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
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"trpc.group/trpc-go/trpc-flow-go/decision"
	"trpc.group/trpc-go/trpc-flow-go/event"
	"trpc.group/trpc-go/trpc-flow-go/hitl"
	"trpc.group/trpc-go/trpc-flow-go/log"
	"trpc.group/trpc-go/trpc-flow-go/message"
	itrace "trpc.group/trpc-go/trpc-flow-go/telemetry/trace"
)

// Transition reasons written by the executor.
const (
	ReasonExecutionStarted = "Execution started"
	ReasonHITLRequired     = "HITL required"
	ReasonCompleted        = "Graph execution completed"
	ReasonResumedResponse  = "Resuming after user response"
	ReasonResumed          = "Resuming from checkpoint"
)

const defaultMaxSteps = 100

// NodeCallback is invoked after every successfully executed node with the
// number of nodes executed so far in this call. It must not block for long.
type NodeCallback func(ctx context.Context, msg *message.Message, executed int)

// Executor walks a graph with a message. One executor may be shared across
// runs; each run is strictly sequential, different runs may execute
// concurrently.
type Executor struct {
	retryPolicy  RetryPolicy
	classifier   Classifier
	maxSteps     int
	emitter      event.Emitter
	nodeCallback NodeCallback
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*ExecutorOptions)

// ExecutorOptions contains configuration options for creating an Executor.
type ExecutorOptions struct {
	// RetryPolicy controls retry of failed node executions.
	RetryPolicy RetryPolicy
	// Classifier decides which node errors are retried.
	Classifier Classifier
	// MaxSteps bounds the number of node executions per call (default 100).
	MaxSteps int
	// Emitter receives execution events.
	Emitter event.Emitter
	// NodeCallback is invoked after every executed node.
	NodeCallback NodeCallback
}

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(policy RetryPolicy) ExecutorOption {
	return func(opts *ExecutorOptions) {
		opts.RetryPolicy = policy
	}
}

// WithClassifier sets the retry classifier.
func WithClassifier(classifier Classifier) ExecutorOption {
	return func(opts *ExecutorOptions) {
		opts.Classifier = classifier
	}
}

// WithMaxSteps bounds the number of node executions per call.
func WithMaxSteps(steps int) ExecutorOption {
	return func(opts *ExecutorOptions) {
		opts.MaxSteps = steps
	}
}

// WithEmitter sets the event emitter.
func WithEmitter(emitter event.Emitter) ExecutorOption {
	return func(opts *ExecutorOptions) {
		opts.Emitter = emitter
	}
}

// WithNodeCallback sets the per-node callback.
func WithNodeCallback(cb NodeCallback) ExecutorOption {
	return func(opts *ExecutorOptions) {
		opts.NodeCallback = cb
	}
}

// NewExecutor creates a graph executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	options := ExecutorOptions{
		RetryPolicy: DefaultRetryPolicy(),
		Classifier:  DefaultClassifier,
		MaxSteps:    defaultMaxSteps,
		Emitter:     event.NopEmitter,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Classifier == nil {
		options.Classifier = DefaultClassifier
	}
	if options.Emitter == nil {
		options.Emitter = event.NopEmitter
	}
	return &Executor{
		retryPolicy:  options.RetryPolicy,
		classifier:   options.Classifier,
		maxSteps:     options.MaxSteps,
		emitter:      options.Emitter,
		nodeCallback: options.NodeCallback,
	}
}

// nodeOutput is the result of one node execution: the transformed message
// plus an optional routing hint.
type nodeOutput struct {
	msg *message.Message
	// next is the target chosen by the node itself; empty lets the
	// executor decide from the edge map.
	next string
}

// Execute walks the graph with the given message until the run completes,
// fails, or pauses on human input. The message must be READY or RUNNING.
func (e *Executor) Execute(ctx context.Context, g *Graph, msg *message.Message) (*message.Message, error) {
	if g == nil {
		return msg, &ValidationError{Message: "graph cannot be nil"}
	}
	if msg == nil {
		return nil, &ValidationError{Message: "message cannot be nil"}
	}
	switch msg.State {
	case message.StateReady:
		started, err := msg.TransitionTo(message.StateRunning, ReasonExecutionStarted, "")
		if err != nil {
			return msg, err
		}
		msg = started
	case message.StateRunning:
	default:
		return msg, &ValidationError{
			Message: fmt.Sprintf("cannot execute message in state %s", msg.State),
		}
	}
	if msg.RunID == "" {
		msg = msg.WithRunID(uuid.New().String())
	}
	if msg.GraphID != g.ID() {
		msg = msg.WithGraphID(g.ID())
	}
	if msg.NodeID == "" {
		msg = msg.WithNodeID(g.EntryPoint())
	}
	log.Debugf("executing graph %s, run %s, entry node %s", g.ID(), msg.RunID, msg.NodeID)

	executed := 0
	for step := 0; ; step++ {
		if e.maxSteps > 0 && step >= e.maxSteps {
			err := &ExecutionError{
				Message: fmt.Sprintf("maximum steps exceeded (%d)", e.maxSteps),
				NodeID:  msg.NodeID,
			}
			return e.fail(msg, msg.NodeID, err), err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return msg, fmt.Errorf("%w: %v", ErrCancelled, ctxErr)
		}

		node, ok := g.Node(msg.NodeID)
		if !ok {
			err := &NodeNotFoundError{NodeID: msg.NodeID}
			return e.fail(msg, msg.NodeID, err), err
		}

		e.emitter.Emit(ctx, event.New(event.TypeNodeStart, msg.RunID, g.ID(), node.ID))
		out, err := e.runNodeWithRetry(ctx, g, node, msg)
		if err != nil {
			var invalid *message.InvalidTransitionError
			if errors.As(err, &invalid) {
				// Programmer error; abort without touching the state.
				return msg, err
			}
			return e.fail(msg, node.ID, err), err
		}
		msg = out.msg
		e.emitter.Emit(ctx, event.New(event.TypeNodeComplete, msg.RunID, g.ID(), node.ID))

		if msg.State == message.StateWaiting {
			log.Debugf("run %s waiting for human input at node %s", msg.RunID, node.ID)
			return msg, nil
		}

		executed++
		if e.nodeCallback != nil {
			e.nodeCallback(ctx, msg, executed)
		}

		next := out.next
		if next == "" {
			next, err = e.nextNode(node, msg, g)
			if err != nil {
				return e.fail(msg, node.ID, err), err
			}
		}
		if next == "" {
			completed, terr := msg.TransitionTo(message.StateCompleted, ReasonCompleted, node.ID)
			if terr != nil {
				return msg, terr
			}
			e.emitter.Emit(ctx, event.New(event.TypeGraphCompleted, completed.RunID, g.ID(), node.ID))
			log.Debugf("run %s completed after %d nodes", completed.RunID, executed)
			return completed, nil
		}
		msg = msg.WithNodeID(next)
	}
}

// Resume continues a reconstructed message. A WAITING message transitions
// back to RUNNING; a terminal message yields a ValidationError.
func (e *Executor) Resume(ctx context.Context, g *Graph, msg *message.Message) (*message.Message, error) {
	if msg == nil {
		return nil, &ValidationError{Message: "message cannot be nil"}
	}
	switch {
	case msg.State == message.StateWaiting:
		resumed, err := msg.TransitionTo(message.StateRunning, ReasonResumed, msg.NodeID)
		if err != nil {
			return msg, err
		}
		return e.Execute(ctx, g, resumed)
	case msg.State.IsTerminal():
		invalid := &message.InvalidTransitionError{From: msg.State, To: message.StateRunning}
		return msg, &ValidationError{
			Message: fmt.Sprintf("cannot resume message in state %s: %v", msg.State, invalid),
		}
	default:
		return e.Execute(ctx, g, msg)
	}
}

// fail transitions the message to FAILED, best effort.
func (e *Executor) fail(msg *message.Message, nodeID string, cause error) *message.Message {
	failed, err := msg.TransitionTo(message.StateFailed, cause.Error(), nodeID)
	if err != nil {
		log.Warnf("run %s: cannot record failure: %v", msg.RunID, err)
		return msg
	}
	return failed
}

func (e *Executor) runNodeWithRetry(ctx context.Context, g *Graph, node *Node, msg *message.Message) (*nodeOutput, error) {
	var lastErr error
	attempts := e.retryPolicy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := e.runNode(ctx, g, node, msg, attempt)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !e.shouldRetry(err) || attempt == attempts {
			return nil, err
		}
		delay := e.retryPolicy.Delay(attempt)
		log.Debugf("node %s attempt %d failed, retrying in %s: %v", node.ID, attempt, delay, err)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}
	}
	return nil, lastErr
}

// shouldRetry consults the classifier, excluding errors that never retry.
func (e *Executor) shouldRetry(err error) bool {
	var routing *RoutingError
	var validation *ValidationError
	var invalid *message.InvalidTransitionError
	if errors.As(err, &routing) || errors.As(err, &validation) || errors.As(err, &invalid) {
		return false
	}
	return e.classifier(err)
}

func (e *Executor) runNode(ctx context.Context, g *Graph, node *Node, msg *message.Message, attempt int) (out *nodeOutput, err error) {
	ctx, span := itrace.Tracer.Start(ctx, "flow.node."+string(node.Type),
		oteltrace.WithAttributes(
			itrace.KeyGraphID.String(g.ID()),
			itrace.KeyRunID.String(msg.RunID),
			itrace.KeyNodeID.String(node.ID),
			itrace.KeyNodeType.String(string(node.Type)),
			itrace.KeyAttempt.Int(attempt),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	switch node.Type {
	case NodeTypeAgent:
		return e.runAgentNode(ctx, node, msg)
	case NodeTypeTool:
		return e.runToolNode(ctx, node, msg)
	case NodeTypeDecision:
		return e.runDecisionNode(ctx, node, msg)
	case NodeTypeHuman:
		return e.runHumanNode(node, msg)
	default:
		return nil, &ExecutionError{
			Message: fmt.Sprintf("unknown node type %q", node.Type),
			NodeID:  node.ID,
		}
	}
}

func (e *Executor) runAgentNode(ctx context.Context, node *Node, msg *message.Message) (*nodeOutput, error) {
	reply, err := node.Agent.HandleMessage(ctx, msg)
	if err != nil {
		return nil, &ExecutionError{Message: err.Error(), NodeID: node.ID, Err: err}
	}
	if reply == nil {
		return nil, &ExecutionError{Message: "agent returned no message", NodeID: node.ID}
	}
	return &nodeOutput{msg: mergeReply(msg, reply)}, nil
}

// mergeReply folds an agent reply into the execution message. The executor
// stays the authority over state, history and run identity; the reply
// contributes content, payload and tool calls.
func mergeReply(current, reply *message.Message) *message.Message {
	merged := current.Clone()
	merged.Content = reply.Content
	if reply.Type != "" {
		merged.Type = reply.Type
	}
	for k, v := range reply.Data {
		if merged.Data == nil {
			merged.Data = make(map[string]any)
		}
		merged.Data[k] = v
	}
	for k, v := range reply.Metadata {
		if merged.Metadata == nil {
			merged.Metadata = make(map[string]any)
		}
		merged.Metadata[k] = v
	}
	seen := make(map[string]struct{}, len(merged.ToolCalls))
	for _, tc := range merged.ToolCalls {
		seen[tc.ID] = struct{}{}
	}
	for _, tc := range reply.ToolCalls {
		if _, ok := seen[tc.ID]; !ok {
			merged.ToolCalls = append(merged.ToolCalls, tc.Clone())
		}
	}
	return merged
}

func (e *Executor) runToolNode(ctx context.Context, node *Node, msg *message.Message) (*nodeOutput, error) {
	var params map[string]any
	if node.Params != nil {
		params = node.Params(msg)
	} else {
		params = msg.Clone().Data
	}
	// Nil-valued parameters are not passed to the tool.
	cleaned := make(map[string]any, len(params))
	for k, v := range params {
		if v != nil {
			cleaned[k] = v
		}
	}
	if ac := msg.AgentContext; ac != nil {
		for key, value := range ac.Values() {
			if value != "" {
				cleaned[key] = value
			}
		}
	}
	result, err := node.Tool.Call(ctx, cleaned)
	if err != nil {
		return nil, &ExecutionError{
			Message: fmt.Sprintf("tool %s failed: %v", node.Tool.Name(), err),
			NodeID:  node.ID,
			Err:     err,
		}
	}
	updated := msg.WithDataMap(map[string]any{
		KeyToolResult:  result,
		KeyToolName:    node.Tool.Name(),
		KeyToolSuccess: true,
	})
	return &nodeOutput{msg: updated}, nil
}

func (e *Executor) runHumanNode(node *Node, msg *message.Message) (*nodeOutput, error) {
	spec := node.Human

	// A resumed message re-enters at the human node that paused it; when
	// its request has been answered the node passes through.
	if issuedBy, _ := msg.Data[KeyHITLNodeID].(string); issuedBy == node.ID && humanAnswered(msg) {
		passed := msg.Clone()
		delete(passed.Data, KeyHITLNodeID)
		delete(passed.Data, KeyHITLRequestID)
		return &nodeOutput{msg: passed}, nil
	}

	var tc message.ToolCall
	switch {
	case len(spec.Options) > 0:
		tc = hitl.NewSelectionRequest(spec.Options, spec.Prompt, spec.SelectionType)
	case spec.Confirmation:
		tc = hitl.NewConfirmationRequest(spec.Prompt, spec.ConfirmOptions)
	default:
		tc = hitl.NewInputRequest(spec.Prompt, spec.InputType)
	}
	updated := msg.WithToolCall(tc).WithDataMap(map[string]any{
		KeyHITLNodeID:    node.ID,
		KeyHITLRequestID: tc.ID,
	})
	waiting, err := updated.TransitionTo(message.StateWaiting, ReasonHITLRequired, node.ID)
	if err != nil {
		return nil, err
	}
	return &nodeOutput{msg: waiting}, nil
}

// humanAnswered reports whether the pending request on the message has been
// answered, either by an appended user_response tool call or by raw text
// merged during resumption.
func humanAnswered(msg *message.Message) bool {
	if msg.LastUserResponse() != nil && !msg.IsPendingHITL() {
		return true
	}
	_, ok := msg.Data[KeyResponseText]
	return ok
}

func (e *Executor) runDecisionNode(ctx context.Context, node *Node, msg *message.Message) (*nodeOutput, error) {
	spec := node.Decision
	listener := spec.Listener
	if listener == nil {
		listener = decision.NoopListener{}
	}
	notify(func() { listener.OnDecisionStart(node.ID, msg) })
	start := time.Now()

	result, err := spec.Engine.Evaluate(ctx, msg)
	if err != nil {
		elapsed := time.Since(start)
		notify(func() { listener.OnDecisionError(node.ID, err, elapsed) })
		return nil, &ExecutionError{
			Message: fmt.Sprintf("decision engine %s failed: %v", spec.Engine.ID(), err),
			NodeID:  node.ID,
			Err:     err,
		}
	}
	if result == nil {
		result = decision.Default()
	}

	target, routed := spec.Routes[result.ResultID]
	usedFallback := false
	if !routed {
		if spec.Fallback == "" {
			elapsed := time.Since(start)
			routingErr := &RoutingError{
				EngineID:         spec.Engine.ID(),
				ResultID:         result.ResultID,
				NodeID:           node.ID,
				AvailableTargets: sortedKeys(spec.Routes),
			}
			notify(func() { listener.OnDecisionError(node.ID, routingErr, elapsed) })
			return nil, routingErr
		}
		target = spec.Fallback
		usedFallback = true
	}

	values := map[string]any{
		KeyDecisionResult:       result.ResultID,
		KeyDecisionTarget:       target,
		KeyDecisionEngine:       spec.Engine.ID(),
		KeyDecisionNodeID:       node.ID,
		KeyDecisionDescription:  result.Description,
		KeyDecisionUsedFallback: usedFallback,
	}
	for k, v := range result.Metadata {
		values[KeyDecisionMetadataPrefix+k] = v
	}
	updated := msg.WithDataMap(values)

	elapsed := time.Since(start)
	notify(func() { listener.OnDecisionComplete(node.ID, result, target, elapsed) })
	if usedFallback {
		notify(func() { listener.OnDecisionFallback(node.ID, result.ResultID, target, elapsed) })
	}
	return &nodeOutput{msg: updated, next: target}, nil
}

// notify guards a listener hook against panics.
func notify(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("decision listener panicked: %v", r)
		}
	}()
	fn()
}

// nextNode selects the successor from the edge map when the node gave no
// routing hint.
func (e *Executor) nextNode(node *Node, msg *message.Message, g *Graph) (string, error) {
	edges := g.Edges(node.ID)
	if len(edges) == 0 {
		return "", nil
	}
	var unconditional []*Edge
	guarded := false
	for _, edge := range edges {
		if edge.When == "" {
			unconditional = append(unconditional, edge)
		} else {
			guarded = true
		}
	}
	if !guarded {
		if len(unconditional) == 1 {
			return unconditional[0].To, nil
		}
		return "", &RoutingError{
			Message: fmt.Sprintf("ambiguous unconditional edges from node %s", node.ID),
			NodeID:  node.ID,
		}
	}
	resultID, _ := msg.Data[KeyDecisionResult].(string)
	if resultID != "" {
		for _, edge := range edges {
			if edge.When == resultID {
				return edge.To, nil
			}
		}
	}
	// A single unconditional edge among guarded ones acts as the default.
	if len(unconditional) == 1 {
		return unconditional[0].To, nil
	}
	available := make([]string, 0, len(edges))
	for _, edge := range edges {
		if edge.When != "" {
			available = append(available, edge.When)
		}
	}
	sort.Strings(available)
	return "", &RoutingError{
		Message:          fmt.Sprintf("no decision recorded for guarded edges from node %s", node.ID),
		ResultID:         resultID,
		NodeID:           node.ID,
		AvailableTargets: available,
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
