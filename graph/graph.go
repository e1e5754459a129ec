//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package graph provides the directed-graph runner that drives a typed
// message through agent, tool, decision and human nodes, with checkpoint
// persistence for runs paused on human input.
package graph

import (
	"context"
	"fmt"
	"time"

	"trpc.group/trpc-go/trpc-flow-go/decision"
	"trpc.group/trpc-go/trpc-flow-go/hitl"
	"trpc.group/trpc-go/trpc-flow-go/message"
)

// NodeType represents the type of a node in the graph.
type NodeType string

const (
	// NodeTypeAgent is a node that dispatches to an agent handler.
	NodeTypeAgent NodeType = "agent"
	// NodeTypeTool is a node that invokes a tool handler.
	NodeTypeTool NodeType = "tool"
	// NodeTypeDecision is a node that routes via a decision engine.
	NodeTypeDecision NodeType = "decision"
	// NodeTypeHuman is a node that pauses the run for human input.
	NodeTypeHuman NodeType = "human"
)

// AgentHandler is an opaque agent: it accepts a message and returns a
// reply. Its internals (prompt building, LLM calls) are outside the runner.
type AgentHandler interface {
	HandleMessage(ctx context.Context, msg *message.Message) (*message.Message, error)
}

// AgentHandlerFunc adapts a function to the AgentHandler interface.
type AgentHandlerFunc func(ctx context.Context, msg *message.Message) (*message.Message, error)

// HandleMessage implements AgentHandler.
func (f AgentHandlerFunc) HandleMessage(ctx context.Context, msg *message.Message) (*message.Message, error) {
	return f(ctx, msg)
}

// ToolHandler executes an external operation with structured parameters.
type ToolHandler interface {
	// Name identifies the tool in message data and errors.
	Name() string
	// Call executes the tool.
	Call(ctx context.Context, params map[string]any) (any, error)
}

// ParamsProjection maps a message to tool parameters. The default
// projection passes the message data unchanged.
type ParamsProjection func(msg *message.Message) map[string]any

// DecisionSpec configures a decision node.
type DecisionSpec struct {
	// Engine produces the routing decision.
	Engine decision.Engine
	// Routes maps result identifiers to target node ids.
	Routes map[string]string
	// Fallback is the target used when the result has no route. Empty
	// means no fallback; an unroutable result is then an error.
	Fallback string
	// Listener observes the decision lifecycle. Nil means no listener.
	Listener decision.Listener
}

// HumanSpec configures a human node.
type HumanSpec struct {
	// Prompt is shown to the human.
	Prompt string
	// Options, when set, turns the pause into a selection request.
	Options []hitl.SelectionItem
	// InputType hints at the expected free-text input, e.g. "text".
	InputType string
	// SelectionType is "single" or "multiple"; empty means "single".
	SelectionType string
	// AllowFreeText permits a text answer to a selection request.
	AllowFreeText bool
	// Confirmation turns the pause into a confirmation request.
	Confirmation bool
	// ConfirmOptions optionally replaces the default confirm choices.
	ConfirmOptions []string
	// Timeout bounds how long the pause may stay resumable. Zero means
	// the checkpoint configuration TTL applies.
	Timeout time.Duration
}

// Node is one unit of execution within a graph. Exactly one of the variant
// fields matching Type is set; the runner dispatches on Type.
type Node struct {
	// ID is the unique identifier of the node within its graph.
	ID string
	// Type selects the variant.
	Type NodeType
	// Name is the human-readable name of the node.
	Name string
	// Description describes the node.
	Description string
	// Agent is set for agent nodes.
	Agent AgentHandler
	// Tool is set for tool nodes.
	Tool ToolHandler
	// Params projects the message into tool parameters; nil means the
	// message data is passed unchanged.
	Params ParamsProjection
	// Decision is set for decision nodes.
	Decision *DecisionSpec
	// Human is set for human nodes.
	Human *HumanSpec
}

// Edge links a source node to a target node. A guarded edge is taken only
// when the recorded decision result matches When.
type Edge struct {
	// From is the source node id.
	From string
	// To is the target node id.
	To string
	// When guards the edge with a decision result identifier. Empty means
	// the edge is unconditional.
	When string
}

// Graph is a directed collection of nodes plus an entry point and edge map.
// A compiled graph is immutable and safe for concurrent execution.
type Graph struct {
	id         string
	entryPoint string
	nodes      map[string]*Node
	edges      map[string][]*Edge
}

// ID returns the graph identifier.
func (g *Graph) ID() string { return g.id }

// EntryPoint returns the id of the entry node.
func (g *Graph) EntryPoint() string { return g.entryPoint }

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	node, ok := g.nodes[id]
	return node, ok
}

// Edges returns the outgoing edges of the given node.
func (g *Graph) Edges(from string) []*Edge {
	return g.edges[from]
}

// NodeIDs returns the ids of all nodes.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	return ids
}

func (g *Graph) validate() error {
	if g.id == "" {
		return &ValidationError{Message: "graph id cannot be empty"}
	}
	if g.entryPoint == "" {
		return &ValidationError{Message: "graph has no entry point"}
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return &ValidationError{Message: fmt.Sprintf("entry point %q is not a node", g.entryPoint)}
	}
	for from, edges := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return &ValidationError{Message: fmt.Sprintf("edge source %q is not a node", from)}
		}
		for _, edge := range edges {
			if _, ok := g.nodes[edge.To]; !ok {
				return &ValidationError{Message: fmt.Sprintf("edge target %q is not a node", edge.To)}
			}
		}
	}
	for id, node := range g.nodes {
		if err := validateNode(id, node); err != nil {
			return err
		}
	}
	return nil
}

func validateNode(id string, node *Node) error {
	switch node.Type {
	case NodeTypeAgent:
		if node.Agent == nil {
			return &ValidationError{Message: fmt.Sprintf("agent node %q has no handler", id)}
		}
	case NodeTypeTool:
		if node.Tool == nil {
			return &ValidationError{Message: fmt.Sprintf("tool node %q has no handler", id)}
		}
	case NodeTypeDecision:
		if node.Decision == nil || node.Decision.Engine == nil {
			return &ValidationError{Message: fmt.Sprintf("decision node %q has no engine", id)}
		}
		if err := node.Decision.Engine.Validate(); err != nil {
			return &ValidationError{Message: fmt.Sprintf("decision node %q: %v", id, err)}
		}
	case NodeTypeHuman:
		if node.Human == nil {
			return &ValidationError{Message: fmt.Sprintf("human node %q has no spec", id)}
		}
	default:
		return &ValidationError{Message: fmt.Sprintf("node %q has unknown type %q", id, node.Type)}
	}
	return nil
}
