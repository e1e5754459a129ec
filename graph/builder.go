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
	"fmt"

	"trpc.group/trpc-go/trpc-flow-go/decision"
)

// Builder provides a fluent interface for building graphs.
//
// Example usage:
//
//	g, err := graph.NewBuilder("review").
//	  AddAgentNode("draft", draftAgent).
//	  AddDecisionNode("gate", engine, map[string]string{"YES": "publish", "NO": "revise"}).
//	  AddAgentNode("publish", publishAgent).
//	  AddAgentNode("revise", reviseAgent).
//	  AddEdge("draft", "gate").
//	  SetEntryPoint("draft").
//	  Compile()
type Builder struct {
	graph *Graph
	errs  []error
}

// NewBuilder creates a graph builder for the graph with the given id.
func NewBuilder(id string) *Builder {
	return &Builder{
		graph: &Graph{
			id:    id,
			nodes: make(map[string]*Node),
			edges: make(map[string][]*Edge),
		},
	}
}

// NodeOption configures a node added through the builder.
type NodeOption func(*Node)

// WithName sets the name of the node.
func WithName(name string) NodeOption {
	return func(node *Node) {
		node.Name = name
	}
}

// WithDescription sets the description of the node.
func WithDescription(description string) NodeOption {
	return func(node *Node) {
		node.Description = description
	}
}

// WithParams sets the parameter projection of a tool node.
func WithParams(projection ParamsProjection) NodeOption {
	return func(node *Node) {
		node.Params = projection
	}
}

// WithFallback sets the fallback target of a decision node.
func WithFallback(target string) NodeOption {
	return func(node *Node) {
		if node.Decision != nil {
			node.Decision.Fallback = target
		}
	}
}

// WithListener sets the lifecycle listener of a decision node.
func WithListener(listener decision.Listener) NodeOption {
	return func(node *Node) {
		if node.Decision != nil {
			node.Decision.Listener = listener
		}
	}
}

// AddAgentNode adds a node that dispatches to the given agent handler.
func (b *Builder) AddAgentNode(id string, handler AgentHandler, opts ...NodeOption) *Builder {
	return b.addNode(&Node{ID: id, Type: NodeTypeAgent, Name: id, Agent: handler}, opts)
}

// AddToolNode adds a node that invokes the given tool handler.
func (b *Builder) AddToolNode(id string, tool ToolHandler, opts ...NodeOption) *Builder {
	return b.addNode(&Node{ID: id, Type: NodeTypeTool, Name: id, Tool: tool}, opts)
}

// AddDecisionNode adds a node that routes via the given engine. routes maps
// decision result identifiers to target node ids.
func (b *Builder) AddDecisionNode(id string, engine decision.Engine, routes map[string]string, opts ...NodeOption) *Builder {
	copied := make(map[string]string, len(routes))
	for k, v := range routes {
		copied[k] = v
	}
	return b.addNode(&Node{
		ID:       id,
		Type:     NodeTypeDecision,
		Name:     id,
		Decision: &DecisionSpec{Engine: engine, Routes: copied},
	}, opts)
}

// AddHumanNode adds a node that pauses the run for human input.
func (b *Builder) AddHumanNode(id string, spec *HumanSpec, opts ...NodeOption) *Builder {
	return b.addNode(&Node{ID: id, Type: NodeTypeHuman, Name: id, Human: spec}, opts)
}

func (b *Builder) addNode(node *Node, opts []NodeOption) *Builder {
	if _, exists := b.graph.nodes[node.ID]; exists {
		b.errs = append(b.errs, fmt.Errorf("duplicate node id %q", node.ID))
		return b
	}
	for _, opt := range opts {
		opt(node)
	}
	b.graph.nodes[node.ID] = node
	return b
}

// AddEdge adds an unconditional edge between two nodes.
func (b *Builder) AddEdge(from, to string) *Builder {
	b.graph.edges[from] = append(b.graph.edges[from], &Edge{From: from, To: to})
	return b
}

// AddConditionalEdge adds an edge guarded by a decision result identifier.
func (b *Builder) AddConditionalEdge(from, resultID, to string) *Builder {
	b.graph.edges[from] = append(b.graph.edges[from], &Edge{From: from, To: to, When: resultID})
	return b
}

// SetEntryPoint sets the single entry point of the graph.
func (b *Builder) SetEntryPoint(nodeID string) *Builder {
	if b.graph.entryPoint != "" && b.graph.entryPoint != nodeID {
		b.errs = append(b.errs, fmt.Errorf("entry point already set to %q", b.graph.entryPoint))
		return b
	}
	b.graph.entryPoint = nodeID
	return b
}

// Compile validates the graph and returns it for execution.
func (b *Builder) Compile() (*Graph, error) {
	for _, err := range b.errs {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	if err := b.graph.validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	return b.graph, nil
}

// MustCompile compiles the graph or panics if invalid.
func (b *Builder) MustCompile() *Graph {
	g, err := b.Compile()
	if err != nil {
		panic(err)
	}
	return g
}
