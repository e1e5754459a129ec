//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package trace provides the OpenTelemetry tracer used by the graph runner.
package trace

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// InstrumentationName identifies spans produced by this module.
const InstrumentationName = "trpc.group/trpc-go/trpc-flow-go"

// Tracer is the tracer used for graph execution spans. It resolves through
// the global tracer provider, so applications configure exporters the usual
// OpenTelemetry way.
var Tracer oteltrace.Tracer = otel.Tracer(InstrumentationName)

// Span attribute keys.
const (
	// KeyGraphID is the graph identifier attribute.
	KeyGraphID = attribute.Key("flow.graph.id")
	// KeyRunID is the run identifier attribute.
	KeyRunID = attribute.Key("flow.run.id")
	// KeyNodeID is the node identifier attribute.
	KeyNodeID = attribute.Key("flow.node.id")
	// KeyNodeType is the node type attribute.
	KeyNodeType = attribute.Key("flow.node.type")
	// KeyAttempt is the execution attempt attribute, 1-based.
	KeyAttempt = attribute.Key("flow.node.attempt")
)
