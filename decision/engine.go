//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package decision

import (
	"context"
	"errors"
	"fmt"

	"trpc.group/trpc-go/trpc-flow-go/log"
	"trpc.group/trpc-go/trpc-flow-go/message"
)

// Engine produces a routing decision from a message. Engines are typically
// shared across runs and must be safe for concurrent evaluation.
type Engine interface {
	// ID identifies the engine in routing metadata and errors.
	ID() string
	// Evaluate produces a decision for the given message.
	Evaluate(ctx context.Context, msg *message.Message) (*Result, error)
	// Validate checks the engine configuration.
	Validate() error
}

// EvaluateFunc adapts a function to the evaluation part of Engine.
type EvaluateFunc func(ctx context.Context, msg *message.Message) (*Result, error)

type funcEngine struct {
	id string
	fn EvaluateFunc
}

// New creates an engine from an evaluation function.
func New(id string, fn EvaluateFunc) Engine {
	return &funcEngine{id: id, fn: fn}
}

func (e *funcEngine) ID() string { return e.id }

func (e *funcEngine) Evaluate(ctx context.Context, msg *message.Message) (*Result, error) {
	return e.fn(ctx, msg)
}

func (e *funcEngine) Validate() error {
	if e.id == "" {
		return errors.New("engine id cannot be empty")
	}
	if e.fn == nil {
		return fmt.Errorf("engine %s has no evaluation function", e.id)
	}
	return nil
}

// Always creates an engine that produces the same result for every message.
func Always(result *Result) Engine {
	return New("always", func(context.Context, *message.Message) (*Result, error) {
		if result == nil {
			return Default(), nil
		}
		return result, nil
	})
}

// Noop creates an engine that always produces DEFAULT.
func Noop() Engine {
	return New("noop", func(context.Context, *message.Message) (*Result, error) {
		return Default(), nil
	})
}

// FromData creates an engine that routes on a message data value. The value
// is matched against mapping by its string form; when absent or unmatched,
// def is produced (DEFAULT if def is nil).
func FromData(key string, mapping map[string]*Result, def *Result) Engine {
	return New("data:"+key, func(_ context.Context, msg *message.Message) (*Result, error) {
		return matchMapping(msg.Data, key, mapping, def), nil
	})
}

// FromMetadata creates an engine that routes on a message metadata value.
func FromMetadata(key string, mapping map[string]*Result, def *Result) Engine {
	return New("metadata:"+key, func(_ context.Context, msg *message.Message) (*Result, error) {
		return matchMapping(msg.Metadata, key, mapping, def), nil
	})
}

func matchMapping(values map[string]any, key string, mapping map[string]*Result, def *Result) *Result {
	if def == nil {
		def = Default()
	}
	v, ok := values[key]
	if !ok {
		return def
	}
	if result, ok := mapping[fmt.Sprint(v)]; ok {
		return result
	}
	return def
}

type fallbackEngine struct {
	engines []Engine
}

// Fallback creates an engine that evaluates the given engines in order and
// produces the first non-DEFAULT result. An engine error is logged and the
// next engine is consulted; when every engine yields DEFAULT (or fails),
// DEFAULT is produced.
func Fallback(engines ...Engine) Engine {
	return &fallbackEngine{engines: engines}
}

func (e *fallbackEngine) ID() string { return "fallback" }

func (e *fallbackEngine) Evaluate(ctx context.Context, msg *message.Message) (*Result, error) {
	for _, engine := range e.engines {
		result, err := engine.Evaluate(ctx, msg)
		if err != nil {
			log.Warnf("fallback engine: %s failed, trying next: %v", engine.ID(), err)
			continue
		}
		if result != nil && !result.IsDefault() {
			return result, nil
		}
	}
	return Default(), nil
}

// Validate aggregates the validation results of all composed engines.
func (e *fallbackEngine) Validate() error {
	if len(e.engines) == 0 {
		return errors.New("fallback requires at least one engine")
	}
	var errs []error
	for _, engine := range e.engines {
		if err := engine.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("engine %s: %w", engine.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// Predicate decides which branch of a conditional engine evaluates.
type Predicate func(msg *message.Message) bool

type conditionalEngine struct {
	predicate Predicate
	ifTrue    Engine
	ifFalse   Engine
}

// Conditional creates an engine that evaluates ifTrue when the predicate
// holds for the message and ifFalse otherwise.
func Conditional(predicate Predicate, ifTrue, ifFalse Engine) Engine {
	return &conditionalEngine{predicate: predicate, ifTrue: ifTrue, ifFalse: ifFalse}
}

func (e *conditionalEngine) ID() string { return "conditional" }

func (e *conditionalEngine) Evaluate(ctx context.Context, msg *message.Message) (*Result, error) {
	if e.predicate(msg) {
		return e.ifTrue.Evaluate(ctx, msg)
	}
	return e.ifFalse.Evaluate(ctx, msg)
}

func (e *conditionalEngine) Validate() error {
	if e.predicate == nil {
		return errors.New("conditional requires a predicate")
	}
	if e.ifTrue == nil || e.ifFalse == nil {
		return errors.New("conditional requires both branches")
	}
	return errors.Join(e.ifTrue.Validate(), e.ifFalse.Validate())
}
