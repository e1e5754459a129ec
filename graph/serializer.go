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
	"bytes"
	"encoding/json"
	"fmt"
)

// Serializer encodes checkpoints as JSON. HTML escaping is disabled so URIs
// and SPARQL-like payloads round-trip byte for byte. Decoding ignores
// unknown fields; integers may widen to 64-bit floats inside the untyped
// state and metadata maps.
type Serializer struct {
	pretty bool
}

// NewSerializer creates a compact serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// NewPrettySerializer creates a human-readable serializer.
func NewPrettySerializer() *Serializer {
	return &Serializer{pretty: true}
}

// Marshal encodes the checkpoint.
func (s *Serializer) Marshal(cp *Checkpoint) ([]byte, error) {
	if cp == nil {
		return nil, &ValidationError{Message: "cannot serialize a nil checkpoint"}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if s.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(cp); err != nil {
		return nil, fmt.Errorf("marshal checkpoint %s: %w", cp.ID, err)
	}
	// Encoder appends a trailing newline; compact output drops it.
	out := buf.Bytes()
	if !s.pretty && len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	return out, nil
}

// Unmarshal decodes a checkpoint.
func (s *Serializer) Unmarshal(data []byte) (*Checkpoint, error) {
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}
