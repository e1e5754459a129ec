//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package hitl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponseNil(t *testing.T) {
	parsed, ok := ParseResponse(nil, DefaultParseOptions())
	assert.False(t, ok)
	assert.Nil(t, parsed)
}

func TestParseResponseNormalized(t *testing.T) {
	parsed, ok := ParseResponse(map[string]any{
		"kind":       string(KindSingle),
		"selectedId": "opt-1",
	}, DefaultParseOptions())
	require.True(t, ok)
	assert.Equal(t, KindSingle, parsed.Kind)
	assert.Equal(t, "opt-1", parsed.SelectedID)
}

func TestParseResponseSelectedLists(t *testing.T) {
	for _, key := range []string{"selected_ids", "selectedIds", "selected", "selectedOptions"} {
		parsed, ok := ParseResponse(map[string]any{key: []any{"a", "b"}}, DefaultParseOptions())
		require.True(t, ok, "key %s", key)
		assert.Equal(t, KindMulti, parsed.Kind)
		assert.Equal(t, []string{"a", "b"}, parsed.SelectedIDs)
	}

	// A one-element list collapses to a single selection.
	parsed, ok := ParseResponse(map[string]any{"selected_ids": []any{"only"}}, DefaultParseOptions())
	require.True(t, ok)
	assert.Equal(t, KindSingle, parsed.Kind)
	assert.Equal(t, "only", parsed.SelectedID)
}

func TestParseResponseSingleOption(t *testing.T) {
	parsed, ok := ParseResponse(map[string]any{"selected_option": "opt-2"}, DefaultParseOptions())
	require.True(t, ok)
	assert.Equal(t, KindSingle, parsed.Kind)
	assert.Equal(t, "opt-2", parsed.SelectedID)
}

func TestParseResponseQuantities(t *testing.T) {
	parsed, ok := ParseResponse(map[string]any{
		ArgQuantities: map[string]any{
			"apples":  float64(3),
			"pears":   0,
			"bananas": -1,
		},
	}, DefaultParseOptions())
	require.True(t, ok)
	assert.Equal(t, KindQuantity, parsed.Kind)
	assert.Equal(t, map[string]int{"apples": 3}, parsed.Quantities)
}

func TestParseResponseAllZeroQuantitiesFallsThrough(t *testing.T) {
	parsed, ok := ParseResponse(map[string]any{
		ArgQuantities: map[string]any{"apples": 0},
		"text":        "none please",
	}, DefaultParseOptions())
	require.True(t, ok)
	assert.Equal(t, KindText, parsed.Kind)
	assert.Equal(t, "none please", parsed.Text)
}

func TestParseResponseTextAliases(t *testing.T) {
	for _, key := range []string{"text", "rawText", "response_text", "responseText", "input", "value"} {
		parsed, ok := ParseResponse(map[string]any{key: "hello"}, DefaultParseOptions())
		require.True(t, ok, "key %s", key)
		assert.Equal(t, KindText, parsed.Kind)
		assert.Equal(t, "hello", parsed.Text)
	}
}

func TestParseResponseStructuredDataWins(t *testing.T) {
	parsed, ok := ParseResponse(map[string]any{
		ArgStructuredData: map[string]any{"selected_option": "inner"},
		"selected_option": "outer",
	}, DefaultParseOptions())
	require.True(t, ok)
	assert.Equal(t, "inner", parsed.SelectedID)
}

func TestParseResponsePriorityOrder(t *testing.T) {
	// A selection beats text when both are present.
	parsed, ok := ParseResponse(map[string]any{
		"selected_option": "opt-1",
		"text":            "ignore me",
	}, DefaultParseOptions())
	require.True(t, ok)
	assert.Equal(t, KindSingle, parsed.Kind)
}

func TestParseResponseRejectsTextWhenForbidden(t *testing.T) {
	opts := ParseOptions{AllowFreeText: false, SelectionType: SelectionSingle}
	parsed, ok := ParseResponse(map[string]any{"text": "free answer"}, opts)
	assert.False(t, ok)
	assert.Nil(t, parsed)

	// Without a selection type the text is still accepted.
	parsed, ok = ParseResponse(map[string]any{"text": "free answer"},
		ParseOptions{AllowFreeText: false})
	require.True(t, ok)
	assert.Equal(t, KindText, parsed.Kind)
}

func TestParseResponseNothingParseable(t *testing.T) {
	_, ok := ParseResponse(map[string]any{"unrelated": 42}, DefaultParseOptions())
	assert.False(t, ok)
}
