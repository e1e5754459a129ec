//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package hitl

import "fmt"

// ResponseKind classifies a normalised user response.
type ResponseKind string

const (
	// KindSingle is a single-option selection.
	KindSingle ResponseKind = "SINGLE"
	// KindMulti is a multi-option selection.
	KindMulti ResponseKind = "MULTI"
	// KindQuantity is a per-option quantity selection.
	KindQuantity ResponseKind = "QUANTITY"
	// KindText is a free-text response.
	KindText ResponseKind = "TEXT"
)

// ParsedResponse is the normalised form of a user_response payload.
type ParsedResponse struct {
	// Kind classifies the response.
	Kind ResponseKind
	// SelectedID is set for SINGLE responses.
	SelectedID string
	// SelectedIDs is set for MULTI responses.
	SelectedIDs []string
	// Quantities is set for QUANTITY responses; values are positive.
	Quantities map[string]int
	// Text is set for TEXT responses.
	Text string
}

// ParseOptions constrains how a response may be parsed, mirroring the
// template that produced the request.
type ParseOptions struct {
	// AllowFreeText permits TEXT responses. Defaults to true via
	// DefaultParseOptions.
	AllowFreeText bool
	// SelectionType is "single" or "multiple" when the request was a
	// selection, empty otherwise.
	SelectionType string
}

// DefaultParseOptions permits every response kind.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{AllowFreeText: true}
}

// Aliases accepted for each logical field, in documented priority order.
var (
	selectedListKeys   = []string{"selected_ids", "selectedIds", "selected", "selectedOptions"}
	selectedSingleKeys = []string{"selected_option", "selectedOption"}
	textKeys           = []string{"text", "rawText", "response_text", "responseText", "input", "value"}
)

// ParseResponse normalises the arguments of a user_response tool call.
// It checks, in priority order: an already-normalised record, selected id
// lists, a single selected option, quantities (positive entries only), and
// finally free-text fields. The boolean result is false when nothing
// parseable was found or when a text-only response is rejected because the
// request forbade free text.
func ParseResponse(args map[string]any, opts ParseOptions) (*ParsedResponse, bool) {
	if args == nil {
		return nil, false
	}

	// 1. Already-normalised record.
	if kind, ok := stringAt(args, "kind"); ok {
		if parsed, ok := parseNormalized(ResponseKind(kind), args); ok {
			return parsed, true
		}
	}

	// 2. Selected id lists.
	for _, key := range selectedListKeys {
		ids, ok := stringListAt(args, key)
		if !ok || len(ids) == 0 {
			continue
		}
		if len(ids) == 1 {
			return &ParsedResponse{Kind: KindSingle, SelectedID: ids[0]}, true
		}
		return &ParsedResponse{Kind: KindMulti, SelectedIDs: ids}, true
	}

	// 3. Single selected option.
	for _, key := range selectedSingleKeys {
		if id, ok := stringAt(args, key); ok && id != "" {
			return &ParsedResponse{Kind: KindSingle, SelectedID: id}, true
		}
	}

	// 4. Quantities; zero and negative entries are silently dropped.
	if quantities, ok := quantitiesAt(args, ArgQuantities); ok && len(quantities) > 0 {
		return &ParsedResponse{Kind: KindQuantity, Quantities: quantities}, true
	}

	// 5. Free text.
	for _, key := range textKeys {
		text, ok := stringAt(args, key)
		if !ok || text == "" {
			continue
		}
		if !opts.AllowFreeText &&
			(opts.SelectionType == SelectionSingle || opts.SelectionType == SelectionMultiple) {
			return nil, false
		}
		return &ParsedResponse{Kind: KindText, Text: text}, true
	}

	return nil, false
}

func parseNormalized(kind ResponseKind, args map[string]any) (*ParsedResponse, bool) {
	switch kind {
	case KindSingle:
		if id, ok := stringAt(args, "selectedId"); ok {
			return &ParsedResponse{Kind: KindSingle, SelectedID: id}, true
		}
	case KindMulti:
		if ids, ok := stringListAt(args, "selectedIds"); ok {
			return &ParsedResponse{Kind: KindMulti, SelectedIDs: ids}, true
		}
	case KindQuantity:
		if quantities, ok := quantitiesAt(args, ArgQuantities); ok {
			return &ParsedResponse{Kind: KindQuantity, Quantities: quantities}, true
		}
	case KindText:
		if text, ok := stringAt(args, "text"); ok {
			return &ParsedResponse{Kind: KindText, Text: text}, true
		}
	}
	return nil, false
}

// stringAt looks key up at the top level and inside structured_data.
func stringAt(args map[string]any, key string) (string, bool) {
	if v, ok := lookup(args, key); ok {
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return "", false
}

func stringListAt(args map[string]any, key string) ([]string, bool) {
	v, ok := lookup(args, key)
	if !ok {
		return nil, false
	}
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...), true
	case []any:
		out := make([]string, 0, len(list))
		for _, e := range list {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func quantitiesAt(args map[string]any, key string) (map[string]int, bool) {
	v, ok := lookup(args, key)
	if !ok {
		return nil, false
	}
	raw, ok := v.(map[string]any)
	if !ok {
		if typed, ok := v.(map[string]int); ok {
			out := make(map[string]int, len(typed))
			for id, n := range typed {
				if n > 0 {
					out[id] = n
				}
			}
			return out, true
		}
		return nil, false
	}
	out := make(map[string]int, len(raw))
	for id, n := range raw {
		count, err := toInt(n)
		if err != nil {
			continue
		}
		if count > 0 {
			out[id] = count
		}
	}
	return out, true
}

func lookup(args map[string]any, key string) (any, bool) {
	if structured, ok := args[ArgStructuredData].(map[string]any); ok {
		if v, ok := structured[key]; ok {
			return v, true
		}
	}
	v, ok := args[key]
	return v, ok
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}
