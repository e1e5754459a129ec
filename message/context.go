//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package message

import "encoding/json"

// Well-known agent context keys.
const (
	// ContextKeyTenantID identifies the tenant that owns the run.
	ContextKeyTenantID = "tenantId"
	// ContextKeyUserID identifies the end user behind the run.
	ContextKeyUserID = "userId"
	// ContextKeySessionID identifies the conversational session.
	ContextKeySessionID = "sessionId"
	// ContextKeyCorrelationID correlates the run with external systems.
	ContextKeyCorrelationID = "correlationId"
)

// AgentContext is an immutable key/value mapping carrying tenant, user,
// session and correlation identifiers. It is propagated through every node
// and every checkpoint round-trip without loss.
type AgentContext struct {
	values map[string]string
}

// NewAgentContext creates an agent context from the given values.
// The input map is copied; later mutations of it are not observed.
func NewAgentContext(values map[string]string) *AgentContext {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &AgentContext{values: copied}
}

// Get returns the value for key and whether it is present.
func (c *AgentContext) Get(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c.values[key]
	return v, ok
}

// With returns a new context with key set to value.
func (c *AgentContext) With(key, value string) *AgentContext {
	values := c.Values()
	values[key] = value
	return &AgentContext{values: values}
}

// Values returns a copy of all context values.
func (c *AgentContext) Values() map[string]string {
	values := make(map[string]string)
	if c == nil {
		return values
	}
	for k, v := range c.values {
		values[k] = v
	}
	return values
}

// TenantID returns the tenant identifier, if any.
func (c *AgentContext) TenantID() string { v, _ := c.Get(ContextKeyTenantID); return v }

// UserID returns the user identifier, if any.
func (c *AgentContext) UserID() string { v, _ := c.Get(ContextKeyUserID); return v }

// SessionID returns the session identifier, if any.
func (c *AgentContext) SessionID() string { v, _ := c.Get(ContextKeySessionID); return v }

// CorrelationID returns the correlation identifier, if any.
func (c *AgentContext) CorrelationID() string { v, _ := c.Get(ContextKeyCorrelationID); return v }

// MarshalJSON implements json.Marshaler.
func (c *AgentContext) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Values())
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *AgentContext) UnmarshalJSON(data []byte) error {
	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	c.values = values
	return nil
}
