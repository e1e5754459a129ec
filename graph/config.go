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
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CheckpointConfig controls when the runner persists checkpoints.
type CheckpointConfig struct {
	// SaveOnHITL saves a checkpoint when the message enters WAITING.
	SaveOnHITL bool `json:"saveOnHitl" yaml:"save_on_hitl"`
	// SaveEveryNNodes saves a checkpoint after every N executed nodes.
	// Zero disables periodic saves.
	SaveEveryNNodes int `json:"saveEveryNNodes" yaml:"save_every_n_nodes"`
	// SaveOnError saves a checkpoint when execution returns a failure.
	SaveOnError bool `json:"saveOnError" yaml:"save_on_error"`
	// TTL is applied as expiresAt = now + TTL when saving. Zero means
	// checkpoints never expire.
	TTL time.Duration `json:"ttl" yaml:"ttl"`
	// AutoCleanup deletes the checkpoints of a run when execution
	// reaches terminal success.
	AutoCleanup bool `json:"autoCleanup" yaml:"auto_cleanup"`
}

// DefaultCheckpointConfig saves on human-in-the-loop pauses only, with a
// 24 hour TTL and automatic cleanup.
func DefaultCheckpointConfig() CheckpointConfig {
	return CheckpointConfig{
		SaveOnHITL:  true,
		TTL:         24 * time.Hour,
		AutoCleanup: true,
	}
}

// AggressiveCheckpointConfig saves after every node and on errors, with a
// 72 hour TTL.
func AggressiveCheckpointConfig() CheckpointConfig {
	return CheckpointConfig{
		SaveOnHITL:      true,
		SaveEveryNNodes: 1,
		SaveOnError:     true,
		TTL:             72 * time.Hour,
		AutoCleanup:     true,
	}
}

// MinimalCheckpointConfig saves on human-in-the-loop pauses with a short
// 1 hour TTL.
func MinimalCheckpointConfig() CheckpointConfig {
	return CheckpointConfig{
		SaveOnHITL:  true,
		TTL:         time.Hour,
		AutoCleanup: true,
	}
}

// DisabledCheckpointConfig never saves and never cleans up.
func DisabledCheckpointConfig() CheckpointConfig {
	return CheckpointConfig{}
}

// checkpointConfigYAML mirrors CheckpointConfig with the TTL as a duration
// string, e.g. "24h" or "90m".
type checkpointConfigYAML struct {
	SaveOnHITL      bool   `yaml:"save_on_hitl"`
	SaveEveryNNodes int    `yaml:"save_every_n_nodes"`
	SaveOnError     bool   `yaml:"save_on_error"`
	TTL             string `yaml:"ttl"`
	AutoCleanup     bool   `yaml:"auto_cleanup"`
}

// LoadCheckpointConfig reads a checkpoint configuration from a YAML file.
// The TTL is a duration string such as "24h"; missing fields keep their
// zero values.
func LoadCheckpointConfig(path string) (CheckpointConfig, error) {
	var cfg CheckpointConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read checkpoint config: %w", err)
	}
	var raw checkpointConfigYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("parse checkpoint config: %w", err)
	}
	cfg = CheckpointConfig{
		SaveOnHITL:      raw.SaveOnHITL,
		SaveEveryNNodes: raw.SaveEveryNNodes,
		SaveOnError:     raw.SaveOnError,
		AutoCleanup:     raw.AutoCleanup,
	}
	if raw.TTL != "" {
		ttl, err := time.ParseDuration(raw.TTL)
		if err != nil {
			return cfg, fmt.Errorf("parse checkpoint config ttl: %w", err)
		}
		cfg.TTL = ttl
	}
	return cfg, nil
}
