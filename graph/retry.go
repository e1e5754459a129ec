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
	"math"
	"math/rand"
	"time"
)

// Classifier decides whether a node error should be retried.
type Classifier func(err error) bool

// DefaultClassifier retries only errors explicitly marked with Retryable.
// Routing and validation failures never carry the marker, so they are
// returned immediately.
func DefaultClassifier(err error) bool {
	return IsRetryable(err)
}

// RetryPolicy controls how failed node executions are retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the computed delay.
	MaxDelay time.Duration
	// BackoffMultiplier scales the delay per attempt. 1 means fixed
	// delay, >1 exponential backoff.
	BackoffMultiplier float64
	// JitterFactor in [0,1] randomises the delay by up to +/- that
	// fraction. 0 means deterministic delays.
	JitterFactor float64
}

// DefaultRetryPolicy returns the policy used when none is configured:
// 3 attempts, 100ms initial delay, 30s cap, doubling, 10% jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFactor:      0.1,
	}
}

// Delay computes the delay before retry attempt n (1-based):
//
//	base     = initialDelay * backoffMultiplier^(n-1)
//	capped   = min(base, maxDelay)
//	jittered = capped * (1 + U(-jitterFactor, +jitterFactor))
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt-1))
	capped := math.Min(base, float64(p.MaxDelay))
	if p.JitterFactor > 0 {
		capped *= 1 + (rand.Float64()*2-1)*p.JitterFactor
	}
	if capped < 0 {
		return 0
	}
	return time.Duration(capped)
}
