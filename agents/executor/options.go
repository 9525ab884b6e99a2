/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package executor

import (
	"fmt"
	"time"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/metrics"
)

// Option is a functional option for configuring the executor
type Option func(*executor) error

// WithMaxSteps sets the step budget used when a Session does not set one.
func WithMaxSteps(n int) Option {
	return func(e *executor) error {
		if n <= 0 {
			return fmt.Errorf("max steps must be positive, got %d", n)
		}
		e.maxSteps = n
		return nil
	}
}

// WithMaxTokens sets the per-round output token limit passed to the model.
func WithMaxTokens(tokens int64) Option {
	return func(e *executor) error {
		if tokens <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", tokens)
		}
		e.maxTokens = tokens
		return nil
	}
}

// WithStepDelay waits d before every round after the first.
// Useful for pacing rate-limited providers.
func WithStepDelay(d time.Duration) Option {
	return func(e *executor) error {
		if d < 0 {
			return fmt.Errorf("step delay cannot be negative, got %v", d)
		}
		e.stepDelay = d
		return nil
	}
}

// WithAttributeEnricher replaces the metric attribute enricher.
// The default adds the execution context from agenttrace.
func WithAttributeEnricher(enricher metrics.AttributeEnricher) Option {
	return func(e *executor) error {
		e.genaiMetrics.SetAttributeEnricher(enricher)
		return nil
	}
}
