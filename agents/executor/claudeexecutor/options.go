/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"fmt"
	"strings"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/retry"
)

// Option is a functional option for configuring the model
type Option func(*Model) error

// WithModel allows overriding the model name
func WithModel(model string) Option {
	return func(m *Model) error {
		if !strings.HasPrefix(model, "claude-") {
			return fmt.Errorf("model %q does not appear to be a Claude model (expected claude-* format)", model)
		}
		m.modelName = model
		return nil
	}
}

// WithMaxTokens sets the response token limit used when a request does not carry one.
func WithMaxTokens(tokens int64) Option {
	return func(m *Model) error {
		if tokens <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", tokens)
		}
		if tokens > 32000 {
			return fmt.Errorf("max tokens %d exceeds maximum of 32000", tokens)
		}
		m.maxTokens = tokens
		return nil
	}
}

// WithTemperature sets the temperature for responses
// Claude models support temperature values from 0.0 to 1.0
func WithTemperature(temp float64) Option {
	return func(m *Model) error {
		if temp < 0.0 || temp > 1.0 {
			return fmt.Errorf("temperature must be between 0.0 and 1.0, got %f", temp)
		}
		m.temperature = temp
		return nil
	}
}

// WithRetryConfig sets the retry configuration for transient Claude API errors.
// MaxRetries of 0 returns the first error unchanged.
func WithRetryConfig(cfg retry.RetryConfig) Option {
	return func(m *Model) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		m.retryConfig = cfg
		return nil
	}
}
