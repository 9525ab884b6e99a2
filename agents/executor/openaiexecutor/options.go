/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaiexecutor

import (
	"errors"
	"fmt"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/retry"
)

// Option is a functional option for configuring the model
type Option func(*Model) error

// WithModel sets the model name sent to the endpoint.
func WithModel(model string) Option {
	return func(m *Model) error {
		if model == "" {
			return errors.New("model name cannot be empty")
		}
		m.model = model
		return nil
	}
}

// WithTemperature sets the sampling temperature (0.0 to 2.0).
func WithTemperature(temp float64) Option {
	return func(m *Model) error {
		if temp < 0.0 || temp > 2.0 {
			return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", temp)
		}
		m.temperature = &temp
		return nil
	}
}

// WithMaxTokens sets the completion token limit used when a request does not carry one.
func WithMaxTokens(tokens int64) Option {
	return func(m *Model) error {
		if tokens <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", tokens)
		}
		m.maxTokens = tokens
		return nil
	}
}

// WithRetryConfig sets the retry configuration for transient errors.
func WithRetryConfig(cfg retry.RetryConfig) Option {
	return func(m *Model) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		m.retryConfig = cfg
		return nil
	}
}
