/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleexecutor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/retry"
)

// Option is a functional option for configuring the model
type Option func(*Model) error

// WithModel sets the Gemini model to use
func WithModel(model string) Option {
	return func(m *Model) error {
		if model == "" {
			return errors.New("model name cannot be empty")
		}
		if !strings.HasPrefix(model, "gemini-") {
			return fmt.Errorf("model %q does not appear to be a Gemini model (expected gemini-* format)", model)
		}
		m.model = model
		return nil
	}
}

// WithTemperature sets the temperature for responses
// Gemini models support temperature values from 0.0 to 2.0
func WithTemperature(temperature float32) Option {
	return func(m *Model) error {
		if temperature < 0.0 || temperature > 2.0 {
			return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", temperature)
		}
		m.temperature = temperature
		return nil
	}
}

// WithMaxOutputTokens sets the response token limit used when a request does not carry one.
func WithMaxOutputTokens(tokens int32) Option {
	return func(m *Model) error {
		if tokens <= 0 {
			return fmt.Errorf("max output tokens must be positive, got %d", tokens)
		}
		m.maxOutputTokens = tokens
		return nil
	}
}

// WithThinking enables thinking mode with the specified token budget
// Special value -1 enables dynamic thinking where the model adjusts based on complexity
// See https://ai.google.dev/gemini-api/docs/thinking
func WithThinking(budgetTokens int32) Option {
	return func(m *Model) error {
		if budgetTokens == -1 {
			m.thinkingBudget = &budgetTokens
			return nil
		}
		if budgetTokens <= 0 {
			return fmt.Errorf("thinking budget must be positive (or -1 for dynamic), got %d", budgetTokens)
		}
		// thoughts and output count against the same limit
		if budgetTokens >= m.maxOutputTokens {
			return fmt.Errorf("thinking budget (%d) must be less than max_output_tokens (%d)", budgetTokens, m.maxOutputTokens)
		}
		m.thinkingBudget = &budgetTokens
		return nil
	}
}

// WithRetryConfig sets the retry configuration for transient Gemini errors.
func WithRetryConfig(cfg retry.RetryConfig) Option {
	return func(m *Model) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		m.retryConfig = cfg
		return nil
	}
}
