/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/claudeexecutor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/googleexecutor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/openaiexecutor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/retry"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/metrics"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/review"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/sandbox"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall/callbacks"
)

const (
	providerClaude = "claude"
	providerGoogle = "google"
	providerOpenAI = "openai"
)

// modelTransport picks where model calls are retried. Direct API access
// goes through the retrying transport, which also turns balance-exhausted
// 429s into 402s, and the adapter does not retry again. Vertex AI clients
// carry their own authenticated transport, so the adapter retries.
func modelTransport(cfg *config, direct bool) (*http.Client, retry.RetryConfig) {
	rc := cfg.backoff()
	if !direct {
		return nil, rc
	}
	client := retry.NewTransport(nil, rc).Client()
	rc.MaxRetries = 0
	return client, rc
}

func newModel(ctx context.Context, cfg *config) (executor.Model, error) {
	switch cfg.Provider {
	case providerClaude, "anthropic":
		httpClient, rc := modelTransport(cfg, cfg.VertexRegion == "")
		client, err := claudeexecutor.NewClient(ctx, claudeexecutor.ClientConfig{
			APIKey:        cfg.apiKey(),
			BaseURL:       cfg.BaseURL,
			VertexRegion:  cfg.VertexRegion,
			VertexProject: cfg.VertexProject,
			HTTPClient:    httpClient,
		})
		if err != nil {
			return nil, err
		}
		opts := []claudeexecutor.Option{claudeexecutor.WithRetryConfig(rc)}
		if cfg.Model != "" {
			opts = append(opts, claudeexecutor.WithModel(cfg.Model))
		}
		if cfg.MaxTokens > 0 {
			opts = append(opts, claudeexecutor.WithMaxTokens(cfg.MaxTokens))
		}
		if cfg.Temperature > 0 {
			opts = append(opts, claudeexecutor.WithTemperature(cfg.Temperature))
		}
		return asModel(claudeexecutor.New(client, opts...))

	case providerGoogle, "gemini":
		httpClient, rc := modelTransport(cfg, cfg.apiKey() != "")
		client, err := googleexecutor.NewClient(ctx, googleexecutor.ClientConfig{
			APIKey:     cfg.apiKey(),
			BaseURL:    cfg.BaseURL,
			Project:    cfg.VertexProject,
			Location:   cfg.VertexRegion,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, err
		}
		opts := []googleexecutor.Option{googleexecutor.WithRetryConfig(rc)}
		if cfg.Model != "" {
			opts = append(opts, googleexecutor.WithModel(cfg.Model))
		}
		if cfg.MaxTokens > 0 {
			opts = append(opts, googleexecutor.WithMaxOutputTokens(int32(cfg.MaxTokens)))
		}
		if cfg.Temperature > 0 {
			opts = append(opts, googleexecutor.WithTemperature(float32(cfg.Temperature)))
		}
		return asModel(googleexecutor.New(client, opts...))

	case providerOpenAI:
		httpClient, rc := modelTransport(cfg, true)
		client, err := openaiexecutor.NewClient(openaiexecutor.ClientConfig{
			APIKey:     cfg.apiKey(),
			BaseURL:    cfg.BaseURL,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, err
		}
		opts := []openaiexecutor.Option{openaiexecutor.WithRetryConfig(rc)}
		if cfg.Model != "" {
			opts = append(opts, openaiexecutor.WithModel(cfg.Model))
		}
		if cfg.MaxTokens > 0 {
			opts = append(opts, openaiexecutor.WithMaxTokens(cfg.MaxTokens))
		}
		if cfg.Temperature > 0 {
			opts = append(opts, openaiexecutor.WithTemperature(cfg.Temperature))
		}
		return asModel(openaiexecutor.New(client, opts...))
	}
	return nil, fmt.Errorf("unknown provider %q (want %s, %s or %s)", cfg.Provider, providerClaude, providerGoogle, providerOpenAI)
}

func asModel[M executor.Model](m M, err error) (executor.Model, error) {
	if err != nil {
		return nil, err
	}
	return m, nil
}

// reviewOptions translates cfg into orchestrator options for a
// workspace rooted at root.
func reviewOptions(cfg *config, root string, m *metrics.Review) ([]review.Option, error) {
	sb, err := sandbox.New(root,
		sandbox.WithTimeouts(cfg.SandboxTimeout, cfg.SandboxMaxTimeout),
		sandbox.WithOutputLimit(cfg.SandboxOutput),
		sandbox.WithMetrics(m),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sandbox: %w", err)
	}

	opts := []review.Option{
		review.WithExecutorOptions(
			executor.WithStepDelay(cfg.StepDelay),
			executor.WithAttributeEnricher(metrics.ExecutionContextEnricher),
		),
		review.WithSandbox(sb),
		review.WithBackoff(cfg.backoff()),
		review.WithMaxAttempts(cfg.MaxAttempts),
		review.WithMaxSteps(cfg.MaxSteps),
		review.WithLoopThreshold(cfg.LoopThreshold),
		review.WithMaxCandidates(cfg.MaxCandidates),
		review.WithMetrics(m),
	}
	if !cfg.NoSubAgents {
		opts = append(opts, review.WithSubAgents())
	}
	if cfg.Preflight {
		opts = append(opts, review.WithPreflight(cfg.PreflightJobs))
	}
	if cfg.SkipBugPass {
		opts = append(opts, review.WithoutBugPass())
	}
	return opts, nil
}

// newOrchestrator builds a reviewer whose read-only tools and sandbox
// operate on root.
func newOrchestrator(ctx context.Context, cfg *config, root string) (*review.Orchestrator, error) {
	model, err := newModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating %s model: %w", cfg.Provider, err)
	}
	return newOrchestratorWithModel(cfg, root, model)
}

func newOrchestratorWithModel(cfg *config, root string, model executor.Model) (*review.Orchestrator, error) {
	tools := toolcall.NewWorktreeToolsProvider(toolcall.NewEmptyToolsProvider()).
		Tools(toolcall.NewWorktreeTools(toolcall.EmptyTools{}, callbacks.ForDirectory(root)))
	base, err := toolcall.FromMap(tools)
	if err != nil {
		return nil, err
	}
	opts, err := reviewOptions(cfg, root, metrics.NewReview(metrics.MeterName))
	if err != nil {
		return nil, err
	}
	return review.New(model, base, opts...)
}
