/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/retry"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// config is read from an optional YAML file and then the environment.
// Every env tag carries overwrite so the environment wins over the file;
// defaults only fill fields the file left empty.
type config struct {
	// Model
	Provider      string  `env:"REVIEW_PROVIDER,overwrite,default=claude" yaml:"provider"`
	Model         string  `env:"REVIEW_MODEL,overwrite" yaml:"model"`
	APIKey        string  `env:"REVIEW_API_KEY,overwrite" yaml:"apiKey"`
	BaseURL       string  `env:"REVIEW_BASE_URL,overwrite" yaml:"baseURL"`
	VertexRegion  string  `env:"REVIEW_VERTEX_REGION,overwrite" yaml:"vertexRegion"`
	VertexProject string  `env:"REVIEW_VERTEX_PROJECT,overwrite" yaml:"vertexProject"`
	MaxTokens     int64   `env:"REVIEW_MAX_TOKENS,overwrite" yaml:"maxTokens"`
	Temperature   float64 `env:"REVIEW_TEMPERATURE,overwrite" yaml:"temperature"`

	// Provider-specific keys, used when REVIEW_API_KEY is empty.
	AnthropicKey string `env:"ANTHROPIC_API_KEY,overwrite" yaml:"-"`
	GeminiKey    string `env:"GEMINI_API_KEY,overwrite" yaml:"-"`
	OpenAIKey    string `env:"OPENAI_API_KEY,overwrite" yaml:"-"`

	// Review
	MaxSteps      int           `env:"REVIEW_MAX_STEPS,overwrite,default=30" yaml:"maxSteps"`
	MaxAttempts   int           `env:"REVIEW_MAX_ATTEMPTS,overwrite,default=3" yaml:"maxAttempts"`
	BackoffBase   time.Duration `env:"REVIEW_BACKOFF_BASE,overwrite,default=2s" yaml:"backoffBase"`
	BackoffMax    time.Duration `env:"REVIEW_BACKOFF_MAX,overwrite,default=30s" yaml:"backoffMax"`
	ModelRetries  int           `env:"REVIEW_MODEL_RETRIES,overwrite,default=5" yaml:"modelRetries"`
	StepDelay     time.Duration `env:"REVIEW_STEP_DELAY,overwrite" yaml:"stepDelay"`
	LoopThreshold int           `env:"REVIEW_LOOP_THRESHOLD,overwrite,default=4" yaml:"loopThreshold"`
	NoSubAgents   bool          `env:"REVIEW_NO_SUBAGENTS,overwrite" yaml:"noSubAgents"`
	Preflight     bool          `env:"REVIEW_PREFLIGHT,overwrite" yaml:"preflight"`
	PreflightJobs int           `env:"REVIEW_PREFLIGHT_CONCURRENCY,overwrite,default=2" yaml:"preflightConcurrency"`
	SkipBugPass   bool          `env:"REVIEW_SKIP_BUG_PASS,overwrite" yaml:"skipBugPass"`
	MaxCandidates int           `env:"REVIEW_MAX_CANDIDATES,overwrite,default=5" yaml:"maxCandidates"`

	// Sandbox
	SandboxTimeout    time.Duration `env:"SANDBOX_TIMEOUT,overwrite,default=30s" yaml:"sandboxTimeout"`
	SandboxMaxTimeout time.Duration `env:"SANDBOX_MAX_TIMEOUT,overwrite,default=10m" yaml:"sandboxMaxTimeout"`
	SandboxGrace      time.Duration `env:"SANDBOX_APPROVAL_GRACE,overwrite,default=30s" yaml:"sandboxApprovalGrace"`
	SandboxOutput     int           `env:"SANDBOX_OUTPUT_LIMIT,overwrite,default=65536" yaml:"sandboxOutputLimit"`

	// Server
	Port        int           `env:"PORT,overwrite,default=8080" yaml:"port"`
	Heartbeat   time.Duration `env:"STREAM_HEARTBEAT,overwrite,default=15s" yaml:"heartbeat"`
	ScanTTL     time.Duration `env:"SCAN_CACHE_TTL,overwrite,default=5m" yaml:"scanCacheTTL"`
	ScanEntries int           `env:"SCAN_CACHE_ENTRIES,overwrite,default=64" yaml:"scanCacheEntries"`

	// GitHub
	GitHubToken          string `env:"GITHUB_TOKEN,overwrite" yaml:"-"`
	GitHubAPIURL         string `env:"GITHUB_API_URL,overwrite" yaml:"githubAPIURL"`
	GitHubAppID          int64  `env:"GITHUB_APP_ID,overwrite" yaml:"githubAppID"`
	GitHubInstallationID int64  `env:"GITHUB_INSTALLATION_ID,overwrite" yaml:"githubInstallationID"`
	GitHubPrivateKey     string `env:"GITHUB_APP_PRIVATE_KEY,overwrite" yaml:"-"`
	GitHubPrivateKeyFile string `env:"GITHUB_APP_PRIVATE_KEY_FILE,overwrite" yaml:"githubPrivateKeyFile"`
	PostUsage            bool   `env:"GITHUB_POST_USAGE,overwrite" yaml:"postUsage"`
}

// loadConfig reads path (when set) and then the variables l provides.
func loadConfig(ctx context.Context, path string, l envconfig.Lookuper) (*config, error) {
	var cfg config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if err := cfg.backoff().Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// apiKey picks the provider-specific key when no generic key is set.
func (c *config) apiKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	switch c.Provider {
	case providerClaude:
		return c.AnthropicKey
	case providerGoogle:
		return c.GeminiKey
	case providerOpenAI:
		return c.OpenAIKey
	}
	return ""
}

// backoff is used both between review attempts and by the model clients.
func (c *config) backoff() retry.RetryConfig {
	rc := retry.DefaultRetryConfig()
	rc.MaxRetries = c.ModelRetries
	rc.BaseBackoff = c.BackoffBase
	rc.MaxBackoff = c.BackoffMax
	return rc
}

func (c *config) privateKey() ([]byte, error) {
	switch {
	case c.GitHubPrivateKey != "":
		return []byte(c.GitHubPrivateKey), nil
	case c.GitHubPrivateKeyFile != "":
		key, err := os.ReadFile(c.GitHubPrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading GitHub App key: %w", err)
		}
		return key, nil
	case c.GitHubAppID != 0:
		return nil, errors.New("GITHUB_APP_ID is set without a private key")
	}
	return nil, nil
}
