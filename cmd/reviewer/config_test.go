/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := loadConfig(context.Background(), "", envconfig.MapLookuper(nil))
	require.NoError(t, err)
	assert.Equal(t, providerClaude, cfg.Provider)
	assert.Equal(t, 30, cfg.MaxSteps)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 4, cfg.LoopThreshold)
	assert.Equal(t, 30*time.Second, cfg.SandboxTimeout)
	assert.Equal(t, 10*time.Minute, cfg.SandboxMaxTimeout)
	assert.Equal(t, 65536, cfg.SandboxOutput)
	assert.Equal(t, 15*time.Second, cfg.Heartbeat)
	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.SkipBugPass)
	assert.False(t, cfg.NoSubAgents)
}

func TestLoadConfigEnvironmentOverridesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reviewer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: openai
model: gpt-test
maxSteps: 12
sandboxTimeout: 45s
port: 9000
skipBugPass: true
`), 0o600))

	cfg, err := loadConfig(context.Background(), path, envconfig.MapLookuper(map[string]string{
		"PORT":            "9100",
		"REVIEW_PROVIDER": " Google ",
	}))
	require.NoError(t, err)
	assert.Equal(t, providerGoogle, cfg.Provider)
	assert.Equal(t, "gpt-test", cfg.Model)
	assert.Equal(t, 12, cfg.MaxSteps)
	assert.Equal(t, 45*time.Second, cfg.SandboxTimeout)
	assert.Equal(t, 9100, cfg.Port)
	assert.True(t, cfg.SkipBugPass)
	// Untouched by either source.
	assert.Equal(t, 3, cfg.MaxAttempts)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("maxSteps: [1, 2"), 0o600))

	tests := []struct {
		name string
		path string
		env  map[string]string
	}{
		{name: "missing file", path: filepath.Join(dir, "absent.yaml")},
		{name: "malformed yaml", path: bad},
		{name: "malformed duration", env: map[string]string{"SANDBOX_TIMEOUT": "soon"}},
		{name: "negative backoff", env: map[string]string{"REVIEW_BACKOFF_BASE": "-1s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := loadConfig(context.Background(), tt.path, envconfig.MapLookuper(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestAPIKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config
		want string
	}{
		{name: "generic wins", cfg: config{Provider: providerClaude, APIKey: "generic", AnthropicKey: "a"}, want: "generic"},
		{name: "anthropic", cfg: config{Provider: providerClaude, AnthropicKey: "a"}, want: "a"},
		{name: "gemini", cfg: config{Provider: providerGoogle, GeminiKey: "g"}, want: "g"},
		{name: "openai", cfg: config{Provider: providerOpenAI, OpenAIKey: "o", GeminiKey: "g"}, want: "o"},
		{name: "none", cfg: config{Provider: providerOpenAI, AnthropicKey: "a"}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.cfg.apiKey())
		})
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	cfg := config{ModelRetries: 2, BackoffBase: time.Second, BackoffMax: 8 * time.Second}
	rc := cfg.backoff()
	assert.Equal(t, 2, rc.MaxRetries)
	assert.Equal(t, time.Second, rc.BaseBackoff)
	assert.Equal(t, 8*time.Second, rc.MaxBackoff)
	assert.Positive(t, rc.MaxJitter)
}

func TestPrivateKey(t *testing.T) {
	t.Parallel()

	keyFile := filepath.Join(t.TempDir(), "app.pem")
	require.NoError(t, os.WriteFile(keyFile, []byte("from-file"), 0o600))

	key, err := (&config{GitHubPrivateKey: "inline", GitHubPrivateKeyFile: keyFile}).privateKey()
	require.NoError(t, err)
	assert.Equal(t, "inline", string(key))

	key, err = (&config{GitHubPrivateKeyFile: keyFile}).privateKey()
	require.NoError(t, err)
	assert.Equal(t, "from-file", string(key))

	key, err = (&config{}).privateKey()
	require.NoError(t, err)
	assert.Nil(t, key)

	_, err = (&config{GitHubAppID: 7}).privateKey()
	assert.ErrorContains(t, err, "without a private key")
}

func TestWithLogger(t *testing.T) {
	t.Parallel()

	_, err := withLogger(context.Background(), "debug")
	assert.NoError(t, err)
	_, err = withLogger(context.Background(), "chatty")
	assert.ErrorContains(t, err, "invalid log level")
}
