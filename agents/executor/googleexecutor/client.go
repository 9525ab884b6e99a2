/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleexecutor

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// ClientConfig selects the Gemini API or Vertex AI backend.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	// Project and Location select the Vertex AI backend when APIKey is empty.
	Project  string
	Location string
	// HTTPClient is used with an API key. Vertex AI brings its own
	// authenticated client.
	HTTPClient *http.Client
}

// NewClient creates a genai client for cfg.
func NewClient(ctx context.Context, cfg ClientConfig) (*genai.Client, error) {
	cc := &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	}
	switch {
	case cfg.APIKey != "":
		cc.APIKey = cfg.APIKey
		cc.HTTPClient = cfg.HTTPClient
		cc.Backend = genai.BackendGeminiAPI
	case cfg.Project != "":
		cc.Project = cfg.Project
		cc.Location = cfg.Location
		cc.Backend = genai.BackendVertexAI
	default:
		return nil, errors.New("gemini needs either an API key or a Vertex project")
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return client, nil
}
