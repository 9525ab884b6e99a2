/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/compute/metadata"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"
	"github.com/chainguard-dev/clog"
)

// ClientConfig selects how the Anthropic client reaches the API.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	// VertexRegion routes requests through Vertex AI when set.
	VertexRegion  string
	VertexProject string
	// HTTPClient is used for direct API access. Vertex AI brings its own
	// authenticated client.
	HTTPClient *http.Client
}

// NewClient creates an Anthropic client with SDK retries disabled.
func NewClient(ctx context.Context, cfg ClientConfig) (anthropic.Client, error) {
	opts := []option.RequestOption{option.WithMaxRetries(0)}

	if cfg.VertexRegion != "" {
		project := cfg.VertexProject
		if project == "" {
			p, err := discoverProject(ctx)
			if err != nil {
				return anthropic.Client{}, err
			}
			project = p
		}
		clog.FromContext(ctx).With("region", cfg.VertexRegion).With("project", project).Info("Using Claude on Vertex AI")
		opts = append(opts, vertex.WithGoogleAuth(ctx, cfg.VertexRegion, project))
		return anthropic.NewClient(opts...), nil
	}

	if cfg.APIKey == "" {
		return anthropic.Client{}, errors.New("anthropic API key is required unless a Vertex region is set")
	}
	opts = append(opts, option.WithAPIKey(cfg.APIKey))
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return anthropic.NewClient(opts...), nil
}

func discoverProject(ctx context.Context) (string, error) {
	if !metadata.OnGCE() {
		return "", errors.New("vertex project is not set and the metadata server is unavailable")
	}
	project, err := metadata.ProjectIDWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("discovering GCP project: %w", err)
	}
	return project, nil
}
