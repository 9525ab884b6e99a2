/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package githubpr

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/chainguard-dev/clog"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/retry"
	"github.com/google/go-github/v84/github"
	"golang.org/x/oauth2"
)

// Config selects how the client authenticates. A GitHub App takes
// precedence over a token; with neither the client is anonymous.
type Config struct {
	Token string

	AppID          int64
	InstallationID int64
	PrivateKey     []byte

	// BaseURL points the client at another API root, e.g. GitHub
	// Enterprise's https://host/api/v3/.
	BaseURL string

	Retry retry.RetryConfig
}

// NewClient builds a GitHub client whose requests go through the
// retrying transport.
func NewClient(ctx context.Context, cfg Config) (*github.Client, error) {
	if err := cfg.Retry.Validate(); err != nil {
		return nil, err
	}
	base := http.RoundTripper(retry.NewTransport(http.DefaultTransport, cfg.Retry))

	var apiURL *url.URL
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parsing GitHub base URL: %w", err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		apiURL = u
	}

	log := clog.FromContext(ctx)
	var rt http.RoundTripper
	switch {
	case cfg.AppID != 0:
		if cfg.InstallationID == 0 || len(cfg.PrivateKey) == 0 {
			return nil, fmt.Errorf("GitHub App %d needs an installation id and a private key", cfg.AppID)
		}
		tr, err := ghinstallation.New(base, cfg.AppID, cfg.InstallationID, cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("creating GitHub App transport: %w", err)
		}
		if apiURL != nil {
			tr.BaseURL = strings.TrimSuffix(apiURL.String(), "/")
		}
		log.With("app_id", cfg.AppID).With("installation_id", cfg.InstallationID).Info("Authenticating to GitHub as an App installation")
		rt = tr

	case cfg.Token != "":
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}),
			Base:   base,
		}

	default:
		log.Warn("No GitHub credentials configured, using anonymous access")
		rt = base
	}

	client := github.NewClient(&http.Client{Transport: rt})
	if apiURL != nil {
		client.BaseURL = apiURL
	}
	return client, nil
}
