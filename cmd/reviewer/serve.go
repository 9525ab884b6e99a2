/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chainguard-dev/clog"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/platform"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/platform/githubpr"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/platform/gitlocal"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/server"
	"github.com/google/go-github/v84/github"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		workspace string
		port      int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reviews over HTTP with server-sent events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := opts.cfg
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			root, err := filepath.Abs(workspace)
			if err != nil {
				return err
			}
			orch, err := newOrchestrator(ctx, cfg, root)
			if err != nil {
				return err
			}
			state := server.NewState(server.StateConfig{
				ApprovalGrace: cfg.SandboxGrace,
				ScanTTL:       cfg.ScanTTL,
				ScanEntries:   cfg.ScanEntries,
			})
			srv := server.New(ctx, state, orch,
				server.WithHeartbeat(cfg.Heartbeat),
				server.WithResolver(newResolver(ctx, cfg, root)),
			)
			clog.FromContext(ctx).With("workspace", root).With("provider", cfg.Provider).Info("Starting reviewer")
			return srv.Start(ctx, fmt.Sprintf(":%d", cfg.Port))
		},
	}
	cmd.Flags().StringVar(&workspace, "repo", ".", "workspace the review tools and sandbox operate on")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default $PORT or 8080)")
	return cmd
}

// newResolver serves local reviews of repositories inside workspace and
// pull requests of any repository the GitHub credentials reach.
func newResolver(ctx context.Context, cfg *config, workspace string) server.Resolver {
	githubClient := sync.OnceValues(func() (*github.Client, error) { return newGitHubClient(ctx, cfg) })
	return func(ctx context.Context, kind platform.Kind, req server.ReviewRequest) (server.Source, error) {
		switch kind {
		case platform.KindLocal:
			dir, err := insideWorkspace(workspace, req.Repo)
			if err != nil {
				return server.Source{}, err
			}
			repo, err := gitlocal.Open(dir, gitlocal.WithBase(req.Base))
			if err != nil {
				return server.Source{}, err
			}
			return server.Source{
				Key:      "local:" + repo.Root() + "@" + req.Base,
				Files:    repo,
				Provider: platform.NewLocal(nil, repo.ID()),
			}, nil

		case platform.KindGitHub:
			ref, err := githubpr.ParseRef(req.PR)
			if err != nil {
				return server.Source{}, err
			}
			gh, err := githubClient()
			if err != nil {
				return server.Source{}, err
			}
			pr := githubpr.New(gh, ref, githubOptions(cfg))
			return server.Source{Key: "github:" + ref.String(), Files: pr, Provider: pr}, nil
		}
		return server.Source{}, fmt.Errorf("unsupported platform %q", kind)
	}
}

// insideWorkspace resolves repo against workspace and refuses anything
// outside it, since the review tools only see the workspace.
func insideWorkspace(workspace, repo string) (string, error) {
	if repo == "" {
		return workspace, nil
	}
	dir := repo
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(workspace, dir)
	}
	dir = filepath.Clean(dir)
	rel, err := filepath.Rel(workspace, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("repository %s is outside the served workspace %s", repo, workspace)
	}
	return dir, nil
}

func newGitHubClient(ctx context.Context, cfg *config) (*github.Client, error) {
	key, err := cfg.privateKey()
	if err != nil {
		return nil, err
	}
	return githubpr.NewClient(ctx, githubpr.Config{
		Token:          cfg.GitHubToken,
		AppID:          cfg.GitHubAppID,
		InstallationID: cfg.GitHubInstallationID,
		PrivateKey:     key,
		BaseURL:        cfg.GitHubAPIURL,
		Retry:          cfg.backoff(),
	})
}

func githubOptions(cfg *config) map[string]string {
	opts := map[string]string{}
	if cfg.PostUsage {
		opts[githubpr.OptionPostUsage] = "true"
	}
	return opts
}
