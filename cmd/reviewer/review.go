/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/chainguard-dev/clog"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/agenttrace"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/evals"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/evals/report"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/review"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/sandbox"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/stream"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/platform"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/platform/githubpr"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/platform/gitlocal"
	"github.com/spf13/cobra"
)

type reviewFlags struct {
	platform       string
	repo           string
	base           string
	pr             string
	nonInteractive bool
	evals          bool
}

func newReviewCmd(opts *rootOptions) *cobra.Command {
	var flags reviewFlags
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review the current changes once and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReview(cmd.Context(), opts.cfg, flags, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&flags.platform, "platform", "local", "where the changes come from (local or github)")
	cmd.Flags().StringVar(&flags.repo, "repo", ".", "repository checkout to review and run tools in")
	cmd.Flags().StringVar(&flags.base, "base", "", "revision to compare against (default: the parent of HEAD)")
	cmd.Flags().StringVar(&flags.pr, "pr", "", "pull request as owner/repo#number or URL (github platform)")
	cmd.Flags().BoolVar(&flags.nonInteractive, "non-interactive", false, "deny every sandbox command instead of asking")
	cmd.Flags().BoolVar(&flags.evals, "evals", false, "check every agent session and print an eval report")
	return cmd
}

func runReview(ctx context.Context, cfg *config, flags reviewFlags, out io.Writer) error {
	kind, err := platform.ParseKind(flags.platform)
	if err != nil {
		return err
	}
	root, err := filepath.Abs(flags.repo)
	if err != nil {
		return err
	}

	files, prov, err := reviewSource(ctx, cfg, kind, root, flags)
	if err != nil {
		return err
	}
	changed, err := platform.ChangedFiles(ctx, kind, map[platform.Kind]platform.ChangedFilesProvider{kind: files})
	if err != nil {
		return err
	}

	orch, err := newOrchestrator(ctx, cfg, root)
	if err != nil {
		return err
	}
	var confirm sandbox.Confirmer = sandbox.NewTerminalConfirmer()
	if flags.nonInteractive {
		confirm = sandbox.DenyAll
	}

	return reviewAndPrint(ctx, orch, review.Request{
		Files:     changed,
		Kind:      kind,
		Platform:  prov,
		Emitter:   stream.EmitterFunc(logEvent),
		Confirmer: confirm,
	}, flags.evals, out)
}

// reviewAndPrint runs req and prints the outcome, followed by the eval
// report of its sessions when withEvals is set.
func reviewAndPrint(ctx context.Context, orch *review.Orchestrator, req review.Request, withEvals bool, out io.Writer) error {
	var sessions *evals.NamespacedObserver[*evals.ResultCollector]
	if withEvals {
		sessions = evals.NewNamespacedObserver(func(string) *evals.ResultCollector { return evals.NewResultCollector(nil) })
		callbacks := evals.BuildSessionCallbacks(sessions, evals.ReviewSuite())
		ctx = agenttrace.WithTracer(ctx, evals.Chain(agenttrace.NewDefaultTracer(ctx), callbacks...))
	}

	outcome, err := orch.Run(ctx, req)
	if err != nil {
		return err
	}
	if err := printOutcome(out, outcome); err != nil {
		return err
	}
	if sessions == nil {
		return nil
	}
	if _, err := fmt.Fprintln(out, "\n## Session evals"); err != nil {
		return err
	}
	_, err = report.Write(out, sessions, 1)
	return err
}

func reviewSource(ctx context.Context, cfg *config, kind platform.Kind, root string, flags reviewFlags) (platform.ChangedFilesProvider, platform.Provider, error) {
	switch kind {
	case platform.KindGitHub:
		ref, err := githubpr.ParseRef(flags.pr)
		if err != nil {
			return nil, nil, err
		}
		client, err := newGitHubClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		pr := githubpr.New(client, ref, githubOptions(cfg))
		return pr, pr, nil
	default:
		repo, err := gitlocal.Open(root, gitlocal.WithBase(flags.base))
		if err != nil {
			return nil, nil, err
		}
		// The report is printed once the review finishes.
		return repo, platform.NewLocal(nil, repo.ID()), nil
	}
}

// logEvent renders stream events as log lines. Output chunks and steps
// are debug-level.
func logEvent(ctx context.Context, ev stream.Event) error {
	log := clog.FromContext(ctx).With("event", string(ev.Type))
	switch ev.Type {
	case stream.TypeStatus:
		log.Info(ev.Message)
	case stream.TypeFiles:
		log.With("files", len(ev.Files)).Info("Reviewing changed files")
	case stream.TypeStep:
		if ev.Step != nil {
			log.With("step", ev.Step.Index).With("tool_calls", len(ev.Step.ToolCalls)).Debug("Step finished")
		}
	case stream.TypeSandboxRequest:
		log.With("command", ev.Command).With("cwd", ev.Cwd).Info("Sandbox approval requested")
	case stream.TypeSandboxRunOutput:
		log.With("stream", ev.Stream).Debug(ev.Chunk)
	case stream.TypeSandboxRunStart, stream.TypeSandboxRunEnd:
		log.With("run_id", ev.RunID).With("command", ev.Command).With("status", ev.Status).Info("Sandbox run")
	case stream.TypeSubagentPreflight:
		log.With("state", ev.State).With("total", ev.Total).Info("Pre-flight analysis")
	case stream.TypeError:
		log.Error(ev.Message)
	}
	return nil
}

func printOutcome(w io.Writer, o *review.Outcome) error {
	if _, err := fmt.Fprintf(w, "# Review (%s after %d attempt(s))\n\n%s\n\n", o.State, o.Attempts, o.Report); err != nil {
		return err
	}
	if len(o.Bugs) > 0 {
		table := platform.NewTable(w, "Status", "Severity", "Location", "Title")
		for _, b := range o.Bugs {
			loc := b.File
			if loc != "" && b.Line > 0 {
				loc += ":" + strconv.Itoa(b.Line)
			}
			if err := table.Append([]string{string(b.Status), b.Severity, loc, b.Title}); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return platform.RenderUsage(w, o.Usage)
}
