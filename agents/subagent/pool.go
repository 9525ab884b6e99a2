/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package subagent

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
)

// MaxConcurrency is the hard cap on parallel sub-agents.
const MaxConcurrency = 4

// RunGoals spawns every goal using min(concurrency, MaxConcurrency)
// workers that pull goal indices from a shared counter. Reports are
// returned in goal order. A failed goal gets an error report in its own
// slot and does not stop the others.
func (s *Spawner) RunGoals(ctx context.Context, goals []string, concurrency int, opts ...SpawnOption) []Report {
	reports := make([]Report, len(goals))
	if len(goals) == 0 {
		return reports
	}
	workers := min(max(concurrency, 1), MaxConcurrency, len(goals))

	var next atomic.Int64
	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			for {
				i := int(next.Add(1)) - 1
				if i >= len(goals) {
					return nil
				}
				report, err := s.Spawn(ctx, goals[i], opts...)
				if err != nil {
					clog.FromContext(ctx).With("goal", clip(goals[i], 80)).Warnf("Sub-agent failed: %v", err)
					report = fmt.Sprintf("Sub-agent failed: %v", err)
				}
				reports[i] = Report{Goal: goals[i], Report: report, Err: err}
			}
		})
	}
	_ = g.Wait()
	return reports
}
