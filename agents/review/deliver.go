/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package review

import (
	"context"

	"github.com/chainguard-dev/clog"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/platform"
)

// deliver hands the outcome to the platform. Delivery failures are
// logged; the review itself has already succeeded.
func (o *Orchestrator) deliver(ctx context.Context, st *runState, prov platform.Provider, out *Outcome) {
	log := clog.FromContext(ctx)
	if !st.posted {
		if err := prov.PostReviewComment(ctx, out.Report); err != nil {
			log.Warnf("Failed to post review: %v", err)
		}
	}
	for _, b := range out.Bugs {
		if b.File == "" {
			continue
		}
		c := platform.ThreadComment{Path: b.File, Line: b.Line, Body: b.Comment()}
		if err := prov.PostThreadComment(ctx, c); err != nil {
			log.With("path", b.File).Warnf("Failed to post bug comment: %v", err)
		}
	}
	if err := prov.SubmitUsage(ctx, out.Usage); err != nil {
		log.Warnf("Failed to submit usage: %v", err)
	}
}
