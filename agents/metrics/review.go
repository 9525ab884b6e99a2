/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Review provides OpenTelemetry counters for the review loop and sandbox.
type Review struct {
	attempts metric.Int64Counter
	outcomes metric.Int64Counter
	sandbox  metric.Int64Counter
	subagent metric.Int64Counter
}

// NewReview creates the review counters on the named meter.
func NewReview(meterName string) *Review {
	meter := otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))
	return &Review{
		attempts: int64Counter(meter, "review.attempts", "Review attempts started", "{attempts}"),
		outcomes: int64Counter(meter, "review.outcomes", "Finished reviews by terminal state", "{reviews}"),
		sandbox:  int64Counter(meter, "sandbox.runs", "Sandbox executions by status", "{runs}"),
		subagent: int64Counter(meter, "subagent.spawns", "Sub-agent spawns by source (model, cache)", "{spawns}"),
	}
}

// RecordAttempt counts one attempt of the review loop.
func (r *Review) RecordAttempt(ctx context.Context) {
	r.attempts.Add(ctx, 1, metric.WithAttributes(ExecutionContextEnricher(ctx, nil)...))
}

// RecordOutcome counts a finished review by its terminal state.
func (r *Review) RecordOutcome(ctx context.Context, state string) {
	r.outcomes.Add(ctx, 1, metric.WithAttributes(
		ExecutionContextEnricher(ctx, []attribute.KeyValue{attribute.String("state", state)})...))
}

// RecordSandboxRun counts a sandbox execution by its final status.
func (r *Review) RecordSandboxRun(ctx context.Context, status string) {
	r.sandbox.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordSpawn counts a sub-agent spawn; cached is true when no model call was made.
func (r *Review) RecordSpawn(ctx context.Context, cached bool) {
	source := "model"
	if cached {
		source = "cache"
	}
	r.subagent.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}
