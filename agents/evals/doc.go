/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package evals runs code-based checks over completed agent sessions.

Every driver session produces an agenttrace.Trace. A tracer built here
hands each completed trace to a set of evals, and each eval reports to
its own Observer:

	obs := evals.NewNamespacedObserver(func(string) *evals.ResultCollector {
		return evals.NewResultCollector(nil)
	})
	ctx = agenttrace.WithTracer(ctx, evals.BuildSessionTracer(obs, evals.ReviewSuite()))
	// ... run a review with ctx ...
	report.Write(os.Stdout, obs)

# Observers

  - ResultCollector keeps failures and grades for reports.
  - MetricsObserver exports counts to Prometheus (see NewMetrics).
  - testevals.New turns failures into test errors.

NamespacedObserver arranges observers in a tree addressed by
"/<session>/<eval>" paths so results can be reported per eval.

# Evals

The helpers in this package build ObservableTraceCallbacks over tool
calls (ExactToolCalls, OnlyToolCalls, RequiredToolCalls,
ForbiddenToolCalls, MaxRepeatedCalls), errors (NoErrors,
NoSessionError), step counts (MaxSteps) and final text
(ResultValidator). ReviewSuite groups the ones run over live reviews by
session kind.
*/
package evals
