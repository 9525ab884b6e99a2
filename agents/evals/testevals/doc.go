/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package testevals adapts *testing.T to evals.Observer so eval failures
// become test errors:
//
//	obs := evals.NewNamespacedObserver(func(name string) evals.Observer {
//		return testevals.NewPrefix(t, name)
//	})
//	ctx = agenttrace.WithTracer(ctx, evals.BuildSessionTracer(obs, evals.ReviewSuite()))
package testevals
