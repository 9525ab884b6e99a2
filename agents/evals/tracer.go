/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"context"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/agenttrace"
	"golang.org/x/sync/errgroup"
)

type byCodeTracer struct {
	callbacks []TraceCallback
	next      agenttrace.Tracer
}

// ByCode returns a tracer that runs callbacks in parallel on every
// completed trace.
func ByCode(callbacks ...TraceCallback) agenttrace.Tracer {
	return &byCodeTracer{callbacks: callbacks}
}

// Chain runs callbacks on every completed trace and then hands it to next.
func Chain(next agenttrace.Tracer, callbacks ...TraceCallback) agenttrace.Tracer {
	return &byCodeTracer{callbacks: callbacks, next: next}
}

func (t *byCodeTracer) NewTrace(ctx context.Context, prompt string) *agenttrace.Trace {
	return agenttrace.ByCode(t.RecordTrace).NewTrace(ctx, prompt)
}

func (t *byCodeTracer) RecordTrace(trace *agenttrace.Trace) {
	var g errgroup.Group
	for _, callback := range t.callbacks {
		if callback == nil {
			continue
		}
		g.Go(func() error {
			callback(trace)
			return nil
		})
	}
	_ = g.Wait()

	if t.next != nil {
		t.next.RecordTrace(trace)
	}
}

// BuildCallbacks binds every eval in evalMap to its own child of observer.
func BuildCallbacks[O Observer](observer *NamespacedObserver[O], evalMap map[string]ObservableTraceCallback) []TraceCallback {
	callbacks := make([]TraceCallback, 0, len(evalMap))
	for name, eval := range evalMap {
		callbacks = append(callbacks, Inject(observer.Child(name), eval))
	}
	return callbacks
}

// BuildTracer is ByCode over BuildCallbacks.
func BuildTracer[O Observer](observer *NamespacedObserver[O], evalMap map[string]ObservableTraceCallback) agenttrace.Tracer {
	return ByCode(BuildCallbacks(observer, evalMap)...)
}
