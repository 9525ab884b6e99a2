/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Grade is a score with its reasoning.
type Grade struct {
	Score     float64
	Reasoning string
}

// ResultCollector is an Observer that keeps failures and grades for a
// report. Fail and Grade are also passed to inner when set.
type ResultCollector struct {
	inner    Observer
	total    atomic.Int64
	mu       sync.Mutex
	failures []string
	logs     []string
	grades   []Grade
}

// NewResultCollector wraps inner, which may be nil.
func NewResultCollector(inner Observer) *ResultCollector {
	return &ResultCollector{inner: inner}
}

// Fail implements Observer. The failure is logged, not failed, on inner.
func (r *ResultCollector) Fail(msg string) {
	if r.inner != nil {
		r.inner.Log(msg)
	}
	r.mu.Lock()
	r.failures = append(r.failures, msg)
	r.mu.Unlock()
}

// Log implements Observer.
func (r *ResultCollector) Log(msg string) {
	if r.inner != nil {
		r.inner.Log(msg)
	}
	r.mu.Lock()
	r.logs = append(r.logs, msg)
	r.mu.Unlock()
}

// Grade implements Observer.
func (r *ResultCollector) Grade(score float64, reasoning string) {
	if r.inner != nil {
		r.inner.Grade(score, reasoning)
	}
	r.mu.Lock()
	r.grades = append(r.grades, Grade{Score: score, Reasoning: reasoning})
	r.mu.Unlock()
}

// Increment implements Observer.
func (r *ResultCollector) Increment() {
	r.total.Add(1)
	if r.inner != nil {
		r.inner.Increment()
	}
}

// Total implements Observer.
func (r *ResultCollector) Total() int64 { return r.total.Load() }

// Failures returns a copy of the failure messages.
func (r *ResultCollector) Failures() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.failures)
}

// Logs returns a copy of the logged messages.
func (r *ResultCollector) Logs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.logs)
}

// Grades returns a copy of the grades.
func (r *ResultCollector) Grades() []Grade {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.grades)
}
