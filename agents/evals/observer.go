/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"path"
	"slices"
	"sync"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/agenttrace"
)

// Observer receives the outcome of evaluating one trace.
type Observer interface {
	// Fail marks the evaluation as failed. Called at most once per trace.
	Fail(string)
	// Log records a message. May be called any number of times.
	Log(string)
	// Grade assigns a score in [0, 1] with reasoning.
	Grade(score float64, reasoning string)
	// Increment is called once for every trace evaluated.
	Increment()
	// Total returns the number of traces evaluated.
	Total() int64
}

// ObservableTraceCallback evaluates a completed trace and reports to an Observer.
type ObservableTraceCallback func(Observer, *agenttrace.Trace)

// TraceCallback receives completed traces.
type TraceCallback func(*agenttrace.Trace)

// Inject binds obs to callback.
func Inject(obs Observer, callback ObservableTraceCallback) TraceCallback {
	return func(trace *agenttrace.Trace) {
		obs.Increment()
		callback(obs, trace)
	}
}

// NamespacedObserver is a tree of observers addressed by slash-separated
// paths, one leaf per eval.
type NamespacedObserver[T Observer] struct {
	name     string
	inner    T
	factory  func(string) T
	children map[string]*NamespacedObserver[T]
	mu       sync.Mutex
}

// NewNamespacedObserver returns the root "/" of a tree whose nodes are
// created by factory.
func NewNamespacedObserver[T Observer](factory func(string) T) *NamespacedObserver[T] {
	return &NamespacedObserver[T]{
		name:     "/",
		inner:    factory("/"),
		factory:  factory,
		children: make(map[string]*NamespacedObserver[T]),
	}
}

func (n *NamespacedObserver[T]) Fail(msg string) { n.inner.Fail(msg) }
func (n *NamespacedObserver[T]) Log(msg string)  { n.inner.Log(msg) }
func (n *NamespacedObserver[T]) Grade(score float64, reasoning string) {
	n.inner.Grade(score, reasoning)
}
func (n *NamespacedObserver[T]) Increment()   { n.inner.Increment() }
func (n *NamespacedObserver[T]) Total() int64 { return n.inner.Total() }

// Name is the node's full path.
func (n *NamespacedObserver[T]) Name() string { return n.name }

// Child returns the named child, creating it on first use.
func (n *NamespacedObserver[T]) Child(name string) *NamespacedObserver[T] {
	n.mu.Lock()
	defer n.mu.Unlock()

	if child, ok := n.children[name]; ok {
		return child
	}
	childPath := path.Join(n.name, name)
	child := &NamespacedObserver[T]{
		name:     childPath,
		inner:    n.factory(childPath),
		factory:  n.factory,
		children: make(map[string]*NamespacedObserver[T]),
	}
	n.children[name] = child
	return child
}

// Walk visits the node and then its children depth-first in name order.
func (n *NamespacedObserver[T]) Walk(visitor func(string, T)) {
	visitor(n.name, n.inner)

	n.mu.Lock()
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	n.mu.Unlock()
	slices.Sort(names)

	for _, name := range names {
		n.mu.Lock()
		child := n.children[name]
		n.mu.Unlock()
		child.Walk(visitor)
	}
}
