/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/agenttrace"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
)

// ExactToolCalls fails unless the trace has exactly n tool calls.
func ExactToolCalls(n int) ObservableTraceCallback {
	return func(o Observer, trace *agenttrace.Trace) {
		if got := len(trace.ToolCalls); got != n {
			o.Fail(fmt.Sprintf("tool call count: got = %d, wanted = %d", got, n))
		}
	}
}

// MinimumNToolCalls fails when the trace has fewer than n tool calls.
func MinimumNToolCalls(n int) ObservableTraceCallback {
	return func(o Observer, trace *agenttrace.Trace) {
		if got := len(trace.ToolCalls); got < n {
			o.Fail(fmt.Sprintf("tool call count: got = %d, wanted >= %d", got, n))
		}
	}
}

// MaximumNToolCalls fails when the trace has more than n tool calls.
func MaximumNToolCalls(n int) ObservableTraceCallback {
	return func(o Observer, trace *agenttrace.Trace) {
		if got := len(trace.ToolCalls); got > n {
			o.Fail(fmt.Sprintf("tool call count: got = %d, wanted <= %d", got, n))
		}
	}
}

// NoToolCalls fails when the trace called any tool.
func NoToolCalls() ObservableTraceCallback {
	return ExactToolCalls(0)
}

// OnlyToolCalls fails on the first call to a tool outside toolNames.
// Names are compared the way the registry resolves them.
func OnlyToolCalls(toolNames ...string) ObservableTraceCallback {
	return func(o Observer, trace *agenttrace.Trace) {
		for _, tc := range trace.ToolCalls {
			if !slices.ContainsFunc(toolNames, func(n string) bool { return toolcall.SameName(n, tc.Name) }) {
				o.Fail(fmt.Sprintf("unexpected tool call %q, only allowed: %v", tc.Name, toolNames))
				return
			}
		}
	}
}

// ForbiddenToolCalls fails on the first call to any of toolNames.
func ForbiddenToolCalls(toolNames ...string) ObservableTraceCallback {
	return func(o Observer, trace *agenttrace.Trace) {
		for _, tc := range trace.ToolCalls {
			if slices.ContainsFunc(toolNames, func(n string) bool { return toolcall.SameName(n, tc.Name) }) {
				o.Fail(fmt.Sprintf("forbidden tool call %q", tc.Name))
				return
			}
		}
	}
}

// RequiredToolCalls fails unless every tool in toolNames was called.
func RequiredToolCalls(toolNames ...string) ObservableTraceCallback {
	base := make(map[string]struct{}, len(toolNames))
	for _, name := range toolNames {
		base[toolcall.NormalizeName(name)] = struct{}{}
	}

	return func(o Observer, trace *agenttrace.Trace) {
		required := maps.Clone(base)
		for _, tc := range trace.ToolCalls {
			delete(required, toolcall.NormalizeName(tc.Name))
		}
		if len(required) > 0 {
			o.Fail(fmt.Sprintf("missing required tool calls: %v", slices.Sorted(maps.Keys(required))))
		}
	}
}

// ToolCallNamed runs validator on every call to name and fails when
// there is none.
func ToolCallNamed(name string, validator func(o Observer, tc *agenttrace.ToolCall) error) ObservableTraceCallback {
	return func(o Observer, trace *agenttrace.Trace) {
		found := false
		for _, tc := range trace.ToolCalls {
			if !toolcall.SameName(name, tc.Name) {
				continue
			}
			found = true
			if err := validator(o, tc); err != nil {
				o.Fail(fmt.Sprintf("tool call %s validation failed: %v", name, err))
				return
			}
		}
		if !found {
			o.Fail(fmt.Sprintf("tool call named %q: got = not found, wanted = found", name))
		}
	}
}

// NoErrors fails when the session or any of its tool calls failed.
func NoErrors() ObservableTraceCallback {
	return func(o Observer, trace *agenttrace.Trace) {
		if trace.Error != nil {
			o.Fail(fmt.Sprintf("trace error: got = %v, wanted = nil", trace.Error))
			return
		}
		for _, tc := range trace.ToolCalls {
			if tc.Error != nil {
				o.Fail(fmt.Sprintf("tool call %s error: got = %v, wanted = nil", tc.Name, tc.Error))
				return
			}
		}
	}
}

// NoSessionError fails only when the session itself failed. Tool errors
// are reported back to the model and are not fatal.
func NoSessionError() ObservableTraceCallback {
	return func(o Observer, trace *agenttrace.Trace) {
		if trace.Error != nil {
			o.Fail(fmt.Sprintf("trace error: got = %v, wanted = nil", trace.Error))
		}
	}
}

// MaxSteps fails when the session took more than n model rounds.
func MaxSteps(n int) ObservableTraceCallback {
	return func(o Observer, trace *agenttrace.Trace) {
		if trace.Steps > n {
			o.Fail(fmt.Sprintf("steps: got = %d, wanted <= %d", trace.Steps, n))
		}
	}
}

// MaxRepeatedCalls fails when some call to name is immediately followed
// by more than n-1 identical calls.
func MaxRepeatedCalls(name string, n int) ObservableTraceCallback {
	return func(o Observer, trace *agenttrace.Trace) {
		var (
			prev map[string]any
			run  int
		)
		for _, tc := range trace.ToolCalls {
			if !toolcall.SameName(name, tc.Name) {
				prev, run = nil, 0
				continue
			}
			if run > 0 && reflect.DeepEqual(prev, tc.Params) {
				run++
			} else {
				prev, run = tc.Params, 1
			}
			if run > n {
				o.Fail(fmt.Sprintf("%s repeated %d times with the same arguments, wanted <= %d", name, run, n))
				return
			}
		}
	}
}

// ResultValidator runs validator on the session's final text.
func ResultValidator(validator func(result string) error) ObservableTraceCallback {
	return func(o Observer, trace *agenttrace.Trace) {
		if err := validator(trace.Result); err != nil {
			o.Fail(err.Error())
		}
	}
}
