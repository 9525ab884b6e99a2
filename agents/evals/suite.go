/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/agenttrace"
)

// AllSessions scopes an eval to every session kind.
const AllSessions = "all"

// SessionEvals groups evals by the session kind they apply to: one of the
// agenttrace.Session* constants or AllSessions.
type SessionEvals map[string]map[string]ObservableTraceCallback

// ReviewSuite is the set of checks run over live review sessions.
func ReviewSuite() SessionEvals {
	return SessionEvals{
		AllSessions: {
			"no-session-error": NoSessionError(),
		},
		agenttrace.SessionReview: {
			"submits-summary":     RequiredToolCalls("submit_summary"),
			"no-repeated-sandbox": MaxRepeatedCalls("sandbox_exec", 2),
		},
		agenttrace.SessionSubAgent: {
			"no-nested-spawn": ForbiddenToolCalls("spawn_subagent", "submit_summary"),
		},
		agenttrace.SessionBugPass: {
			"verification-tools-only": OnlyToolCalls("record_bug", "sandbox_exec"),
			"records-bug":             RequiredToolCalls("record_bug"),
			"single-sandbox-run":      MaxRepeatedCalls("sandbox_exec", 1),
		},
		agenttrace.SessionRecovery: {
			"no-tools": NoToolCalls(),
		},
	}
}

// BuildSessionCallbacks binds every eval to the child
// "<session>/<eval>" of observer. An eval only sees traces of its
// session kind, so Total counts the sessions it actually judged.
func BuildSessionCallbacks[O Observer](observer *NamespacedObserver[O], suite SessionEvals) []TraceCallback {
	var callbacks []TraceCallback
	for session, evalMap := range suite {
		scope := observer.Child(session)
		for name, eval := range evalMap {
			obs := scope.Child(name)
			callbacks = append(callbacks, func(trace *agenttrace.Trace) {
				if session != AllSessions && trace.ExecContext.Session != session {
					return
				}
				obs.Increment()
				eval(obs, trace)
			})
		}
	}
	return callbacks
}

// BuildSessionTracer is ByCode over BuildSessionCallbacks.
func BuildSessionTracer[O Observer](observer *NamespacedObserver[O], suite SessionEvals) agenttrace.Tracer {
	return ByCode(BuildSessionCallbacks(observer, suite)...)
}
