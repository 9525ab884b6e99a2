/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package executor drives one multi-step, tool-using model session.
//
// A session is a loop of rounds. In each round the Model generates text
// and tool calls, the driver dispatches every call through the session's
// toolcall.Registry in order, and the results are appended to the
// conversation for the next round. The loop ends when the model stops
// asking for tools or the step budget runs out.
//
// # Basic Usage
//
//	exec, err := executor.New(model, executor.WithStepDelay(500*time.Millisecond))
//	if err != nil {
//	    return err
//	}
//
//	res, err := exec.Run(ctx, executor.Session{
//	    Prompt:     prompt,
//	    Tools:      registry,
//	    MaxSteps:   25,
//	    FinishTool: "submit_summary",
//	    OnFinish:   func(executor.Step) { submitted = true },
//	    OnStep: func(ctx context.Context, step executor.Step) error {
//	        return emitter.Emit(ctx, stream.StepEvent(step))
//	    },
//	})
//
// # Observation and backpressure
//
// OnStep is called after every round and the next round does not start
// until it returns. An observer waiting on a human decision therefore
// stalls the session. Returning ErrStop ends the session cleanly; any
// other error ends it with that error.
//
// OnFinish fires once, in the first round containing a call whose
// normalized name matches FinishTool. The driver keeps going afterwards;
// callers that want to stop return ErrStop from OnStep.
//
// # Cancellation
//
// Cancelling ctx aborts the in-flight model call. Run still returns the
// *Result holding every completed step alongside the error, so callers
// can build a recovery answer from partial history.
//
// # Models
//
// Provider adapters live in claudeexecutor, googleexecutor and
// openaiexecutor. They translate Request and Response to the provider's
// wire types and parse tool call arguments exactly once, so nothing above
// this package sees raw provider payloads. modeltest provides a scripted
// Model for tests.
package executor
