/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package executor_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/agenttrace"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/modeltest"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/toolcall"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string) toolcall.Tool {
	return toolcall.Tool{
		Def: toolcall.Definition{
			Name:       name,
			Parameters: []toolcall.Parameter{{Name: "value", Type: "string", Required: true}},
		},
		Handler: func(_ context.Context, call toolcall.ToolCall) (any, error) {
			v, err := toolcall.Param[string](call, "value")
			if err != nil {
				return nil, err
			}
			return "echo:" + v, nil
		},
	}
}

func newExecutor(t *testing.T, m executor.Model, opts ...executor.Option) executor.Interface {
	t.Helper()
	exec, err := executor.New(m, opts...)
	require.NoError(t, err)
	return exec
}

func TestRunDispatchesToolsUntilText(t *testing.T) {
	t.Parallel()

	model := modeltest.New(
		modeltest.Call("echo", map[string]any{"value": "a"}),
		modeltest.Text("all done"),
	)
	var observed []int
	res, err := newExecutor(t, model).Run(context.Background(), executor.Session{
		Prompt: "review",
		Tools:  toolcall.MustRegistry(echoTool("echo")),
		OnStep: func(_ context.Context, s executor.Step) error {
			observed = append(observed, s.Index)
			return nil
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "all done", res.Text)
	assert.Equal(t, executor.FinishStop, res.FinishReason)
	assert.Equal(t, []int{0, 1}, observed)
	require.Len(t, res.ToolResults, 1)
	assert.Equal(t, "echo:a", res.ToolResults[0].Result)
	assert.Equal(t, "call_0_0", res.ToolResults[0].ID)

	// The second request carries the assistant call and its result.
	reqs := model.Requests()
	require.Len(t, reqs, 2)
	roles := []executor.Role{}
	for _, m := range reqs[1].Messages {
		roles = append(roles, m.Role)
	}
	if diff := cmp.Diff([]executor.Role{executor.RoleUser, executor.RoleAssistant, executor.RoleTool}, roles); diff != "" {
		t.Errorf("messages (-want +got):\n%s", diff)
	}
}

func TestRunStepBudget(t *testing.T) {
	t.Parallel()

	model := modeltest.New().Then(modeltest.Call("echo", map[string]any{"value": "x"}))
	res, err := newExecutor(t, model).Run(context.Background(), executor.Session{
		Prompt:   "loop",
		Tools:    toolcall.MustRegistry(echoTool("echo")),
		MaxSteps: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, executor.FinishMaxSteps, res.FinishReason)
	assert.Len(t, res.Steps, 3)
	assert.Equal(t, 3, model.Calls())
}

func TestRunFinishToolNameVariants(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"submit_report", "SubmitReport", "SUBMIT_REPORT", "submit-report"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			submit := toolcall.Tool{
				Def:     toolcall.Definition{Name: "submit_report"},
				Handler: func(context.Context, toolcall.ToolCall) (any, error) { return "ok", nil },
			}
			model := modeltest.New(
				modeltest.Call(name, map[string]any{"report": "r"}),
				modeltest.Call(name, map[string]any{"report": "again"}),
				modeltest.Text("bye"),
			)
			fired := 0
			res, err := newExecutor(t, model).Run(context.Background(), executor.Session{
				Prompt:     "p",
				Tools:      toolcall.MustRegistry(submit),
				FinishTool: "submit_report",
				OnFinish:   func(executor.Step) { fired++ },
			})
			require.NoError(t, err)
			assert.Equal(t, 1, fired, "OnFinish fires once")
			assert.True(t, res.Finished)
			assert.Len(t, res.Steps, 3, "the driver does not stop by itself")
			assert.False(t, res.ToolResults[0].IsError)
		})
	}
}

func TestRunErrStopEndsCleanly(t *testing.T) {
	t.Parallel()

	model := modeltest.New().Then(modeltest.Call("echo", map[string]any{"value": "x"}))
	res, err := newExecutor(t, model).Run(context.Background(), executor.Session{
		Prompt: "p",
		Tools:  toolcall.MustRegistry(echoTool("echo")),
		OnStep: func(context.Context, executor.Step) error { return executor.ErrStop },
	})
	require.NoError(t, err)
	assert.Len(t, res.Steps, 1)
	assert.Equal(t, 1, model.Calls())
}

func TestRunObserverErrorAborts(t *testing.T) {
	t.Parallel()

	boom := errors.New("client went away")
	model := modeltest.New().Then(modeltest.Call("echo", map[string]any{"value": "x"}))
	res, err := newExecutor(t, model).Run(context.Background(), executor.Session{
		Prompt: "p",
		Tools:  toolcall.MustRegistry(echoTool("echo")),
		OnStep: func(context.Context, executor.Step) error { return boom },
	})
	require.ErrorIs(t, err, boom)
	assert.Len(t, res.Steps, 1)
}

func TestRunToolErrorsBecomeResults(t *testing.T) {
	t.Parallel()

	failing := toolcall.Tool{
		Def: toolcall.Definition{Name: "fail"},
		Handler: func(context.Context, toolcall.ToolCall) (any, error) {
			return nil, errors.New("disk on fire")
		},
	}
	panicky := toolcall.Tool{
		Def:     toolcall.Definition{Name: "panicky"},
		Handler: func(context.Context, toolcall.ToolCall) (any, error) { panic("bad") },
	}
	model := modeltest.New(
		modeltest.Calls(
			toolcall.ToolCall{ID: "1", Name: "fail"},
			toolcall.ToolCall{ID: "2", Name: "panicky"},
			toolcall.ToolCall{ID: "3", Name: "missing"},
			toolcall.ToolCall{ID: "4", Name: "echo"},
		),
		modeltest.Text("done"),
	)
	res, err := newExecutor(t, model).Run(context.Background(), executor.Session{
		Prompt: "p",
		Tools:  toolcall.MustRegistry(failing, panicky, echoTool("echo")),
	})
	require.NoError(t, err)
	require.Len(t, res.ToolResults, 4)
	for _, r := range res.ToolResults {
		assert.True(t, r.IsError, "result %s", r.ID)
		assert.True(t, strings.HasPrefix(r.Text(), "Error: "), "result %s: %q", r.ID, r.Text())
	}
	assert.Contains(t, res.ToolResults[0].Text(), "disk on fire")
	assert.Contains(t, res.ToolResults[2].Text(), `unknown tool "missing"`)
	assert.Contains(t, res.ToolResults[3].Text(), "value")
}

func TestRunCancellationKeepsPartialHistory(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancelCause(context.Background())
	stuck := errors.New("stuck in a loop")
	model := modeltest.New(
		modeltest.Call("echo", map[string]any{"value": "1"}),
		modeltest.Call("echo", map[string]any{"value": "2"}),
	).Then(modeltest.Block())

	res, err := newExecutor(t, model).Run(ctx, executor.Session{
		Prompt: "p",
		Tools:  toolcall.MustRegistry(echoTool("echo")),
		OnStep: func(_ context.Context, s executor.Step) error {
			if s.Index == 1 {
				go func() {
					time.Sleep(10 * time.Millisecond)
					cancel(stuck)
				}()
			}
			return nil
		},
	})
	require.ErrorIs(t, err, stuck)
	assert.Len(t, res.Steps, 2)
	assert.Equal(t, "echo:2", res.ToolResults[1].Result)
}

func TestRunModelErrorIsWrapped(t *testing.T) {
	t.Parallel()

	cause := errors.New("503 overloaded")
	res, err := newExecutor(t, modeltest.New(modeltest.Fail(cause))).Run(context.Background(), executor.Session{Prompt: "p"})
	require.ErrorIs(t, err, cause)
	assert.NotNil(t, res)
	assert.Empty(t, res.Steps)
}

func TestRunStepDelay(t *testing.T) {
	t.Parallel()

	model := modeltest.New(
		modeltest.Call("echo", map[string]any{"value": "x"}),
		modeltest.Text("done"),
	)
	start := time.Now()
	_, err := newExecutor(t, model, executor.WithStepDelay(30*time.Millisecond)).Run(context.Background(), executor.Session{
		Prompt: "p",
		Tools:  toolcall.MustRegistry(echoTool("echo")),
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRunForwardsToolChoiceAndRecordsTrace(t *testing.T) {
	t.Parallel()

	var traced *agenttrace.Trace
	ctx := agenttrace.WithTracer(context.Background(), agenttrace.ByCode(func(tr *agenttrace.Trace) { traced = tr }))

	model := modeltest.New(modeltest.Text("ok"))
	_, err := newExecutor(t, model).Run(ctx, executor.Session{
		Prompt:     "p",
		System:     "be brief",
		Tools:      toolcall.MustRegistry(echoTool("echo")),
		ToolChoice: "echo",
	})
	require.NoError(t, err)

	req := model.Requests()[0]
	assert.Equal(t, "echo", req.ToolChoice)
	assert.Equal(t, "be brief", req.System)
	require.NotNil(t, traced)
	assert.Equal(t, "ok", traced.Result)
	assert.Equal(t, 1, traced.Steps)
}

func TestNewValidatesOptions(t *testing.T) {
	t.Parallel()

	model := modeltest.New()
	for i, opt := range []executor.Option{
		executor.WithMaxSteps(0),
		executor.WithMaxTokens(-1),
		executor.WithStepDelay(-time.Second),
	} {
		if _, err := executor.New(model, opt); err == nil {
			t.Errorf("option %d: expected error", i)
		}
	}
	if _, err := executor.New(nil); err == nil {
		t.Error("nil model: expected error")
	}
}
