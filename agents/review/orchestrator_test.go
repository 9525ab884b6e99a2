/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package review_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/modeltest"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/executor/retry"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/review"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/sandbox"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/agents/stream"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastBackoff = retry.RetryConfig{MaxRetries: 3, BaseBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}

func TestSubmittedReview(t *testing.T) {
	t.Parallel()

	model := modeltest.New(modeltest.Call("submit_summary", map[string]any{"report": "LGTM"}))
	rec := &stream.Recorder{}
	prov := &recordingProvider{}

	out, err := newOrchestrator(t, model).Run(context.Background(), review.Request{
		Files:    changedFiles,
		Platform: prov,
		Emitter:  rec,
	})
	require.NoError(t, err)

	want := []stream.Type{stream.TypeFiles, stream.TypeStep, stream.TypeComplete}
	if diff := cmp.Diff(want, withoutStatus(rec.Types())); diff != "" {
		t.Errorf("event types (-want +got):\n%s", diff)
	}
	for _, ev := range rec.Events() {
		switch ev.Type {
		case stream.TypeFiles:
			assert.Equal(t, []string{"main.go"}, ev.Files)
		case stream.TypeStep:
			require.Len(t, ev.Step.ToolCalls, 1)
			assert.Equal(t, "submit_summary", ev.Step.ToolCalls[0].Name)
		case stream.TypeComplete:
			assert.Equal(t, "LGTM", ev.Result)
		}
	}

	assert.Equal(t, review.StateSubmitted, out.State)
	assert.Equal(t, "LGTM", out.Report)
	assert.Equal(t, 1, out.Attempts)
	assert.Empty(t, out.Bugs)
	assert.Equal(t, 1, model.Calls())
	assert.Equal(t, []string{"LGTM"}, prov.reviews)
	require.Len(t, prov.usage, 1)
	assert.Equal(t, 1, prov.usage[0].Tools["submit_summary"])

	prompt := modeltest.LastUserText(model.Requests()[0])
	assert.Contains(t, prompt, "main.go")
	assert.Contains(t, prompt, "+func main() {}")
}

func TestSubmissionIsRecognizedInAnyCasing(t *testing.T) {
	t.Parallel()

	model := modeltest.New(modeltest.Call("SubmitSummary", map[string]any{"report": "Looks good."}))
	out, err := newOrchestrator(t, model).Run(context.Background(), review.Request{Files: changedFiles})
	require.NoError(t, err)
	assert.Equal(t, review.StateSubmitted, out.State)
	assert.Equal(t, "Looks good.", out.Report)
}

func TestNoChangedFiles(t *testing.T) {
	t.Parallel()

	model := modeltest.New()
	rec := &stream.Recorder{}
	out, err := newOrchestrator(t, model).Run(context.Background(), review.Request{Emitter: rec})
	assert.ErrorIs(t, err, review.ErrNoChangedFiles)
	assert.Nil(t, out)
	assert.Equal(t, []stream.Type{stream.TypeError}, rec.Types())
	assert.Zero(t, model.Calls())
}

func TestRetryBudgetExhausted(t *testing.T) {
	t.Parallel()

	const text = "I looked at the handler and the change reads cleanly, with a couple of naming nits."
	model := modeltest.New().Then(modeltest.Text(text))
	rec := &stream.Recorder{}

	out, err := newOrchestrator(t, model, review.WithMaxAttempts(3)).Run(context.Background(), review.Request{
		Files:   changedFiles,
		Emitter: rec,
	})
	require.NoError(t, err)
	assert.Equal(t, review.StateExhausted, out.State)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, text, out.Report)
	assert.Equal(t, 3, model.Calls())
	assert.Equal(t, stream.TypeComplete, lastEvent(rec).Type)

	reqs := model.Requests()
	assert.NotContains(t, modeltest.LastUserText(reqs[0]), "did not finish")
	second := modeltest.LastUserText(reqs[1])
	assert.Contains(t, second, "## Attempt 1 did not finish")
	assert.Contains(t, second, "You must call submit_summary")
	assert.Contains(t, second, "naming nits")
	assert.Contains(t, modeltest.LastUserText(reqs[2]), "## Attempt 2 did not finish")
}

func TestRetryableErrorStartsNextAttempt(t *testing.T) {
	t.Parallel()

	model := modeltest.New(
		modeltest.Fail(&retry.HTTPError{StatusCode: 503, Message: "overloaded"}),
		modeltest.Call("submit_summary", map[string]any{"report": "LGTM"}),
	)
	out, err := newOrchestrator(t, model, review.WithBackoff(fastBackoff)).Run(context.Background(), review.Request{Files: changedFiles})
	require.NoError(t, err)
	assert.Equal(t, review.StateSubmitted, out.State)
	assert.Equal(t, 2, out.Attempts)
}

func TestBillingErrorAborts(t *testing.T) {
	t.Parallel()

	model := modeltest.New().Then(modeltest.Fail(&retry.HTTPError{StatusCode: 402, Message: "insufficient balance"}))
	rec := &stream.Recorder{}
	_, err := newOrchestrator(t, model, review.WithBackoff(fastBackoff)).Run(context.Background(), review.Request{
		Files:   changedFiles,
		Emitter: rec,
	})
	assert.True(t, retry.IsBilling(err), "got %v", err)
	assert.Equal(t, 1, model.Calls())
	last := lastEvent(rec)
	assert.Equal(t, stream.TypeError, last.Type)
	assert.Contains(t, last.Message, "insufficient balance")
}

func TestMetaSummaryIsReplaced(t *testing.T) {
	t.Parallel()

	model := modeltest.New(
		modeltest.Text("Waiting for your approval to run the test command."),
		modeltest.Text("The change adds an empty main function and is correct."),
	)
	prov := &recordingProvider{}
	out, err := newOrchestrator(t, model, review.WithMaxAttempts(1)).Run(context.Background(), review.Request{
		Files:    changedFiles,
		Platform: prov,
	})
	require.NoError(t, err)
	assert.Equal(t, review.StateRecovered, out.State)
	assert.Equal(t, "The change adds an empty main function and is correct.", out.Report)
	assert.Equal(t, []string{out.Report}, prov.reviews, "the recovery summary is posted exactly once")

	recovery := model.Requests()[1]
	assert.Empty(t, recovery.Tools)
	assert.Contains(t, modeltest.LastUserText(recovery), "waiting for approval")
}

func TestSubmittedMetaSummaryIsReplaced(t *testing.T) {
	t.Parallel()

	model := modeltest.New(
		modeltest.Call("submit_summary", map[string]any{"report": "I am waiting for your approval to run the tests."}),
		modeltest.Text("The change adds an empty main function and is correct."),
	)
	prov := &recordingProvider{}
	out, err := newOrchestrator(t, model, review.WithMaxAttempts(1), review.WithoutBugPass()).Run(context.Background(), review.Request{
		Files:    changedFiles,
		Platform: prov,
	})
	require.NoError(t, err)
	assert.Equal(t, review.StateRecovered, out.State)
	assert.Equal(t, "The change adds an empty main function and is correct.", out.Report)
	assert.Equal(t, []string{out.Report}, prov.reviews, "only the recovery summary is posted")

	recovery := model.Requests()[1]
	assert.Empty(t, recovery.Tools)
	assert.Contains(t, modeltest.LastUserText(recovery), "waiting for approval")
}

func TestSandboxLoopIsCutShort(t *testing.T) {
	t.Parallel()

	sb, err := sandbox.New(t.TempDir(), sandbox.WithTempDir(t.TempDir()))
	require.NoError(t, err)

	loop := modeltest.Call("sandbox_exec", map[string]any{"command": "echo looping"})
	model := modeltest.New(loop, loop, loop, loop, modeltest.Text("Recovered: the command prints its input."))
	rec := &stream.Recorder{}
	prov := &recordingProvider{}

	out, err := newOrchestrator(t, model, review.WithSandbox(sb), review.WithLoopThreshold(4), review.WithMaxSteps(20)).
		Run(context.Background(), review.Request{
			Files:     changedFiles,
			Platform:  prov,
			Emitter:   rec,
			Confirmer: approveAll,
		})
	require.NoError(t, err)

	assert.Equal(t, review.StateRecovered, out.State)
	assert.Equal(t, "Recovered: the command prints its input.", out.Report)
	assert.Equal(t, 5, model.Calls(), "four looping steps and one recovery call")
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, []string{out.Report}, prov.reviews)

	recovery := model.Requests()[4]
	assert.Empty(t, recovery.Tools)
	prompt := modeltest.LastUserText(recovery)
	assert.Contains(t, prompt, "looping")
	assert.Contains(t, prompt, "func main() {}")

	types := rec.Types()
	assert.Contains(t, types, stream.TypeSandboxRunStart)
	assert.Contains(t, types, stream.TypeSandboxRunEnd)
	assert.Equal(t, stream.TypeComplete, types[len(types)-1])
}

func TestDifferingSandboxCommandDoesNotTriggerRecovery(t *testing.T) {
	t.Parallel()

	sb, err := sandbox.New(t.TempDir(), sandbox.WithTempDir(t.TempDir()))
	require.NoError(t, err)

	a := modeltest.Call("sandbox_exec", map[string]any{"command": "echo a"})
	b := modeltest.Call("sandbox_exec", map[string]any{"command": "echo b"})
	model := modeltest.New(a, a, a, b, a, a, modeltest.Call("submit_summary", map[string]any{"report": "Verified, no defects."}))

	out, err := newOrchestrator(t, model, review.WithSandbox(sb)).Run(context.Background(), review.Request{
		Files:     changedFiles,
		Confirmer: approveAll,
	})
	require.NoError(t, err)
	assert.Equal(t, review.StateSubmitted, out.State)
	assert.Equal(t, 7, model.Calls())
	assert.Equal(t, 6, out.Usage.Tools["sandbox_exec"])
}

func TestDangerousCommandIsRefusedInReview(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	sb, err := sandbox.New(t.TempDir(), sandbox.WithTempDir(tmp))
	require.NoError(t, err)

	model := modeltest.New(
		modeltest.Call("sandbox_exec", map[string]any{"command": "rm -rf /"}),
		modeltest.Call("submit_summary", map[string]any{"report": "LGTM"}),
	)
	rec := &stream.Recorder{}
	_, err = newOrchestrator(t, model, review.WithSandbox(sb)).Run(context.Background(), review.Request{
		Files:     changedFiles,
		Emitter:   rec,
		Confirmer: approveAll,
	})
	require.NoError(t, err)

	var step *executor.Step
	for _, ev := range rec.Events() {
		if ev.Type == stream.TypeStep {
			step = ev.Step
			break
		}
	}
	require.NotNil(t, step)
	assert.Contains(t, step.ToolResults[0].Text(), "Potentially dangerous command detected")
	assert.NotContains(t, rec.Types(), stream.TypeSandboxRunStart)
}

func TestClientDisconnectUnwinds(t *testing.T) {
	t.Parallel()

	model := modeltest.New().Then(modeltest.Call("glob", map[string]any{"pattern": "*.go"}))
	var emitted []stream.Type
	em := stream.EmitterFunc(func(_ context.Context, ev stream.Event) error {
		emitted = append(emitted, ev.Type)
		if ev.Type == stream.TypeStep {
			return stream.ErrClientDisconnected
		}
		return nil
	})

	_, err := newOrchestrator(t, model).Run(context.Background(), review.Request{Files: changedFiles, Emitter: em})
	assert.ErrorIs(t, err, stream.ErrClientDisconnected)
	assert.Equal(t, 1, model.Calls())
	assert.NotContains(t, emitted, stream.TypeError)
	assert.NotContains(t, emitted, stream.TypeComplete)
}

func TestPreflightReportsReachTheReview(t *testing.T) {
	t.Parallel()

	const preflightReport = "## Summary\nok\n## Findings\n- a\n- b\n- c\n## Recommendations\n- none\n## Conclusion\nfine"
	var mu sync.Mutex
	var mainPrompt string
	model := modeltest.Func(func(ctx context.Context, req executor.Request) (*executor.Response, error) {
		if strings.Contains(req.System, "sub-agent") {
			return modeltest.Call("submit_report", map[string]any{"report": preflightReport})(ctx, req)
		}
		mu.Lock()
		mainPrompt = modeltest.LastUserText(req)
		mu.Unlock()
		return modeltest.Call("submit_summary", map[string]any{"report": "LGTM"})(ctx, req)
	})
	rec := &stream.Recorder{}

	out, err := newOrchestrator(t, model, review.WithPreflight(2)).Run(context.Background(), review.Request{
		Files:   changedFiles,
		Emitter: rec,
	})
	require.NoError(t, err)
	assert.Equal(t, review.StateSubmitted, out.State)

	var states []string
	for _, ev := range rec.Events() {
		if ev.Type == stream.TypeSubagentPreflight {
			states = append(states, ev.State)
			assert.Equal(t, 4, ev.Total)
		}
	}
	assert.Equal(t, []string{"start", "end"}, states)

	mu.Lock()
	defer mu.Unlock()
	for _, role := range []string{"Static Analysis Agent", "Security Analysis Agent"} {
		assert.Contains(t, mainPrompt, "#### "+role)
	}
}

func TestNewValidatesOptions(t *testing.T) {
	t.Parallel()

	_, err := review.New(nil, nil)
	assert.Error(t, err)

	_, err = review.New(modeltest.New(), nil, review.WithMaxAttempts(0))
	assert.ErrorContains(t, err, "max attempts must be positive")

	_, err = review.New(modeltest.New(), nil, review.WithBackoff(retry.RetryConfig{MaxRetries: -1}))
	assert.Error(t, err)
}

func TestContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancelCause(context.Background())
	cause := errors.New("shutting down")
	model := modeltest.New(modeltest.Block())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel(cause)
	}()

	_, err := newOrchestrator(t, model).Run(ctx, review.Request{Files: changedFiles})
	assert.ErrorIs(t, err, cause)
}
