package publisher

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wszrw123/xiaohongshu-automation/internal/types"
)

// fakeRunner scripts EnsureSession and a sequence of per-attempt results.
type fakeRunner struct {
	sessionOK bool
	results   []types.WorkflowResult
	panicOn   int // 1-based attempt index that panics; 0 for never

	ensureCalls  int
	publishCalls int
}

func (f *fakeRunner) EnsureSession() bool {
	f.ensureCalls++
	return f.sessionOK
}

func (f *fakeRunner) Publish(rec types.ContentRecord, media types.MediaSet, dryRun bool) types.WorkflowResult {
	f.publishCalls++
	if f.panicOn == f.publishCalls {
		panic("browser went away")
	}
	res := f.results[f.publishCalls-1]
	res.Time = time.Now()
	return res
}

func newTestOrchestrator() (*Orchestrator, *int) {
	o := NewOrchestrator(log.New(io.Discard, "", 0))
	sleeps := 0
	o.sleep = func(time.Duration) { sleeps++ }
	return o, &sleeps
}

func result(s types.Status) types.WorkflowResult {
	return types.WorkflowResult{
		Status:  s,
		Success: s == types.StatusSuccess || s == types.StatusDryRun,
	}
}

func TestPublishWithRetry(t *testing.T) {
	t.Parallel()

	rec := types.ContentRecord{Title: "t"}

	t.Run("login failure short-circuits without any workflow execution", func(t *testing.T) {
		o, sleeps := newTestOrchestrator()
		run := &fakeRunner{sessionOK: false}

		res := o.PublishWithRetry(run, rec, nil, false, RetryOptions{})

		assert.Equal(t, types.StatusLoginFailed, res.Status)
		assert.False(t, res.Success)
		assert.Equal(t, 0, run.publishCalls)
		assert.Equal(t, 0, *sleeps)
	})

	t.Run("first attempt success returns immediately", func(t *testing.T) {
		o, sleeps := newTestOrchestrator()
		run := &fakeRunner{sessionOK: true, results: []types.WorkflowResult{result(types.StatusSuccess)}}

		res := o.PublishWithRetry(run, rec, nil, false, RetryOptions{})

		assert.Equal(t, types.StatusSuccess, res.Status)
		assert.Equal(t, 1, run.publishCalls)
		assert.Equal(t, 1, run.ensureCalls)
		assert.Equal(t, 0, *sleeps)
	})

	t.Run("ambiguous outcomes are retried and the final success returned", func(t *testing.T) {
		o, sleeps := newTestOrchestrator()
		run := &fakeRunner{sessionOK: true, results: []types.WorkflowResult{
			result(types.StatusUncertain),
			result(types.StatusUncertain),
			result(types.StatusSuccess),
		}}

		res := o.PublishWithRetry(run, rec, nil, false, RetryOptions{MaxAttempts: 3})

		assert.Equal(t, types.StatusSuccess, res.Status)
		assert.True(t, res.Success)
		assert.Equal(t, 3, run.publishCalls)
		assert.Equal(t, 2, *sleeps)
	})

	t.Run("exhaustion yields max_retries_exceeded", func(t *testing.T) {
		o, sleeps := newTestOrchestrator()
		run := &fakeRunner{sessionOK: true, results: []types.WorkflowResult{
			result(types.StatusUploadFailed),
			result(types.StatusPossibleSuccess),
			result(types.StatusUncertain),
		}}

		res := o.PublishWithRetry(run, rec, nil, false, RetryOptions{MaxAttempts: 3})

		assert.Equal(t, types.StatusMaxRetries, res.Status)
		assert.False(t, res.Success)
		assert.Equal(t, 3, run.publishCalls)
		// No delay after the final attempt.
		assert.Equal(t, 2, *sleeps)
	})

	t.Run("session is acquired exactly once", func(t *testing.T) {
		o, _ := newTestOrchestrator()
		run := &fakeRunner{sessionOK: true, results: []types.WorkflowResult{
			result(types.StatusUncertain),
			result(types.StatusUncertain),
		}}

		o.PublishWithRetry(run, rec, nil, false, RetryOptions{MaxAttempts: 2})
		assert.Equal(t, 1, run.ensureCalls)
	})

	t.Run("a panicking attempt is contained and consumed", func(t *testing.T) {
		o, _ := newTestOrchestrator()
		run := &fakeRunner{sessionOK: true, panicOn: 1, results: []types.WorkflowResult{
			{}, // consumed by the panic
			result(types.StatusSuccess),
		}}

		res := o.PublishWithRetry(run, rec, nil, false, RetryOptions{MaxAttempts: 2})

		assert.Equal(t, types.StatusSuccess, res.Status)
		assert.Equal(t, 2, run.publishCalls)
	})

	t.Run("zero options fall back to defaults", func(t *testing.T) {
		o, _ := newTestOrchestrator()
		run := &fakeRunner{sessionOK: true, results: []types.WorkflowResult{
			result(types.StatusUncertain),
			result(types.StatusUncertain),
			result(types.StatusUncertain),
		}}

		res := o.PublishWithRetry(run, rec, nil, false, RetryOptions{})

		assert.Equal(t, types.StatusMaxRetries, res.Status)
		assert.Equal(t, DefaultMaxAttempts, run.publishCalls)
	})
}
