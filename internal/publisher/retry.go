package publisher

import (
	"fmt"
	"log"
	"time"

	"github.com/wszrw123/xiaohongshu-automation/internal/types"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 5 * time.Second
)

// Runner is the slice of session controller + workflow the retry loop
// needs. Tests substitute a fake.
type Runner interface {
	// EnsureSession reports whether an authenticated session is available,
	// acquiring one if needed.
	EnsureSession() bool

	// Publish executes one full workflow attempt.
	Publish(rec types.ContentRecord, media types.MediaSet, dryRun bool) types.WorkflowResult
}

// RetryOptions bound the retry loop. Zero values fall back to the defaults.
type RetryOptions struct {
	MaxAttempts int
	Delay       time.Duration
}

// Orchestrator wraps workflow executions in a bounded-attempt loop with a
// fixed inter-attempt delay.
type Orchestrator struct {
	log   *log.Logger
	sleep func(time.Duration)
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(logger *log.Logger) *Orchestrator {
	return &Orchestrator{log: logger, sleep: time.Sleep}
}

// PublishWithRetry acquires the session once, then re-runs the entire
// workflow on every non-success outcome until it succeeds or attempts are
// exhausted. A session that never materializes short-circuits without
// consuming any workflow attempts.
func (o *Orchestrator) PublishWithRetry(run Runner, rec types.ContentRecord, media types.MediaSet, dryRun bool, opts RetryOptions) types.WorkflowResult {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultRetryDelay
	}

	if !run.EnsureSession() {
		o.log.Printf("session acquisition failed, aborting publish")
		return types.WorkflowResult{Status: types.StatusLoginFailed, Time: time.Now()}
	}

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		o.log.Printf("--- attempt %d/%d ---", attempt, opts.MaxAttempts)

		res := o.runAttempt(run, rec, media, dryRun)
		if res.Success {
			return res
		}

		o.log.Printf("publish not confirmed (status=%s)", res.Status)
		if attempt < opts.MaxAttempts {
			o.log.Printf("retrying in %s", opts.Delay)
			o.sleep(opts.Delay)
		}
	}

	return types.WorkflowResult{Status: types.StatusMaxRetries, Time: time.Now()}
}

// runAttempt contains a single workflow execution. A panic escaping the
// workflow still consumes the attempt.
func (o *Orchestrator) runAttempt(run Runner, rec types.ContentRecord, media types.MediaSet, dryRun bool) (res types.WorkflowResult) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Printf("attempt panicked: %v", r)
			res = types.WorkflowResult{
				Status: types.StatusError,
				Time:   time.Now(),
				Error:  fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	return run.Publish(rec, media, dryRun)
}
