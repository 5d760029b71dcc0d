// Package scheduler runs publish jobs at configured daily times. The one
// persistent browser profile tolerates no concurrent runs, so a trigger that
// fires while a previous run is still active is skipped, never overlapped.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a scheduled task.
type Job func(ctx context.Context) error

// Scheduler manages daily publish jobs.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	jobs map[string]cron.EntryID
	busy chan struct{} // one slot shared by every entry
	log  *log.Logger
}

// New creates a scheduler in the given timezone. ctx is handed to every job
// invocation; cancelling it stops new work but an in-flight job finishes its
// current step under that step's own timeout.
func New(ctx context.Context, timezone string, logger *log.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}

	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron: c,
		ctx:  ctx,
		jobs: make(map[string]cron.EntryID),
		busy: make(chan struct{}, 1),
		log:  logger,
	}, nil
}

// AddDailyJob schedules job every day at timeStr ("HH:MM").
func (s *Scheduler) AddDailyJob(name, timeStr string, job Job) error {
	spec, err := dailySpec(timeStr)
	if err != nil {
		return err
	}

	entryID, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	s.log.Printf("[scheduler] added job: %s (daily at %s)", name, timeStr)
	return nil
}

// run executes one trigger. The busy slot is shared across every entry, so a
// trigger firing while any other run is active is skipped, not queued: the
// distinct daily entries all drive the same browser profile.
func (s *Scheduler) run(name string, job Job) {
	select {
	case s.busy <- struct{}{}:
	default:
		s.log.Printf("[scheduler] skipping job %s: a previous run is still active", name)
		return
	}
	defer func() { <-s.busy }()

	s.log.Printf("[scheduler] starting job: %s", name)
	start := time.Now()

	if err := job(s.ctx); err != nil {
		s.log.Printf("[scheduler] job %s failed: %v", name, err)
	} else {
		s.log.Printf("[scheduler] job %s completed in %v", name, time.Since(start))
	}
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.log.Printf("[scheduler] starting with %d job(s)", len(s.jobs))
	s.cron.Start()
}

// Stop halts scheduling of new runs. The returned context is done once any
// in-flight job has finished.
func (s *Scheduler) Stop() context.Context {
	s.log.Printf("[scheduler] stopping")
	return s.cron.Stop()
}

// dailySpec converts "HH:MM" to a daily cron spec.
func dailySpec(timeStr string) (string, error) {
	t, err := time.Parse("15:04", timeStr)
	if err != nil {
		return "", fmt.Errorf("invalid time format %s: %w", timeStr, err)
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}
