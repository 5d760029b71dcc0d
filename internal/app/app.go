// Package app wires configuration, storage, session control and the publish
// pipeline together, and owns the directories everything writes into.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/wszrw123/xiaohongshu-automation/internal/config"
	"github.com/wszrw123/xiaohongshu-automation/internal/content"
	"github.com/wszrw123/xiaohongshu-automation/internal/locator"
	"github.com/wszrw123/xiaohongshu-automation/internal/notifier"
	"github.com/wszrw123/xiaohongshu-automation/internal/publisher"
	"github.com/wszrw123/xiaohongshu-automation/internal/scheduler"
	"github.com/wszrw123/xiaohongshu-automation/internal/session"
	"github.com/wszrw123/xiaohongshu-automation/internal/store"
	"github.com/wszrw123/xiaohongshu-automation/internal/types"
)

// Paths collects every directory and file the process writes. They are
// created once at startup; no component creates directories as an ambient
// side effect.
type Paths struct {
	ConfigDir      string
	ContentDir     string
	ReportsDir     string
	ScreenshotsDir string
	ProfileDir     string
	HistoryPath    string
}

// DefaultPaths derives the standard layout from the platform config and
// cache directories.
func DefaultPaths() (Paths, error) {
	configDir, err := config.ConfigDir()
	if err != nil {
		return Paths{}, err
	}
	cacheDir, err := config.CacheDir()
	if err != nil {
		return Paths{}, err
	}

	return Paths{
		ConfigDir:      configDir,
		ContentDir:     filepath.Join(cacheDir, "content"),
		ReportsDir:     filepath.Join(cacheDir, "reports"),
		ScreenshotsDir: filepath.Join(cacheDir, "screenshots"),
		ProfileDir:     filepath.Join(configDir, "browser-data"),
		HistoryPath:    filepath.Join(cacheDir, "history.db"),
	}, nil
}

// Ensure creates every directory.
func (p Paths) Ensure() error {
	for _, dir := range []string{p.ConfigDir, p.ContentDir, p.ReportsDir, p.ScreenshotsDir, p.ProfileDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// App holds the application state.
type App struct {
	cfg      *config.Config
	paths    Paths
	log      *log.Logger
	patterns map[string][]locator.Pattern
	store    *content.Store
	history  *store.History
	notifier *notifier.Notifier
}

// New creates an App. Paths must already be ensured.
func New(cfg *config.Config, paths Paths, logger *log.Logger) (*App, error) {
	history, err := store.Open(paths.HistoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	return &App{
		cfg:      cfg,
		paths:    paths,
		log:      logger,
		patterns: locator.Merge(cfg.Selectors),
		store:    content.NewStore(paths.ContentDir, paths.ReportsDir, logger),
		history:  history,
		notifier: notifier.NewFromConfig(cfg.Email),
	}, nil
}

// Close releases the App's resources.
func (a *App) Close() {
	if err := a.history.Close(); err != nil {
		a.log.Printf("closing history failed: %v", err)
	}
}

// profileDir honors the config override.
func (a *App) profileDir() string {
	if a.cfg.Browser.ProfileDir != "" {
		return a.cfg.Browser.ProfileDir
	}
	return a.paths.ProfileDir
}

// sessionRunner binds the retry loop to a live session controller and
// workflow. All its calls run against the session's browser context.
type sessionRunner struct {
	sess *session.Controller
	wf   *publisher.Workflow

	acquireTimeout time.Duration
}

func (r *sessionRunner) EnsureSession() bool {
	ctx := r.sess.Ctx()
	if r.sess.IsAuthenticated(ctx) {
		return true
	}
	return r.sess.AcquireSession(ctx, r.acquireTimeout)
}

func (r *sessionRunner) Publish(rec types.ContentRecord, media types.MediaSet, dryRun bool) types.WorkflowResult {
	return r.wf.Publish(r.sess.Ctx(), rec, media, dryRun)
}

// Publish runs the full retry sequence for one note, persists the report and
// the history row, and fires the notifier. The browser is started once and
// torn down exactly once, whatever the attempts do.
func (a *App) Publish(ctx context.Context, rec types.ContentRecord, media types.MediaSet, dryRun, headless bool) (types.WorkflowResult, error) {
	sess := session.New(headless, a.profileDir(), a.patterns[locator.TargetLoginMarker], a.log)
	if err := sess.Start(ctx); err != nil {
		return types.WorkflowResult{}, err
	}
	defer sess.Stop()

	wf := publisher.NewWorkflow(a.patterns, a.cfg.Publish.DefaultCover, a.paths.ScreenshotsDir, a.log)
	runner := &sessionRunner{
		sess:           sess,
		wf:             wf,
		acquireTimeout: time.Duration(a.cfg.Publish.LoginTimeoutSeconds) * time.Second,
	}

	orch := publisher.NewOrchestrator(a.log)
	res := orch.PublishWithRetry(runner, rec, media, dryRun, publisher.RetryOptions{
		MaxAttempts: a.cfg.Publish.MaxAttempts,
		Delay:       time.Duration(a.cfg.Publish.RetryDelaySeconds) * time.Second,
	})

	a.record(rec, res, dryRun)
	return res, nil
}

// record persists the terminal outcome everywhere it belongs. Failures here
// are logged, never allowed to mask the publish result.
func (a *App) record(rec types.ContentRecord, res types.WorkflowResult, dryRun bool) {
	reportPath, err := a.store.SaveReport(rec, res)
	if err != nil {
		a.log.Printf("saving report failed: %v", err)
	}

	if err := a.history.Record(&store.Entry{
		Title:      rec.Title,
		Tags:       rec.Tags,
		Status:     res.Status,
		Success:    res.Success,
		Error:      res.Error,
		DryRun:     dryRun,
		ReportPath: reportPath,
	}); err != nil {
		a.log.Printf("recording history failed: %v", err)
	}

	// Mail only terminal non-success; a quiet inbox means notes are landing.
	if a.notifier != nil && !res.Success {
		if err := a.notifier.NotifyOutcome(rec, res); err != nil {
			a.log.Printf("notification failed: %v", err)
		}
	}
}

// Login runs session acquisition standalone and reports whether it landed.
func (a *App) Login(ctx context.Context) (bool, error) {
	// Always headful: the operator needs to see the QR code.
	sess := session.New(false, a.profileDir(), a.patterns[locator.TargetLoginMarker], a.log)
	if err := sess.Start(ctx); err != nil {
		return false, err
	}
	defer sess.Stop()

	ok := sess.EnsureSession(sess.Ctx())
	if ok {
		if cookies, err := sess.Cookies(sess.Ctx()); err == nil {
			a.log.Printf("session persisted to profile (%d cookies)", len(cookies))
		}
	}
	return ok, nil
}

// RunSchedule blocks, publishing the configured content file at each
// configured daily time, until ctx is cancelled. Cancellation stops new runs
// but lets an in-flight run finish.
func (a *App) RunSchedule(ctx context.Context) error {
	if a.cfg.Schedule.ContentFile == "" {
		return fmt.Errorf("schedule.content_file is not configured")
	}

	// Jobs run on a background context: an operator interrupt must stop
	// scheduling, not abort a publish mid-step.
	sched, err := scheduler.New(context.Background(), a.cfg.Schedule.Timezone, a.log)
	if err != nil {
		return err
	}

	for i, timeStr := range a.cfg.Schedule.PostTimes {
		name := fmt.Sprintf("publish-%d", i+1)
		if err := sched.AddDailyJob(name, timeStr, a.scheduledPublish); err != nil {
			return err
		}
	}

	sched.Start()
	a.log.Printf("scheduler running, interrupt to stop")

	<-ctx.Done()
	stopped := sched.Stop()
	<-stopped.Done()
	a.log.Printf("scheduler stopped")
	return nil
}

// scheduledPublish is one timer-triggered publish run.
func (a *App) scheduledPublish(ctx context.Context) error {
	rec, err := content.Load(a.cfg.Schedule.ContentFile)
	if err != nil {
		return fmt.Errorf("loading scheduled content: %w", err)
	}

	if _, err := a.store.SaveContent(rec); err != nil {
		a.log.Printf("saving scheduled content failed: %v", err)
	}

	res, err := a.Publish(ctx, rec, nil, false, a.cfg.Browser.Headless)
	if err != nil {
		return err
	}

	a.log.Printf("scheduled publish finished: status=%s success=%t", res.Status, res.Success)
	return nil
}
