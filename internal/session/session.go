// Package session owns the persistent browser profile and the login state
// machine for xiaohongshu.com.
package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/chromedp"

	browseropts "github.com/wszrw123/xiaohongshu-automation/internal/browser"
	"github.com/wszrw123/xiaohongshu-automation/internal/locator"
)

const exploreURL = "https://www.xiaohongshu.com/explore"

// State is the controller's position in the login state machine.
type State string

const (
	StateUnknown               State = "unknown"
	StateAuthenticated         State = "authenticated"
	StateUnauthenticated       State = "unauthenticated"
	StateAcquiringViaChallenge State = "acquiring_via_challenge"
)

const (
	// DefaultAcquireTimeout bounds the whole QR challenge flow.
	DefaultAcquireTimeout = 5 * time.Minute

	// markerWait bounds a single login-marker check on an already loaded
	// page.
	markerWait = 5 * time.Second

	// pollInterval is deliberately sub-second so a successful scan is
	// detected almost immediately.
	pollInterval = 800 * time.Millisecond
)

// Controller owns exactly one browser profile for the process lifetime. No
// two workflow attempts ever run against it concurrently; the retry loop and
// the scheduler are both strictly sequential.
type Controller struct {
	headless       bool
	profileDir     string
	markerPatterns []locator.Pattern
	log            *log.Logger

	// Injectable for tests; default to live chromedp implementations.
	navigate func(ctx context.Context, url string) error
	probe    func(ctx context.Context, timeout time.Duration) bool

	pollInterval time.Duration

	state       State
	browserCtx  context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// New creates a Controller. markerPatterns locate the element only rendered
// for an authenticated user.
func New(headless bool, profileDir string, markerPatterns []locator.Pattern, logger *log.Logger) *Controller {
	c := &Controller{
		headless:       headless,
		profileDir:     profileDir,
		markerPatterns: markerPatterns,
		log:            logger,
		state:          StateUnknown,
		pollInterval:   pollInterval,
	}
	c.navigate = c.chromedpNavigate
	c.probe = c.chromedpProbe
	return c
}

// Start launches the browser against the persistent profile. Startup
// failures (no Chrome binary, profile locked by another process) are the one
// class of fault allowed to propagate and abort the whole run.
func (c *Controller) Start(ctx context.Context) error {
	if c.browserCtx != nil {
		return nil
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, browseropts.Options(c.headless, c.profileDir)...)
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)

	// Running an empty task forces the browser process to launch now so
	// startup failures surface here rather than mid-workflow.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelCtx()
		cancelAlloc()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	c.browserCtx = browserCtx
	c.cancelCtx = cancelCtx
	c.cancelAlloc = cancelAlloc
	c.log.Printf("browser started (persistent profile: %s)", c.profileDir)
	return nil
}

// Stop closes the browser. Login state lives in the profile directory, so it
// survives the shutdown.
func (c *Controller) Stop() {
	if c.browserCtx == nil {
		return
	}
	c.cancelCtx()
	c.cancelAlloc()
	c.browserCtx = nil
	c.log.Printf("browser closed (login state persisted)")
}

// Ctx returns the browser context workflow steps run against. Valid only
// between Start and Stop.
func (c *Controller) Ctx() context.Context {
	return c.browserCtx
}

// State reports the current state machine position.
func (c *Controller) State() State {
	return c.state
}

// IsAuthenticated navigates to the home surface and checks for the
// authenticated-only marker. The profile may hold a stale session, so this
// always queries the live page rather than trusting anything in memory.
func (c *Controller) IsAuthenticated(ctx context.Context) bool {
	if err := c.navigate(ctx, exploreURL); err != nil {
		c.log.Printf("login check navigation failed: %v", err)
		c.state = StateUnauthenticated
		return false
	}

	if c.probe(ctx, markerWait) {
		c.log.Printf("already logged in")
		c.state = StateAuthenticated
		return true
	}

	c.log.Printf("no login state detected")
	c.state = StateUnauthenticated
	return false
}

// AcquireSession runs the QR challenge flow: open the home page, let the
// operator scan the code, and poll for the authenticated marker until it
// appears or timeout elapses. Timeout is reported as false, not an error.
func (c *Controller) AcquireSession(ctx context.Context, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultAcquireTimeout
	}

	if err := c.navigate(ctx, exploreURL); err != nil {
		c.log.Printf("challenge navigation failed: %v", err)
		c.state = StateUnauthenticated
		return false
	}

	c.state = StateAcquiringViaChallenge
	c.log.Printf("scan the QR code in the browser window (%s timeout)", timeout)

	deadline := time.After(timeout)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	start := time.Now()
	lastProgress := start

	for {
		select {
		case <-deadline:
			c.log.Printf("login timed out after %s", timeout)
			c.state = StateUnauthenticated
			return false
		case <-ctx.Done():
			c.state = StateUnauthenticated
			return false
		case <-ticker.C:
			if c.probe(ctx, c.pollInterval) {
				c.log.Printf("login detected")
				c.state = StateAuthenticated
				return true
			}
			if time.Since(lastProgress) >= 15*time.Second {
				c.log.Printf("waiting for QR scan... %s elapsed", time.Since(start).Round(time.Second))
				lastProgress = time.Now()
			}
		}
	}
}

// EnsureSession checks the current login marker and falls back to the QR
// challenge flow when it is absent.
func (c *Controller) EnsureSession(ctx context.Context) bool {
	if c.IsAuthenticated(ctx) {
		return true
	}
	c.log.Printf("not logged in, starting QR challenge flow")
	return c.AcquireSession(ctx, DefaultAcquireTimeout)
}

func (c *Controller) chromedpNavigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	return chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(2*time.Second),
	)
}

func (c *Controller) chromedpProbe(ctx context.Context, timeout time.Duration) bool {
	resolver := locator.New(c.log)
	_, err := resolver.Resolve(ctx, locator.TargetLoginMarker, c.markerPatterns, timeout)
	return err == nil
}
