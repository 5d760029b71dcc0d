package session

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wszrw123/xiaohongshu-automation/internal/locator"
)

func newTestController(navErr error, markerAfter int) *Controller {
	c := New(true, "/tmp/profile", locator.Defaults()[locator.TargetLoginMarker], log.New(io.Discard, "", 0))
	c.pollInterval = 5 * time.Millisecond

	polls := 0
	c.navigate = func(ctx context.Context, url string) error { return navErr }
	c.probe = func(ctx context.Context, timeout time.Duration) bool {
		polls++
		return markerAfter > 0 && polls >= markerAfter
	}
	return c
}

func TestStateMachine(t *testing.T) {
	t.Parallel()

	t.Run("starts unknown", func(t *testing.T) {
		c := newTestController(nil, 0)
		assert.Equal(t, StateUnknown, c.State())
	})

	t.Run("marker present means authenticated", func(t *testing.T) {
		c := newTestController(nil, 1)
		assert.True(t, c.IsAuthenticated(context.Background()))
		assert.Equal(t, StateAuthenticated, c.State())
	})

	t.Run("marker absent means unauthenticated", func(t *testing.T) {
		c := newTestController(nil, 0)
		assert.False(t, c.IsAuthenticated(context.Background()))
		assert.Equal(t, StateUnauthenticated, c.State())
	})

	t.Run("navigation failure means unauthenticated", func(t *testing.T) {
		c := newTestController(context.DeadlineExceeded, 1)
		assert.False(t, c.IsAuthenticated(context.Background()))
		assert.Equal(t, StateUnauthenticated, c.State())
	})
}

func TestAcquireSession(t *testing.T) {
	t.Parallel()

	t.Run("detects the marker mid-poll", func(t *testing.T) {
		c := newTestController(nil, 3)

		ok := c.AcquireSession(context.Background(), time.Second)
		assert.True(t, ok)
		assert.Equal(t, StateAuthenticated, c.State())
	})

	t.Run("timeout is a boolean failure, not an error", func(t *testing.T) {
		c := newTestController(nil, 0)

		ok := c.AcquireSession(context.Background(), 30*time.Millisecond)
		assert.False(t, ok)
		assert.Equal(t, StateUnauthenticated, c.State())
	})

	t.Run("cancelled context stops the wait", func(t *testing.T) {
		c := newTestController(nil, 0)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		ok := c.AcquireSession(ctx, time.Minute)
		assert.False(t, ok)
		assert.Equal(t, StateUnauthenticated, c.State())
	})
}

func TestEnsureSession(t *testing.T) {
	t.Parallel()

	t.Run("already authenticated returns without challenge", func(t *testing.T) {
		c := newTestController(nil, 1)
		assert.True(t, c.EnsureSession(context.Background()))
		assert.Equal(t, StateAuthenticated, c.State())
	})

	t.Run("falls through to the challenge flow", func(t *testing.T) {
		c := New(true, "/tmp/profile", nil, log.New(io.Discard, "", 0))
		c.pollInterval = 5 * time.Millisecond
		c.navigate = func(ctx context.Context, url string) error { return nil }

		// Marker only appears on the polls after the initial check.
		polls := 0
		c.probe = func(ctx context.Context, timeout time.Duration) bool {
			polls++
			return polls >= 3
		}

		assert.True(t, c.EnsureSession(context.Background()))
		assert.Equal(t, StateAuthenticated, c.State())
	})
}
