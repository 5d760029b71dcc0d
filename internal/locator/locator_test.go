package locator

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestResolveOrder(t *testing.T) {
	t.Parallel()

	patterns := []Pattern{
		{Selector: "#a"},
		{Selector: "#b"},
	}

	t.Run("returns the first pattern when all match", func(t *testing.T) {
		r := NewWithProbe(func(ctx context.Context, p Pattern) error {
			return nil // everything matches
		}, discard())

		m, err := r.Resolve(context.Background(), "field", patterns, time.Second)
		require.NoError(t, err)
		assert.Equal(t, "#a", m.Pattern.Selector)
		assert.Equal(t, 0, m.Index)
	})

	t.Run("falls through to a later pattern", func(t *testing.T) {
		r := NewWithProbe(func(ctx context.Context, p Pattern) error {
			if p.Selector == "#b" {
				return nil
			}
			return errors.New("no such element")
		}, discard())

		m, err := r.Resolve(context.Background(), "field", patterns, time.Second)
		require.NoError(t, err)
		assert.Equal(t, "#b", m.Pattern.Selector)
		assert.Equal(t, 1, m.Index)
	})

	t.Run("probes patterns strictly in list order", func(t *testing.T) {
		var seen []string
		r := NewWithProbe(func(ctx context.Context, p Pattern) error {
			seen = append(seen, p.Selector)
			return errors.New("no such element")
		}, discard())

		_, err := r.Resolve(context.Background(), "field", patterns, time.Second)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, []string{"#a", "#b"}, seen)
	})
}

func TestResolveNotFound(t *testing.T) {
	t.Parallel()

	r := NewWithProbe(func(ctx context.Context, p Pattern) error {
		return errors.New("no such element")
	}, discard())

	_, err := r.Resolve(context.Background(), "field", []Pattern{{Selector: "#x"}}, time.Second)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveBoundsEachAttempt(t *testing.T) {
	t.Parallel()

	r := NewWithProbe(func(ctx context.Context, p Pattern) error {
		<-ctx.Done() // simulate a wait that never resolves
		return ctx.Err()
	}, discard())

	start := time.Now()
	_, err := r.Resolve(context.Background(), "field",
		[]Pattern{{Selector: "#a"}, {Selector: "#b"}}, 20*time.Millisecond)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Less(t, time.Since(start), time.Second)
}

func TestResolveStopsOnCancelledParent(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewWithProbe(func(ctx context.Context, p Pattern) error {
		return ctx.Err()
	}, discard())

	_, err := r.Resolve(ctx, "field", []Pattern{{Selector: "#a"}, {Selector: "#b"}}, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMerge(t *testing.T) {
	t.Parallel()

	merged := Merge(map[string][]Pattern{
		TargetTitleField: {{Selector: "#custom-title"}},
		"empty_target":   {},
	})

	assert.Equal(t, []Pattern{{Selector: "#custom-title"}}, merged[TargetTitleField])
	// Targets without overrides keep the built-in lists.
	assert.Equal(t, Defaults()[TargetBodyEditor], merged[TargetBodyEditor])
	// Empty overrides are ignored rather than wiping a target.
	_, ok := merged["empty_target"]
	assert.False(t, ok)
}
