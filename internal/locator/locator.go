// Package locator resolves logical UI targets ("title field", "publish
// button") against an ordered list of selector patterns. The composer's
// markup drifts often and is not documented, so the only robust contract is
// trying known-good patterns in priority order and accepting graceful
// degradation.
package locator

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/chromedp/chromedp"
)

// ErrNotFound is returned when no pattern for a target matched within its
// timeout. Callers decide whether that is fatal.
var ErrNotFound = errors.New("no pattern matched")

// State selects the wait condition for a pattern. Hidden file inputs need
// "attached" because they never become visible.
type State string

const (
	StateVisible  State = "visible"
	StateAttached State = "attached"
)

// Pattern is one declarative rule for finding an element.
type Pattern struct {
	Selector string `json:"selector"`
	State    State  `json:"state,omitempty"`
}

// Match identifies the pattern that resolved for a target.
type Match struct {
	Target  string
	Pattern Pattern
	Index   int
}

// ProbeFunc checks whether a single pattern currently resolves. The default
// probe queries the live page via chromedp; tests inject their own.
type ProbeFunc func(ctx context.Context, p Pattern) error

// Resolver tries patterns strictly in list order and returns the first that
// matches.
type Resolver struct {
	probe ProbeFunc
	log   *log.Logger
}

// New returns a Resolver backed by the live page.
func New(logger *log.Logger) *Resolver {
	return &Resolver{probe: chromedpProbe, log: logger}
}

// NewWithProbe returns a Resolver with a custom probe.
func NewWithProbe(probe ProbeFunc, logger *log.Logger) *Resolver {
	return &Resolver{probe: probe, log: logger}
}

// Resolve tries each pattern in order, each attempt bounded by perPattern,
// and returns the first match. Ties always break toward the earlier pattern.
func (r *Resolver) Resolve(ctx context.Context, target string, patterns []Pattern, perPattern time.Duration) (Match, error) {
	for i, p := range patterns {
		attemptCtx, cancel := context.WithTimeout(ctx, perPattern)
		err := r.probe(attemptCtx, p)
		cancel()
		if err == nil {
			return Match{Target: target, Pattern: p, Index: i}, nil
		}
		if ctx.Err() != nil {
			return Match{}, ctx.Err()
		}
	}
	r.log.Printf("locator: no pattern matched for %s (%d tried)", target, len(patterns))
	return Match{}, ErrNotFound
}

func chromedpProbe(ctx context.Context, p Pattern) error {
	switch p.State {
	case StateAttached:
		return chromedp.Run(ctx, chromedp.WaitReady(p.Selector, chromedp.ByQuery))
	default:
		return chromedp.Run(ctx, chromedp.WaitVisible(p.Selector, chromedp.ByQuery))
	}
}
