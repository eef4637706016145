package catalog

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/matsen/bibcat/internal/logger"
)

const (
	// DefaultDelay is the minimum spacing between catalog requests.
	DefaultDelay = 3 * time.Second

	// DefaultGuardTimeout bounds one guarded lookup.
	DefaultGuardTimeout = 20 * time.Second
)

// Guard turns a Lookup into a Finder. Calls are spaced by a minimum delay
// and bounded by a timeout; every failure is logged and reported as not
// found.
type Guard struct {
	lookup  Lookup
	limiter *rate.Limiter
	timeout time.Duration
	log     *logger.Logger
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithDelay sets the minimum delay between calls. Zero disables spacing.
func WithDelay(d time.Duration) GuardOption {
	return func(g *Guard) {
		if d <= 0 {
			g.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		g.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) GuardOption {
	return func(g *Guard) { g.timeout = d }
}

// WithLogger sets the logger for swallowed failures.
func WithLogger(l *logger.Logger) GuardOption {
	return func(g *Guard) { g.log = l }
}

// NewGuard wraps l.
func NewGuard(l Lookup, opts ...GuardOption) *Guard {
	g := &Guard{
		lookup:  l,
		limiter: rate.NewLimiter(rate.Every(DefaultDelay), 1),
		timeout: DefaultGuardTimeout,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Find returns the catalog record for term, or false when there is none
// or the lookup failed in any way.
func (g *Guard) Find(ctx context.Context, term string) (*Record, bool) {
	if err := g.limiter.Wait(ctx); err != nil {
		g.log.Warn("catalog wait aborted", "term", term, "error", err)
		return nil, false
	}

	rec, err := g.call(ctx, term)
	switch {
	case err != nil && IsNotFound(err):
		return nil, false
	case err != nil:
		g.log.Warn("catalog lookup failed", "term", term, "error", err, "rate_limited", IsRateLimited(err))
		return nil, false
	case !rec.Complete():
		g.log.Debug("catalog has no complete record", "term", term)
		return nil, false
	}
	return rec, true
}

func (g *Guard) call(ctx context.Context, term string) (rec *Record, err error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, fmt.Errorf("catalog lookup panicked: %v", r)
		}
	}()
	return g.lookup.Lookup(ctx, term)
}

// Offline is a Finder for runs without catalog access.
type Offline struct{}

// Find always reports not found.
func (Offline) Find(context.Context, string) (*Record, bool) { return nil, false }
