package utils

import (
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"
)

// Throttle lets an action through at most once per period, timed by its clock. It is used to keep
// per-frame log lines from flooding the output.
type Throttle struct {
	clk     clock.Clock
	limiter *rate.Limiter
}

// NewThrottle returns a Throttle that allows one event per period. The first event is always allowed.
func NewThrottle(clk clock.Clock, period time.Duration) *Throttle {
	if clk == nil {
		clk = clock.New()
	}
	limit := rate.Inf
	if period > 0 {
		limit = rate.Every(period)
	}
	return &Throttle{clk: clk, limiter: rate.NewLimiter(limit, 1)}
}

// Allow reports whether an event may happen now.
func (t *Throttle) Allow() bool {
	return t.limiter.AllowN(t.clk.Now(), 1)
}

// Do runs f if an event may happen now and reports whether it ran.
func (t *Throttle) Do(f func()) bool {
	if !t.Allow() {
		return false
	}
	f()
	return true
}
