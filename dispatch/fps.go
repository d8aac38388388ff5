package dispatch

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/depthview/depthview/utils"
)

// FPSMeter keeps an exponential moving average of the interval between ticks. The average starts at
// zero and converges as ticks arrive, so the first readings overstate the rate.
type FPSMeter struct {
	clk    clock.Clock
	weight float64

	last      time.Time
	ticked    bool
	average   float64 // seconds
	intervals *utils.IntervalStats
}

// NewFPSMeter returns a meter weighting the newest interval by weight.
func NewFPSMeter(clk clock.Clock, weight float64) *FPSMeter {
	if clk == nil {
		clk = clock.New()
	}
	if weight <= 0 || weight > 1 {
		weight = DefaultFPSWeight
	}
	return &FPSMeter{clk: clk, weight: weight, intervals: utils.NewIntervalStats(0)}
}

// Tick records a tick at the current time.
func (m *FPSMeter) Tick() {
	now := m.clk.Now()
	if m.ticked {
		interval := now.Sub(m.last)
		m.average = interval.Seconds()*m.weight + m.average*(1-m.weight)
		m.intervals.Add(interval)
	}
	m.last = now
	m.ticked = true
}

// FPS returns the averaged rate, or 0 before the second tick.
func (m *FPSMeter) FPS() float64 {
	if m.average <= 0 {
		return 0
	}
	return 1 / m.average
}

// Interval returns the averaged interval.
func (m *FPSMeter) Interval() time.Duration {
	return time.Duration(m.average * float64(time.Second))
}

// Intervals returns the raw interval statistics.
func (m *FPSMeter) Intervals() *utils.IntervalStats {
	return m.intervals
}
