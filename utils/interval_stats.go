package utils

import (
	"fmt"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// DefaultIntervalWindow is how many intervals an IntervalStats keeps when none is given.
const DefaultIntervalWindow = 1024

// IntervalSummary summarizes a window of intervals.
type IntervalSummary struct {
	Count  int
	Mean   time.Duration
	P50    time.Duration
	P95    time.Duration
	Max    time.Duration
	StdDev time.Duration
}

func (s IntervalSummary) String() string {
	return fmt.Sprintf("n=%d mean=%s p50=%s p95=%s max=%s", s.Count, s.Mean, s.P50, s.P95, s.Max)
}

// IntervalStats keeps the most recent intervals in a ring and summarizes them on demand.
type IntervalStats struct {
	mu      sync.Mutex
	samples stats.Float64Data
	next    int
	full    bool
}

// NewIntervalStats returns an IntervalStats holding up to window samples.
func NewIntervalStats(window int) *IntervalStats {
	if window <= 0 {
		window = DefaultIntervalWindow
	}
	return &IntervalStats{samples: make(stats.Float64Data, window)}
}

// Add records one interval.
func (is *IntervalStats) Add(d time.Duration) {
	is.mu.Lock()
	defer is.mu.Unlock()
	is.samples[is.next] = float64(d)
	is.next++
	if is.next == len(is.samples) {
		is.next = 0
		is.full = true
	}
}

// Len returns the number of samples held.
func (is *IntervalStats) Len() int {
	is.mu.Lock()
	defer is.mu.Unlock()
	if is.full {
		return len(is.samples)
	}
	return is.next
}

// Summary computes the statistics of the held samples.
func (is *IntervalStats) Summary() (IntervalSummary, error) {
	is.mu.Lock()
	data := is.samples[:is.next]
	if is.full {
		data = is.samples
	}
	data = append(stats.Float64Data(nil), data...)
	is.mu.Unlock()

	if len(data) == 0 {
		return IntervalSummary{}, errors.New("no intervals recorded")
	}
	mean, err := data.Mean()
	if err != nil {
		return IntervalSummary{}, err
	}
	p50, err := data.Median()
	if err != nil {
		return IntervalSummary{}, err
	}
	p95, err := data.Percentile(95)
	if err != nil {
		return IntervalSummary{}, err
	}
	maxVal, err := data.Max()
	if err != nil {
		return IntervalSummary{}, err
	}
	stdDev, err := data.StandardDeviation()
	if err != nil {
		return IntervalSummary{}, err
	}
	return IntervalSummary{
		Count:  len(data),
		Mean:   time.Duration(mean),
		P50:    time.Duration(p50),
		P95:    time.Duration(p95),
		Max:    time.Duration(maxVal),
		StdDev: time.Duration(stdDev),
	}, nil
}
