// Package hand keeps the recent depth-space path of every tracked hand.
package hand

import (
	"image"
	"sort"

	"github.com/depthview/depthview/frame"
)

// DefaultMaxTraceLength is the number of positions kept per hand.
const DefaultMaxTraceLength = 15

// Tracer holds one trace per hand tracking id. A trace loses its oldest position every frame, so
// a hand that stops being tracked fades out and is forgotten once a single position remains.
type Tracer struct {
	maxLength int
	traces    map[int][]image.Point
}

// NewTracer returns a tracer keeping up to maxLength positions per hand. Non-positive values use
// DefaultMaxTraceLength.
func NewTracer(maxLength int) *Tracer {
	if maxLength <= 0 {
		maxLength = DefaultMaxTraceLength
	}
	return &Tracer{maxLength: maxLength, traces: map[int][]image.Point{}}
}

// Update ages every trace by one position and then extends the trace of each hand in the Tracking
// state with its current depth position.
func (t *Tracer) Update(points []frame.HandPoint) {
	t.shorten()
	for _, p := range points {
		if p.Status != frame.HandTracking {
			continue
		}
		t.extend(p.TrackingID, image.Pt(int(p.DepthPosition.X), int(p.DepthPosition.Y)))
	}
}

func (t *Tracer) shorten() {
	for id, trace := range t.traces {
		if len(trace) > 1 {
			t.traces[id] = trace[1:]
		} else {
			delete(t.traces, id)
		}
	}
}

func (t *Tracer) extend(id int, pos image.Point) {
	trace := t.traces[id]
	if len(trace) == 0 {
		trace = make([]image.Point, 0, t.maxLength)
	}
	for len(trace) < t.maxLength {
		trace = append(trace, pos)
	}
	t.traces[id] = trace
}

// Trace returns a copy of the positions of a hand, oldest first.
func (t *Tracer) Trace(id int) []image.Point {
	trace, ok := t.traces[id]
	if !ok {
		return nil
	}
	out := make([]image.Point, len(trace))
	copy(out, trace)
	return out
}

// IDs returns the tracking ids with a live trace, ascending.
func (t *Tracer) IDs() []int {
	ids := make([]int, 0, len(t.traces))
	for id := range t.traces {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the number of live traces.
func (t *Tracer) Len() int {
	return len(t.traces)
}

// Reset forgets every trace.
func (t *Tracer) Reset() {
	clear(t.traces)
}
