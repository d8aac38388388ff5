package frame

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/depthview/depthview/logging"
)

// A Listener is handed each frame the reader receives. OnFrameReady runs on the reader's goroutine
// and must return before the next frame is pulled; the frame is released after every listener
// returns.
type Listener interface {
	OnFrameReady(ctx context.Context, f *Frame)
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(ctx context.Context, f *Frame)

// OnFrameReady calls fn.
func (fn ListenerFunc) OnFrameReady(ctx context.Context, f *Frame) {
	fn(ctx, f)
}

// ReaderStats counts what a Reader has seen.
type ReaderStats struct {
	Delivered  int64
	NotReady   int64
	Duplicates int64
	LastIndex  int64
}

// A Reader pulls frames from a Source and delivers them, either to registered listeners (Update) or
// directly to the caller (Poll).
type Reader struct {
	src    Source
	logger logging.Logger

	mu        sync.Mutex
	listeners []Listener
	stats     ReaderStats
	seenAny   bool
}

// NewReader returns a reader over src.
func NewReader(src Source, logger logging.Logger) *Reader {
	return &Reader{src: src, logger: logger, stats: ReaderStats{LastIndex: -1}}
}

// AddListener registers l. Listeners are called in registration order.
func (r *Reader) AddListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// RemoveListener unregisters l. l must be comparable, e.g. a pointer.
func (r *Reader) RemoveListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.listeners {
		if existing == l {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

// Stats returns a copy of the reader counters.
func (r *Reader) Stats() ReaderStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Poll returns the next frame without notifying listeners. It returns ErrNotReady when nothing is
// available. The caller must call release.
func (r *Reader) Poll(ctx context.Context) (*Frame, func(), error) {
	f, release, err := r.src.NextFrame(ctx)
	if err != nil {
		if errors.Is(err, ErrNotReady) {
			r.mu.Lock()
			r.stats.NotReady++
			r.mu.Unlock()
		}
		return nil, nil, err
	}
	if release == nil {
		release = func() {}
	}

	r.mu.Lock()
	duplicate := r.seenAny && f.Index == r.stats.LastIndex
	if duplicate {
		r.stats.Duplicates++
	}
	r.seenAny = true
	r.stats.LastIndex = f.Index
	r.stats.Delivered++
	r.mu.Unlock()

	if duplicate {
		r.logger.Debugw("duplicate frame index", "index", f.Index)
	}
	return f, release, nil
}

// Update pulls at most one frame and synchronously hands it to every listener. It reports whether a
// frame was delivered; ErrNotReady is not reported as an error.
func (r *Reader) Update(ctx context.Context) (bool, error) {
	ctx, span := trace.StartSpan(ctx, "frame::Reader::Update")
	defer span.End()

	f, release, err := r.Poll(ctx)
	if err != nil {
		if errors.Is(err, ErrNotReady) {
			return false, nil
		}
		return false, err
	}
	defer release()

	r.mu.Lock()
	listeners := make([]Listener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	for _, l := range listeners {
		l.OnFrameReady(ctx, f)
	}
	return true, nil
}

// Close closes the underlying source.
func (r *Reader) Close(ctx context.Context) error {
	return r.src.Close(ctx)
}
