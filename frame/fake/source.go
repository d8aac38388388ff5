// Package fake implements frame sources that need no hardware: a scripted source for tests and a
// synthetic generator for demos.
package fake

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/depthview/depthview/frame"
)

// Source replays a fixed script of frames. A nil entry in the script yields frame.ErrNotReady for
// that call.
type Source struct {
	mu       sync.Mutex
	frames   []*frame.Frame
	next     int
	loop     bool
	released int
	pending  int
	closed   bool
}

// NewSource returns a source that plays frames once and then returns io.EOF.
func NewSource(frames ...*frame.Frame) *Source {
	return &Source{frames: frames}
}

// NewLoopingSource returns a source that plays frames forever.
func NewLoopingSource(frames ...*frame.Frame) *Source {
	return &Source{frames: frames, loop: true}
}

// Push appends frames to the script.
func (s *Source) Push(frames ...*frame.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frames...)
}

// NextFrame returns the next scripted frame.
func (s *Source) NextFrame(ctx context.Context) (*frame.Frame, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, errors.New("source is closed")
	}
	if s.next >= len(s.frames) {
		if !s.loop || len(s.frames) == 0 {
			return nil, nil, io.EOF
		}
		s.next = 0
	}
	f := s.frames[s.next]
	s.next++
	if f == nil {
		return nil, nil, frame.ErrNotReady
	}

	s.pending++
	var once sync.Once
	release := func() {
		once.Do(func() {
			s.mu.Lock()
			s.pending--
			s.released++
			s.mu.Unlock()
		})
	}
	return f, release, nil
}

// Released returns how many frames have been released.
func (s *Source) Released() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Pending returns how many delivered frames have not been released yet.
func (s *Source) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Close stops the source.
func (s *Source) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
