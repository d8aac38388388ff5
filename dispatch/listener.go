// Package dispatch routes each frame's sub-frames into display buffers, hand traces and the posture
// signal, and runs the single-threaded tick loop that drives it.
package dispatch

import (
	"context"
	"fmt"
	"image"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.opencensus.io/trace"

	"github.com/depthview/depthview/frame"
	"github.com/depthview/depthview/hand"
	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/posture"
	"github.com/depthview/depthview/streamview"
	"github.com/depthview/depthview/utils"
)

const (
	floorLogPeriod = time.Second
	paintLogPeriod = time.Second
)

// Stats counts what a Listener has processed.
type Stats struct {
	Frames int64
	Paused int64
	// Processed counts painted or consumed sub-frames per kind.
	Processed map[frame.Kind]int64
	// Skipped counts sub-frames that were present but invalid or malformed.
	Skipped map[frame.Kind]int64
}

// Listener is the frame listener of the viewers. OnFrameReady runs on the reader goroutine; the views,
// tracer and extractor it owns must only be read from that goroutine. Signal, DesiredCommand, Stats
// and FPS may be called from anywhere.
type Listener struct {
	logger logging.Logger
	clk    clock.Clock

	cfg       Config
	display   DisplayMode
	depth     *streamview.View
	secondary *streamview.View
	bodies    *streamview.View
	tracer    *hand.Tracer
	extractor *posture.Extractor

	fps           *FPSMeter
	fpsThrottle   *utils.Throttle
	floorThrottle *utils.Throttle
	paintThrottle *utils.Throttle
	paused        atomic.Bool

	// Copies of the last valid hand and body sub-frames for drawing after the frame is released.
	handPoints []frame.HandPoint
	bodyList   []frame.Body
	depthSize  image.Point

	mu            sync.Mutex
	signal        posture.Signal
	command       posture.Command
	fpsValue      float64
	processed     [frame.KindBody + 1]int64
	skipped       [frame.KindBody + 1]int64
	frames        int64
	skippedPaused int64
}

// NewListener returns a listener for cfg. A nil cfg uses the defaults; a nil clk uses the wall clock.
func NewListener(cfg *Config, clk clock.Clock, logger logging.Logger) (*Listener, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate("dispatch"); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	extractor, err := posture.NewExtractor(cfg.Posture)
	if err != nil {
		return nil, err
	}
	l := &Listener{
		logger:        logger,
		clk:           clk,
		depth:         streamview.New(frame.KindDepth.String()),
		secondary:     streamview.New(string(cfg.display())),
		bodies:        streamview.New(frame.KindBody.String()),
		tracer:        hand.NewTracer(cfg.HandTraceLength),
		extractor:     extractor,
		fps:           NewFPSMeter(clk, cfg.fpsWeight()),
		floorThrottle: utils.NewThrottle(clk, floorLogPeriod),
		paintThrottle: utils.NewThrottle(clk, paintLogPeriod),
	}
	l.applyConfig(cfg)
	return l, nil
}

func (l *Listener) applyConfig(cfg *Config) {
	l.cfg = *cfg
	l.display = cfg.display()
	period, _ := cfg.fpsLogPeriod()
	if period > 0 {
		l.fpsThrottle = utils.NewThrottle(l.clk, period)
	} else {
		l.fpsThrottle = nil
	}
}

// Reconfigure swaps the listener's configuration. It must be called between ticks from the goroutine
// driving the reader. The posture signal survives unless the posture settings changed.
func (l *Listener) Reconfigure(cfg *Config) error {
	if err := cfg.Validate("dispatch"); err != nil {
		return err
	}
	if !reflect.DeepEqual(cfg.Posture, l.cfg.Posture) {
		extractor, err := posture.NewExtractor(cfg.Posture)
		if err != nil {
			return err
		}
		l.extractor = extractor
		l.mu.Lock()
		l.signal = posture.Signal{}
		l.command = posture.Command{}
		l.mu.Unlock()
	}
	if cfg.HandTraceLength != l.cfg.HandTraceLength {
		l.tracer = hand.NewTracer(cfg.HandTraceLength)
	}
	if cfg.display() != l.display {
		l.secondary = streamview.New(string(cfg.display()))
	}
	if cfg.fpsWeight() != l.cfg.fpsWeight() {
		l.fps.weight = cfg.fpsWeight()
	}
	l.applyConfig(cfg)
	l.logger.Infow("dispatch reconfigured", "display", l.display, "depth_colorizer", cfg.DepthColorizer)
	return nil
}

// OnFrameReady routes f: depth, then the secondary stream of the display mode, then hands, then
// bodies. Absent or invalid sub-frames are skipped.
func (l *Listener) OnFrameReady(ctx context.Context, f *frame.Frame) {
	_, span := trace.StartSpan(ctx, "dispatch::Listener::OnFrameReady")
	defer span.End()

	l.fps.Tick()
	l.mu.Lock()
	l.frames++
	l.fpsValue = l.fps.FPS()
	l.mu.Unlock()
	if l.fpsThrottle != nil {
		l.fpsThrottle.Do(func() {
			l.logger.Debugw("frame rate", "fps", fmt.Sprintf("%.1f", l.fps.FPS()), "interval", l.fps.Interval())
		})
	}

	if l.paused.Load() {
		l.mu.Lock()
		l.skippedPaused++
		l.mu.Unlock()
		return
	}

	if depth, ok := f.Depth(); ok {
		l.processDepth(depth)
	}
	switch l.display {
	case DisplayColor:
		if color, ok := f.Color(); ok {
			l.paint(color, func() error { return streamview.Color(l.secondary, color) })
		}
	case DisplayInfrared16:
		if ir, ok := f.Infrared16(); ok {
			l.paint(ir, func() error { return streamview.Infrared16(l.secondary, ir) })
		}
	case DisplayInfraredRGB:
		if ir, ok := f.InfraredRGB(); ok {
			l.paint(ir, func() error { return streamview.InfraredRGB(l.secondary, ir) })
		}
	case DisplayNone:
	}
	if hands, ok := f.Hands(); ok {
		l.processHands(hands)
	}
	if bodies, ok := f.Bodies(); ok {
		l.processBodies(bodies)
	}
}

// paint runs fill for a present sub-frame unless it is invalid. A fill error is logged and counted;
// the view keeps its previous contents.
func (l *Listener) paint(sub frame.SubFrame, fill func() error) bool {
	if !sub.IsValid() {
		l.count(sub.Kind(), false)
		return false
	}
	if err := fill(); err != nil {
		l.paintThrottle.Do(func() {
			l.logger.Warnw("cannot paint sub-frame", "kind", sub.Kind(), "index", sub.FrameHeader().Index, "error", err)
		})
		l.count(sub.Kind(), false)
		return false
	}
	l.count(sub.Kind(), true)
	return true
}

func (l *Listener) count(k frame.Kind, processed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if processed {
		l.processed[k]++
	} else {
		l.skipped[k]++
	}
}

func (l *Listener) processDepth(depth *frame.DepthFrame) {
	fill := func() error { return streamview.DepthGray(l.depth, depth) }
	if l.cfg.DepthColorizer == DepthPretty {
		fill = func() error {
			return streamview.DepthPretty(l.depth, depth, l.cfg.PrettyMinMm, l.cfg.PrettyMaxMm)
		}
	}
	if l.paint(depth, fill) {
		l.depthSize = image.Pt(depth.Width, depth.Height)
	}
}

func (l *Listener) processHands(hands *frame.HandFrame) {
	l.paint(hands, func() error {
		l.tracer.Update(hands.Points)
		l.handPoints = append(l.handPoints[:0], hands.Points...)
		return nil
	})
}

func (l *Listener) processBodies(bodies *frame.BodyFrame) {
	if !bodies.IsValid() {
		l.count(frame.KindBody, false)
		return
	}
	if err := streamview.BodyOverlay(l.bodies, bodies); err != nil {
		l.paintThrottle.Do(func() {
			l.logger.Warnw("cannot paint body overlay", "index", bodies.Index, "error", err)
		})
	}
	if bodies.FloorDetected {
		l.floorThrottle.Do(func() {
			p := bodies.FloorPlane
			l.logger.Infow("floor plane", "a", p.A, "b", p.B, "c", p.C, "d", p.D)
		})
	}

	l.bodyList = cloneBodies(l.bodyList[:0], bodies.Bodies)

	sig := l.extractor.Update(bodies)
	cmd := posture.CommandFor(sig, l.cfg.Command)

	l.mu.Lock()
	l.signal = sig
	l.command = cmd
	l.processed[frame.KindBody]++
	l.mu.Unlock()
}

func cloneBodies(dst, src []frame.Body) []frame.Body {
	for _, b := range src {
		b.Joints = append([]frame.Joint(nil), b.Joints...)
		dst = append(dst, b)
	}
	return dst
}

// HandPoints returns the hand points of the last valid hand sub-frame.
func (l *Listener) HandPoints() []frame.HandPoint { return l.handPoints }

// Bodies returns the bodies of the last valid body sub-frame, with the size of the depth stream they
// are positioned in.
func (l *Listener) Bodies() ([]frame.Body, image.Point) { return l.bodyList, l.depthSize }

// DepthView returns the depth view.
func (l *Listener) DepthView() *streamview.View { return l.depth }

// SecondaryView returns the view of the current display mode.
func (l *Listener) SecondaryView() *streamview.View { return l.secondary }

// BodyView returns the body and floor overlay.
func (l *Listener) BodyView() *streamview.View { return l.bodies }

// Tracer returns the hand tracer.
func (l *Listener) Tracer() *hand.Tracer { return l.tracer }

// Display returns the current display mode.
func (l *Listener) Display() DisplayMode { return l.display }

// Signal returns the latest posture signal.
func (l *Listener) Signal() posture.Signal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.signal
}

// DesiredCommand returns the command derived from the latest signal.
func (l *Listener) DesiredCommand() posture.Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.command
}

// FPS returns the averaged frame rate.
func (l *Listener) FPS() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fpsValue
}

// StatusText is the text drawn beside the skeleton: the frame rate then the posture signal.
func (l *Listener) StatusText() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fmt.Sprintf("FPS: %.3f\n%s", l.fpsValue, l.signal)
}

// Stats returns a copy of the counters.
func (l *Listener) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	stats := Stats{
		Frames:    l.frames,
		Paused:    l.skippedPaused,
		Processed: map[frame.Kind]int64{},
		Skipped:   map[frame.Kind]int64{},
	}
	for k := range l.processed {
		if l.processed[k] > 0 {
			stats.Processed[frame.Kind(k)] = l.processed[k]
		}
		if l.skipped[k] > 0 {
			stats.Skipped[frame.Kind(k)] = l.skipped[k]
		}
	}
	return stats
}

// SetPaused pauses or resumes painting. Frame rate accounting continues while paused.
func (l *Listener) SetPaused(paused bool) {
	l.paused.Store(paused)
}

// TogglePause flips the pause state and returns the new one.
func (l *Listener) TogglePause() bool {
	for {
		old := l.paused.Load()
		if l.paused.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Paused reports whether painting is paused.
func (l *Listener) Paused() bool {
	return l.paused.Load()
}

// Close logs the frame interval statistics.
func (l *Listener) Close(ctx context.Context) error {
	summary, err := l.fps.Intervals().Summary()
	if err != nil {
		l.logger.Debugw("no frame intervals recorded")
		return nil
	}
	l.logger.Infow("frame intervals", "count", summary.Count, "mean", summary.Mean, "p95", summary.P95, "max", summary.Max)
	return nil
}
