package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"github.com/depthview/depthview/components/base/fake"
	"github.com/depthview/depthview/config"
	"github.com/depthview/depthview/control"
	"github.com/depthview/depthview/dispatch"
	_ "github.com/depthview/depthview/frame/fake"
	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/recorder"
	"github.com/depthview/depthview/render"
	"github.com/depthview/depthview/resource"
)

func newConfig(t *testing.T, frames int) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Source: resource.Config{
			Name:       "cam",
			Model:      "fake",
			Attributes: resource.AttributeMap{"width": 80, "height": 60, "frames": frames},
		},
		Streams: dispatch.Config{Display: dispatch.DisplayColor, FPSLogPeriod: "off"},
	}
	test.That(t, cfg.Ensure(), test.ShouldBeNil)
	return cfg
}

type chanWatcher struct {
	ch     chan *config.Config
	closed int
}

func (w *chanWatcher) Config() <-chan *config.Config { return w.ch }

func (w *chanWatcher) Close(ctx context.Context) error {
	w.closed++
	return nil
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := newConfig(t, 6)
	cfg.Base = &resource.Config{Name: "rover", Model: fake.Model}
	cfg.Follow = &control.Config{RateHz: 2}
	cfg.Snapshot = &render.Config{Path: filepath.Join(dir, "snap-%02d.png"), EveryFrames: 3}
	cfg.Recorder = &recorder.Config{Path: filepath.Join(dir, "obs.db"), SessionName: "run"}
	test.That(t, cfg.Ensure(), test.ShouldBeNil)

	mockClock := clock.NewMock()
	p, err := New(ctx, cfg, mockClock, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Publisher(), test.ShouldNotBeNil)

	var ticks, delivered int
	p.OnTick(func(ctx context.Context, d bool) error {
		ticks++
		if d {
			delivered++
		}
		return nil
	})
	test.That(t, p.Run(ctx), test.ShouldBeNil)
	test.That(t, delivered, test.ShouldEqual, 6)
	test.That(t, ticks, test.ShouldBeGreaterThanOrEqualTo, 6)
	test.That(t, p.Listener().Stats().Frames, test.ShouldEqual, int64(6))
	test.That(t, p.Snapshotter().Written(), test.ShouldEqual, 2)

	obs, err := p.Recorder().Observations(ctx, p.Recorder().SessionID(), 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(obs), test.ShouldEqual, 6)

	fb := p.Base().(*fake.Base)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		mockClock.Add(500 * time.Millisecond)
		test.That(tb, len(fb.Commands()), test.ShouldBeGreaterThanOrEqualTo, 1)
	})

	test.That(t, p.Close(ctx), test.ShouldBeNil)
	test.That(t, fb.Stops(), test.ShouldEqual, 1)
	test.That(t, p.Close(ctx), test.ShouldBeNil)
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	logger, logs := logging.NewObservedTestLogger(t)
	cfg := newConfig(t, 0)
	p, err := New(ctx, cfg, nil, logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, p.Close(ctx), test.ShouldBeNil)
	}()

	test.That(t, p.Apply(newConfig(t, 0)), test.ShouldBeFalse)

	changed := newConfig(t, 0)
	changed.Streams.Display = dispatch.DisplayInfrared16
	test.That(t, p.Apply(changed), test.ShouldBeTrue)
	test.That(t, p.Listener().Display(), test.ShouldEqual, dispatch.DisplayInfrared16)
	test.That(t, p.Config().Streams.Display, test.ShouldEqual, dispatch.DisplayInfrared16)
	test.That(t, logs.FilterMessage("config changes need a restart to take effect").Len(), test.ShouldEqual, 0)

	// A source change is only reported; the source keeps running.
	restart := newConfig(t, 3)
	restart.Streams.Display = dispatch.DisplayInfrared16
	test.That(t, p.Apply(restart), test.ShouldBeFalse)
	test.That(t, logs.FilterMessage("config changes need a restart to take effect").Len(), test.ShouldEqual, 1)
	test.That(t, p.Config().Source.Attributes["frames"], test.ShouldEqual, 0)
}

func TestWatch(t *testing.T) {
	ctx := context.Background()
	p, err := New(ctx, newConfig(t, 3), nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	w := &chanWatcher{ch: make(chan *config.Config, 1)}
	changed := newConfig(t, 3)
	changed.Streams.Display = dispatch.DisplayNone
	w.ch <- changed
	p.Watch(w)

	test.That(t, p.Run(ctx), test.ShouldBeNil)
	test.That(t, p.Listener().Display(), test.ShouldEqual, dispatch.DisplayNone)
	test.That(t, p.Close(ctx), test.ShouldBeNil)
	test.That(t, w.closed, test.ShouldEqual, 1)
}

func TestNewFailure(t *testing.T) {
	cfg := newConfig(t, 0)
	cfg.Recorder = &recorder.Config{Path: filepath.Join(t.TempDir(), "missing", "obs.db")}
	_, err := New(context.Background(), cfg, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}
