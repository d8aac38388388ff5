// Package pipeline builds a running depthview pipeline out of a Config: the frame source and reader,
// the dispatch listener, and the optional command publisher, snapshotter and recorder.
package pipeline

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"github.com/depthview/depthview/components/base"
	"github.com/depthview/depthview/config"
	"github.com/depthview/depthview/control"
	"github.com/depthview/depthview/dispatch"
	"github.com/depthview/depthview/frame"
	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/recorder"
	"github.com/depthview/depthview/render"
	"github.com/depthview/depthview/utils"
)

// A Pipeline owns every component built from one config.
type Pipeline struct {
	cfg    *config.Config
	logger logging.Logger

	source   frame.Source
	reader   *frame.Reader
	listener *dispatch.Listener

	base        base.Base
	publisher   *control.Publisher
	snapshotter *render.Snapshotter
	recorder    *recorder.Recorder

	// ticks run after the built in per-tick work.
	ticks   []dispatch.TickFunc
	watcher config.Watcher

	closeOnce sync.Once
	closeErr  error
}

// New builds every component cfg names. cfg must have passed Ensure. A nil clk uses the wall clock.
func New(ctx context.Context, cfg *config.Config, clk clock.Clock, logger logging.Logger) (_ *Pipeline, err error) {
	if clk == nil {
		clk = clock.New()
	}
	p := &Pipeline{cfg: cfg, logger: logger}
	guard := utils.NewGuard(func() {
		err = multierr.Combine(err, p.Close(ctx))
	})
	defer guard.OnFail()

	p.source, err = frame.NewFromConfig(ctx, cfg.Source, logger.Sublogger("source"))
	if err != nil {
		return nil, err
	}
	p.reader = frame.NewReader(p.source, logger.Sublogger("reader"))

	p.listener, err = dispatch.NewListener(cfg.Dispatch(), clk, logger.Sublogger("dispatch"))
	if err != nil {
		return nil, err
	}
	p.reader.AddListener(p.listener)

	if cfg.Base != nil {
		p.base, err = base.FromConfig(ctx, *cfg.Base, logger.Sublogger("base"))
		if err != nil {
			return nil, err
		}
	}
	if cfg.Follow != nil {
		p.publisher, err = control.NewPublisher(p.listener, p.base, cfg.Follow, clk, logger.Sublogger("follow"))
		if err != nil {
			return nil, err
		}
	}
	if cfg.Snapshot != nil {
		p.snapshotter, err = render.NewSnapshotter(cfg.Snapshot, logger.Sublogger("snapshot"))
		if err != nil {
			return nil, err
		}
	}
	if cfg.Recorder != nil {
		p.recorder, err = recorder.Open(ctx, cfg.Recorder, clk, logger.Sublogger("recorder"))
		if err != nil {
			return nil, err
		}
	}
	guard.Success()
	return p, nil
}

// Listener returns the dispatch listener.
func (p *Pipeline) Listener() *dispatch.Listener { return p.listener }

// Reader returns the frame reader.
func (p *Pipeline) Reader() *frame.Reader { return p.reader }

// Publisher returns the command publisher, nil unless following is configured.
func (p *Pipeline) Publisher() *control.Publisher { return p.publisher }

// Base returns the configured base, if any.
func (p *Pipeline) Base() base.Base { return p.base }

// Snapshotter returns the snapshotter, if any.
func (p *Pipeline) Snapshotter() *render.Snapshotter { return p.snapshotter }

// Recorder returns the recorder, if any.
func (p *Pipeline) Recorder() *recorder.Recorder { return p.recorder }

// Config returns the config currently applied.
func (p *Pipeline) Config() *config.Config { return p.cfg }

// OnTick adds per-tick work run after snapshots and recording. It must be called before Run.
func (p *Pipeline) OnTick(fn dispatch.TickFunc) {
	p.ticks = append(p.ticks, fn)
}

// Watch makes Run apply config changes delivered by w between ticks. Only the streams section is
// applied live; other changes are logged and need a restart.
func (p *Pipeline) Watch(w config.Watcher) {
	p.watcher = w
}

// Run dispatches frames until ctx is done or the source is exhausted.
func (p *Pipeline) Run(ctx context.Context) error {
	return dispatch.Run(ctx, p.reader, p.tick)
}

func (p *Pipeline) tick(ctx context.Context, delivered bool) error {
	if p.snapshotter != nil {
		p.snapshotter.OnTick(ctx, p.listener, delivered)
	}
	if p.recorder != nil {
		p.recorder.OnTick(ctx, p.listener, delivered)
	}
	for _, fn := range p.ticks {
		if err := fn(ctx, delivered); err != nil {
			return err
		}
	}
	if p.watcher != nil {
		select {
		case cfg := <-p.watcher.Config():
			p.Apply(cfg)
		default:
		}
	}
	return nil
}

// Apply applies the parts of cfg that can change while running. It reports whether anything was
// applied.
func (p *Pipeline) Apply(cfg *config.Config) bool {
	diff, err := config.DiffConfigs(*p.cfg, *cfg, false)
	if err != nil {
		p.logger.Errorw("error diffing config", "error", err)
		return false
	}
	if diff.NeedsRestart() {
		p.logger.Warnw("config changes need a restart to take effect", "changed", diff.Changed())
	}
	if diff.StreamsEqual {
		return false
	}
	if err := p.listener.Reconfigure(cfg.Dispatch()); err != nil {
		p.logger.Errorw("cannot apply stream settings", "error", err)
		return false
	}
	applied := *p.cfg
	applied.Streams, applied.Posture, applied.Command = cfg.Streams, cfg.Posture, cfg.Command
	p.cfg = &applied
	return true
}

// Close stops the publisher before closing the base, then closes the source and the rest.
func (p *Pipeline) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		if p.watcher != nil {
			p.closeErr = multierr.Combine(p.closeErr, p.watcher.Close(ctx))
		}
		if p.publisher != nil {
			p.closeErr = multierr.Combine(p.closeErr, p.publisher.Close(ctx))
		}
		if p.base != nil {
			p.closeErr = multierr.Combine(p.closeErr, p.base.Close(ctx))
		}
		if p.reader != nil {
			p.closeErr = multierr.Combine(p.closeErr, p.reader.Close(ctx))
		} else if p.source != nil {
			p.closeErr = multierr.Combine(p.closeErr, p.source.Close(ctx))
		}
		if p.listener != nil {
			p.closeErr = multierr.Combine(p.closeErr, p.listener.Close(ctx))
		}
		if p.recorder != nil {
			p.closeErr = multierr.Combine(p.closeErr, p.recorder.Close())
		}
	})
	return p.closeErr
}
