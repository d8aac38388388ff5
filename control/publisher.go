// Package control pushes the desired velocity command to a base at a fixed rate, independent of the
// frame rate.
package control

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/depthview/depthview/components/base"
	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/posture"
	rutils "github.com/depthview/depthview/utils"
)

// DefaultRateHz is the publish rate of the body-follow demo.
const DefaultRateHz = 2.0

// A CommandSource provides the command to publish. It is called from the publisher goroutine.
type CommandSource interface {
	DesiredCommand() posture.Command
}

// CommandSourceFunc adapts a function to a CommandSource.
type CommandSourceFunc func() posture.Command

// DesiredCommand calls fn.
func (fn CommandSourceFunc) DesiredCommand() posture.Command {
	return fn()
}

// Config configures a Publisher.
type Config struct {
	RateHz float64 `json:"rate_hz,omitempty"`
	// SkipStopOnClose leaves the base moving when the publisher closes.
	SkipStopOnClose bool `json:"skip_stop_on_close,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.RateHz < 0 {
		return utils.NewConfigValidationError(path, errors.New("rate_hz must be non-negative"))
	}
	return nil
}

// Interval returns the period between publishes.
func (cfg *Config) Interval() time.Duration {
	rate := DefaultRateHz
	if cfg != nil && cfg.RateHz > 0 {
		rate = cfg.RateHz
	}
	return time.Duration(float64(time.Second) / rate)
}

// Stats counts publishes.
type Stats struct {
	Published   int64
	Failures    int64
	LastCommand posture.Command
	LastError   error
}

// Publisher sends the source's command to a base every interval, whether or not a body is tracked.
type Publisher struct {
	source   CommandSource
	base     base.Base
	logger   logging.Logger
	stopBase bool
	workers  rutils.StoppableWorkers

	mu    sync.Mutex
	stats Stats

	closeOnce sync.Once
	closeErr  error
}

// NewPublisher starts publishing. A nil cfg uses the defaults; a nil clk uses the wall clock.
func NewPublisher(
	source CommandSource,
	b base.Base,
	cfg *Config,
	clk clock.Clock,
	logger logging.Logger,
) (*Publisher, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate("control"); err != nil {
		return nil, err
	}
	p := &Publisher{
		source:   source,
		base:     b,
		logger:   logger,
		stopBase: !cfg.SkipStopOnClose,
	}
	interval := cfg.Interval()
	logger.Infow("publishing commands", "interval", interval)
	p.workers = rutils.NewStoppableWorkerWithTicker(clk, interval, p.publish)
	return p, nil
}

func (p *Publisher) publish(ctx context.Context) {
	ctx, span := trace.StartSpan(ctx, "control::Publisher::publish")
	defer span.End()

	cmd := p.source.DesiredCommand()
	p.logger.Infow("publishing command", "linear_x", cmd.Linear.X, "angular_z", cmd.Angular.Z)
	err := p.base.SetVelocity(ctx, cmd.Linear, cmd.Angular, nil)

	p.mu.Lock()
	p.stats.LastCommand = cmd
	p.stats.LastError = err
	if err != nil {
		p.stats.Failures++
	} else {
		p.stats.Published++
	}
	p.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		p.logger.Warnw("cannot publish command", "command", cmd.String(), "error", err)
	}
}

// Stats returns a copy of the counters.
func (p *Publisher) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Close stops the publish worker and then stops the base.
func (p *Publisher) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.workers.Stop()
		if p.stopBase {
			if err := p.base.Stop(ctx, nil); err != nil {
				p.closeErr = multierr.Combine(p.closeErr, errors.Wrap(err, "cannot stop base"))
			}
		}
		stats := p.Stats()
		p.logger.Infow("publisher closed", "published", stats.Published, "failures", stats.Failures)
	})
	return p.closeErr
}
