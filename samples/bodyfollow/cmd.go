// Package main follows the nearest tracked person with a base. The distance and bearing of the
// person's torso are turned into velocity commands published at a fixed rate.
package main

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	_ "github.com/depthview/depthview/components/register"
	"github.com/depthview/depthview/config"
	"github.com/depthview/depthview/control"
	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/pipeline"
	rutils "github.com/depthview/depthview/utils"
)

var logger = logging.NewDebugLogger("bodyfollow")

// Arguments for the command.
type Arguments struct {
	ConfigFile  string `flag:"0,required,usage=pipeline config file"`
	Watch       bool   `flag:"watch,usage=apply stream changes when the config file changes"`
	StatusEvery int    `flag:"status-every,default=1,usage=seconds between status lines (0 disables)"`
	LogFile     string `flag:"log-file,usage=also write logs to this file, rotated every 50MB"`
}

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	if argsParsed.LogFile != "" {
		appender := logging.NewFileAppender(argsParsed.LogFile, 50, 3)
		defer func() {
			err = multierr.Combine(err, appender.Close())
		}()
		logger.AddAppender(appender)
	}

	cfg, err := config.Read(ctx, argsParsed.ConfigFile, logger)
	if err != nil {
		return err
	}
	if cfg.Base == nil {
		return errors.New("bodyfollow needs a base to drive")
	}
	if cfg.Follow == nil {
		cfg.Follow = &control.Config{}
	}

	p, err := pipeline.New(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, p.Close(context.Background()))
		stats := p.Publisher().Stats()
		logger.Infow("stopped following", "published", stats.Published, "failures", stats.Failures)
	}()

	if argsParsed.Watch {
		watcher, err := config.NewWatcher(ctx, argsParsed.ConfigFile, logger.Sublogger("config"))
		if err != nil {
			return err
		}
		p.Watch(watcher)
	}

	if argsParsed.StatusEvery > 0 {
		status := rutils.NewThrottle(clock.New(), time.Duration(argsParsed.StatusEvery)*time.Second)
		p.OnTick(func(ctx context.Context, delivered bool) error {
			if !delivered {
				return nil
			}
			status.Do(func() {
				sig := p.Listener().Signal()
				cmd := p.Listener().DesiredCommand()
				logger.Infow("following", "signal", sig.String(), "command", cmd.String(), "fps", p.Listener().FPS())
			})
			return nil
		})
	}

	ctx, span := trace.StartSpan(ctx, "bodyfollow::run")
	defer span.End()
	utils.ContextMainReadyFunc(ctx)()
	return p.Run(ctx)
}
