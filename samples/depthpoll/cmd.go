// Package main polls a frame source directly, without listeners, and reads out the depth at the
// middle of each depth frame.
package main

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	_ "github.com/depthview/depthview/components/register"
	"github.com/depthview/depthview/config"
	"github.com/depthview/depthview/dispatch"
	"github.com/depthview/depthview/frame"
	"github.com/depthview/depthview/frame/fake"
	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/resource"
	rutils "github.com/depthview/depthview/utils"
)

var logger = logging.NewDebugLogger("depthpoll")

// Arguments for the command.
type Arguments struct {
	ConfigFile    string `flag:"config,usage=pipeline config file; only its source is used"`
	Frames        int    `flag:"frames,default=300,usage=frames to synthesize (0 runs until interrupted)"`
	NotReadyEvery int    `flag:"not-ready-every,usage=make every n-th synthetic poll come back empty"`
	ReadoutMillis int    `flag:"readout-ms,default=1000,usage=milliseconds between readouts (0 reads out every frame)"`
}

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	conf := resource.Config{
		Name:  "camera",
		Model: fake.Model,
		Attributes: resource.AttributeMap{
			"frames":          argsParsed.Frames,
			"not_ready_every": argsParsed.NotReadyEvery,
			"streams":         []string{"depth"},
		},
	}
	if argsParsed.ConfigFile != "" {
		cfg, err := config.Read(ctx, argsParsed.ConfigFile, logger)
		if err != nil {
			return err
		}
		conf = cfg.Source
	} else if err := conf.Validate("source", frame.API); err != nil {
		return err
	}

	src, err := frame.NewFromConfig(ctx, conf, logger.Sublogger("source"))
	if err != nil {
		return err
	}
	reader := frame.NewReader(src, logger.Sublogger("reader"))
	defer func() {
		err = multierr.Combine(err, reader.Close(context.Background()))
	}()

	readout := rutils.NewThrottle(nil, time.Duration(argsParsed.ReadoutMillis)*time.Millisecond)
	utils.ContextMainReadyFunc(ctx)()
	if err := poll(ctx, reader, readout, logger); err != nil {
		return err
	}

	stats := reader.Stats()
	logger.Infow("polling finished",
		"delivered", stats.Delivered,
		"duplicates", stats.Duplicates,
		"not_ready", stats.NotReady,
		"last_index", stats.LastIndex,
	)
	return nil
}

func poll(ctx context.Context, reader *frame.Reader, readout *rutils.Throttle, logger logging.Logger) error {
	for {
		f, release, err := reader.Poll(ctx)
		switch {
		case errors.Is(err, frame.ErrNotReady):
			if !utils.SelectContextOrWait(ctx, dispatch.IdleWait) {
				return nil
			}
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if depth, ok := f.Depth(); ok && depth.IsValid() {
			if len(depth.Data) < depth.Pixels() {
				readout.Do(func() {
					logger.Warnw("depth payload too short", "index", depth.Index, "have", len(depth.Data), "need", depth.Pixels())
				})
				release()
				continue
			}
			x, y := depth.Width/2, depth.Height/2
			middle := depth.At(x, y)
			readout.Do(func() {
				logger.Infow("middle pixel", "index", depth.Index, "x", x, "y", y, "depth_mm", middle)
			})
		}
		release()
	}
}
