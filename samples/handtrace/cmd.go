// Package main draws the recent path of every tracked hand over the depth view.
package main

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	_ "github.com/depthview/depthview/components/register"
	"github.com/depthview/depthview/config"
	"github.com/depthview/depthview/dispatch"
	"github.com/depthview/depthview/frame/fake"
	"github.com/depthview/depthview/hand"
	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/pipeline"
	"github.com/depthview/depthview/render"
	"github.com/depthview/depthview/resource"
	rutils "github.com/depthview/depthview/utils"
)

var logger = logging.NewDebugLogger("handtrace")

// Arguments for the command.
type Arguments struct {
	Output      string `flag:"0,required,usage=snapshot path; a verb such as %03d numbers the files"`
	ConfigFile  string `flag:"config,usage=pipeline config file; a synthetic camera is used without one"`
	Frames      int    `flag:"frames,default=60,usage=frames to synthesize (0 runs until interrupted)"`
	Every       int    `flag:"every,default=15,usage=frames between snapshots"`
	TraceLength int    `flag:"trace-length,usage=positions kept per hand"`
	Width       int    `flag:"width,default=640,usage=snapshot width"`
}

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	var cfg *config.Config
	if argsParsed.ConfigFile != "" {
		cfg, err = config.Read(ctx, argsParsed.ConfigFile, logger)
		if err != nil {
			return err
		}
	} else {
		cfg = &config.Config{
			Source: resource.Config{
				Name:  "camera",
				Model: fake.Model,
				Attributes: resource.AttributeMap{
					"frames":  argsParsed.Frames,
					"streams": []string{"depth", "hand"},
				},
			},
			Streams: dispatch.Config{Display: dispatch.DisplayNone},
		}
	}
	if argsParsed.TraceLength > 0 {
		cfg.Streams.HandTraceLength = argsParsed.TraceLength
	}
	cfg.Snapshot = &render.Config{
		Path:        argsParsed.Output,
		EveryFrames: argsParsed.Every,
		Width:       argsParsed.Width,
		HideBodies:  true,
	}
	if err := cfg.Ensure(); err != nil {
		return err
	}

	p, err := pipeline.New(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, p.Close(context.Background()))
	}()

	report := rutils.NewThrottle(clock.New(), time.Second)
	p.OnTick(func(ctx context.Context, delivered bool) error {
		if delivered {
			report.Do(func() { logTraces(p.Listener().Tracer(), logger) })
		}
		return nil
	})

	utils.ContextMainReadyFunc(ctx)()
	if err := p.Run(ctx); err != nil {
		return err
	}
	logTraces(p.Listener().Tracer(), logger)
	logger.Infow("done", "snapshots", p.Snapshotter().Written())
	return nil
}

func logTraces(tracer *hand.Tracer, logger logging.Logger) {
	for _, id := range tracer.IDs() {
		trace := tracer.Trace(id)
		logger.Infow("hand trace", "id", id, "length", len(trace), "head", trace[len(trace)-1])
	}
}
