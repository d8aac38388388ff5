// Package main shows depth next to one of the color or infrared streams and writes snapshots of the
// secondary view. The displayed stream can be cycled through every mode while running.
package main

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	_ "github.com/depthview/depthview/components/register"
	"github.com/depthview/depthview/config"
	"github.com/depthview/depthview/dispatch"
	"github.com/depthview/depthview/frame/fake"
	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/pipeline"
	"github.com/depthview/depthview/render"
	"github.com/depthview/depthview/resource"
)

var logger = logging.NewDebugLogger("multisensor")

var displayCycle = []dispatch.DisplayMode{
	dispatch.DisplayColor,
	dispatch.DisplayInfrared16,
	dispatch.DisplayInfraredRGB,
}

// Arguments for the command.
type Arguments struct {
	Output     string `flag:"0,required,usage=snapshot path; a verb such as %03d numbers the files"`
	ConfigFile string `flag:"config,usage=pipeline config file; a synthetic camera is used without one"`
	Display    string `flag:"display,default=color,usage=secondary stream: color, ir16 or ir_rgb"`
	Frames     int    `flag:"frames,default=90,usage=frames to synthesize (0 runs until interrupted)"`
	Every      int    `flag:"every,default=30,usage=frames between snapshots"`
	Cycle      int    `flag:"cycle,usage=frames between switching the secondary stream (0 disables)"`
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
				Name:       "camera",
				Model:      fake.Model,
				Attributes: resource.AttributeMap{"frames": argsParsed.Frames},
			},
			Streams: dispatch.Config{Display: dispatch.DisplayMode(argsParsed.Display)},
		}
	}
	cfg.Snapshot = &render.Config{
		Path:        argsParsed.Output,
		EveryFrames: argsParsed.Every,
		Background:  render.BackgroundSecondary,
		HideBodies:  true,
	}
	if err := cfg.Ensure(); err != nil {
		return err
	}
	if cfg.Dispatch().Display == dispatch.DisplayNone {
		return errors.New("multisensor needs a secondary stream to display")
	}

	p, err := pipeline.New(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, p.Close(context.Background()))
	}()

	if argsParsed.Cycle > 0 {
		var delivered int
		p.OnTick(func(ctx context.Context, ok bool) error {
			if !ok {
				return nil
			}
			delivered++
			if delivered%argsParsed.Cycle != 0 {
				return nil
			}
			next := nextDisplay(p.Listener().Display())
			changed := *p.Config()
			changed.Streams.Display = next
			if p.Apply(&changed) {
				logger.Infow("switched secondary stream", "display", next)
			}
			return nil
		})
	}

	utils.ContextMainReadyFunc(ctx)()
	if err := p.Run(ctx); err != nil {
		return err
	}
	logger.Infow("done", "snapshots", p.Snapshotter().Written(), "display", p.Listener().Display())
	return nil
}

func nextDisplay(current dispatch.DisplayMode) dispatch.DisplayMode {
	for i, mode := range displayCycle {
		if mode == current {
			return displayCycle[(i+1)%len(displayCycle)]
		}
	}
	return displayCycle[0]
}
