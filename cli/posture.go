package cli

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	_ "github.com/depthview/depthview/components/register"
	"github.com/depthview/depthview/config"
	"github.com/depthview/depthview/dispatch"
	"github.com/depthview/depthview/frame"
	"github.com/depthview/depthview/frame/replay"
	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/posture"
)

type postureRow struct {
	Index   int64
	Signal  posture.Signal
	Command posture.Command
}

// PostureReplayAction runs the posture extractor over every frame of a bag, or of the source of a
// pipeline config, and prints the signal and command of each frame.
func PostureReplayAction(c *cli.Context) (err error) {
	logger := loggerFor(c)
	streams := &dispatch.Config{}

	var src frame.Source
	switch {
	case c.String(postureFlagConfig) != "":
		if c.Args().Len() != 0 {
			return errors.New("posture replay takes either a bag or --config")
		}
		cfg, err := config.Read(c.Context, c.String(postureFlagConfig), logger)
		if err != nil {
			return err
		}
		streams = cfg.Dispatch()
		src, err = frame.NewFromConfig(c.Context, cfg.Source, logger.Sublogger("source"))
		if err != nil {
			return err
		}
	case c.Args().Len() == 1:
		src, err = replay.NewSource(replayConfig(c, c.Args().First()), nil, logger.Sublogger("source"))
		if err != nil {
			return err
		}
	default:
		return errors.New("posture replay takes exactly one bag")
	}
	streams.Display = dispatch.DisplayNone
	streams.FPSLogPeriod = "off"
	applyPostureFlags(c, streams)

	rows, err := replayPosture(c.Context, src, streams, c.Int(bagFlagLimit), c.Bool(postureFlagAll), logger)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", postureTable(rows).Render())

	var accidents int
	for _, row := range rows {
		if row.Signal.Valid && row.Signal.Safety == posture.SafetyAccident {
			accidents++
		}
	}
	if accidents > 0 {
		warningf(c.App.ErrWriter, "%d of %d frames report an accident", accidents, len(rows))
	}
	return nil
}

func applyPostureFlags(c *cli.Context, streams *dispatch.Config) {
	pc := posture.Config{}
	if streams.Posture != nil {
		pc = *streams.Posture
	}
	if c.IsSet(postureFlagBearingMode) {
		pc.BearingMode = c.String(postureFlagBearingMode)
	}
	if c.IsSet(postureFlagThreshold) {
		pc.AccidentThresholdMm = c.Float64(postureFlagThreshold)
	}
	if stale := c.Int(postureFlagStaleAfter); stale >= 0 {
		pc.StaleAfterTicks = &stale
	}
	streams.Posture = &pc
	if c.Bool(postureFlagGateOnAccident) {
		streams.Command.GateOnAccident = true
	}
}

// replayPosture dispatches frames of src to a listener configured by streams until the source is
// exhausted or limit frames were seen. Only frames with body results are returned unless all is set.
// src is closed on return.
func replayPosture(
	ctx context.Context,
	src frame.Source,
	streams *dispatch.Config,
	limit int,
	all bool,
	logger logging.Logger,
) (_ []postureRow, err error) {
	reader := frame.NewReader(src, logger.Sublogger("reader"))
	defer func() {
		err = multierr.Combine(err, reader.Close(context.Background()))
	}()

	listener, err := dispatch.NewListener(streams, nil, logger.Sublogger("dispatch"))
	if err != nil {
		return nil, err
	}
	var index int64
	var hasBodies bool
	reader.AddListener(listener)
	reader.AddListener(frame.ListenerFunc(func(ctx context.Context, f *frame.Frame) {
		index = f.Index
		_, hasBodies = f.Bodies()
	}))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var rows []postureRow
	var seen int
	if err := dispatch.Run(ctx, reader, func(ctx context.Context, delivered bool) error {
		if !delivered {
			return nil
		}
		seen++
		if hasBodies || all {
			rows = append(rows, postureRow{Index: index, Signal: listener.Signal(), Command: listener.DesiredCommand()})
		}
		if limit > 0 && seen >= limit {
			cancel()
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return rows, listener.Close(ctx)
}

func postureTable(rows []postureRow) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Body", "Safety", "Distance (m)", "Bearing", "Missed", "Linear X", "Angular Z"})
	for _, row := range rows {
		sig := row.Signal
		if !sig.Valid {
			t.AppendRow(table.Row{row.Index, "-", posture.SafetyUnknown.String(), "-", "-", sig.MissedTicks, "-", "-"})
			continue
		}
		t.AppendRow(table.Row{
			row.Index,
			sig.BodyID,
			sig.Safety.String(),
			fmt.Sprintf("%.3f", sig.DistanceM),
			fmt.Sprintf("%.3f", sig.Bearing),
			sig.MissedTicks,
			fmt.Sprintf("%.1f", row.Command.Linear.X),
			fmt.Sprintf("%.1f", row.Command.Angular.Z),
		})
	}
	return t
}
