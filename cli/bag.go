package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"github.com/depthview/depthview/frame"
	"github.com/depthview/depthview/frame/replay"
	"github.com/depthview/depthview/ros"
)

// BagTopicsAction lists the topics of a bag.
func BagTopicsAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("bag topics takes exactly one bag")
	}
	rb, err := ros.ReadBag(c.Args().First())
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", topicsTable(ros.Topics(rb)).Render())
	return nil
}

func topicsTable(topics []ros.TopicInfo) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Topic", "Type", "Messages"})
	for _, info := range topics {
		t.AppendRow(table.Row{info.Topic, info.Type, info.Messages})
	}
	return t
}

func replayConfig(c *cli.Context, path string) *replay.Config {
	return &replay.Config{
		Path:       path,
		DepthTopic: c.String(bagFlagDepthTopic),
		ColorTopic: c.String(bagFlagColorTopic),
		BodyTopic:  c.String(bagFlagBodyTopic),
	}
}

// BagFramesAction lists the frames a bag replays as.
func BagFramesAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("bag frames takes exactly one bag")
	}
	src, err := replay.NewSource(replayConfig(c, c.Args().First()), nil, loggerFor(c))
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(func() error { return src.Close(c.Context) })

	limit := c.Int(bagFlagLimit)
	frames, err := collectFrames(c.Context, src, limit)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", framesTable(frames).Render())
	if limit > 0 && src.Len() > len(frames) {
		infof(c.App.ErrWriter, "showing %d of %d frames", len(frames), src.Len())
	}
	return nil
}

type frameSummary struct {
	Index     int64
	Timestamp time.Time
	Depth     string
	Secondary string
	Bodies    string
}

// collectFrames summarizes up to limit frames of src, or all of them for a non-positive limit.
func collectFrames(ctx context.Context, src frame.Source, limit int) ([]frameSummary, error) {
	var frames []frameSummary
	for limit <= 0 || len(frames) < limit {
		f, release, err := src.NextFrame(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		summary := frameSummary{
			Index:     f.Index,
			Timestamp: f.Timestamp,
			Depth:     describe(f.Get(frame.KindDepth)),
			Secondary: describe(f.Get(frame.KindColor)),
			Bodies:    describe(f.Get(frame.KindBody)),
		}
		if bodies, ok := f.Bodies(); ok && bodies.IsValid() {
			summary.Bodies = fmt.Sprintf("%d", len(bodies.Bodies))
		}
		release()
		frames = append(frames, summary)
	}
	return frames, nil
}

func framesTable(frames []frameSummary) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Time", "Depth", "Color", "Bodies"})
	for _, f := range frames {
		t.AppendRow(table.Row{f.Index, f.Timestamp.UTC().Format(time.RFC3339Nano), f.Depth, f.Secondary, f.Bodies})
	}
	return t
}

func describe(sub frame.SubFrame, ok bool) string {
	if !ok {
		return "-"
	}
	if !sub.IsValid() {
		return "invalid"
	}
	h := sub.FrameHeader()
	return fmt.Sprintf("%dx%d", h.Width, h.Height)
}
