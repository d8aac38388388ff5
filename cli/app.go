// Package cli contains the depthview command line: inspecting recorded bags, replaying posture
// extraction offline, validating configs and browsing recorded observations.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"

	"github.com/depthview/depthview/logging"
)

const (
	debugFlag = "debug"

	bagFlagDepthTopic = "depth-topic"
	bagFlagColorTopic = "color-topic"
	bagFlagBodyTopic  = "body-topic"
	bagFlagLimit      = "limit"

	postureFlagConfig         = "config"
	postureFlagBearingMode    = "bearing-mode"
	postureFlagThreshold      = "accident-threshold-mm"
	postureFlagStaleAfter     = "stale-after-ticks"
	postureFlagGateOnAccident = "gate-on-accident"
	postureFlagAll            = "all"

	configFlagReveal = "reveal"

	recordingsFlagLimit  = "limit"
	recordingsFlagOutput = "output"
	recordingsFlagFormat = "format"
)

func topicFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: bagFlagDepthTopic, Usage: "topic of the depth images"},
		&cli.StringFlag{Name: bagFlagColorTopic, Usage: "topic of the color images"},
		&cli.StringFlag{Name: bagFlagBodyTopic, Usage: "topic of the body tracking results"},
	}
}

// NewApp returns the depthview command line app writing to out and errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "depthview",
		Usage:           "inspect depth camera sessions and posture signals",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    debugFlag,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:            "bag",
				Usage:           "inspect recorded ROS bags",
				HideHelpCommand: true,
				Subcommands: []*cli.Command{
					{
						Name:      "topics",
						Usage:     "list the topics of a bag",
						ArgsUsage: "<bag>",
						Action:    BagTopicsAction,
					},
					{
						Name:      "frames",
						Usage:     "list the frames a bag replays as",
						ArgsUsage: "<bag>",
						Flags: append(topicFlags(), &cli.IntFlag{
							Name:  bagFlagLimit,
							Usage: "maximum number of frames to list (0 lists all)",
						}),
						Action: BagFramesAction,
					},
				},
			},
			{
				Name:            "posture",
				Usage:           "work with posture signals",
				HideHelpCommand: true,
				Subcommands: []*cli.Command{
					{
						Name:      "replay",
						Usage:     "run posture extraction over a bag or a configured source",
						ArgsUsage: "[bag]",
						Flags: append(topicFlags(),
							&cli.StringFlag{
								Name:  postureFlagConfig,
								Usage: "replay the source of this pipeline config instead of a bag",
							},
							&cli.StringFlag{
								Name:  postureFlagBearingMode,
								Usage: "bearing mode: lateral or atan2",
							},
							&cli.Float64Flag{
								Name:  postureFlagThreshold,
								Usage: "height of the center of mass over the reference joint below which a person has fallen",
							},
							&cli.IntFlag{
								Name:  postureFlagStaleAfter,
								Value: -1,
								Usage: "body frames without a person before the signal decays (0 never decays)",
							},
							&cli.BoolFlag{
								Name:  postureFlagGateOnAccident,
								Usage: "stop the command while an accident is reported",
							},
							&cli.BoolFlag{
								Name:  postureFlagAll,
								Usage: "list every frame, not only those with body results",
							},
							&cli.IntFlag{
								Name:  bagFlagLimit,
								Usage: "stop after this many frames (0 replays until the source is exhausted)",
							},
						),
						Action: PostureReplayAction,
					},
				},
			},
			{
				Name:            "config",
				Usage:           "work with pipeline configs",
				HideHelpCommand: true,
				Subcommands: []*cli.Command{
					{
						Name:      "validate",
						Usage:     "validate a pipeline config",
						ArgsUsage: "<config>",
						Action:    ConfigValidateAction,
					},
					{
						Name:      "diff",
						Usage:     "show the changes between two pipeline configs",
						ArgsUsage: "<old> <new>",
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  configFlagReveal,
								Usage: "show secrets in the diff",
							},
						},
						Action: ConfigDiffAction,
					},
					{
						Name:      "schema",
						Usage:     "print the JSON schema of a pipeline config or of a model's attributes",
						ArgsUsage: "[api [model]]",
						Action:    ConfigSchemaAction,
					},
				},
			},
			{
				Name:            "recordings",
				Usage:           "browse recorded observations",
				HideHelpCommand: true,
				Subcommands: []*cli.Command{
					{
						Name:      "list",
						Usage:     "list the recorded sessions",
						ArgsUsage: "<database>",
						Action:    RecordingsListAction,
					},
					{
						Name:      "show",
						Usage:     "show the observations of a session",
						ArgsUsage: "<database> <session>",
						Flags: []cli.Flag{
							&cli.IntFlag{
								Name:  recordingsFlagLimit,
								Usage: "maximum number of observations (0 shows all)",
							},
							&cli.StringFlag{
								Name:  recordingsFlagOutput,
								Usage: "write the observations to this file instead",
							},
							&cli.StringFlag{
								Name:  recordingsFlagFormat,
								Value: "text",
								Usage: "output file format: text or json",
							},
						},
						Action: RecordingsShowAction,
					},
				},
			},
		},
	}
}

func loggerFor(c *cli.Context) logging.Logger {
	if c.Bool(debugFlag) {
		return logging.NewDebugLogger("depthview")
	}
	return logging.NewLogger("depthview")
}
