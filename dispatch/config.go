package dispatch

import (
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/depthview/depthview/posture"
)

// DisplayMode selects which secondary stream is painted next to depth.
type DisplayMode string

// The secondary display modes.
const (
	DisplayColor       = DisplayMode("color")
	DisplayInfrared16  = DisplayMode("ir16")
	DisplayInfraredRGB = DisplayMode("ir_rgb")
	DisplayNone        = DisplayMode("none")
)

// DepthColorizer selects how depth is painted.
type DepthColorizer string

// The depth colorizers.
const (
	DepthGray   = DepthColorizer("gray")
	DepthPretty = DepthColorizer("pretty")
)

// Defaults applied to a zero Config.
const (
	DefaultFPSWeight    = 0.2
	DefaultFPSLogPeriod = 5 * time.Second
)

// Config configures a Listener.
type Config struct {
	Display        DisplayMode    `json:"display,omitempty"`
	DepthColorizer DepthColorizer `json:"depth_colorizer,omitempty"`
	// PrettyMinMm and PrettyMaxMm clamp the pretty depth ramp. Zero leaves that end unclamped.
	PrettyMinMm uint16 `json:"pretty_min_mm,omitempty"`
	PrettyMaxMm uint16 `json:"pretty_max_mm,omitempty"`

	// HandTraceLength is the number of positions kept per hand. Zero uses the tracer default.
	HandTraceLength int `json:"hand_trace_length,omitempty"`

	// FPSWeight is the weight of the newest frame interval in the moving average.
	FPSWeight float64 `json:"fps_weight,omitempty"`
	// FPSLogPeriod is how often the frame rate is logged, as a duration string. "off" disables the
	// log line.
	FPSLogPeriod string `json:"fps_log_period,omitempty"`

	Posture *posture.Config       `json:"posture,omitempty"`
	Command posture.CommandConfig `json:"command,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	switch cfg.Display {
	case "", DisplayColor, DisplayInfrared16, DisplayInfraredRGB, DisplayNone:
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown display %q", cfg.Display))
	}
	switch cfg.DepthColorizer {
	case "", DepthGray, DepthPretty:
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown depth_colorizer %q", cfg.DepthColorizer))
	}
	if cfg.PrettyMaxMm != 0 && cfg.PrettyMaxMm < cfg.PrettyMinMm {
		return utils.NewConfigValidationError(path, errors.New("pretty_max_mm must not be below pretty_min_mm"))
	}
	if cfg.HandTraceLength < 0 {
		return utils.NewConfigValidationError(path, errors.New("hand_trace_length must be non-negative"))
	}
	if cfg.FPSWeight < 0 || cfg.FPSWeight > 1 {
		return utils.NewConfigValidationError(path, errors.New("fps_weight must be within [0, 1]"))
	}
	if _, err := cfg.fpsLogPeriod(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if err := cfg.Posture.Validate(path + ".posture"); err != nil {
		return err
	}
	return cfg.Command.Validate(path + ".command")
}

func (cfg *Config) display() DisplayMode {
	if cfg.Display == "" {
		return DisplayColor
	}
	return cfg.Display
}

func (cfg *Config) fpsWeight() float64 {
	if cfg.FPSWeight == 0 {
		return DefaultFPSWeight
	}
	return cfg.FPSWeight
}

// fpsLogPeriod returns a negative period when logging is off.
func (cfg *Config) fpsLogPeriod() (time.Duration, error) {
	switch cfg.FPSLogPeriod {
	case "":
		return DefaultFPSLogPeriod, nil
	case "off":
		return -1, nil
	}
	d, err := time.ParseDuration(cfg.FPSLogPeriod)
	if err != nil {
		return 0, errors.Wrap(err, "invalid fps_log_period")
	}
	if d <= 0 {
		return 0, errors.New("fps_log_period must be positive")
	}
	return d, nil
}
