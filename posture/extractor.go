package posture

import (
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/depthview/depthview/frame"
)

// DefaultStaleAfterTicks is how many body frames without a usable body are tolerated before the
// signal decays to unknown.
const DefaultStaleAfterTicks = 15

// Config configures the extractor.
type Config struct {
	TorsoJoint          string  `json:"torso_joint,omitempty"`
	ReferenceJoint      string  `json:"reference_joint,omitempty"`
	AccidentThresholdMm float64 `json:"accident_threshold_mm,omitempty"`
	BearingMode         string  `json:"bearing_mode,omitempty"`
	// StaleAfterTicks of 0 keeps the last signal forever. Unset uses DefaultStaleAfterTicks.
	StaleAfterTicks *int `json:"stale_after_ticks,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	_, _, err := cfg.resolve()
	if err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

func (cfg *Config) resolve() (Params, int, error) {
	params := DefaultParams()
	staleAfter := DefaultStaleAfterTicks
	if cfg == nil {
		return params, staleAfter, nil
	}
	if cfg.TorsoJoint != "" {
		jt, ok := frame.JointTypeFromString(cfg.TorsoJoint)
		if !ok {
			return params, 0, errors.Errorf("unknown torso_joint %q", cfg.TorsoJoint)
		}
		params.TorsoJoint = jt
	}
	if cfg.ReferenceJoint != "" {
		jt, ok := frame.JointTypeFromString(cfg.ReferenceJoint)
		if !ok {
			return params, 0, errors.Errorf("unknown reference_joint %q", cfg.ReferenceJoint)
		}
		params.ReferenceJoint = jt
	}
	if cfg.AccidentThresholdMm < 0 {
		return params, 0, errors.New("accident_threshold_mm must be non-negative")
	}
	if cfg.AccidentThresholdMm > 0 {
		params.AccidentThresholdMm = cfg.AccidentThresholdMm
	}
	switch BearingMode(cfg.BearingMode) {
	case "":
	case BearingLateral, BearingAtan2:
		params.BearingMode = BearingMode(cfg.BearingMode)
	default:
		return params, 0, errors.Errorf("unknown bearing_mode %q", cfg.BearingMode)
	}
	if cfg.StaleAfterTicks != nil {
		if *cfg.StaleAfterTicks < 0 {
			return params, 0, errors.New("stale_after_ticks must be non-negative")
		}
		staleAfter = *cfg.StaleAfterTicks
	}
	return params, staleAfter, nil
}

// Extractor keeps the posture signal across ticks. It is driven from the dispatch goroutine only.
type Extractor struct {
	params     Params
	staleAfter int
	signal     Signal
}

// NewExtractor returns an extractor. A nil config uses the defaults.
func NewExtractor(cfg *Config) (*Extractor, error) {
	params, staleAfter, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	return &Extractor{params: params, staleAfter: staleAfter}, nil
}

// Params returns the resolved parameters.
func (e *Extractor) Params() Params {
	return e.params
}

// Update rebuilds the signal from the first usable body of a valid body frame. Without one the
// previous signal is kept until it has been missed for the stale limit, after which it becomes
// unknown.
func (e *Extractor) Update(bf *frame.BodyFrame) Signal {
	for _, body := range bf.Bodies {
		sig, ok := Compute(body, e.params)
		if !ok {
			continue
		}
		sig.FrameIndex = bf.Index
		e.signal = sig
		return e.signal
	}

	e.signal.MissedTicks++
	if e.staleAfter > 0 && e.signal.MissedTicks >= e.staleAfter && e.signal.Valid {
		e.signal = Signal{MissedTicks: e.signal.MissedTicks, FrameIndex: e.signal.FrameIndex}
	}
	return e.signal
}

// Signal returns the current signal.
func (e *Extractor) Signal() Signal {
	return e.signal
}
