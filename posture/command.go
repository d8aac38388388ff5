package posture

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Command is a velocity command in the body frame of the robot.
type Command struct {
	Linear  r3.Vector
	Angular r3.Vector
}

// IsZero reports whether the command asks for no motion.
func (c Command) IsZero() bool {
	return c.Linear == (r3.Vector{}) && c.Angular == (r3.Vector{})
}

func (c Command) String() string {
	return fmt.Sprintf("linear=%.3f angular=%.3f", c.Linear.X, c.Angular.Z)
}

// CommandConfig turns a signal into a command. Zero values use the defaults.
type CommandConfig struct {
	// FollowDistanceM is the distance beyond which the robot drives forward. Default 2.5.
	FollowDistanceM float64 `json:"follow_distance_m,omitempty"`
	// LinearSpeed is the forward speed. Default 1.0.
	LinearSpeed float64 `json:"linear_speed,omitempty"`
	// BearingThreshold is the bearing magnitude beyond which the robot turns. Default 50.
	BearingThreshold float64 `json:"bearing_threshold,omitempty"`
	// AngularSpeed is the turn rate. Default 0.3.
	AngularSpeed float64 `json:"angular_speed,omitempty"`
	// GateOnAccident stops the robot while the signal reports an accident.
	GateOnAccident bool `json:"gate_on_accident,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *CommandConfig) Validate(path string) error {
	if cfg.FollowDistanceM < 0 || cfg.LinearSpeed < 0 || cfg.BearingThreshold < 0 || cfg.AngularSpeed < 0 {
		return utils.NewConfigValidationError(path, errors.New("command thresholds and speeds must be non-negative"))
	}
	return nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// CommandFor returns the command for sig: forward when the torso is strictly farther than the follow
// distance, and a turn toward the body when the bearing magnitude strictly exceeds the threshold. An
// invalid signal yields the zero command. Accidents only stop the robot when GateOnAccident is set.
func CommandFor(sig Signal, cfg CommandConfig) Command {
	var cmd Command
	if !sig.Valid {
		return cmd
	}
	if cfg.GateOnAccident && sig.Safety == SafetyAccident {
		return cmd
	}
	if sig.DistanceM > orDefault(cfg.FollowDistanceM, 2.5) {
		cmd.Linear.X = orDefault(cfg.LinearSpeed, 1.0)
	}
	threshold := orDefault(cfg.BearingThreshold, 50)
	switch {
	case sig.Bearing > threshold:
		cmd.Angular.Z = orDefault(cfg.AngularSpeed, 0.3)
	case sig.Bearing < -threshold:
		cmd.Angular.Z = -orDefault(cfg.AngularSpeed, 0.3)
	}
	return cmd
}
