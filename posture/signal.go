// Package posture derives a distance, bearing and safety signal from tracked bodies and turns it into
// a velocity command.
package posture

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/depthview/depthview/frame"
)

// Safety is the coarse fall classification of a body.
type Safety int

// Safety states.
const (
	SafetyUnknown Safety = iota
	SafetySafe
	SafetyAccident
)

func (s Safety) String() string {
	switch s {
	case SafetySafe:
		return "safe"
	case SafetyAccident:
		return "accident"
	default:
		return "unknown"
	}
}

// BearingMode selects how the bearing is derived from the torso joint.
type BearingMode string

const (
	// BearingLateral uses the torso's world x coordinate in millimetres.
	BearingLateral = BearingMode("lateral")
	// BearingAtan2 uses atan2(x, z) in degrees, positive to the right of the camera axis.
	BearingAtan2 = BearingMode("atan2")
)

// Signal is the posture summary of the current body.
type Signal struct {
	// Valid is false until a usable body is seen and again after the signal goes stale.
	Valid      bool
	BodyID     int
	FrameIndex int64

	// DistanceM is the planar distance of the torso joint from the sensor in metres.
	DistanceM float64
	Bearing   float64
	Safety    Safety

	// MissedTicks counts consecutive body frames without a usable body.
	MissedTicks int

	Torso        r3.Vector
	CenterOfMass r3.Vector
}

// String renders the status text shown next to the skeleton.
func (s Signal) String() string {
	if !s.Valid {
		return fmt.Sprintf("%s\ndistance: -\nangle: -", SafetyUnknown)
	}
	return fmt.Sprintf("%s\ndistance: %.3fm\nangle: %.3f", s.Safety, s.DistanceM, s.Bearing)
}

// Params are the resolved extraction settings.
type Params struct {
	TorsoJoint          frame.JointType
	// ReferenceJoint is compared against the accident threshold. The default, slot 12 of the
	// SDK joint topology, is the left foot.
	ReferenceJoint      frame.JointType
	AccidentThresholdMm float64
	BearingMode         BearingMode
}

// DefaultParams match the body-follow demo: base of spine for distance, left foot as the safety
// reference, 400mm threshold and the lateral bearing.
func DefaultParams() Params {
	return Params{
		TorsoJoint:          frame.JointBaseSpine,
		ReferenceJoint:      frame.JointLeftFoot,
		AccidentThresholdMm: 400,
		BearingMode:         BearingLateral,
	}
}

// PlanarDistanceM returns sqrt(x² + z²) of a millimetre position, in metres.
func PlanarDistanceM(p r3.Vector) float64 {
	return math.Hypot(p.X, p.Z) / 1000
}

// BearingOf returns the bearing of p under mode.
func BearingOf(p r3.Vector, mode BearingMode) float64 {
	if mode == BearingAtan2 {
		return math.Atan2(p.X, p.Z) * 180 / math.Pi
	}
	return p.X
}

// Classify returns Accident when the center of mass is less than thresholdMm above the reference
// joint.
func Classify(centerOfMass, reference r3.Vector, thresholdMm float64) Safety {
	if centerOfMass.Y-reference.Y < thresholdMm {
		return SafetyAccident
	}
	return SafetySafe
}

// Compute derives the signal of one body. It returns false when the body lacks either joint the
// signal needs, or when either is not tracked.
func Compute(body frame.Body, params Params) (Signal, bool) {
	torso, ok := body.Joint(params.TorsoJoint)
	if !ok || torso.Status == frame.JointNotTracked {
		return Signal{}, false
	}
	reference, ok := body.Joint(params.ReferenceJoint)
	if !ok || reference.Status == frame.JointNotTracked {
		return Signal{}, false
	}
	return Signal{
		Valid:        true,
		BodyID:       body.ID,
		DistanceM:    PlanarDistanceM(torso.WorldPosition),
		Bearing:      BearingOf(torso.WorldPosition, params.BearingMode),
		Safety:       Classify(body.CenterOfMass, reference.WorldPosition, params.AccidentThresholdMm),
		Torso:        torso.WorldPosition,
		CenterOfMass: body.CenterOfMass,
	}, true
}
