package posture

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/depthview/depthview/frame"
)

func makeBody(id int, torso r3.Vector, comY, referenceY float64) frame.Body {
	joints := make([]frame.Joint, frame.NumJoints)
	for i := range joints {
		joints[i] = frame.Joint{Type: frame.JointType(i), Status: frame.JointTracked}
	}
	joints[frame.JointBaseSpine].WorldPosition = torso
	joints[frame.JointLeftFoot].WorldPosition = r3.Vector{Y: referenceY}
	return frame.Body{ID: id, CenterOfMass: r3.Vector{Y: comY}, Joints: joints}
}

func bodyFrame(index int64, bodies ...frame.Body) *frame.BodyFrame {
	return &frame.BodyFrame{Header: frame.Header{Width: 4, Height: 4, Index: index, Valid: true}, Bodies: bodies}
}

func TestDistance(t *testing.T) {
	for _, p := range []r3.Vector{
		{X: 3000, Y: 50, Z: 4000},
		{X: -1200, Z: 900},
		{},
		{X: -1, Y: -1, Z: -1},
	} {
		sig, ok := Compute(makeBody(1, p, 0, -1000), DefaultParams())
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, sig.DistanceM, test.ShouldBeGreaterThanOrEqualTo, 0.0)
		test.That(t, sig.DistanceM, test.ShouldAlmostEqual, math.Sqrt(p.X*p.X+p.Z*p.Z)/1000)
	}
	test.That(t, PlanarDistanceM(r3.Vector{X: 3000, Z: 4000}), test.ShouldAlmostEqual, 5.0)
}

func TestSafety(t *testing.T) {
	sig, ok := Compute(makeBody(1, r3.Vector{Z: 1000}, 100, -400), DefaultParams())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, sig.Safety, test.ShouldEqual, SafetySafe)

	sig, ok = Compute(makeBody(1, r3.Vector{Z: 1000}, 100, -250), DefaultParams())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, sig.Safety, test.ShouldEqual, SafetyAccident)

	// Exactly at the threshold is safe.
	test.That(t, Classify(r3.Vector{Y: 400}, r3.Vector{}, 400), test.ShouldEqual, SafetySafe)
	test.That(t, Classify(r3.Vector{Y: 399.9}, r3.Vector{}, 400), test.ShouldEqual, SafetyAccident)
}

func TestBearing(t *testing.T) {
	p := r3.Vector{X: 1000, Z: 1000}
	test.That(t, BearingOf(p, BearingLateral), test.ShouldEqual, 1000.0)
	test.That(t, BearingOf(p, BearingAtan2), test.ShouldAlmostEqual, 45.0)
	test.That(t, BearingOf(r3.Vector{X: -1000, Z: 1000}, BearingAtan2), test.ShouldAlmostEqual, -45.0)
	test.That(t, BearingOf(r3.Vector{Z: 2000}, BearingAtan2), test.ShouldAlmostEqual, 0.0)
}

func TestIncompleteSkeleton(t *testing.T) {
	body := makeBody(1, r3.Vector{Z: 1000}, 100, -400)

	// Fewer joints than the topology: both needed joints are past the end.
	short := body
	short.Joints = body.Joints[:5]
	_, ok := Compute(short, DefaultParams())
	test.That(t, ok, test.ShouldBeFalse)

	// Torso present but reference missing.
	short.Joints = body.Joints[:int(frame.JointBaseSpine)+1]
	_, ok = Compute(short, DefaultParams())
	test.That(t, ok, test.ShouldBeFalse)

	// An untracked torso is treated as missing.
	untracked := makeBody(1, r3.Vector{Z: 1000}, 100, -400)
	untracked.Joints[frame.JointBaseSpine].Status = frame.JointNotTracked
	_, ok = Compute(untracked, DefaultParams())
	test.That(t, ok, test.ShouldBeFalse)

	_, ok = Compute(frame.Body{}, DefaultParams())
	test.That(t, ok, test.ShouldBeFalse)
}

func TestExtractorPicksFirstUsableBody(t *testing.T) {
	ext, err := NewExtractor(nil)
	test.That(t, err, test.ShouldBeNil)

	broken := frame.Body{ID: 3, Joints: make([]frame.Joint, 2)}
	good := makeBody(5, r3.Vector{X: 60, Z: 3000}, 100, -800)
	other := makeBody(6, r3.Vector{Z: 1000}, 100, -800)

	sig := ext.Update(bodyFrame(9, broken, good, other))
	test.That(t, sig.Valid, test.ShouldBeTrue)
	test.That(t, sig.BodyID, test.ShouldEqual, 5)
	test.That(t, sig.FrameIndex, test.ShouldEqual, int64(9))
	test.That(t, sig.Bearing, test.ShouldEqual, 60.0)
	test.That(t, ext.Signal(), test.ShouldResemble, sig)
	test.That(t, sig.String(), test.ShouldEqual, "safe\ndistance: 3.001m\nangle: 60.000")
}

func TestExtractorStalePolicy(t *testing.T) {
	staleAfter := 3
	ext, err := NewExtractor(&Config{StaleAfterTicks: &staleAfter})
	test.That(t, err, test.ShouldBeNil)

	ext.Update(bodyFrame(1, makeBody(1, r3.Vector{Z: 3000}, 100, -800)))
	for i := 1; i < staleAfter; i++ {
		sig := ext.Update(bodyFrame(int64(1+i)))
		test.That(t, sig.Valid, test.ShouldBeTrue)
		test.That(t, sig.MissedTicks, test.ShouldEqual, i)
		test.That(t, sig.DistanceM, test.ShouldAlmostEqual, 3.0)
	}
	sig := ext.Update(bodyFrame(10))
	test.That(t, sig.Valid, test.ShouldBeFalse)
	test.That(t, sig.Safety, test.ShouldEqual, SafetyUnknown)
	test.That(t, sig.MissedTicks, test.ShouldEqual, staleAfter)
	test.That(t, sig.String(), test.ShouldEqual, "unknown\ndistance: -\nangle: -")

	// A usable body resets the counter.
	sig = ext.Update(bodyFrame(11, makeBody(1, r3.Vector{Z: 1000}, 100, -800)))
	test.That(t, sig.Valid, test.ShouldBeTrue)
	test.That(t, sig.MissedTicks, test.ShouldEqual, 0)
}

func TestExtractorSticky(t *testing.T) {
	sticky := 0
	ext, err := NewExtractor(&Config{StaleAfterTicks: &sticky})
	test.That(t, err, test.ShouldBeNil)
	ext.Update(bodyFrame(1, makeBody(1, r3.Vector{Z: 3000}, 100, -800)))
	for i := 0; i < 100; i++ {
		ext.Update(bodyFrame(int64(2 + i)))
	}
	test.That(t, ext.Signal().Valid, test.ShouldBeTrue)
	test.That(t, ext.Signal().MissedTicks, test.ShouldEqual, 100)
}

func TestConfig(t *testing.T) {
	ext, err := NewExtractor(&Config{
		TorsoJoint:          "mid_spine",
		ReferenceJoint:      "right_foot",
		AccidentThresholdMm: 300,
		BearingMode:         "atan2",
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ext.Params(), test.ShouldResemble, Params{
		TorsoJoint:          frame.JointMidSpine,
		ReferenceJoint:      frame.JointRightFoot,
		AccidentThresholdMm: 300,
		BearingMode:         BearingAtan2,
	})

	negative := -1
	for _, cfg := range []*Config{
		{TorsoJoint: "tail"},
		{ReferenceJoint: "antenna"},
		{BearingMode: "compass"},
		{AccidentThresholdMm: -5},
		{StaleAfterTicks: &negative},
	} {
		test.That(t, cfg.Validate("posture"), test.ShouldNotBeNil)
		_, err := NewExtractor(cfg)
		test.That(t, err, test.ShouldNotBeNil)
	}
	test.That(t, (&Config{}).Validate("posture"), test.ShouldBeNil)
}

func TestDefaultReferenceIsLeftFoot(t *testing.T) {
	test.That(t, frame.JointLeftFoot, test.ShouldEqual, frame.JointType(12))
	test.That(t, DefaultParams().ReferenceJoint, test.ShouldEqual, frame.JointLeftFoot)

	ext, err := NewExtractor(&Config{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ext.Params().ReferenceJoint, test.ShouldEqual, frame.JointLeftFoot)
}

func TestCommandFor(t *testing.T) {
	cfg := CommandConfig{}
	valid := func(distance, bearing float64) Signal {
		return Signal{Valid: true, DistanceM: distance, Bearing: bearing, Safety: SafetySafe}
	}

	cmd := CommandFor(valid(3.0, 60), cfg)
	test.That(t, cmd.Linear.X, test.ShouldEqual, 1.0)
	test.That(t, cmd.Angular.Z, test.ShouldEqual, 0.3)

	cmd = CommandFor(valid(1.0, -60), cfg)
	test.That(t, cmd.Linear.X, test.ShouldEqual, 0.0)
	test.That(t, cmd.Angular.Z, test.ShouldEqual, -0.3)

	cmd = CommandFor(valid(2.5, 50), cfg)
	test.That(t, cmd.IsZero(), test.ShouldBeTrue)

	cmd = CommandFor(valid(2.5, -50), cfg)
	test.That(t, cmd.IsZero(), test.ShouldBeTrue)

	test.That(t, CommandFor(Signal{DistanceM: 9, Bearing: 90}, cfg).IsZero(), test.ShouldBeTrue)
	test.That(t, CommandFor(valid(3.0, 60), cfg).String(), test.ShouldEqual, "linear=1.000 angular=0.300")
}

func TestCommandAccidentGate(t *testing.T) {
	sig := Signal{Valid: true, DistanceM: 4, Bearing: 80, Safety: SafetyAccident}

	cmd := CommandFor(sig, CommandConfig{})
	test.That(t, cmd.Linear.X, test.ShouldEqual, 1.0)
	test.That(t, cmd.Angular.Z, test.ShouldEqual, 0.3)

	cmd = CommandFor(sig, CommandConfig{GateOnAccident: true})
	test.That(t, cmd.IsZero(), test.ShouldBeTrue)

	cmd = CommandFor(sig, CommandConfig{FollowDistanceM: 5, LinearSpeed: 0.5, BearingThreshold: 85, AngularSpeed: 1})
	test.That(t, cmd.IsZero(), test.ShouldBeTrue)
	cmd = CommandFor(Signal{Valid: true, DistanceM: 6, Bearing: -90}, CommandConfig{FollowDistanceM: 5, LinearSpeed: 0.5, BearingThreshold: 85, AngularSpeed: 1})
	test.That(t, cmd.Linear.X, test.ShouldEqual, 0.5)
	test.That(t, cmd.Angular.Z, test.ShouldEqual, -1.0)

	test.That(t, (&CommandConfig{AngularSpeed: -1}).Validate("command"), test.ShouldNotBeNil)
}
