package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/depthview/depthview/dispatch"
	"github.com/depthview/depthview/frame"
	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/posture"
)

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	mockClock := clock.NewMock()
	path := filepath.Join(t.TempDir(), "telemetry.db")

	r, err := Open(ctx, &Config{Path: path, SessionName: "hallway"}, mockClock, logger)
	test.That(t, err, test.ShouldBeNil)

	sig := posture.Signal{Valid: true, BodyID: 3, FrameIndex: 42, DistanceM: 2.75, Bearing: -61, Safety: posture.SafetySafe}
	cmd := posture.Command{Linear: r3.Vector{X: 1}, Angular: r3.Vector{Z: -0.3}}
	test.That(t, r.Record(ctx, sig, cmd, 29.5), test.ShouldBeNil)
	mockClock.Add(time.Second)
	test.That(t, r.Record(ctx, posture.Signal{MissedTicks: 16}, posture.Command{}, 30), test.ShouldBeNil)

	observations, err := r.Observations(ctx, r.SessionID(), 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(observations), test.ShouldEqual, 2)
	first := observations[0]
	test.That(t, first.SessionID, test.ShouldEqual, r.SessionID())
	test.That(t, first.FrameIndex, test.ShouldEqual, int64(42))
	test.That(t, first.BodyID, test.ShouldEqual, 3)
	test.That(t, first.Valid, test.ShouldBeTrue)
	test.That(t, first.Safety, test.ShouldEqual, "safe")
	test.That(t, first.DistanceM, test.ShouldEqual, 2.75)
	test.That(t, first.Bearing, test.ShouldEqual, -61.0)
	test.That(t, first.FPS, test.ShouldEqual, 29.5)
	test.That(t, first.LinearX, test.ShouldEqual, 1.0)
	test.That(t, first.AngularZ, test.ShouldEqual, -0.3)
	second := observations[1]
	test.That(t, second.Valid, test.ShouldBeFalse)
	test.That(t, second.Safety, test.ShouldEqual, "unknown")
	test.That(t, second.MissedTicks, test.ShouldEqual, 16)
	test.That(t, second.RecordedAt.Sub(first.RecordedAt), test.ShouldEqual, time.Second)

	limited, err := r.Observations(ctx, r.SessionID(), 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(limited), test.ShouldEqual, 1)
	firstSession := r.SessionID()
	test.That(t, r.Close(), test.ShouldBeNil)

	// Reopening appends a new session to the same file.
	r, err = Open(ctx, &Config{Path: path}, mockClock, logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, r.Close(), test.ShouldBeNil)
	}()
	test.That(t, r.SessionID(), test.ShouldNotEqual, firstSession)
	sessions, err := r.Sessions(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(sessions), test.ShouldEqual, 2)
	test.That(t, sessions[0].ID, test.ShouldEqual, firstSession)
	test.That(t, sessions[0].Name, test.ShouldEqual, "hallway")
	test.That(t, sessions[1].ID, test.ShouldEqual, r.SessionID())

	empty, err := r.Observations(ctx, r.SessionID(), 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty, test.ShouldBeEmpty)
}

func TestOnTick(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	r, err := Open(ctx, &Config{Path: filepath.Join(t.TempDir(), "t.db"), EveryTicks: 2}, clock.NewMock(), logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, r.Close(), test.ShouldBeNil)
	}()

	l, err := dispatch.NewListener(nil, clock.NewMock(), logger)
	test.That(t, err, test.ShouldBeNil)

	joints := make([]frame.Joint, frame.NumJoints)
	for i := range joints {
		joints[i] = frame.Joint{Type: frame.JointType(i), Status: frame.JointTracked}
	}
	joints[frame.JointBaseSpine].WorldPosition = r3.Vector{X: 80, Z: 3000}
	joints[frame.JointLeftFoot].WorldPosition = r3.Vector{Y: -800}
	bf := &frame.BodyFrame{
		Header: frame.Header{Width: 2, Height: 2, Index: 7, Valid: true},
		Bodies: []frame.Body{{ID: 2, Joints: joints}},
	}
	l.OnFrameReady(ctx, frame.New(7, time.Time{}, bf))

	for i := 0; i < 5; i++ {
		r.OnTick(ctx, l, true)
		r.OnTick(ctx, l, false)
	}
	observations, err := r.Observations(ctx, r.SessionID(), 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(observations), test.ShouldEqual, 2)
	test.That(t, observations[0].BodyID, test.ShouldEqual, 2)
	test.That(t, observations[0].FrameIndex, test.ShouldEqual, int64(7))
	test.That(t, observations[0].LinearX, test.ShouldEqual, 1.0)
	test.That(t, observations[0].AngularZ, test.ShouldEqual, 0.3)
}

func TestConfigValidate(t *testing.T) {
	test.That(t, (&Config{Path: "x.db"}).Validate("recorder"), test.ShouldBeNil)
	test.That(t, (&Config{}).Validate("recorder"), test.ShouldNotBeNil)
	test.That(t, (&Config{Path: "x.db", EveryTicks: -1}).Validate("recorder"), test.ShouldNotBeNil)
	_, err := Open(context.Background(), &Config{}, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}
