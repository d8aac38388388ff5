package fake

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"github.com/depthview/depthview/frame"
	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/resource"
)

func TestScriptedSource(t *testing.T) {
	ctx := context.Background()
	f1 := frame.New(1, time.Time{})
	f2 := frame.New(2, time.Time{})
	src := NewSource(f1, nil, f2)

	got, release, err := src.NextFrame(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldEqual, f1)
	test.That(t, src.Pending(), test.ShouldEqual, 1)
	release()
	release()
	test.That(t, src.Pending(), test.ShouldEqual, 0)
	test.That(t, src.Released(), test.ShouldEqual, 1)

	_, _, err = src.NextFrame(ctx)
	test.That(t, err, test.ShouldEqual, frame.ErrNotReady)

	got, release, err = src.NextFrame(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldEqual, f2)
	release()

	_, _, err = src.NextFrame(ctx)
	test.That(t, err, test.ShouldEqual, io.EOF)

	src.Push(frame.New(3, time.Time{}))
	got, _, err = src.NextFrame(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Index, test.ShouldEqual, int64(3))

	test.That(t, src.Close(ctx), test.ShouldBeNil)
	_, _, err = src.NextFrame(ctx)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLoopingSource(t *testing.T) {
	ctx := context.Background()
	src := NewLoopingSource(frame.New(1, time.Time{}), frame.New(2, time.Time{}))
	var indexes []int64
	for i := 0; i < 5; i++ {
		f, release, err := src.NextFrame(ctx)
		test.That(t, err, test.ShouldBeNil)
		indexes = append(indexes, f.Index)
		release()
	}
	test.That(t, indexes, test.ShouldResemble, []int64{1, 2, 1, 2, 1})

	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()
	_, _, err := src.NextFrame(cancelCtx)
	test.That(t, err, test.ShouldEqual, context.Canceled)
}

func TestGenerator(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	gen := NewGenerator(&Config{Width: 32, Height: 24, Frames: 3}, clock.NewMock(), logger)

	for i := int64(0); i < 3; i++ {
		f, release, err := gen.NextFrame(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, f.Index, test.ShouldEqual, i)

		depth, ok := f.Depth()
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, depth.IsValid(), test.ShouldBeTrue)
		test.That(t, len(depth.Data), test.ShouldEqual, 32*24)

		color, ok := f.Color()
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, len(color.Data), test.ShouldEqual, 32*24*3)

		bodies, ok := f.Bodies()
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, len(bodies.Bodies), test.ShouldEqual, 1)
		test.That(t, len(bodies.Bodies[0].Joints), test.ShouldEqual, frame.NumJoints)
		test.That(t, len(bodies.BodyMask), test.ShouldEqual, 32*24)

		hands, ok := f.Hands()
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, len(hands.Points), test.ShouldEqual, 1)
		release()
	}
	_, _, err := gen.NextFrame(ctx)
	test.That(t, err, test.ShouldEqual, io.EOF)
	test.That(t, gen.Close(ctx), test.ShouldBeNil)
}

func TestGeneratorStreamsAndPacing(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	mockClock := clock.NewMock()
	gen := NewGenerator(&Config{Width: 8, Height: 8, FPS: 10, RealTime: true, Streams: []string{"depth"}}, mockClock, logger)

	f, _, err := gen.NextFrame(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(f.SubFrames()), test.ShouldEqual, 1)

	_, _, err = gen.NextFrame(ctx)
	test.That(t, err, test.ShouldEqual, frame.ErrNotReady)

	mockClock.Add(100 * time.Millisecond)
	f, _, err = gen.NextFrame(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.Index, test.ShouldEqual, int64(1))
}

func TestGeneratorFallScenario(t *testing.T) {
	ctx := context.Background()
	gen := NewGenerator(&Config{Width: 8, Height: 8, Scenario: ScenarioFall, Streams: []string{"body"}},
		clock.NewMock(), logging.NewTestLogger(t))

	var before, after frame.Body
	for i := 0; i <= 30; i++ {
		f, _, err := gen.NextFrame(ctx)
		test.That(t, err, test.ShouldBeNil)
		bodies, _ := f.Bodies()
		if i == 0 {
			before = bodies.Bodies[0]
		}
		after = bodies.Bodies[0]
	}
	foot, ok := before.Joint(frame.JointLeftFoot)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, before.CenterOfMass.Y-foot.WorldPosition.Y, test.ShouldBeGreaterThanOrEqualTo, 400.0)
	foot, _ = after.Joint(frame.JointLeftFoot)
	test.That(t, after.CenterOfMass.Y-foot.WorldPosition.Y, test.ShouldBeLessThan, 400.0)
}

func TestConfigValidate(t *testing.T) {
	test.That(t, (&Config{}).Validate("source"), test.ShouldBeNil)
	test.That(t, (&Config{Streams: []string{"depth", "thermal"}}).Validate("source"), test.ShouldNotBeNil)
	test.That(t, (&Config{Scenario: "dance"}).Validate("source"), test.ShouldNotBeNil)
	test.That(t, (&Config{Width: -1}).Validate("source"), test.ShouldNotBeNil)
}

func TestRegistered(t *testing.T) {
	logger := logging.NewTestLogger(t)
	conf := resource.Config{Name: "cam", Model: Model, Attributes: resource.AttributeMap{"width": 4, "height": 4, "frames": 1}}
	test.That(t, conf.Validate("source", frame.API), test.ShouldBeNil)
	src, err := frame.NewFromConfig(context.Background(), conf, logger)
	test.That(t, err, test.ShouldBeNil)
	f, _, err := src.NextFrame(context.Background())
	test.That(t, err, test.ShouldBeNil)
	depth, ok := f.Depth()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, depth.Width, test.ShouldEqual, 4)
	test.That(t, src.Close(context.Background()), test.ShouldBeNil)
}
