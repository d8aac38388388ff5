package replay

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"github.com/depthview/depthview/frame"
	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/resource"
	"github.com/depthview/depthview/ros"
)

func message(t *testing.T, secs, nsecs int64, data interface{}) ros.Message {
	t.Helper()
	raw, err := json.Marshal(data)
	test.That(t, err, test.ShouldBeNil)
	return ros.Message{Meta: ros.Stamp{Secs: secs, Nsecs: nsecs}, Data: raw}
}

func depthImage(value byte) ros.ImageMessage {
	return ros.ImageMessage{Width: 2, Height: 1, Encoding: ros.Encoding16UC1, Data: []byte{value, 0, value, 0}}
}

func session(t *testing.T) map[string][]ros.Message {
	bodies := ros.BodiesMessage{Width: 2, Height: 1, Bodies: []ros.BodyMessage{{
		ID:     1,
		Joints: []ros.JointMessage{{Type: "base_spine", Status: "tracked", WorldPosition: ros.Vector3{Z: 2000}}},
	}}}
	return map[string][]ros.Message{
		DefaultDepthTopic: {
			message(t, 100, 0, depthImage(10)),
			message(t, 100, 500_000_000, depthImage(20)),
			message(t, 101, 0, depthImage(30)),
		},
		DefaultBodyTopic: {message(t, 100, 0, bodies)},
		"/camera/color/image_raw": {
			message(t, 100, 0, ros.ImageMessage{Width: 1, Height: 1, Encoding: ros.EncodingRGB8, Data: []byte{1, 2, 3}}),
		},
	}
}

func TestReplay(t *testing.T) {
	ctx := context.Background()
	s, err := NewSourceFromMessages(&Config{ColorTopic: "/camera/color/image_raw"}, session(t), nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Len(), test.ShouldEqual, 3)

	f, release, err := s.NextFrame(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.Index, test.ShouldEqual, int64(1))
	test.That(t, f.Timestamp, test.ShouldResemble, time.Unix(100, 0))
	depth, ok := f.Depth()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, depth.Data, test.ShouldResemble, []uint16{10, 10})
	_, ok = f.Color()
	test.That(t, ok, test.ShouldBeTrue)
	bodies, ok := f.Bodies()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, bodies.Bodies[0].ID, test.ShouldEqual, 1)
	release()

	f, _, err = s.NextFrame(ctx)
	test.That(t, err, test.ShouldBeNil)
	_, ok = f.Bodies()
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = f.Color()
	test.That(t, ok, test.ShouldBeFalse)

	_, _, err = s.NextFrame(ctx)
	test.That(t, err, test.ShouldBeNil)
	_, _, err = s.NextFrame(ctx)
	test.That(t, err, test.ShouldEqual, io.EOF)

	test.That(t, s.Close(ctx), test.ShouldBeNil)
	_, _, err = s.NextFrame(ctx)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReplayRealTimeLoop(t *testing.T) {
	ctx := context.Background()
	mockClock := clock.NewMock()
	s, err := NewSourceFromMessages(&Config{RealTime: true, Loop: true}, session(t), mockClock, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	f, _, err := s.NextFrame(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.Index, test.ShouldEqual, int64(1))
	_, _, err = s.NextFrame(ctx)
	test.That(t, err, test.ShouldEqual, frame.ErrNotReady)

	mockClock.Add(500 * time.Millisecond)
	f, _, err = s.NextFrame(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.Index, test.ShouldEqual, int64(2))

	mockClock.Add(500 * time.Millisecond)
	f, _, err = s.NextFrame(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.Index, test.ShouldEqual, int64(3))

	// Looping restarts the pacing from the first frame.
	f, _, err = s.NextFrame(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.Index, test.ShouldEqual, int64(1))
}

func TestReplayErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	_, err := NewSourceFromMessages(&Config{}, map[string][]ros.Message{}, nil, logger)
	test.That(t, err, test.ShouldNotBeNil)

	msgs := session(t)
	msgs[DefaultDepthTopic][1] = message(t, 1, 0, ros.ImageMessage{Width: 2, Height: 1, Encoding: "jpeg"})
	_, err = NewSourceFromMessages(&Config{}, msgs, nil, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "message 1")

	// Body-only sessions are paced by their body messages.
	msgs = session(t)
	delete(msgs, DefaultDepthTopic)
	s, err := NewSourceFromMessages(&Config{}, msgs, nil, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Len(), test.ShouldEqual, 1)

	_, err = NewSource(&Config{Path: "/nonexistent.bag"}, nil, logger)
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, (&Config{}).Validate("source"), test.ShouldNotBeNil)
	test.That(t, resource.RegisteredModels(frame.API), test.ShouldContain, Model)
}
