package frame

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/depthview/depthview/logging"
)

func TestHeaderValidity(t *testing.T) {
	test.That(t, Header{Width: 2, Height: 2, Valid: true}.IsValid(), test.ShouldBeTrue)
	test.That(t, Header{Width: 2, Height: 2}.IsValid(), test.ShouldBeFalse)
	test.That(t, Header{Width: 0, Height: 2, Valid: true}.IsValid(), test.ShouldBeFalse)
	test.That(t, Header{Width: 2, Height: 0, Valid: true}.IsValid(), test.ShouldBeFalse)
}

func TestFrameLookup(t *testing.T) {
	depth := &DepthFrame{Header: Header{Width: 2, Height: 1, Index: 4, Valid: true}, Data: []uint16{1, 2}}
	bodies := &BodyFrame{Header: Header{Width: 2, Height: 1}}
	f := New(4, time.Time{}, depth, nil, bodies)

	gotDepth, ok := f.Depth()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, gotDepth, test.ShouldEqual, depth)
	test.That(t, gotDepth.At(1, 0), test.ShouldEqual, uint16(2))

	gotBodies, ok := f.Bodies()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, gotBodies.IsValid(), test.ShouldBeFalse)

	_, ok = f.Color()
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = f.Hands()
	test.That(t, ok, test.ShouldBeFalse)

	kinds := []Kind{}
	for _, sub := range f.SubFrames() {
		kinds = append(kinds, sub.Kind())
	}
	test.That(t, kinds, test.ShouldResemble, []Kind{KindDepth, KindBody})

	replacement := &DepthFrame{Header: Header{Width: 1, Height: 1, Index: 5, Valid: true}, Data: []uint16{9}}
	f.Set(replacement)
	gotDepth, _ = f.Depth()
	test.That(t, gotDepth, test.ShouldEqual, replacement)

	var nilFrame *Frame
	_, ok = nilFrame.Depth()
	test.That(t, ok, test.ShouldBeFalse)
}

func TestBodyJointLookup(t *testing.T) {
	full := make([]Joint, NumJoints)
	for i := range full {
		full[i] = Joint{Type: JointType(i), Status: JointTracked, WorldPosition: r3.Vector{X: float64(i)}}
	}
	body := Body{Joints: full}
	j, ok := body.Joint(JointBaseSpine)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, j.WorldPosition.X, test.ShouldEqual, 9.0)

	// Only the first five slots.
	short := Body{Joints: full[:5]}
	_, ok = short.Joint(JointBaseSpine)
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = short.Joint(JointLeftHand)
	test.That(t, ok, test.ShouldBeTrue)

	// Out of order joints are still found by type.
	shuffled := Body{Joints: []Joint{full[JointLeftFoot], full[JointBaseSpine]}}
	j, ok = shuffled.Joint(JointLeftFoot)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, j.Type, test.ShouldEqual, JointLeftFoot)

	_, ok = body.Joint(JointType(-1))
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = body.Joint(JointType(NumJoints))
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = (&Body{}).Joint(JointHead)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestJointTypeNames(t *testing.T) {
	jt, ok := JointTypeFromString("left_foot")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, jt, test.ShouldEqual, JointLeftFoot)
	test.That(t, JointBaseSpine.String(), test.ShouldEqual, "base_spine")
	_, ok = JointTypeFromString("tail")
	test.That(t, ok, test.ShouldBeFalse)
}

type scriptedSource struct {
	frames   []*Frame
	released int
}

func (s *scriptedSource) NextFrame(ctx context.Context) (*Frame, func(), error) {
	if len(s.frames) == 0 {
		return nil, nil, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	if f == nil {
		return nil, nil, ErrNotReady
	}
	return f, func() { s.released++ }, nil
}

func (s *scriptedSource) Close(ctx context.Context) error {
	return nil
}

func TestReaderUpdate(t *testing.T) {
	logger := logging.NewTestLogger(t)
	src := &scriptedSource{frames: []*Frame{New(1, time.Time{}), nil, New(1, time.Time{}), New(2, time.Time{})}}
	reader := NewReader(src, logger)

	var order []string
	calls := 0
	first := &recordingListener{name: "first", order: &order, onFrame: func(f *Frame) {
		calls++
		// The frame is still held while listeners run.
		test.That(t, src.released, test.ShouldEqual, calls-1)
	}}
	second := &recordingListener{name: "second", order: &order}
	reader.AddListener(first)
	reader.AddListener(second)

	ctx := context.Background()
	delivered, err := reader.Update(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, delivered, test.ShouldBeTrue)
	test.That(t, order, test.ShouldResemble, []string{"first", "second"})
	test.That(t, src.released, test.ShouldEqual, 1)

	delivered, err = reader.Update(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, delivered, test.ShouldBeFalse)

	delivered, err = reader.Update(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, delivered, test.ShouldBeTrue)

	reader.RemoveListener(second)
	order = nil
	delivered, err = reader.Update(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, delivered, test.ShouldBeTrue)
	test.That(t, order, test.ShouldResemble, []string{"first"})

	_, err = reader.Update(ctx)
	test.That(t, err, test.ShouldEqual, io.EOF)

	stats := reader.Stats()
	test.That(t, stats.Delivered, test.ShouldEqual, int64(3))
	test.That(t, stats.NotReady, test.ShouldEqual, int64(1))
	test.That(t, stats.Duplicates, test.ShouldEqual, int64(1))
	test.That(t, stats.LastIndex, test.ShouldEqual, int64(2))
	test.That(t, src.released, test.ShouldEqual, 3)
}

type recordingListener struct {
	name    string
	order   *[]string
	onFrame func(f *Frame)
}

func (l *recordingListener) OnFrameReady(ctx context.Context, f *Frame) {
	*l.order = append(*l.order, l.name)
	if l.onFrame != nil {
		l.onFrame(f)
	}
}
