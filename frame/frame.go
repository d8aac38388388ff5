// Package frame defines the per-tick bundle of typed sensor sub-frames produced by a depth camera,
// the Source capability that produces them and a Reader that delivers them to listeners.
package frame

import (
	"time"
)

// Kind identifies the type of a sub-frame.
type Kind int

// The known sub-frame kinds, in dispatch order.
const (
	KindDepth Kind = iota
	KindColor
	KindInfrared16
	KindInfraredRGB
	KindHand
	KindBody
)

func (k Kind) String() string {
	switch k {
	case KindDepth:
		return "depth"
	case KindColor:
		return "color"
	case KindInfrared16:
		return "ir16"
	case KindInfraredRGB:
		return "ir_rgb"
	case KindHand:
		return "hand"
	case KindBody:
		return "body"
	default:
		return "unknown"
	}
}

// Header is carried by every sub-frame.
type Header struct {
	Width  int
	Height int
	// Index increases monotonically per stream.
	Index int64
	Valid bool
}

// FrameHeader returns the header itself; it lets every sub-frame expose its header through embedding.
func (h Header) FrameHeader() Header {
	return h
}

// IsValid reports whether the payload of the sub-frame may be read.
func (h Header) IsValid() bool {
	return h.Valid && h.Width > 0 && h.Height > 0
}

// Pixels returns Width*Height.
func (h Header) Pixels() int {
	return h.Width * h.Height
}

// A SubFrame is one of *DepthFrame, *ColorFrame, *InfraredFrame16, *InfraredFrameRGB, *HandFrame or
// *BodyFrame.
type SubFrame interface {
	Kind() Kind
	FrameHeader() Header
	IsValid() bool
}

// DepthFrame holds depth in millimetres, row major.
type DepthFrame struct {
	Header
	Data []uint16
}

// Kind returns KindDepth.
func (*DepthFrame) Kind() Kind { return KindDepth }

// At returns the depth at (x, y).
func (f *DepthFrame) At(x, y int) uint16 {
	return f.Data[y*f.Width+x]
}

// ColorFrame holds packed RGB888 pixels, row major.
type ColorFrame struct {
	Header
	Data []byte
}

// Kind returns KindColor.
func (*ColorFrame) Kind() Kind { return KindColor }

// InfraredFrame16 holds raw 16 bit infrared intensities.
type InfraredFrame16 struct {
	Header
	Data []uint16
}

// Kind returns KindInfrared16.
func (*InfraredFrame16) Kind() Kind { return KindInfrared16 }

// InfraredFrameRGB holds infrared already mapped to packed RGB888.
type InfraredFrameRGB struct {
	Header
	Data []byte
}

// Kind returns KindInfraredRGB.
func (*InfraredFrameRGB) Kind() Kind { return KindInfraredRGB }

// HandFrame holds the hand points tracked in this tick.
type HandFrame struct {
	Header
	Points []HandPoint
}

// Kind returns KindHand.
func (*HandFrame) Kind() Kind { return KindHand }

// BodyFrame holds the bodies tracked in this tick. BodyMask and FloorMask are Width*Height when present.
type BodyFrame struct {
	Header
	Bodies []Body

	// BodyMask holds the tracking id owning each pixel, 0 for none.
	BodyMask []uint8
	// FloorMask is non-zero where the pixel belongs to the floor.
	FloorMask []uint8

	FloorDetected bool
	FloorPlane    Plane
}

// Kind returns KindBody.
func (*BodyFrame) Kind() Kind { return KindBody }

// Plane is a*x + b*y + c*z + d = 0 in world space.
type Plane struct {
	A, B, C, D float64
}

// Frame is one tick's bundle of zero or more sub-frames. A Frame and everything it points to belongs to
// the Source until the release func returned with it is called; consumers copy what they keep.
type Frame struct {
	Index     int64
	Timestamp time.Time

	subFrames [KindBody + 1]SubFrame
}

// New returns a frame holding subs. A later sub-frame of the same kind replaces an earlier one.
func New(index int64, ts time.Time, subs ...SubFrame) *Frame {
	f := &Frame{Index: index, Timestamp: ts}
	for _, sub := range subs {
		f.Set(sub)
	}
	return f
}

// Set stores sub, replacing any sub-frame of the same kind. A nil sub is ignored.
func (f *Frame) Set(sub SubFrame) {
	if sub == nil {
		return
	}
	k := sub.Kind()
	if k < 0 || int(k) >= len(f.subFrames) {
		return
	}
	f.subFrames[k] = sub
}

// Get returns the sub-frame of kind k. The sub-frame may be invalid.
func (f *Frame) Get(k Kind) (SubFrame, bool) {
	if f == nil || k < 0 || int(k) >= len(f.subFrames) {
		return nil, false
	}
	sub := f.subFrames[k]
	return sub, sub != nil
}

// SubFrames returns the present sub-frames in kind order.
func (f *Frame) SubFrames() []SubFrame {
	if f == nil {
		return nil
	}
	subs := make([]SubFrame, 0, len(f.subFrames))
	for _, sub := range f.subFrames {
		if sub != nil {
			subs = append(subs, sub)
		}
	}
	return subs
}

// Lookup returns the sub-frame of type T, if present.
func Lookup[T SubFrame](f *Frame) (T, bool) {
	var zero T
	k := zero.Kind()
	sub, ok := f.Get(k)
	if !ok {
		return zero, false
	}
	typed, ok := sub.(T)
	return typed, ok
}

// Depth returns the depth sub-frame.
func (f *Frame) Depth() (*DepthFrame, bool) { return Lookup[*DepthFrame](f) }

// Color returns the color sub-frame.
func (f *Frame) Color() (*ColorFrame, bool) { return Lookup[*ColorFrame](f) }

// Infrared16 returns the 16 bit infrared sub-frame.
func (f *Frame) Infrared16() (*InfraredFrame16, bool) { return Lookup[*InfraredFrame16](f) }

// InfraredRGB returns the RGB infrared sub-frame.
func (f *Frame) InfraredRGB() (*InfraredFrameRGB, bool) { return Lookup[*InfraredFrameRGB](f) }

// Hands returns the hand sub-frame.
func (f *Frame) Hands() (*HandFrame, bool) { return Lookup[*HandFrame](f) }

// Bodies returns the body sub-frame.
func (f *Frame) Bodies() (*BodyFrame, bool) { return Lookup[*BodyFrame](f) }
