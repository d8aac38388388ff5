package streamview

import (
	"image/color"
	"testing"

	"go.viam.com/test"

	"github.com/depthview/depthview/frame"
)

func TestEnsureCapacity(t *testing.T) {
	v := New("depth")
	test.That(t, v.Image(), test.ShouldBeNil)

	sizes := [][2]int{{4, 3}, {4, 3}, {4, 3}, {8, 6}, {8, 6}, {4, 3}, {3, 4}}
	reallocs := 0
	for _, size := range sizes {
		if v.EnsureCapacity(size[0], size[1]) {
			reallocs++
		}
		test.That(t, len(v.Buffer()), test.ShouldEqual, size[0]*size[1]*BytesPerPixel)
		test.That(t, v.Width(), test.ShouldEqual, size[0])
		test.That(t, v.Height(), test.ShouldEqual, size[1])
	}
	// 4x3, 8x6, 4x3 and 3x4 each changed the dimensions.
	test.That(t, reallocs, test.ShouldEqual, 4)
	test.That(t, v.Generation(), test.ShouldEqual, uint64(4))
}

func TestEnsureCapacityKeepsBuffer(t *testing.T) {
	v := New("color")
	v.EnsureCapacity(2, 2)
	v.WritePixel(3, color.RGBA{1, 2, 3, 4})
	buf := v.Buffer()

	test.That(t, v.EnsureCapacity(2, 2), test.ShouldBeFalse)
	test.That(t, &v.Buffer()[0], test.ShouldEqual, &buf[0])
	test.That(t, v.Pixel(3), test.ShouldResemble, color.RGBA{1, 2, 3, 4})

	test.That(t, v.EnsureCapacity(1, 2), test.ShouldBeTrue)
	test.That(t, v.Pixel(1), test.ShouldResemble, color.RGBA{})

	snap := v.Snapshot()
	v.WritePixel(0, color.RGBA{9, 9, 9, 9})
	test.That(t, snap.RGBAAt(0, 0), test.ShouldResemble, color.RGBA{})
	test.That(t, v.Image().RGBAAt(0, 0), test.ShouldResemble, color.RGBA{9, 9, 9, 9})

	v.Clear()
	test.That(t, v.Pixel(0), test.ShouldResemble, color.RGBA{})
}

func header(w, h int) frame.Header {
	return frame.Header{Width: w, Height: h, Valid: true}
}

func TestDepthGray(t *testing.T) {
	v := New("depth")
	err := DepthGray(v, &frame.DepthFrame{Header: header(3, 1), Data: []uint16{0, 254, 1000}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v.Pixel(0), test.ShouldResemble, color.RGBA{0, 0, 0, 0xFF})
	test.That(t, v.Pixel(1), test.ShouldResemble, color.RGBA{254, 254, 254, 0xFF})
	// 1000 mod 255 = 235
	test.That(t, v.Pixel(2), test.ShouldResemble, color.RGBA{235, 235, 235, 0xFF})

	err = DepthGray(v, &frame.DepthFrame{Header: header(3, 2), Data: []uint16{1, 2}})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, v.Width(), test.ShouldEqual, 3)
	test.That(t, v.Height(), test.ShouldEqual, 1)
}

func TestDepthPretty(t *testing.T) {
	v := New("depth")
	err := DepthPretty(v, &frame.DepthFrame{Header: header(3, 1), Data: []uint16{0, 1000, 2000}}, 0, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v.Pixel(0), test.ShouldResemble, color.RGBA{})
	near, far := v.Pixel(1), v.Pixel(2)
	test.That(t, near.A, test.ShouldEqual, uint8(0xFF))
	test.That(t, far.A, test.ShouldEqual, uint8(0xFF))
	// hue 30 is orange, hue 230 is blue.
	test.That(t, near.R, test.ShouldEqual, uint8(255))
	test.That(t, far.B, test.ShouldEqual, uint8(255))
}

func TestRGBCopies(t *testing.T) {
	v := New("color")
	data := []byte{1, 2, 3, 4, 5, 6}
	test.That(t, Color(v, &frame.ColorFrame{Header: header(2, 1), Data: data}), test.ShouldBeNil)
	test.That(t, v.Pixel(0), test.ShouldResemble, color.RGBA{1, 2, 3, 0xFF})
	test.That(t, v.Pixel(1), test.ShouldResemble, color.RGBA{4, 5, 6, 0xFF})

	test.That(t, InfraredRGB(v, &frame.InfraredFrameRGB{Header: header(2, 1), Data: data[:5]}), test.ShouldNotBeNil)
}

func TestInfrared16(t *testing.T) {
	test.That(t, IR16Color(0), test.ShouldResemble, color.RGBA{0, 0, 0x66, 0xFF})
	// 400 >> 2 = 100, 0x66 - 50 = 52
	test.That(t, IR16Color(400), test.ShouldResemble, color.RGBA{100, 0, 52, 0xFF})

	v := New("ir")
	test.That(t, Infrared16(v, &frame.InfraredFrame16{Header: header(1, 1), Data: []uint16{400}}), test.ShouldBeNil)
	test.That(t, v.Pixel(0), test.ShouldResemble, color.RGBA{100, 0, 52, 0xFF})
}

func TestBodyOverlay(t *testing.T) {
	v := New("body")
	f := &frame.BodyFrame{
		Header:    header(4, 1),
		BodyMask:  []uint8{0, 1, 25, 0},
		FloorMask: []uint8{0, 1, 0, 1},
	}
	test.That(t, BodyOverlay(v, f), test.ShouldBeNil)
	test.That(t, v.Pixel(0), test.ShouldResemble, color.RGBA{})
	// A body pixel wins over the floor.
	test.That(t, v.Pixel(1), test.ShouldResemble, BodyColor(1))
	test.That(t, v.Pixel(2), test.ShouldResemble, BodyColor(1))
	test.That(t, v.Pixel(3), test.ShouldResemble, color.RGBA{0, 0, 0xFF, 0x88})
	test.That(t, BodyColor(0), test.ShouldResemble, color.RGBA{})
	test.That(t, BodyColor(24), test.ShouldResemble, color.RGBA{0x00, 0x88, 0x00, 0xFF})

	f.BodyMask = f.BodyMask[:2]
	test.That(t, BodyOverlay(v, f), test.ShouldNotBeNil)
}
