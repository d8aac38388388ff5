package streamview

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"github.com/depthview/depthview/frame"
)

var (
	transparent = color.RGBA{}
	floorColor  = color.RGBA{0, 0, 0xFF, 0x88}
)

// bodyPalette is indexed by body id mod 24.
var bodyPalette = [24]color.RGBA{
	{0x00, 0x88, 0x00, 0xFF},
	{0x00, 0x00, 0xFF, 0xFF},
	{0x88, 0x00, 0x00, 0xFF},
	{0x00, 0xFF, 0x00, 0xFF},
	{0x00, 0x00, 0x88, 0xFF},
	{0xFF, 0x00, 0x00, 0xFF},
	{0xFF, 0x88, 0x00, 0xFF},
	{0xFF, 0x00, 0xFF, 0xFF},
	{0x88, 0x00, 0xFF, 0xFF},
	{0x00, 0xFF, 0xFF, 0xFF},
	{0x00, 0xFF, 0x88, 0xFF},
	{0xFF, 0xFF, 0x00, 0xFF},
	{0x00, 0x88, 0x88, 0xFF},
	{0x00, 0x88, 0xFF, 0xFF},
	{0x88, 0x88, 0x00, 0xFF},
	{0x88, 0xFF, 0x00, 0xFF},
	{0x88, 0x00, 0x88, 0xFF},
	{0xFF, 0x00, 0x88, 0xFF},
	{0xFF, 0x88, 0x88, 0xFF},
	{0xFF, 0x88, 0xFF, 0xFF},
	{0x88, 0x88, 0xFF, 0xFF},
	{0x88, 0xFF, 0xFF, 0xFF},
	{0x88, 0xFF, 0x88, 0xFF},
	{0xFF, 0xFF, 0x88, 0xFF},
}

// BodyColor returns the overlay color of a body id. Id 0 means no body and is transparent.
func BodyColor(id uint8) color.RGBA {
	if id == 0 {
		return transparent
	}
	return bodyPalette[int(id)%len(bodyPalette)]
}

func checkPayload(kind frame.Kind, header frame.Header, have, perPixel int) error {
	if want := header.Pixels() * perPixel; have < want {
		return errors.Errorf("%s payload holds %d values, need %d for %dx%d", kind, have, want, header.Width, header.Height)
	}
	return nil
}

// DepthGray paints depth as a grayscale ramp of depth mod 255.
func DepthGray(v *View, f *frame.DepthFrame) error {
	if err := checkPayload(frame.KindDepth, f.Header, len(f.Data), 1); err != nil {
		return err
	}
	v.EnsureCapacity(f.Width, f.Height)
	for i := 0; i < f.Pixels(); i++ {
		g := uint8(f.Data[i] % 255)
		v.WritePixel(i, color.RGBA{g, g, g, 0xFF})
	}
	return nil
}

// DepthPretty paints depth with a hue ramp from 30 to 230 degrees between the frame's min and max
// depth, clamped to [hardMin, hardMax]. Zero depth is transparent.
func DepthPretty(v *View, f *frame.DepthFrame, hardMin, hardMax uint16) error {
	if err := checkPayload(frame.KindDepth, f.Header, len(f.Data), 1); err != nil {
		return err
	}
	v.EnsureCapacity(f.Width, f.Height)

	lo, hi := uint16(math.MaxUint16), uint16(0)
	for _, z := range f.Data[:f.Pixels()] {
		if z == 0 {
			continue
		}
		lo = min(lo, z)
		hi = max(hi, z)
	}
	lo = max(lo, hardMin)
	if hardMax > 0 {
		hi = min(hi, hardMax)
	}
	span := float64(hi) - float64(lo)

	for i := 0; i < f.Pixels(); i++ {
		z := f.Data[i]
		if z == 0 {
			v.WritePixel(i, transparent)
			continue
		}
		z = min(max(z, lo), hi)
		ratio := 0.0
		if span > 0 {
			ratio = (float64(z) - float64(lo)) / span
		}
		r, g, b := colorful.Hsv(30+200*ratio, 1, 1).RGB255()
		v.WritePixel(i, color.RGBA{r, g, b, 0xFF})
	}
	return nil
}

// RGB copies packed RGB888 pixels, used for color and infrared-as-RGB streams.
func RGB(v *View, kind frame.Kind, header frame.Header, data []byte) error {
	if err := checkPayload(kind, header, len(data), 3); err != nil {
		return err
	}
	v.EnsureCapacity(header.Width, header.Height)
	for i := 0; i < header.Pixels(); i++ {
		v.WritePixel(i, color.RGBA{data[i*3], data[i*3+1], data[i*3+2], 0xFF})
	}
	return nil
}

// Color paints a color sub-frame.
func Color(v *View, f *frame.ColorFrame) error {
	return RGB(v, frame.KindColor, f.Header, f.Data)
}

// InfraredRGB paints an infrared sub-frame that is already RGB.
func InfraredRGB(v *View, f *frame.InfraredFrameRGB) error {
	return RGB(v, frame.KindInfraredRGB, f.Header, f.Data)
}

// IR16Color returns the false color of a 16 bit infrared sample.
func IR16Color(sample uint16) color.RGBA {
	r := uint8(sample >> 2)
	return color.RGBA{r, 0, 0x66 - r/2, 0xFF}
}

// Infrared16 paints 16 bit infrared as false color.
func Infrared16(v *View, f *frame.InfraredFrame16) error {
	if err := checkPayload(frame.KindInfrared16, f.Header, len(f.Data), 1); err != nil {
		return err
	}
	v.EnsureCapacity(f.Width, f.Height)
	for i := 0; i < f.Pixels(); i++ {
		v.WritePixel(i, IR16Color(f.Data[i]))
	}
	return nil
}

// BodyOverlay paints the body mask in palette colors and the floor mask in translucent blue. Pixels
// owned by neither are transparent. A frame without masks clears the view.
func BodyOverlay(v *View, f *frame.BodyFrame) error {
	n := f.Pixels()
	hasBodyMask := len(f.BodyMask) > 0
	hasFloorMask := len(f.FloorMask) > 0
	if hasBodyMask {
		if err := checkPayload(frame.KindBody, f.Header, len(f.BodyMask), 1); err != nil {
			return errors.Wrap(err, "body mask")
		}
	}
	if hasFloorMask {
		if err := checkPayload(frame.KindBody, f.Header, len(f.FloorMask), 1); err != nil {
			return errors.Wrap(err, "floor mask")
		}
	}
	v.EnsureCapacity(f.Width, f.Height)
	for i := 0; i < n; i++ {
		c := transparent
		switch {
		case hasBodyMask && f.BodyMask[i] != 0:
			c = BodyColor(f.BodyMask[i])
		case hasFloorMask && f.FloorMask[i] != 0:
			c = floorColor
		}
		v.WritePixel(i, c)
	}
	return nil
}
