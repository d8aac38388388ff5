// Package streamview holds the display-ready RGBA buffer of one stream and the colorizers that fill
// it from sub-frames.
package streamview

import (
	"image"
	"image/color"
)

// BytesPerPixel of every view buffer (RGBA).
const BytesPerPixel = 4

// View mirrors the latest sub-frame of a stream as RGBA. The buffer is reallocated only when the
// dimensions change; otherwise each frame repaints it in place.
type View struct {
	name          string
	width, height int
	buf           []byte

	// generation is bumped on every reallocation so holders of derived resources (textures,
	// encoded snapshots) know to rebuild them.
	generation uint64
}

// New returns an empty view.
func New(name string) *View {
	return &View{name: name}
}

// Name returns the stream name of the view.
func (v *View) Name() string {
	return v.name
}

// EnsureCapacity makes the buffer hold width*height pixels. It reports whether a fresh zero-filled
// buffer was allocated, which happens iff the dimensions differ from the previous call.
func (v *View) EnsureCapacity(width, height int) bool {
	if v.buf != nil && width == v.width && height == v.height {
		return false
	}
	v.width, v.height = width, height
	v.buf = make([]byte, width*height*BytesPerPixel)
	v.generation++
	return true
}

// WritePixel overwrites pixel i. i must be below width*height.
func (v *View) WritePixel(i int, c color.RGBA) {
	off := i * BytesPerPixel
	v.buf[off] = c.R
	v.buf[off+1] = c.G
	v.buf[off+2] = c.B
	v.buf[off+3] = c.A
}

// Pixel returns pixel i.
func (v *View) Pixel(i int) color.RGBA {
	off := i * BytesPerPixel
	return color.RGBA{v.buf[off], v.buf[off+1], v.buf[off+2], v.buf[off+3]}
}

// Clear zeroes the buffer without reallocating it.
func (v *View) Clear() {
	clear(v.buf)
}

// Width of the current buffer.
func (v *View) Width() int { return v.width }

// Height of the current buffer.
func (v *View) Height() int { return v.height }

// Buffer returns the backing bytes. They are overwritten by the next frame.
func (v *View) Buffer() []byte { return v.buf }

// Generation returns the allocation counter.
func (v *View) Generation() uint64 { return v.generation }

// Image wraps the buffer without copying. Returns nil before the first allocation.
func (v *View) Image() *image.RGBA {
	if v.buf == nil {
		return nil
	}
	return &image.RGBA{
		Pix:    v.buf,
		Stride: v.width * BytesPerPixel,
		Rect:   image.Rect(0, 0, v.width, v.height),
	}
}

// Snapshot returns a copy of the buffer as an image the caller may keep.
func (v *View) Snapshot() *image.RGBA {
	img := v.Image()
	if img == nil {
		return nil
	}
	pix := make([]byte, len(img.Pix))
	copy(pix, img.Pix)
	img.Pix = pix
	return img
}
