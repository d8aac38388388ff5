// Package render draws the dispatch views with skeleton, hand and status overlays, and writes the
// result to image files.
package render

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

var font *truetype.Font

// init sets up the fonts we want to use.
func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Font returns the font we use for drawing.
func Font() *truetype.Font {
	return font
}

// DrawString writes a string to the given context at a particular point.
func DrawString(dc *gg.Context, text string, p image.Point, c color.Color, size float64) {
	dc.SetFontFace(truetype.NewFace(Font(), &truetype.Options{Size: size}))
	dc.SetColor(c)
	dc.DrawStringWrapped(text, float64(p.X), float64(p.Y), 0, 0, float64(dc.Width()), 1, 0)
}

// DrawShadowedString writes text in c over a black copy offset by shadow pixels.
func DrawShadowedString(dc *gg.Context, text string, p image.Point, c color.Color, size float64, shadow int) {
	DrawString(dc, text, p.Add(image.Pt(shadow, shadow)), color.Black, size)
	DrawString(dc, text, p, c, size)
}

// DrawLine strokes a line of the given width.
func DrawLine(dc *gg.Context, from, to gg.Point, c color.Color, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.DrawLine(from.X, from.Y, to.X, to.Y)
	dc.Stroke()
}

// DrawDisc fills a circle.
func DrawDisc(dc *gg.Context, center gg.Point, radius float64, c color.Color) {
	dc.SetColor(c)
	dc.DrawCircle(center.X, center.Y, radius)
	dc.Fill()
}
