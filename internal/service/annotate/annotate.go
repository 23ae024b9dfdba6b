package annotate

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"visiondash/internal/model"
)

const (
	// StrokeWidth is the box outline thickness, drawn inside the box.
	StrokeWidth = 3

	labelPadX = 4
	labelPadY = 2
)

var face = basicfont.Face7x13

// Annotate returns a copy of src with a rectangle and a caption drawn for
// every detection. src is never modified.
func Annotate(src *image.RGBA, detections []model.Detection) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)

	for _, d := range detections {
		c := ParseColor(d.Color)
		drawBox(dst, d.Box.Rect().Add(src.Bounds().Min), c)
		drawLabel(dst, d.Box, d.Caption(), c)
	}
	return dst
}

// LabelSize returns the pixel size of the filled block behind text.
func LabelSize(text string) (int, int) {
	width := font.MeasureString(face, text).Ceil() + 2*labelPadX
	height := face.Metrics().Height.Ceil() + 2*labelPadY
	return width, height
}

// LabelRect is where the caption block for box goes: directly above its
// top-left corner, or at y=0 when there is no room above.
func LabelRect(box model.Box, text string) image.Rectangle {
	w, h := LabelSize(text)
	top := box.YMin - h
	if top < 0 {
		top = 0
	}
	return image.Rect(box.XMin, top, box.XMin+w, top+h)
}

func drawBox(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	fill := image.NewUniform(c)
	stroke := StrokeWidth
	if r.Dx() < 2*stroke || r.Dy() < 2*stroke {
		draw.Draw(dst, r, fill, image.Point{}, draw.Src)
		return
	}

	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+stroke),
		image.Rect(r.Min.X, r.Max.Y-stroke, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+stroke, r.Max.Y),
		image.Rect(r.Max.X-stroke, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), fill, image.Point{}, draw.Src)
	}
}

func drawLabel(dst *image.RGBA, box model.Box, text string, c color.RGBA) {
	r := LabelRect(box, text).Add(dst.Bounds().Min)
	draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(TextColor(c)),
		Face: face,
		Dot:  fixed.P(r.Min.X+labelPadX, r.Min.Y+labelPadY+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}
