package model

import (
	"fmt"
	"image"
)

// Box is a bounding box in pixel coordinates of the bitmap it was detected on.
type Box struct {
	XMin int `json:"x_min"`
	YMin int `json:"y_min"`
	XMax int `json:"x_max"`
	YMax int `json:"y_max"`
}

// Rect returns the box as an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.XMin, b.YMin, b.XMax, b.YMax)
}

// Width returns the horizontal extent of the box.
func (b Box) Width() int { return b.XMax - b.XMin }

// Height returns the vertical extent of the box.
func (b Box) Height() int { return b.YMax - b.YMin }

// Within reports whether the box is non-empty and lies inside [0,width]x[0,height].
func (b Box) Within(width, height int) bool {
	return b.XMin >= 0 && b.YMin >= 0 &&
		b.XMin < b.XMax && b.YMin < b.YMax &&
		b.XMax <= width && b.YMax <= height
}

// Detection is one object found by the detector. Never mutated after creation.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
	Color      string  `json:"color"`
}

// Caption is the text drawn next to the box, e.g. "Cheetah (0.95)".
func (d Detection) Caption() string {
	return fmt.Sprintf("%s (%.2f)", d.Label, d.Confidence)
}

// Percent formats the confidence for the detection list, e.g. "95.0%".
func (d Detection) Percent() string {
	return fmt.Sprintf("%.1f%%", d.Confidence*100)
}

// Classification is the single label predicted for a whole image.
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Percent formats the confidence, e.g. "80.0%".
func (c Classification) Percent() string {
	return fmt.Sprintf("%.1f%%", c.Confidence*100)
}
