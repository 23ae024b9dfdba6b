package ai

import (
	"math"

	"visiondash/internal/model"
)

// BoxF is a box in a continuous coordinate space (normalized, network-input
// pixels or bitmap pixels).
type BoxF struct {
	X1, Y1, X2, Y2 float64
}

// Rescale maps b from a fromW x fromH space into a toW x toH space.
func Rescale(b BoxF, fromW, fromH, toW, toH float64) BoxF {
	sx := toW / fromW
	sy := toH / fromH
	return BoxF{X1: b.X1 * sx, Y1: b.Y1 * sy, X2: b.X2 * sx, Y2: b.Y2 * sy}
}

// FromCenter builds a box from center/size form.
func FromCenter(cx, cy, w, h float64) BoxF {
	return BoxF{X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2}
}

// Pixels rounds and clamps b to [0,width]x[0,height]. It reports false when
// nothing with positive area is left.
func (b BoxF) Pixels(width, height int) (model.Box, bool) {
	box := model.Box{
		XMin: clampInt(int(math.Round(b.X1)), 0, width),
		YMin: clampInt(int(math.Round(b.Y1)), 0, height),
		XMax: clampInt(int(math.Round(b.X2)), 0, width),
		YMax: clampInt(int(math.Round(b.Y2)), 0, height),
	}
	return box, box.Within(width, height)
}

func (b BoxF) area() float64 {
	return math.Max(0, b.X2-b.X1) * math.Max(0, b.Y2-b.Y1)
}

// IoU is the intersection-over-union of two boxes.
func IoU(a, b BoxF) float64 {
	inter := BoxF{
		X1: math.Max(a.X1, b.X1),
		Y1: math.Max(a.Y1, b.Y1),
		X2: math.Min(a.X2, b.X2),
		Y2: math.Min(a.Y2, b.Y2),
	}.area()
	union := a.area() + b.area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
