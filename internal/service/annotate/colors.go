package annotate

import (
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Fallback is used for display colors that cannot be parsed.
var Fallback = colornames.Red

// ParseColor resolves a CSS color name ("gold") or a #rrggbb value.
func ParseColor(name string) color.RGBA {
	name = strings.ToLower(strings.TrimSpace(name))
	if c, ok := colornames.Map[name]; ok {
		return c
	}
	if len(name) == 7 && name[0] == '#' {
		v, err := strconv.ParseUint(name[1:], 16, 32)
		if err == nil {
			return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
		}
	}
	return Fallback
}

// TextColor picks black or white, whichever reads better on bg.
func TextColor(bg color.RGBA) color.RGBA {
	luma := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if luma > 128 {
		return colornames.Black
	}
	return colornames.White
}
