package ai

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Tensor is a dense float32 array in row-major order.
type Tensor struct {
	Shape []int
	Data  []float32
}

// Len returns the number of elements the shape describes.
func (t Tensor) Len() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Validate checks that Data matches Shape.
func (t Tensor) Validate() error {
	if len(t.Shape) == 0 {
		return fmt.Errorf("tensor has no shape")
	}
	for _, d := range t.Shape {
		if d <= 0 {
			return fmt.Errorf("tensor shape %v has a non-positive dimension", t.Shape)
		}
	}
	if t.Len() != len(t.Data) {
		return fmt.Errorf("tensor shape %v needs %d values, got %d", t.Shape, t.Len(), len(t.Data))
	}
	return nil
}

// Preprocess resizes img to width x height and returns a [1,3,H,W] tensor of
// RGB values scaled to [0,1].
func Preprocess(img image.Image, width, height int) Tensor {
	resized := imaging.Resize(img, width, height, imaging.Linear)

	plane := width * height
	data := make([]float32, 3*plane)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := resized.PixOffset(x, y)
			idx := y*width + x
			data[idx] = float32(resized.Pix[i]) / 255.0
			data[idx+plane] = float32(resized.Pix[i+1]) / 255.0
			data[idx+2*plane] = float32(resized.Pix[i+2]) / 255.0
		}
	}

	return Tensor{Shape: []int{1, 3, height, width}, Data: data}
}

// NHWC converts a [N,C,H,W] tensor to [N,H,W,C].
func (t Tensor) NHWC() Tensor {
	if len(t.Shape) != 4 {
		return t
	}
	n, c, h, w := t.Shape[0], t.Shape[1], t.Shape[2], t.Shape[3]
	out := make([]float32, len(t.Data))
	for b := 0; b < n; b++ {
		for ch := 0; ch < c; ch++ {
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					src := ((b*c+ch)*h+y)*w + x
					dst := ((b*h+y)*w+x)*c + ch
					out[dst] = t.Data[src]
				}
			}
		}
	}
	return Tensor{Shape: []int{n, h, w, c}, Data: out}
}
