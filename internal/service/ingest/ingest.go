// Package ingest turns uploaded bytes into the RGBA bitmaps the rest of the
// pipeline works on.
package ingest

import (
	"bytes"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"visiondash/internal/model"
)

// MaxPixels bounds decoded image size.
const MaxPixels = 50_000_000

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Extensions lists the accepted upload extensions.
func Extensions() []string {
	return []string{".jpg", ".jpeg", ".png"}
}

// Allowed reports whether filename has an accepted extension.
func Allowed(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Decode decodes an uploaded JPEG or PNG into an opaque 8-bit RGBA bitmap
// anchored at (0,0). Palette, grayscale, 16-bit and translucent inputs are all
// converted; transparent areas are composited onto black.
func Decode(data []byte, filename string) (*image.RGBA, error) {
	if !Allowed(filename) {
		return nil, &model.DecodeError{Filename: filename, Reason: "unsupported file type, expected .jpg, .jpeg or .png"}
	}
	if len(data) == 0 {
		return nil, &model.DecodeError{Filename: filename, Reason: "file is empty"}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &model.DecodeError{Filename: filename, Reason: "malformed image data", Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &model.DecodeError{Filename: filename, Reason: "image has no pixels"}
	}
	if cfg.Width*cfg.Height > MaxPixels {
		return nil, &model.DecodeError{Filename: filename, Reason: "image is too large"}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &model.DecodeError{Filename: filename, Reason: "malformed image data", Err: err}
	}

	return ToRGBA(img), nil
}

// ToRGBA flattens any image onto an opaque black background.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	background := imaging.New(b.Dx(), b.Dy(), color.Black)
	flat := imaging.Overlay(background, img, image.Pt(0, 0), 1.0)

	// every pixel is opaque, so NRGBA and RGBA share the same bytes
	return &image.RGBA{
		Pix:    flat.Pix,
		Stride: flat.Stride,
		Rect:   image.Rect(0, 0, b.Dx(), b.Dy()),
	}
}

// Clone returns a deep copy of an RGBA bitmap.
func Clone(src *image.RGBA) *image.RGBA {
	dst := &image.RGBA{
		Pix:    make([]uint8, len(src.Pix)),
		Stride: src.Stride,
		Rect:   src.Rect,
	}
	copy(dst.Pix, src.Pix)
	return dst
}
