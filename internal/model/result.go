package model

import (
	"image"
	"time"
)

// Upload is an ingested image waiting to be processed.
type Upload struct {
	ID         string
	Filename   string
	Bitmap     *image.RGBA
	UploadedAt time.Time
}

// RunResult is everything one processing trigger produced. It is replaced
// wholesale on the next trigger; Annotated shows exactly Detections.
type RunResult struct {
	ID             string
	UploadID       string
	Filename       string
	Classification Classification
	Detections     []Detection
	Original       *image.RGBA
	Annotated      *image.RGBA
	Elapsed        time.Duration
	CreatedAt      time.Time
}

// Width of the processed bitmap.
func (r *RunResult) Width() int {
	if r == nil || r.Original == nil {
		return 0
	}
	return r.Original.Bounds().Dx()
}

// Height of the processed bitmap.
func (r *RunResult) Height() int {
	if r == nil || r.Original == nil {
		return 0
	}
	return r.Original.Bounds().Dy()
}
