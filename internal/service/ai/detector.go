package ai

import (
	"image"

	"visiondash/internal/model"
)

// DetectorConfig tunes decoding of a detector's raw output.
type DetectorConfig struct {
	InputSize int     // square network input, e.g. 640
	Threshold float64 // default confidence threshold
	IoU       float64 // overlap suppression for YOLO heads
}

// Detector wraps a loaded object-detection model.
type Detector struct {
	net    Net
	labels Labels
	cfg    DetectorConfig
	source string
}

// NewDetector builds a Detector around an already loaded Net.
func NewDetector(net Net, labels Labels, cfg DetectorConfig, source string) *Detector {
	return &Detector{net: net, labels: labels, cfg: cfg, source: source}
}

// Threshold is the default confidence threshold.
func (d *Detector) Threshold() float64 {
	return d.cfg.Threshold
}

// Labels returns the detector's vocabulary.
func (d *Detector) Labels() Labels {
	return d.labels
}

// Source names the weights the detector was loaded from.
func (d *Detector) Source() string {
	return d.source
}

// Detect runs the model on img and returns detections scoring at least
// threshold, in the model's native order, with boxes in img's pixel space.
// An image with nothing in it yields an empty, non-nil slice.
func (d *Detector) Detect(img *image.RGBA, threshold float64) ([]model.Detection, error) {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()

	input := Preprocess(img, d.cfg.InputSize, d.cfg.InputSize)
	out, err := d.net.Forward(input)
	if err != nil {
		return nil, &model.InferenceError{Model: "detection", Err: err}
	}

	cands, raw, err := decodeOutput(out, len(d.labels), d.cfg.InputSize, d.cfg.InputSize, width, height, threshold)
	if err != nil {
		return nil, &model.InferenceError{Model: "detection", Err: err}
	}
	if raw && d.cfg.IoU > 0 {
		cands = suppress(cands, d.cfg.IoU)
	}

	detections := make([]model.Detection, 0, len(cands))
	for _, c := range cands {
		box, ok := c.box.Pixels(width, height)
		if !ok {
			continue
		}
		detections = append(detections, model.Detection{
			Label:      d.labels.Name(c.class),
			Confidence: clamp01(c.score),
			Box:        box,
			Color:      ColorFor(c.class),
		})
	}
	return detections, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
