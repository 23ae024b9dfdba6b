package ai

import (
	"fmt"
	"image"
	"math"

	"visiondash/internal/model"
)

// Classifier wraps a loaded image-classification model.
type Classifier struct {
	net       Net
	labels    Labels
	inputSize int
	source    string
}

// NewClassifier builds a Classifier around an already loaded Net.
func NewClassifier(net Net, labels Labels, inputSize int, source string) *Classifier {
	return &Classifier{net: net, labels: labels, inputSize: inputSize, source: source}
}

// Labels returns the classifier's vocabulary.
func (c *Classifier) Labels() Labels {
	return c.labels
}

// Source names the weights the classifier was loaded from.
func (c *Classifier) Source() string {
	return c.source
}

// Classify resizes img to the model input, scales it to [0,1] and returns
// the most probable label.
func (c *Classifier) Classify(img *image.RGBA) (model.Classification, error) {
	input := Preprocess(img, c.inputSize, c.inputSize)
	out, err := c.net.Forward(input)
	if err != nil {
		return model.Classification{}, &model.InferenceError{Model: "classification", Err: err}
	}
	if len(out.Data) != len(c.labels) {
		return model.Classification{}, &model.InferenceError{
			Model: "classification",
			Err:   fmt.Errorf("model returned %d scores for a vocabulary of %d labels", len(out.Data), len(c.labels)),
		}
	}

	probs := Probabilities(out.Data)
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	if math.IsNaN(probs[best]) {
		return model.Classification{}, &model.InferenceError{Model: "classification", Err: fmt.Errorf("model returned NaN scores")}
	}

	return model.Classification{Label: c.labels[best], Confidence: clamp01(probs[best])}, nil
}

// Probabilities returns scores unchanged when they already form a probability
// distribution and their softmax otherwise.
func Probabilities(scores []float32) []float64 {
	probs := make([]float64, len(scores))
	sum := 0.0
	normalized := true
	for i, s := range scores {
		v := float64(s)
		probs[i] = v
		sum += v
		if v < 0 || v > 1 {
			normalized = false
		}
	}
	if normalized && math.Abs(sum-1) <= 1e-3 {
		return probs
	}

	maxScore := math.Inf(-1)
	for _, v := range probs {
		maxScore = math.Max(maxScore, v)
	}
	total := 0.0
	for i, v := range probs {
		probs[i] = math.Exp(v - maxScore)
		total += probs[i]
	}
	for i := range probs {
		probs[i] /= total
	}
	return probs
}
