package ai

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"visiondash/internal/model"
	"visiondash/internal/service/storage"
)

// WeightExtensions lists weight formats accepted for uploaded detectors.
var WeightExtensions = []string{".onnx", ".pb", ".caffemodel", ".weights", ".t7", ".net", ".tflite"}

// Loader opens models through a backend and memoizes them in a Registry.
type Loader struct {
	registry *Registry
	open     Opener
}

// NewLoader creates a Loader for one backend.
func NewLoader(registry *Registry, open Opener) *Loader {
	return &Loader{registry: registry, open: open}
}

// Detector loads the detection model at weights together with its vocabulary.
func (l *Loader) Detector(weights, configPath, labelsPath string, cfg DetectorConfig) (*Detector, error) {
	abs, err := checkWeights(weights)
	if err != nil {
		return nil, &model.ModelUnavailableError{Model: "detection", Path: weights, Err: err}
	}

	labels, _, err := FindLabels(abs, labelsPath)
	if err != nil {
		return nil, &model.ModelUnavailableError{Model: "detection", Path: weights, Err: err}
	}

	net, err := l.registry.Load("detection:"+abs, func() (Net, error) {
		return l.open(abs, configPath)
	})
	if err != nil {
		return nil, &model.ModelUnavailableError{Model: "detection", Path: weights, Err: err}
	}

	return NewDetector(net, labels, cfg, filepath.Base(abs)), nil
}

// Classifier loads the classification model at weights together with its
// vocabulary.
func (l *Loader) Classifier(weights, labelsPath string, inputSize int) (*Classifier, error) {
	abs, err := checkWeights(weights)
	if err != nil {
		return nil, &model.ModelUnavailableError{Model: "classification", Path: weights, Err: err}
	}

	labels, _, err := FindLabels(abs, labelsPath)
	if err != nil {
		return nil, &model.ModelUnavailableError{Model: "classification", Path: weights, Err: err}
	}

	net, err := l.registry.Load("classification:"+abs, func() (Net, error) {
		return l.open(abs, "")
	})
	if err != nil {
		return nil, &model.ModelUnavailableError{Model: "classification", Path: weights, Err: err}
	}

	return NewClassifier(net, labels, inputSize, filepath.Base(abs)), nil
}

// DetectorFromBytes loads uploaded detection weights. The bytes go to a temp
// file in tempDir for the backend to read and the file is removed before
// returning. Identical uploads share one registry entry.
func (l *Loader) DetectorFromBytes(data []byte, filename, tempDir string, labels Labels, cfg DetectorConfig) (*Detector, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedWeights(ext) {
		return nil, &model.ModelUnavailableError{
			Model: "detection",
			Path:  filename,
			Err:   fmt.Errorf("unsupported weights format %q", ext),
		}
	}
	if len(data) == 0 {
		return nil, &model.ModelUnavailableError{Model: "detection", Path: filename, Err: errors.New("weights file is empty")}
	}
	if len(labels) == 0 {
		return nil, &model.ModelUnavailableError{Model: "detection", Path: filename, Err: errors.New("no label vocabulary for uploaded weights")}
	}

	sum := sha256.Sum256(data)
	key := "detection:sha256:" + hex.EncodeToString(sum[:])

	var net Net
	err := storage.WithTempFile(tempDir, ext, data, func(path string) error {
		var loadErr error
		net, loadErr = l.registry.Load(key, func() (Net, error) {
			return l.open(path, "")
		})
		return loadErr
	})
	if err != nil {
		return nil, &model.ModelUnavailableError{Model: "detection", Path: filename, Err: err}
	}

	return NewDetector(net, labels, cfg, filepath.Base(filename)), nil
}

func checkWeights(weights string) (string, error) {
	if weights == "" {
		return "", errors.New("no weights path configured")
	}
	abs, err := filepath.Abs(weights)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", weights)
	}
	return abs, nil
}

func allowedWeights(ext string) bool {
	for _, e := range WeightExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Keys lists the models held by the registry.
func (l *Loader) Keys() []string {
	return l.registry.Keys()
}
