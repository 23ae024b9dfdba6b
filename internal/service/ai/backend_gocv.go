//go:build gocv
// +build gocv

package ai

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"gocv.io/x/gocv"
)

type gocvNet struct {
	net gocv.Net
}

// openGoCV loads weights through OpenCV's dnn module. config is the optional
// second file some formats need (Caffe prototxt, TensorFlow pbtxt).
func openGoCV(weights, config string) (Net, error) {
	if _, err := os.Stat(weights); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", weights)
	}
	if config != "" {
		if _, err := os.Stat(config); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", config)
		}
	}

	net := gocv.ReadNet(weights, config)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network")
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	return &gocvNet{net: net}, nil
}

func (g *gocvNet) Forward(input Tensor) (Tensor, error) {
	if err := input.Validate(); err != nil {
		return Tensor{}, err
	}

	raw := make([]byte, 4*len(input.Data))
	for i, v := range input.Data {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	blob, err := gocv.NewMatWithSizesFromBytes(input.Shape, gocv.MatTypeCV32F, raw)
	if err != nil {
		return Tensor{}, fmt.Errorf("failed to build input blob: %w", err)
	}
	defer blob.Close()

	g.net.SetInput(blob, "")
	out := g.net.Forward("")
	defer out.Close()
	if out.Empty() {
		return Tensor{}, fmt.Errorf("network returned an empty output")
	}

	data, err := out.DataPtrFloat32()
	if err != nil {
		return Tensor{}, fmt.Errorf("failed to read network output: %w", err)
	}
	result := Tensor{
		Shape: append([]int(nil), out.Size()...),
		Data:  append([]float32(nil), data...),
	}
	return result, result.Validate()
}

func (g *gocvNet) Close() error {
	return g.net.Close()
}
