//go:build onnx
// +build onnx

package ai

import (
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var ortInit sync.Mutex

func initializeONNXEnvironment(runtimeLib string) error {
	ortInit.Lock()
	defer ortInit.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if runtimeLib != "" {
		if _, err := os.Stat(runtimeLib); err != nil {
			return fmt.Errorf("onnx runtime library: %w", err)
		}
		ort.SetSharedLibraryPath(runtimeLib)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("init onnx: %w", err)
	}
	return nil
}

type onnxNet struct {
	session *ort.DynamicAdvancedSession
	input   ort.InputOutputInfo
	nhwc    bool
}

func openONNX(runtimeLib, weights string) (Net, error) {
	if _, err := os.Stat(weights); err != nil {
		return nil, err
	}
	if err := initializeONNXEnvironment(runtimeLib); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(weights)
	if err != nil {
		return nil, fmt.Errorf("model io info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, fmt.Errorf("expected one input and at least one output, got %d/%d", len(inputs), len(outputs))
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session opts: %w", err)
	}
	defer opts.Destroy()

	sess, err := ort.NewDynamicAdvancedSession(weights, []string{inputs[0].Name}, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	dims := inputs[0].Dimensions
	nhwc := len(dims) == 4 && dims[3] == 3 && dims[1] != 3
	return &onnxNet{session: sess, input: inputs[0], nhwc: nhwc}, nil
}

func (o *onnxNet) Forward(input Tensor) (Tensor, error) {
	if err := input.Validate(); err != nil {
		return Tensor{}, err
	}
	if o.nhwc {
		input = input.NHWC()
	}

	dims := make([]int64, len(input.Shape))
	for i, d := range input.Shape {
		dims[i] = int64(d)
	}
	in, err := ort.NewTensor(ort.NewShape(dims...), input.Data)
	if err != nil {
		return Tensor{}, fmt.Errorf("tensor: %w", err)
	}
	defer in.Destroy()

	outputs := []ort.Value{nil}
	if err := o.session.Run([]ort.Value{in}, outputs); err != nil {
		return Tensor{}, fmt.Errorf("run: %w", err)
	}
	defer func() {
		for _, v := range outputs {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	t, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return Tensor{}, fmt.Errorf("unexpected output type %T", outputs[0])
	}
	shape := t.GetShape()
	out := Tensor{Shape: make([]int, len(shape)), Data: append([]float32(nil), t.GetData()...)}
	for i, d := range shape {
		out.Shape[i] = int(d)
	}
	return out, out.Validate()
}

func (o *onnxNet) Close() error {
	return o.session.Destroy()
}
