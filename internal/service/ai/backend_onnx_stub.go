//go:build !onnx
// +build !onnx

package ai

import "errors"

// openONNX fails when the binary is built without onnxruntime support.
func openONNX(_, _ string) (Net, error) {
	return nil, errors.New("onnx build tag is not enabled")
}
