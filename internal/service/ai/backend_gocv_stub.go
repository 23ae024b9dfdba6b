//go:build !gocv
// +build !gocv

package ai

import "errors"

// openGoCV fails when the binary is built without OpenCV.
func openGoCV(_, _ string) (Net, error) {
	return nil, errors.New("gocv build tag is not enabled")
}
