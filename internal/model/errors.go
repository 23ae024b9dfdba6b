package model

import "fmt"

// DecodeError means uploaded bytes are not a supported image.
type DecodeError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("cannot decode %q: %s", e.Filename, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ModelUnavailableError means weights or the runtime needed to run a model
// could not be loaded.
type ModelUnavailableError struct {
	Model string // "detection" or "classification"
	Path  string
	Err   error
}

func (e *ModelUnavailableError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s model unavailable: %v", e.Model, e.Err)
	}
	return fmt.Sprintf("%s model unavailable (%s): %v", e.Model, e.Path, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

// InferenceError means a loaded model failed during a forward pass or
// produced output that cannot be interpreted.
type InferenceError struct {
	Model string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s inference failed: %v", e.Model, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }
