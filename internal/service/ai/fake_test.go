package ai

import (
	"errors"
	"sync"
)

// fakeNet returns a canned output and records the inputs it was given.
type fakeNet struct {
	mu     sync.Mutex
	out    Tensor
	err    error
	inputs []Tensor
	closed bool
}

func (f *fakeNet) Forward(input Tensor) (Tensor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return Tensor{}, f.err
	}
	return f.out, nil
}

func (f *fakeNet) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("already closed")
	}
	f.closed = true
	return nil
}

// yoloOutput lays candidates out as a [1, 4+nc, N] head. Each candidate is
// cx, cy, w, h followed by one score per class.
func yoloOutput(candidates ...[]float32) Tensor {
	attrs := len(candidates[0])
	n := len(candidates)
	data := make([]float32, attrs*n)
	for i, c := range candidates {
		for a, v := range c {
			data[a*n+i] = v
		}
	}
	return Tensor{Shape: []int{1, attrs, n}, Data: data}
}
