package ai

import (
	"fmt"
	"sync"

	"visiondash/internal/config"
)

// Net runs forward passes of one loaded model.
type Net interface {
	Forward(input Tensor) (Tensor, error)
	Close() error
}

// Opener loads a weights file (plus an optional second config file) into a Net.
type Opener func(weights, config string) (Net, error)

// NewOpener returns the loader for the named inference backend.
func NewOpener(backend, runtimeLib string) (Opener, error) {
	switch backend {
	case config.BackendGoCV:
		return openGoCV, nil
	case config.BackendONNX:
		return func(weights, _ string) (Net, error) {
			return openONNX(runtimeLib, weights)
		}, nil
	default:
		return nil, fmt.Errorf("unknown inference backend %q", backend)
	}
}

// lockedNet serializes forward passes; backend nets are not safe for
// concurrent use.
type lockedNet struct {
	mu  sync.Mutex
	net Net
}

func (l *lockedNet) Forward(input Tensor) (Tensor, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.net.Forward(input)
}

func (l *lockedNet) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.net.Close()
}
