package ai

import (
	"errors"
	"sort"
	"sync"
)

// Registry memoizes loaded models for the lifetime of the process. Each key is
// opened at most once; later calls get the same Net (or the same error).
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	mu     sync.Mutex
	loaded bool
	net    Net
	err    error
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

// Load returns the Net stored under key, calling open the first time only.
func (r *Registry) Load(key string, open func() (Net, error)) (Net, error) {
	r.mu.Lock()
	entry, ok := r.entries[key]
	if !ok {
		entry = &registryEntry{}
		r.entries[key] = entry
	}
	r.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if !entry.loaded {
		entry.loaded = true
		net, err := open()
		if err != nil {
			entry.err = err
		} else {
			entry.net = &lockedNet{net: net}
		}
	}
	return entry.net, entry.err
}

// Keys lists the keys that loaded successfully.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.entries))
	for k, e := range r.entries {
		e.mu.Lock()
		if e.net != nil {
			keys = append(keys, k)
		}
		e.mu.Unlock()
	}
	sort.Strings(keys)
	return keys
}

// Close releases every loaded Net.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for k, e := range r.entries {
		e.mu.Lock()
		if e.net != nil {
			if err := e.net.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		e.mu.Unlock()
		delete(r.entries, k)
	}
	return errors.Join(errs...)
}
