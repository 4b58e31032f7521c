package dashboard

import (
	"slices"
	"sync"
)

// Registry is the ordered set of device names currently connected.
type Registry struct {
	mu    sync.Mutex
	names []string
}

// Add registers name. It returns false if it was already present.
func (r *Registry) Add(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.names, name) {
		return false
	}
	r.names = append(r.names, name)
	return true
}

// Remove unregisters name.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = slices.DeleteFunc(r.names, func(n string) bool { return n == name })
}

// Clear unregisters every device.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = nil
}

// Names returns the registered devices in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.names)
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.names)
}
