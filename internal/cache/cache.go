// Package cache provides thread-safe registries for simulation state
package cache

import (
	"sync"
)

// InstanceRegistry maps spawned model instance names to their spawn record IDs
type InstanceRegistry struct {
	mu        sync.RWMutex
	instances map[string]uint
}

// NewInstanceRegistry creates an empty registry
func NewInstanceRegistry() *InstanceRegistry {
	return &InstanceRegistry{
		instances: make(map[string]uint),
	}
}

// Get returns the spawn record ID for an instance name
func (r *InstanceRegistry) Get(name string) (uint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.instances[name]
	return id, ok
}

// Set registers an instance name with its spawn record ID
func (r *InstanceRegistry) Set(name string, id uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[name] = id
}

// Delete removes an instance from the registry
func (r *InstanceRegistry) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, name)
}

// Len returns the number of registered instances
func (r *InstanceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

// Reset clears the registry for a new session
func (r *InstanceRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances = make(map[string]uint)
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v = v
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v++
}
