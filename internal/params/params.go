// Package params exposes the externally-owned parameter store that operators
// use to toggle fault flags. The extension only ever reads it; a missing key
// reads as false.
package params

import (
	"sync"

	"github.com/spf13/viper"
)

// Store is a read-only view of boolean parameters keyed by full path,
// e.g. "faults/ant_pan_effort_failure".
type Store interface {
	GetBool(key string) bool
}

// ViperStore reads flags from the process-wide viper configuration, which the
// host refreshes from the shared parameter server.
type ViperStore struct{}

// GetBool returns the flag value, false when unset.
func (ViperStore) GetBool(key string) bool {
	return viper.GetBool(key)
}

// MapStore is a mutable in-memory Store for tests and the dry-run mode.
type MapStore struct {
	mu    sync.RWMutex
	flags map[string]bool
}

// NewMapStore creates an empty MapStore.
func NewMapStore() *MapStore {
	return &MapStore{flags: make(map[string]bool)}
}

// Set sets a flag value.
func (s *MapStore) Set(key string, value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[key] = value
}

// GetBool returns the flag value, false when unset.
func (s *MapStore) GetBool(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[key]
}

var (
	_ Store = ViperStore{}
	_ Store = (*MapStore)(nil)
)
