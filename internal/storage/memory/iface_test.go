// internal/storage/memory/iface_test.go
//
// These compile-time interface checks live in an external test package to
// avoid an import cycle: internal/storage imports this package from its
// backend factory.
package memory_test

import (
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/storage"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/storage/memory"
)

// Verify Backend implements storage.Backend interface
var _ storage.Backend = (*memory.Backend)(nil)

// Verify Backend implements storage.Uploadable interface
var _ storage.Uploadable = (*memory.Backend)(nil)
