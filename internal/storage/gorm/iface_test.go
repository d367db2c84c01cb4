// internal/storage/gorm/iface_test.go
//
// This compile-time interface check lives in an external test package to
// avoid an import cycle: internal/storage imports this package from its
// backend factory.
package gormstorage_test

import (
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/storage"
	gormstorage "github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/storage/gorm"
)

// Compile-time interface check
var _ storage.Backend = (*gormstorage.Backend)(nil)
