// internal/storage/factory.go
package storage

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/config"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/database"
	gormstorage "github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/storage/gorm"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/storage/memory"
	sqlitestorage "github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/storage/sqlite"
)

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, logger *slog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		db, err := database.GetPostgresDBStandalone()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return gormstorage.New(gormstorage.Dependencies{DB: db, Logger: logger}), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			DumpPath:     cfg.Sqlite.DumpPath,
			DumpInterval: time.Duration(cfg.Sqlite.DumpIntervalSec) * time.Second,
		}, logger)
	case "memory":
		return memory.New(cfg.Memory, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
