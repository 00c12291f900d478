package account

import (
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the PostgreSQL DDL for the security_records table.
//
//go:embed schema.sql
var Schema string

// RepositoryConfig contains configuration for creating a record repository
type RepositoryConfig struct {
	// Pool is required for PostgreSQL repositories
	Pool *pgxpool.Pool
	// DataDir is required for file-based repositories
	DataDir string
}

// NewRepository creates a new record repository based on the persistence type
func NewRepository(persistenceType string, config RepositoryConfig) (Repository, error) {
	switch persistenceType {
	case "postgres", "postgresql":
		if config.Pool == nil {
			return nil, fmt.Errorf("pool required for postgres repository")
		}
		return NewPostgresRepository(config.Pool), nil
	case "file":
		if config.DataDir == "" {
			return nil, fmt.Errorf("dataDir required for file repository")
		}
		return NewFileRepository(config.DataDir)
	case "memory", "inmem":
		return NewInMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, file, memory)", persistenceType)
	}
}
