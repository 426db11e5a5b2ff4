package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/spam-classifier/internal/artifact"
	"github.com/mikey/spam-classifier/internal/config"
	"go.uber.org/zap"
)

// StoreFactory creates model artifact stores based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore creates the artifact store named by model.store
func (f *StoreFactory) CreateStore() (artifact.Store, error) {
	modelCfg := f.cfg.GetModel()

	switch modelCfg.Store {
	case "file", "":
		return artifact.NewFileStore(modelCfg.Dir, f.logger), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(modelCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return artifact.NewSQLiteStore(modelCfg.SQLitePath, f.logger)
	case "mysql":
		return artifact.NewMySQLStore(modelCfg.MySQLDSN, f.logger)
	case "postgres":
		return artifact.NewPostgresStore(modelCfg.PostgresDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported model store: %s", modelCfg.Store)
	}
}
