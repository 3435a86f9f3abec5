package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/phish-shield/internal/adapters/history"
	"github.com/mikey/phish-shield/internal/config"
	"github.com/mikey/phish-shield/internal/core"
	"go.uber.org/zap"
)

// HistoryFactory creates history repositories based on configuration
type HistoryFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewHistoryFactory creates a new history factory
func NewHistoryFactory(cfg *config.Config, logger *zap.Logger) *HistoryFactory {
	return &HistoryFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateRepository creates the repository selected by history.type
func (f *HistoryFactory) CreateRepository(ctx context.Context) (core.HistoryRepository, error) {
	historyCfg := f.cfg.GetHistory()

	switch historyCfg.Type {
	case "memory":
		return history.NewMemoryRepository(), nil
	case "file":
		if err := ensureDir(historyCfg.FilePath); err != nil {
			return nil, err
		}
		return history.NewFileRepository(historyCfg.FilePath, f.logger)
	case "sqlite":
		if err := ensureDir(historyCfg.SQLitePath); err != nil {
			return nil, err
		}
		return history.NewSQLiteRepository(ctx, historyCfg.SQLitePath, f.logger)
	case "mysql":
		return history.NewMySQLRepository(ctx, historyCfg.MySQLDSN, f.logger)
	case "postgres":
		return history.NewPostgresRepository(ctx, historyCfg.PostgresDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported history type: %s", historyCfg.Type)
	}
}

// CreateStore creates a history store over the configured repository
func (f *HistoryFactory) CreateStore(ctx context.Context, repo core.HistoryRepository) *core.HistoryStore {
	return core.NewHistoryStore(ctx, repo, f.logger)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	return nil
}
