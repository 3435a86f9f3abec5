package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mikey/phish-shield/internal/core"
	"go.uber.org/zap"
)

// FileRepository persists the history as a JSON array in a single file
type FileRepository struct {
	path   string
	logger *zap.Logger
}

// NewFileRepository creates a file repository, creating the parent directory if needed
func NewFileRepository(path string, logger *zap.Logger) (*FileRepository, error) {
	if path == "" {
		return nil, fmt.Errorf("history file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &FileRepository{path: path, logger: logger}, nil
}

// Load reads the history file. A missing file is an empty history.
func (r *FileRepository) Load(ctx context.Context) ([]core.HistoryEntry, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var entries []core.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode history file %s: %w", r.path, err)
	}
	return entries, nil
}

// Save writes the snapshot to a temporary file and renames it over the history file
func (r *FileRepository) Save(ctx context.Context, entries []core.HistoryEntry) error {
	if entries == nil {
		entries = []core.HistoryEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".history-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary history file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary history file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}

	r.logger.Debug("History written", zap.String("path", r.path), zap.Int("entries", len(entries)))
	return nil
}

// Close is a no-op
func (r *FileRepository) Close() error {
	return nil
}
