package history

import (
	"context"
	"sync"

	"github.com/mikey/phish-shield/internal/core"
)

// MemoryRepository keeps the history snapshot in process memory only
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []core.HistoryEntry
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Load returns the stored snapshot
func (r *MemoryRepository) Load(ctx context.Context) ([]core.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.HistoryEntry, len(r.entries))
	copy(out, r.entries)
	return out, nil
}

// Save replaces the stored snapshot
func (r *MemoryRepository) Save(ctx context.Context, entries []core.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make([]core.HistoryEntry, len(entries))
	copy(r.entries, entries)
	return nil
}

// Close is a no-op
func (r *MemoryRepository) Close() error {
	return nil
}
