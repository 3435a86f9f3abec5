package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MaxHistoryEntries is the history capacity
const MaxHistoryEntries = 50

// HistoryStore is the bounded, newest-first log of past results. Writes are
// serialized and persisted in order through the repository.
type HistoryStore struct {
	mu      sync.Mutex
	entries []HistoryEntry
	repo    HistoryRepository
	logger  *zap.Logger
	now     func() time.Time
}

// NewHistoryStore creates a history store and loads the persisted entries once.
// Unreadable persisted data leaves the store empty.
func NewHistoryStore(ctx context.Context, repo HistoryRepository, logger *zap.Logger) *HistoryStore {
	s := &HistoryStore{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}

	if repo == nil {
		return s
	}

	entries, err := repo.Load(ctx)
	if err != nil {
		logger.Warn("Discarding unreadable history", zap.Error(err))
		return s
	}

	for _, e := range entries {
		if e.Result == nil {
			logger.Warn("Discarding history with empty entry")
			return s
		}
		if err := e.Result.Validate(); err != nil {
			logger.Warn("Discarding inconsistent history", zap.Error(err))
			return s
		}
	}
	if len(entries) > MaxHistoryEntries {
		entries = entries[:MaxHistoryEntries]
	}
	s.entries = entries

	logger.Debug("Loaded history", zap.Int("entries", len(entries)))
	return s
}

// Record prepends a result and truncates the history to its capacity
func (s *HistoryStore) Record(ctx context.Context, result *AnalysisResult) (HistoryEntry, error) {
	if result == nil {
		return HistoryEntry{}, fmt.Errorf("cannot record an empty result")
	}
	entry := HistoryEntry{
		RequestedAt: s.now().UTC(),
		Result:      result.Clone(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]HistoryEntry, 0, MaxHistoryEntries)
	entries = append(entries, entry)
	entries = append(entries, s.entries...)
	if len(entries) > MaxHistoryEntries {
		entries = entries[:MaxHistoryEntries]
	}
	s.entries = entries

	if err := s.persistLocked(ctx); err != nil {
		return cloneEntry(entry), err
	}
	return cloneEntry(entry), nil
}

// Clear empties the history
func (s *HistoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	return s.persistLocked(ctx)
}

// Restore returns the entry at index without modifying the history
func (s *HistoryStore) Restore(index int) (HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.entries) {
		return HistoryEntry{}, fmt.Errorf("%w: %d", ErrHistoryIndexOutOfRange, index)
	}
	return cloneEntry(s.entries[index]), nil
}

// List returns all entries, newest first
func (s *HistoryStore) List() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]HistoryEntry, len(s.entries))
	for i, e := range s.entries {
		out[i] = cloneEntry(e)
	}
	return out
}

// Len returns the number of entries
func (s *HistoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *HistoryStore) persistLocked(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	snapshot := make([]HistoryEntry, len(s.entries))
	copy(snapshot, s.entries)
	if err := s.repo.Save(ctx, snapshot); err != nil {
		s.logger.Error("Failed to persist history", zap.Error(err), zap.Int("entries", len(snapshot)))
		return fmt.Errorf("failed to persist history: %w", err)
	}
	return nil
}

func cloneEntry(e HistoryEntry) HistoryEntry {
	return HistoryEntry{RequestedAt: e.RequestedAt, Result: e.Result.Clone()}
}
