package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	mu      sync.Mutex
	loaded  []HistoryEntry
	loadErr error
	saveErr error
	saves   [][]HistoryEntry
}

func (r *fakeRepo) Load(ctx context.Context) ([]HistoryEntry, error) {
	return r.loaded, r.loadErr
}

func (r *fakeRepo) Save(ctx context.Context, entries []HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, entries)
	return r.saveErr
}

func (r *fakeRepo) Close() error { return nil }

func (r *fakeRepo) lastSave() []HistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saves) == 0 {
		return nil
	}
	return r.saves[len(r.saves)-1]
}

func resultWithScore(score float64, subject string) *AnalysisResult {
	return Assemble(&RawAnalysis{Score: NewRawScore(score), Subject: FlexString(subject)}, AssemblyMeta{Now: fixedNow})
}

func TestHistoryRecordNewestFirst(t *testing.T) {
	repo := &fakeRepo{}
	store := NewHistoryStore(context.Background(), repo, zap.NewNop())

	_, err := store.Record(context.Background(), resultWithScore(10, "first"))
	require.NoError(t, err)
	_, err = store.Record(context.Background(), resultWithScore(90, "second"))
	require.NoError(t, err)

	entries := store.List()
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Result.Subject)
	assert.Equal(t, "first", entries[1].Result.Subject)
	assert.Len(t, repo.lastSave(), 2)
}

func TestHistoryCapacity(t *testing.T) {
	store := NewHistoryStore(context.Background(), &fakeRepo{}, zap.NewNop())

	for i := 0; i < MaxHistoryEntries; i++ {
		_, err := store.Record(context.Background(), resultWithScore(1, fmt.Sprintf("mail-%d", i)))
		require.NoError(t, err)
	}
	assert.Equal(t, MaxHistoryEntries, store.Len())

	oldest, err := store.Restore(MaxHistoryEntries - 1)
	require.NoError(t, err)
	assert.Equal(t, "mail-0", oldest.Result.Subject)

	_, err = store.Record(context.Background(), resultWithScore(1, "mail-50"))
	require.NoError(t, err)

	assert.Equal(t, MaxHistoryEntries, store.Len())
	newest, err := store.Restore(0)
	require.NoError(t, err)
	assert.Equal(t, "mail-50", newest.Result.Subject)
	last, err := store.Restore(MaxHistoryEntries - 1)
	require.NoError(t, err)
	assert.Equal(t, "mail-1", last.Result.Subject)
}

func TestHistoryRestoreDoesNotMutate(t *testing.T) {
	store := NewHistoryStore(context.Background(), nil, zap.NewNop())
	_, err := store.Record(context.Background(), resultWithScore(50, "kept"))
	require.NoError(t, err)

	entry, err := store.Restore(0)
	require.NoError(t, err)
	entry.Result.Subject = "changed"
	entry.Result.Reasons = append(entry.Result.Reasons, "extra")

	again, err := store.Restore(0)
	require.NoError(t, err)
	assert.Equal(t, "kept", again.Result.Subject)
	assert.Empty(t, again.Result.Reasons)
	assert.Equal(t, 1, store.Len())

	_, err = store.Restore(1)
	assert.ErrorIs(t, err, ErrHistoryIndexOutOfRange)
	_, err = store.Restore(-1)
	assert.ErrorIs(t, err, ErrHistoryIndexOutOfRange)
}

func TestHistoryClear(t *testing.T) {
	repo := &fakeRepo{}
	store := NewHistoryStore(context.Background(), repo, zap.NewNop())
	_, err := store.Record(context.Background(), resultWithScore(50, "x"))
	require.NoError(t, err)

	require.NoError(t, store.Clear(context.Background()))
	assert.Equal(t, 0, store.Len())
	assert.Empty(t, repo.lastSave())
}

func TestHistoryLoadsPersistedEntries(t *testing.T) {
	repo := &fakeRepo{loaded: []HistoryEntry{
		{RequestedAt: fixedNow, Result: resultWithScore(85, "persisted")},
	}}
	store := NewHistoryStore(context.Background(), repo, zap.NewNop())

	require.Equal(t, 1, store.Len())
	entry, err := store.Restore(0)
	require.NoError(t, err)
	assert.Equal(t, RiskCritical, entry.Result.RiskLevel)
}

func TestHistoryCorruptDataStartsEmpty(t *testing.T) {
	tests := []struct {
		name string
		repo *fakeRepo
	}{
		{name: "load error", repo: &fakeRepo{loadErr: errors.New("unexpected end of JSON input")}},
		{name: "nil result", repo: &fakeRepo{loaded: []HistoryEntry{{RequestedAt: fixedNow}}}},
		{name: "level mismatch", repo: &fakeRepo{loaded: []HistoryEntry{
			{RequestedAt: fixedNow, Result: &AnalysisResult{Score: 95, RiskLevel: RiskSafe}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewHistoryStore(context.Background(), tt.repo, zap.NewNop())
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestHistoryPersistFailureKeepsEntry(t *testing.T) {
	repo := &fakeRepo{saveErr: errors.New("disk full")}
	store := NewHistoryStore(context.Background(), repo, zap.NewNop())

	_, err := store.Record(context.Background(), resultWithScore(50, "x"))
	assert.Error(t, err)
	assert.Equal(t, 1, store.Len())

	_, err = store.Record(context.Background(), nil)
	assert.Error(t, err)
}

func TestHistoryConcurrentRecord(t *testing.T) {
	repo := &fakeRepo{}
	store := NewHistoryStore(context.Background(), repo, zap.NewNop())
	store.now = func() time.Time { return fixedNow }

	var wg sync.WaitGroup
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Record(context.Background(), resultWithScore(float64(i), fmt.Sprintf("m-%d", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, MaxHistoryEntries, store.Len())
	assert.Len(t, repo.saves, 80)
	assert.Equal(t, store.List(), repo.lastSave())
}
