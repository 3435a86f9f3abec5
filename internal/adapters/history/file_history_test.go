package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/phish-shield/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileRepositoryMissingFileIsEmpty(t *testing.T) {
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "nested", "history.json"), zap.NewNop())
	require.NoError(t, err)

	entries, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileRepositoryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	repo, err := NewFileRepository(path, zap.NewNop())
	require.NoError(t, err)

	entries := []core.HistoryEntry{sampleEntry(65, "newest"), sampleEntry(25, "older")}
	require.NoError(t, repo.Save(context.Background(), entries))

	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entries, loaded)

	require.NoError(t, repo.Save(context.Background(), nil))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestFileRepositoryCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"broken": `), 0644))

	repo, err := NewFileRepository(path, zap.NewNop())
	require.NoError(t, err)

	_, err = repo.Load(context.Background())
	assert.Error(t, err)

	store := core.NewHistoryStore(context.Background(), repo, zap.NewNop())
	assert.Equal(t, 0, store.Len())
}

func TestFileRepositoryPersistsAcrossStores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	repo, err := NewFileRepository(path, zap.NewNop())
	require.NoError(t, err)

	store := core.NewHistoryStore(context.Background(), repo, zap.NewNop())
	entry := sampleEntry(82, "persisted")
	_, err = store.Record(context.Background(), entry.Result)
	require.NoError(t, err)

	reopened := core.NewHistoryStore(context.Background(), repo, zap.NewNop())
	require.Equal(t, 1, reopened.Len())
	restored, err := reopened.Restore(0)
	require.NoError(t, err)
	assert.Equal(t, "persisted", restored.Result.Subject)
	assert.Equal(t, core.RiskCritical, restored.Result.RiskLevel)
}

func TestMemoryRepositoryCopiesSnapshot(t *testing.T) {
	repo := NewMemoryRepository()
	entries := []core.HistoryEntry{sampleEntry(1, "a")}
	require.NoError(t, repo.Save(context.Background(), entries))

	entries[0] = sampleEntry(99, "b")
	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "a", loaded[0].Result.Subject)
}
