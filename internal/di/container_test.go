package di

import (
	"path/filepath"
	"testing"

	"github.com/mikey/phish-shield/internal/config"
	"github.com/mikey/phish-shield/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildCLIContainer(t *testing.T) {
	v := config.NewEmptyViper()
	v.Set("history.type", "file")
	v.Set("history.file_path", filepath.Join(t.TempDir(), "history.json"))
	v.Set("upload.max_bytes", 1024)

	container, err := BuildCLIContainer(config.NewFromViper(v), zap.NewNop())
	require.NoError(t, err)

	err = container.Invoke(func(service *core.AnalysisService, store *core.HistoryStore, analyzer core.Analyzer) {
		assert.Equal(t, int64(1024), service.Policy().MaxBytes)
		assert.Zero(t, store.Len())
		assert.NotNil(t, analyzer)
	})
	require.NoError(t, err)
}

func TestBuildCLIContainerBadProvider(t *testing.T) {
	v := config.NewEmptyViper()
	v.Set("analyzer.provider", "oracle")
	v.Set("history.type", "memory")

	container, err := BuildCLIContainer(config.NewFromViper(v), zap.NewNop())
	require.NoError(t, err)

	err = container.Invoke(func(*core.AnalysisService) {})
	assert.ErrorContains(t, err, "unsupported analyzer provider")
}
