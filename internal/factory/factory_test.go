package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mikey/phish-shield/internal/adapters/history"
	"github.com/mikey/phish-shield/internal/adapters/httpapi"
	"github.com/mikey/phish-shield/internal/adapters/ingest"
	"github.com/mikey/phish-shield/internal/adapters/openai"
	"github.com/mikey/phish-shield/internal/adapters/remote"
	"github.com/mikey/phish-shield/internal/config"
	"github.com/mikey/phish-shield/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(overrides map[string]any) *config.Config {
	v := config.NewEmptyViper()
	for k, val := range overrides {
		v.Set(k, val)
	}
	return config.NewFromViper(v)
}

func TestCreateAnalyzer(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	a, err := NewAnalyzerFactory(testConfig(nil), logger, NewTextProcessor(logger)).CreateAnalyzer(ctx)
	require.NoError(t, err)
	assert.IsType(t, &remote.Client{}, a)

	a, err = NewAnalyzerFactory(testConfig(map[string]any{
		"analyzer.provider": "openai",
		"openai.api_key":    "sk-test",
	}), logger, NewTextProcessor(logger)).CreateAnalyzer(ctx)
	require.NoError(t, err)
	assert.IsType(t, &openai.OpenAIClient{}, a)
}

func TestCreateAnalyzerErrors(t *testing.T) {
	logger := zap.NewNop()
	tests := []struct {
		name      string
		overrides map[string]any
		wantErr   string
	}{
		{"unknown provider", map[string]any{"analyzer.provider": "oracle"}, "unsupported analyzer provider: oracle"},
		{"openai without key", map[string]any{"analyzer.provider": "openai"}, "openai API key is required"},
		{"gemini without key", map[string]any{"analyzer.provider": "gemini"}, "gemini API key is required"},
		{"bad timeout", map[string]any{"analyzer.timeout": "never"}, "analyzer.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAnalyzerFactory(testConfig(tt.overrides), logger, NewTextProcessor(logger)).
				CreateAnalyzer(context.Background())
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestCreateHistoryRepository(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	repo, err := NewHistoryFactory(testConfig(map[string]any{"history.type": "memory"}), logger).CreateRepository(ctx)
	require.NoError(t, err)
	assert.IsType(t, &history.MemoryRepository{}, repo)

	path := filepath.Join(t.TempDir(), "nested", "history.json")
	repo, err = NewHistoryFactory(testConfig(map[string]any{
		"history.type":      "file",
		"history.file_path": path,
	}), logger).CreateRepository(ctx)
	require.NoError(t, err)
	assert.IsType(t, &history.FileRepository{}, repo)

	_, err = NewHistoryFactory(testConfig(map[string]any{"history.type": "redis"}), logger).CreateRepository(ctx)
	assert.EqualError(t, err, "unsupported history type: redis")
}

func TestCreateListeners(t *testing.T) {
	logger := zap.NewNop()
	service := core.NewAnalysisService(nil, core.DefaultUploadPolicy(), nil, logger)
	store := core.NewHistoryStore(context.Background(), nil, logger)

	listeners, err := NewListenerFactory(testConfig(nil), logger, service, store).CreateListeners()
	require.NoError(t, err)
	require.Len(t, listeners, 1)
	assert.IsType(t, &httpapi.Server{}, listeners[0])

	listeners, err = NewListenerFactory(testConfig(map[string]any{
		"ingest.enabled":       true,
		"ingest.relay.enabled": false,
	}), logger, service, store).CreateListeners()
	require.NoError(t, err)
	require.Len(t, listeners, 2)
	assert.IsType(t, &ingest.SMTPFilter{}, listeners[1])
}
