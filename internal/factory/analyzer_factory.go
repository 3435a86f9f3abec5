package factory

import (
	"context"
	"fmt"

	"github.com/mikey/phish-shield/internal/adapters/remote"
	"github.com/mikey/phish-shield/internal/config"
	"github.com/mikey/phish-shield/internal/core"
	"github.com/mikey/phish-shield/internal/utils"
	"go.uber.org/zap"
)

// AnalyzerFactory creates the analyzer selected by analyzer.provider
type AnalyzerFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewAnalyzerFactory creates a new analyzer factory
func NewAnalyzerFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *AnalyzerFactory {
	return &AnalyzerFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateAnalyzer creates an analyzer based on the configuration
func (f *AnalyzerFactory) CreateAnalyzer(ctx context.Context) (core.Analyzer, error) {
	analyzerCfg, err := f.cfg.GetAnalyzer()
	if err != nil {
		return nil, err
	}

	f.logger.Info("Creating analyzer", zap.String("provider", analyzerCfg.Provider))

	switch analyzerCfg.Provider {
	case "remote":
		return remote.NewClient(f.cfg.GetRemote().BaseURL, analyzerCfg.Timeout, f.logger), nil
	case "openai":
		return f.createOpenAI(analyzerCfg)
	case "gemini":
		return f.createGemini(ctx, analyzerCfg)
	case "bedrock":
		return f.createBedrock(ctx, analyzerCfg)
	default:
		return nil, fmt.Errorf("unsupported analyzer provider: %s", analyzerCfg.Provider)
	}
}
