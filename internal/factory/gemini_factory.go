package factory

import (
	"context"
	"fmt"

	"github.com/mikey/phish-shield/internal/adapters/gemini"
	"github.com/mikey/phish-shield/internal/config"
	"github.com/mikey/phish-shield/internal/core"
)

func (f *AnalyzerFactory) createGemini(ctx context.Context, analyzerCfg config.AnalyzerConfig) (core.Analyzer, error) {
	geminiCfg := f.cfg.GetGemini()
	if geminiCfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	return gemini.NewGeminiClient(
		ctx,
		geminiCfg.APIKey,
		geminiCfg.ModelName,
		geminiCfg.MaxTokens,
		geminiCfg.Temperature,
		geminiCfg.TopP,
		analyzerCfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	)
}
