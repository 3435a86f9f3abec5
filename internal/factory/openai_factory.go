package factory

import (
	"fmt"

	openaiapi "github.com/sashabaranov/go-openai"

	"github.com/mikey/phish-shield/internal/adapters/openai"
	"github.com/mikey/phish-shield/internal/config"
	"github.com/mikey/phish-shield/internal/core"
)

func (f *AnalyzerFactory) createOpenAI(analyzerCfg config.AnalyzerConfig) (core.Analyzer, error) {
	openaiCfg := f.cfg.GetOpenAI()
	if openaiCfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	return openai.NewOpenAIClient(
		openaiapi.NewClient(openaiCfg.APIKey),
		openaiCfg.ModelName,
		openaiCfg.MaxTokens,
		openaiCfg.Temperature,
		openaiCfg.TopP,
		analyzerCfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	), nil
}
