package factory

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/phish-shield/internal/adapters/bedrock"
	"github.com/mikey/phish-shield/internal/config"
	"github.com/mikey/phish-shield/internal/core"
)

func (f *AnalyzerFactory) createBedrock(ctx context.Context, analyzerCfg config.AnalyzerConfig) (core.Analyzer, error) {
	bedrockCfg := f.cfg.GetBedrock()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(bedrockCfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return bedrock.NewBedrockClient(
		bedrockruntime.NewFromConfig(awsCfg),
		bedrockCfg.ModelID,
		bedrockCfg.MaxTokens,
		bedrockCfg.Temperature,
		bedrockCfg.TopP,
		analyzerCfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	), nil
}
