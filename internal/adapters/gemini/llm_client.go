package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/phish-shield/internal/adapters/llm"
	"github.com/mikey/phish-shield/internal/core"
	"github.com/mikey/phish-shield/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiClient is an implementation of the Analyzer interface using Google Gemini
type GeminiClient struct {
	client        *genai.Client
	model         generator
	modelName     string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	ctx context.Context,
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = genai.NewUserContent(genai.Text(llm.SystemPrompt))

	return &GeminiClient{
		client:        client,
		model:         model,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}, nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Analyze asks the model for a phishing verdict
func (c *GeminiClient) Analyze(ctx context.Context, req *core.AnalysisRequest) (*core.RawAnalysis, error) {
	prompt := llm.BuildPrompt(req, c.textProcessor, c.maxBodySize)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt.Text))
	if err != nil {
		return nil, &core.RequestError{Err: fmt.Errorf("failed to generate content with Gemini: %w", err)}
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &core.MalformedResponseError{Reason: "empty response from Gemini"}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	c.logger.Debug("Gemini verdict received",
		zap.String("model", c.modelName),
		zap.Int("response_size", sb.Len()))

	raw, err := llm.ParseVerdict(sb.String())
	if err != nil {
		return nil, err
	}
	llm.FillHeaders(raw, prompt.Email)
	return raw, nil
}
