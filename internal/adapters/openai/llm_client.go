package openai

import (
	"context"
	"fmt"

	"github.com/mikey/phish-shield/internal/adapters/llm"
	"github.com/mikey/phish-shield/internal/core"
	"github.com/mikey/phish-shield/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// chatClient is the subset of the OpenAI client used by the analyzer
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient is an implementation of the Analyzer interface using OpenAI
type OpenAIClient struct {
	client        chatClient
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Analyze asks the model for a phishing verdict
func (c *OpenAIClient) Analyze(ctx context.Context, req *core.AnalysisRequest) (*core.RawAnalysis, error) {
	prompt := llm.BuildPrompt(req, c.textProcessor, c.maxBodySize)

	chatReq := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: llm.SystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt.Text,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, &core.RequestError{Err: fmt.Errorf("failed to create chat completion with OpenAI: %w", err)}
	}
	if len(resp.Choices) == 0 {
		return nil, &core.MalformedResponseError{Reason: "empty response from OpenAI"}
	}

	c.logger.Debug("OpenAI verdict received",
		zap.String("model", c.modelName),
		zap.String("completion_id", resp.ID),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	raw, err := llm.ParseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	llm.FillHeaders(raw, prompt.Email)
	return raw, nil
}
