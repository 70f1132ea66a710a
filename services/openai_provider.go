// services/openai_provider.go
package services

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	"github.com/brandpulse/brandpulse/internal/models"
)

const answerSystemPrompt = "You are a helpful shopping assistant. Answer the question directly. When recommending products or vendors, list them in order of how strongly you recommend them."

type openAIProvider struct {
	client      *openai.Client
	model       string
	costService CostService
	log         zerolog.Logger
}

// NewOpenAIProvider queries api.openai.com chat completions.
func NewOpenAIProvider(apiKey, model string, costService CostService, log zerolog.Logger) AIProvider {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &openAIProvider{
		client:      &client,
		model:       model,
		costService: costService,
		log:         log,
	}
}

func (p *openAIProvider) ProviderName() string { return "openai" }
func (p *openAIProvider) ModelName() string    { return p.model }

func (p *openAIProvider) GenerateAnswer(ctx context.Context, prompt string) (*models.AIAnswer, error) {
	response, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(answerSystemPrompt),
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(p.model),
		Temperature: openai.Float(0.7),
		MaxTokens:   openai.Int(2000),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	inTokens := int(response.Usage.PromptTokens)
	outTokens := int(response.Usage.CompletionTokens)
	p.log.Debug().Str("model", p.model).Int("input_tokens", inTokens).Int("output_tokens", outTokens).Msg("openai answer received")

	return &models.AIAnswer{
		AnswerText:   response.Choices[0].Message.Content,
		InputTokens:  inTokens,
		OutputTokens: outTokens,
		CostUSD:      p.costService.CalculateCost(p.ProviderName(), p.model, inTokens, outTokens),
	}, nil
}
