// services/anthropic_provider.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/brandpulse/brandpulse/internal/models"
)

type anthropicProvider struct {
	client      *anthropic.Client
	model       string
	costService CostService
	log         zerolog.Logger
}

// NewAnthropicProvider queries the Anthropic Messages API.
func NewAnthropicProvider(apiKey, model string, costService CostService, log zerolog.Logger) AIProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &anthropicProvider{
		client:      &client,
		model:       model,
		costService: costService,
		log:         log,
	}
}

func (p *anthropicProvider) ProviderName() string { return "anthropic" }
func (p *anthropicProvider) ModelName() string    { return p.model }

func (p *anthropicProvider) GenerateAnswer(ctx context.Context, prompt string) (*models.AIAnswer, error) {
	messages := []anthropic.MessageParam{{
		Content: []anthropic.ContentBlockParamUnion{{
			OfText: &anthropic.TextBlockParam{Text: prompt},
		}},
		Role: anthropic.MessageParamRoleUser,
	}}

	response, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   2000,
		System:      []anthropic.TextBlockParam{{Text: answerSystemPrompt}},
		Messages:    messages,
		Temperature: anthropic.Float(0.7),
	})
	if err != nil {
		return nil, fmt.Errorf("message creation failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := sb.String()
	if text == "" {
		return nil, fmt.Errorf("no text content in response")
	}

	inTokens := int(response.Usage.InputTokens)
	outTokens := int(response.Usage.OutputTokens)
	p.log.Debug().Str("model", p.model).Int("input_tokens", inTokens).Int("output_tokens", outTokens).Msg("anthropic answer received")

	return &models.AIAnswer{
		AnswerText:   text,
		InputTokens:  inTokens,
		OutputTokens: outTokens,
		CostUSD:      p.costService.CalculateCost(p.ProviderName(), p.model, inTokens, outTokens),
	}, nil
}
