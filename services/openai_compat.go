// services/openai_compat.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/brandpulse/brandpulse/internal/models"
)

// compatProvider speaks the OpenAI-style chat completions protocol against
// a third-party base URL. Mistral, Grok and Perplexity all expose this
// surface, so one client covers the three of them.
type compatProvider struct {
	providerName string
	apiKey       string
	baseURL      string
	model        string
	costService  CostService
	httpClient   *http.Client
	log          zerolog.Logger
}

// NewMistralProvider queries api.mistral.ai.
func NewMistralProvider(apiKey, model string, costService CostService, log zerolog.Logger) AIProvider {
	return newCompatProvider("mistral", "https://api.mistral.ai/v1", apiKey, model, costService, log)
}

// NewGrokProvider queries the xAI API.
func NewGrokProvider(apiKey, model string, costService CostService, log zerolog.Logger) AIProvider {
	return newCompatProvider("grok", "https://api.x.ai/v1", apiKey, model, costService, log)
}

// NewPerplexityProvider queries the Perplexity Sonar API.
func NewPerplexityProvider(apiKey, model string, costService CostService, log zerolog.Logger) AIProvider {
	return newCompatProvider("perplexity", "https://api.perplexity.ai", apiKey, model, costService, log)
}

func newCompatProvider(name, baseURL, apiKey, model string, costService CostService, log zerolog.Logger) AIProvider {
	return &compatProvider{
		providerName: name,
		apiKey:       apiKey,
		baseURL:      baseURL,
		model:        model,
		costService:  costService,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		log: log,
	}
}

func (p *compatProvider) ProviderName() string { return p.providerName }
func (p *compatProvider) ModelName() string    { return p.model }

type compatChatRequest struct {
	Model       string              `json:"model"`
	Messages    []compatChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
}

type compatChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type compatChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *compatProvider) GenerateAnswer(ctx context.Context, prompt string) (*models.AIAnswer, error) {
	requestBody := compatChatRequest{
		Model: p.model,
		Messages: []compatChatMessage{
			{Role: "system", Content: answerSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   2000,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", p.providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%s API returned status %d: %s", p.providerName, resp.StatusCode, string(body))
	}

	var chatResp compatChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", p.providerName, err)
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("no message content in %s response", p.providerName)
	}

	inTokens := chatResp.Usage.PromptTokens
	outTokens := chatResp.Usage.CompletionTokens
	p.log.Debug().Str("provider", p.providerName).Str("model", p.model).Int("input_tokens", inTokens).Int("output_tokens", outTokens).Msg("answer received")

	return &models.AIAnswer{
		AnswerText:   chatResp.Choices[0].Message.Content,
		InputTokens:  inTokens,
		OutputTokens: outTokens,
		CostUSD:      p.costService.CalculateCost(p.providerName, p.model, inTokens, outTokens),
	}, nil
}
