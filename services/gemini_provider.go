// services/gemini_provider.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/brandpulse/brandpulse/internal/models"
)

type geminiProvider struct {
	apiKey      string
	baseURL     string
	model       string
	costService CostService
	httpClient  *http.Client
	log         zerolog.Logger
}

// NewGeminiProvider queries the Gemini generateContent REST API.
func NewGeminiProvider(apiKey, model string, costService CostService, log zerolog.Logger) AIProvider {
	return &geminiProvider{
		apiKey:      apiKey,
		baseURL:     "https://generativelanguage.googleapis.com/v1beta",
		model:       model,
		costService: costService,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		log: log,
	}
}

func (p *geminiProvider) ProviderName() string { return "google" }
func (p *geminiProvider) ModelName() string    { return p.model }

type geminiGenerateRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func (p *geminiProvider) GenerateAnswer(ctx context.Context, prompt string) (*models.AIAnswer, error) {
	requestBody := geminiGenerateRequest{
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: answerSystemPrompt}},
		},
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
		GenerationConfig: geminiGenConfig{
			Temperature:     0.7,
			MaxOutputTokens: 2000,
		},
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, p.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("gemini API returned status %d: %s", resp.StatusCode, string(body))
	}

	var genResp geminiGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if len(genResp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in gemini response")
	}

	var sb strings.Builder
	for _, part := range genResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := sb.String()
	if text == "" {
		return nil, fmt.Errorf("no text content in gemini response")
	}

	inTokens := genResp.UsageMetadata.PromptTokenCount
	outTokens := genResp.UsageMetadata.CandidatesTokenCount
	p.log.Debug().Str("model", p.model).Int("input_tokens", inTokens).Int("output_tokens", outTokens).Msg("gemini answer received")

	return &models.AIAnswer{
		AnswerText:   text,
		InputTokens:  inTokens,
		OutputTokens: outTokens,
		CostUSD:      p.costService.CalculateCost(p.ProviderName(), p.model, inTokens, outTokens),
	}, nil
}
