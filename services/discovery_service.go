// services/discovery_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	"github.com/brandpulse/brandpulse/internal/extract"
	"github.com/brandpulse/brandpulse/internal/models"
)

// CandidateList is the structured output for competitor discovery.
type CandidateList struct {
	Candidates []Candidate `json:"candidates" jsonschema_description:"Brand or vendor names in the text that are not on the tracked list"`
}

// Candidate is one untracked brand the model spotted.
type Candidate struct {
	Name           string  `json:"name" jsonschema_description:"The brand or vendor name as written in the text"`
	Confidence     float64 `json:"confidence" jsonschema_description:"Confidence that this is a real competing brand, 0 to 1"`
	ContextSnippet string  `json:"context_snippet" jsonschema_description:"Short quote from the text containing the name"`
}

var candidateListSchema = GenerateSchema[CandidateList]()

// discoveryService finds competitor names in answers that are not yet in the
// registry, producing review candidates rather than mention rows.
type discoveryService struct {
	client        *openai.Client
	model         string
	registry      *extract.Registry
	minConfidence float64
	log           zerolog.Logger
}

// NewDiscoveryService creates the competitor discovery side channel.
func NewDiscoveryService(apiKey, model string, registry *extract.Registry, minConfidence float64, log zerolog.Logger) DiscoveryService {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &discoveryService{
		client:        &client,
		model:         model,
		registry:      registry,
		minConfidence: minConfidence,
		log:           log,
	}
}

const discoverySystemPrompt = `You scan an AI assistant's answer for brand, vendor or product names. You are given a list of already-tracked names. Report only names present in the text that are NOT on the tracked list and that plausibly compete in the same market. Skip generic terms, categories and feature names.`

func (d *discoveryService) Discover(ctx context.Context, runID uuid.UUID, answer *models.AIAnswer, provider, model string) ([]*models.BrandCandidate, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "candidate_list",
		Description: openai.String("Untracked competitor names found in the text"),
		Schema:      candidateListSchema,
		Strict:      openai.Bool(true),
	}

	tracked := ""
	for _, name := range d.registry.Names() {
		tracked += name + "\n"
	}
	userPrompt := fmt.Sprintf("Tracked names:\n%s\nAnswer text:\n%s", tracked, answer.AnswerText)

	response, err := d.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(discoverySystemPrompt),
			openai.UserMessage(userPrompt),
		},
		Model: openai.ChatModel(d.model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
		Temperature: openai.Float(0.0),
		MaxTokens:   openai.Int(1000),
	})
	if err != nil {
		return nil, fmt.Errorf("discovery call failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	var parsed CandidateList
	if err := json.Unmarshal([]byte(response.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse candidate list: %w", err)
	}

	now := time.Now().UTC()
	sourceModel := provider + "/" + model
	seen := make(map[string]bool)
	var out []*models.BrandCandidate
	for _, c := range parsed.Candidates {
		normalized := extract.Normalize(c.Name)
		if normalized == "" || c.Confidence < d.minConfidence {
			continue
		}
		// The model sometimes echoes tracked names back; drop them.
		if _, _, ok := d.registry.Lookup(normalized); ok {
			continue
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, &models.BrandCandidate{
			CandidateID:    uuid.New(),
			RunID:          runID,
			Name:           c.Name,
			NormalizedName: normalized,
			Confidence:     c.Confidence,
			SourceModel:    sourceModel,
			ContextSnippet: c.ContextSnippet,
			CreatedAt:      now,
		})
	}
	d.log.Debug().Int("candidates", len(out)).Str("source_model", sourceModel).Msg("discovery complete")
	return out, nil
}
