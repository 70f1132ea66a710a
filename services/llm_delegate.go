// services/llm_delegate.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	"github.com/brandpulse/brandpulse/internal/extract"
)

// GenerateSchema builds a strict JSON schema for OpenAI structured outputs.
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// BrandClassification is the structured output for one analyzed answer.
type BrandClassification struct {
	Mentions   []BrandMention `json:"mentions" jsonschema_description:"Every tracked brand mentioned in the text"`
	Confidence float64        `json:"confidence" jsonschema_description:"Overall confidence in the classification, 0 to 1"`
}

// BrandMention is one brand found by the model.
type BrandMention struct {
	Name           string  `json:"name" jsonschema_description:"The brand name exactly as it appears in the tracked list"`
	Rank           int     `json:"rank" jsonschema_description:"1-based position if the brand appears in a ranked or ordered list, 0 if not ranked"`
	ContextSnippet string  `json:"context_snippet" jsonschema_description:"Short quote from the text surrounding the mention"`
	Sentiment      string  `json:"sentiment" jsonschema:"enum=positive,enum=neutral,enum=negative" jsonschema_description:"Sentiment of the text toward the brand"`
	MentionContext string  `json:"mention_context" jsonschema:"enum=primary_recommendation,enum=alternative_listing,enum=competitor_negative,enum=competitor_neutral,enum=passing_reference" jsonschema_description:"How the brand is mentioned"`
	Confidence     float64 `json:"confidence" jsonschema_description:"Confidence in this specific mention, 0 to 1"`
}

var brandClassificationSchema = GenerateSchema[BrandClassification]()

// llmDelegate classifies answers with OpenAI structured outputs. It
// implements extract.Delegate for the llm and hybrid extraction modes.
type llmDelegate struct {
	client      *openai.Client
	model       string
	timeout     time.Duration
	costService CostService
	log         zerolog.Logger
}

// NewLLMDelegate creates the extraction delegate backed by an OpenAI model.
func NewLLMDelegate(apiKey, model string, timeout time.Duration, costService CostService, log zerolog.Logger) extract.Delegate {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &llmDelegate{
		client:      &client,
		model:       model,
		timeout:     timeout,
		costService: costService,
		log:         log,
	}
}

const delegateSystemPrompt = `You analyze an AI assistant's answer for brand mentions. You are given the answer text and a list of tracked brand names. Report every tracked brand that the text actually mentions, including indirect references you are certain about. Never report a brand that is absent from the tracked list. Rank is the brand's 1-based position when the text ranks or orders it against alternatives, and 0 otherwise.`

func (d *llmDelegate) Classify(ctx context.Context, text string, registry *extract.Registry) (*extract.Classification, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "brand_classification",
		Description: openai.String("Tracked brand mentions found in the text"),
		Schema:      brandClassificationSchema,
		Strict:      openai.Bool(true),
	}

	userPrompt := fmt.Sprintf("Tracked brands:\n%s\n\nAnswer text:\n%s",
		strings.Join(registry.Names(), "\n"), text)

	response, err := d.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(delegateSystemPrompt),
			openai.UserMessage(userPrompt),
		},
		Model: openai.ChatModel(d.model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
		Temperature: openai.Float(0.0),
		MaxTokens:   openai.Int(2000),
	})
	if err != nil {
		return nil, fmt.Errorf("classification call failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	var parsed BrandClassification
	if err := json.Unmarshal([]byte(response.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse classification: %w", err)
	}

	inTokens := int(response.Usage.PromptTokens)
	outTokens := int(response.Usage.CompletionTokens)
	d.log.Debug().Str("model", d.model).Int("mentions", len(parsed.Mentions)).Float64("confidence", parsed.Confidence).Msg("llm classification complete")

	classification := &extract.Classification{
		Confidence:   parsed.Confidence,
		InputTokens:  inTokens,
		OutputTokens: outTokens,
		CostUSD:      d.costService.CalculateCost("openai", d.model, inTokens, outTokens),
	}
	for _, m := range parsed.Mentions {
		classification.Mentions = append(classification.Mentions, extract.ClassifiedMention{
			Name:           m.Name,
			Rank:           m.Rank,
			ContextSnippet: m.ContextSnippet,
			Sentiment:      m.Sentiment,
			MentionContext: m.MentionContext,
			Confidence:     m.Confidence,
		})
	}
	return classification, nil
}
