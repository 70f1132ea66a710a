// services/cost_service.go
package services

import "strings"

type costService struct {
	// prices are USD per million tokens, keyed by "provider/model".
	prices map[string]modelPrice
}

type modelPrice struct {
	inputPerM  float64
	outputPerM float64
}

// NewCostService creates a cost calculator with current published pricing.
// Unknown models fall back to a conservative default so totals never read
// as zero for a paid call.
func NewCostService() CostService {
	return &costService{
		prices: map[string]modelPrice{
			"openai/gpt-4.1":             {inputPerM: 2.00, outputPerM: 8.00},
			"openai/gpt-4.1-mini":        {inputPerM: 0.40, outputPerM: 1.60},
			"openai/gpt-4o":              {inputPerM: 2.50, outputPerM: 10.00},
			"openai/gpt-4o-mini":         {inputPerM: 0.15, outputPerM: 0.60},
			"anthropic/claude-sonnet-4-20250514": {inputPerM: 3.00, outputPerM: 15.00},
			"anthropic/claude-3-5-haiku-20241022": {inputPerM: 0.80, outputPerM: 4.00},
			"mistral/mistral-large-latest":  {inputPerM: 2.00, outputPerM: 6.00},
			"mistral/mistral-small-latest":  {inputPerM: 0.10, outputPerM: 0.30},
			"grok/grok-3":                   {inputPerM: 3.00, outputPerM: 15.00},
			"grok/grok-3-mini":              {inputPerM: 0.30, outputPerM: 0.50},
			"google/gemini-2.0-flash":       {inputPerM: 0.10, outputPerM: 0.40},
			"google/gemini-1.5-pro":         {inputPerM: 1.25, outputPerM: 5.00},
			"perplexity/sonar":              {inputPerM: 1.00, outputPerM: 1.00},
			"perplexity/sonar-pro":          {inputPerM: 3.00, outputPerM: 15.00},
		},
	}
}

const (
	defaultInputPerM  = 3.00
	defaultOutputPerM = 15.00
)

func (c *costService) CalculateCost(provider, model string, inputTokens, outputTokens int) float64 {
	key := strings.ToLower(provider) + "/" + strings.ToLower(model)
	price, ok := c.prices[key]
	if !ok {
		price = modelPrice{inputPerM: defaultInputPerM, outputPerM: defaultOutputPerM}
	}
	in := float64(inputTokens) / 1_000_000 * price.inputPerM
	out := float64(outputTokens) / 1_000_000 * price.outputPerM
	return in + out
}
