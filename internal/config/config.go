// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration, loaded once per invocation from
// a YAML file plus environment variables for credentials.
type Config struct {
	Brands     BrandsConfig     `mapstructure:"brands"`
	Intents    []IntentConfig   `mapstructure:"intents"`
	Models     []ModelConfig    `mapstructure:"models"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Report     ReportConfig     `mapstructure:"report"`
	// BudgetUSD is the per-run spend ceiling across provider and extraction
	// calls. Zero disables the ceiling.
	BudgetUSD float64 `mapstructure:"budget_usd"`

	Keys APIKeys `mapstructure:"-"`
}

// BrandsConfig is the brand registry source: the monitored brands and their
// competitors. Loaded once per run and treated as immutable afterwards.
type BrandsConfig struct {
	Mine        []string `mapstructure:"mine"`
	Competitors []string `mapstructure:"competitors"`
}

// IntentConfig is one buyer-intent prompt sent to every configured model.
type IntentConfig struct {
	ID             string `mapstructure:"id"`
	Prompt         string `mapstructure:"prompt"`
	RankingFocused bool   `mapstructure:"ranking_focused"`
}

// ModelConfig names one provider/model pair to query.
type ModelConfig struct {
	Provider string `mapstructure:"provider"`
	Name     string `mapstructure:"name"`
}

// ExtractionConfig controls the extraction strategy.
type ExtractionConfig struct {
	Mode           string  `mapstructure:"mode"` // regex | llm | hybrid
	MinConfidence  float64 `mapstructure:"min_confidence"`
	LLMModel       string  `mapstructure:"llm_model"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	// DiscoverCompetitors enables the candidate-discovery pass over each
	// answer. Candidates are persisted for review, never merged.
	DiscoverCompetitors bool `mapstructure:"discover_competitors"`
}

// StorageConfig selects the relational store.
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres
	DSN    string `mapstructure:"dsn"`
}

// ReportConfig controls report rendering.
type ReportConfig struct {
	Title string `mapstructure:"title"`
}

// APIKeys are read from the environment only, never from the config file.
type APIKeys struct {
	OpenAI     string
	Anthropic  string
	Mistral    string
	XAI        string
	Google     string
	Perplexity string
}

var knownProviders = map[string]bool{
	"openai":     true,
	"anthropic":  true,
	"mistral":    true,
	"grok":       true,
	"google":     true,
	"perplexity": true,
}

// Load reads the config file at path, applies defaults, pulls API keys from
// the environment, and validates. Validation failures fail fast, before any
// provider or store is touched.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("extraction.mode", "hybrid")
	v.SetDefault("extraction.min_confidence", 0.7)
	v.SetDefault("extraction.llm_model", "gpt-4.1")
	v.SetDefault("extraction.timeout_seconds", 60)
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "brandpulse.db")
	v.SetDefault("report.title", "Brand visibility report")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.Keys = APIKeys{
		OpenAI:     os.Getenv("OPENAI_API_KEY"),
		Anthropic:  os.Getenv("ANTHROPIC_API_KEY"),
		Mistral:    os.Getenv("MISTRAL_API_KEY"),
		XAI:        os.Getenv("XAI_API_KEY"),
		Google:     os.Getenv("GOOGLE_API_KEY"),
		Perplexity: os.Getenv("PERPLEXITY_API_KEY"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks everything that can be checked without network access.
func (c *Config) Validate() error {
	if len(c.Brands.Mine) == 0 && len(c.Brands.Competitors) == 0 {
		return fmt.Errorf("config: brands.mine and brands.competitors are both empty")
	}
	if len(c.Intents) == 0 {
		return fmt.Errorf("config: at least one intent is required")
	}
	seen := make(map[string]bool, len(c.Intents))
	for i, intent := range c.Intents {
		if intent.ID == "" {
			return fmt.Errorf("config: intents[%d] is missing an id", i)
		}
		if strings.TrimSpace(intent.Prompt) == "" {
			return fmt.Errorf("config: intent %q has an empty prompt", intent.ID)
		}
		if seen[intent.ID] {
			return fmt.Errorf("config: duplicate intent id %q", intent.ID)
		}
		seen[intent.ID] = true
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("config: at least one model is required")
	}
	for i, m := range c.Models {
		provider := strings.ToLower(m.Provider)
		if !knownProviders[provider] {
			return fmt.Errorf("config: models[%d] has unsupported provider %q", i, m.Provider)
		}
		if m.Name == "" {
			return fmt.Errorf("config: models[%d] (%s) is missing a model name", i, m.Provider)
		}
	}
	switch c.Extraction.Mode {
	case "regex", "llm", "hybrid":
	default:
		return fmt.Errorf("config: extraction.mode must be regex, llm, or hybrid, got %q", c.Extraction.Mode)
	}
	if c.Extraction.MinConfidence < 0 || c.Extraction.MinConfidence > 1 {
		return fmt.Errorf("config: extraction.min_confidence %v outside [0,1]", c.Extraction.MinConfidence)
	}
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: storage.driver must be sqlite or postgres, got %q", c.Storage.Driver)
	}
	if c.BudgetUSD < 0 {
		return fmt.Errorf("config: budget_usd must not be negative")
	}
	return nil
}

// KeyFor returns the API key for a provider name, empty if unset.
func (k APIKeys) KeyFor(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return k.OpenAI
	case "anthropic":
		return k.Anthropic
	case "mistral":
		return k.Mistral
	case "grok":
		return k.XAI
	case "google":
		return k.Google
	case "perplexity":
		return k.Perplexity
	}
	return ""
}
