// internal/cli/run.go
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/brandpulse/brandpulse/internal/config"
	"github.com/brandpulse/brandpulse/internal/extract"
	"github.com/brandpulse/brandpulse/internal/models"
	"github.com/brandpulse/brandpulse/internal/store"
	"github.com/brandpulse/brandpulse/services"
)

var ratePerSecond float64

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every configured intent against every configured model",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		registry, err := extract.NewRegistry(cfg.Brands.Mine, cfg.Brands.Competitors)
		if err != nil {
			return err
		}

		st, err := store.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN, log)
		if err != nil {
			return err
		}
		defer st.Close()

		costService := services.NewCostService()
		providers, err := services.BuildProviders(cfg, costService, log)
		if err != nil {
			return err
		}

		var delegate extract.Delegate
		if cfg.Extraction.Mode != "regex" {
			if cfg.Keys.OpenAI == "" {
				return fmt.Errorf("extraction.mode %q needs OPENAI_API_KEY for the classification model", cfg.Extraction.Mode)
			}
			delegate = services.NewLLMDelegate(
				cfg.Keys.OpenAI,
				cfg.Extraction.LLMModel,
				time.Duration(cfg.Extraction.TimeoutSeconds)*time.Second,
				costService,
				log,
			)
		}
		extractor := extract.NewExtractor(delegate, log)

		var discovery services.DiscoveryService
		if cfg.Extraction.DiscoverCompetitors {
			if cfg.Keys.OpenAI == "" {
				return fmt.Errorf("extraction.discover_competitors needs OPENAI_API_KEY")
			}
			discovery = services.NewDiscoveryService(
				cfg.Keys.OpenAI,
				cfg.Extraction.LLMModel,
				registry,
				cfg.Extraction.MinConfidence,
				log,
			)
		}

		runner := services.NewRunnerService(services.RunnerParams{
			Store:     st,
			Extractor: extractor,
			Registry:  registry,
			Options: extract.Options{
				Mode:          extract.Mode(cfg.Extraction.Mode),
				MinConfidence: cfg.Extraction.MinConfidence,
			},
			Discovery:     discovery,
			RatePerSecond: ratePerSecond,
			BudgetUSD:     cfg.BudgetUSD,
			Log:           log,
		})

		intents := make([]models.Intent, 0, len(cfg.Intents))
		for _, ic := range cfg.Intents {
			intents = append(intents, models.Intent{
				ID:             ic.ID,
				Prompt:         ic.Prompt,
				RankingFocused: ic.RankingFocused,
			})
		}

		summary, err := runner.Run(ctx, intents, providers)
		if err != nil {
			return err
		}

		fmt.Printf("run %s: %d answers (%d failed), %d mentions, $%.4f\n",
			summary.RunID, summary.TotalAnswers, summary.FailedAnswers,
			summary.TotalMentions, summary.TotalCostUSD)
		if summary.BudgetExceeded {
			fmt.Println("run stopped at budget ceiling")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().Float64Var(&ratePerSecond, "rate", 1, "provider calls per second, 0 for unthrottled")
	rootCmd.AddCommand(runCmd)
}
