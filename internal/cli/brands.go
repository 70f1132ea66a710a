// internal/cli/brands.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brandpulse/brandpulse/internal/config"
	"github.com/brandpulse/brandpulse/internal/store"
)

var brandsRunID string

var brandsCmd = &cobra.Command{
	Use:   "brands",
	Short: "List competitor candidates discovered in a run",
	Long: `Lists brand names discovery found in a run's answers that are not in the
configured registry. Candidates are review material: add the real ones to
brands.competitors in the config and they will be tracked next run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		st, err := store.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN, log)
		if err != nil {
			return err
		}
		defer st.Close()

		runID, err := resolveRunID(cmd, st, brandsRunID)
		if err != nil {
			return err
		}

		candidates, err := st.ListCandidates(ctx, runID)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			fmt.Println("no candidates discovered in this run")
			return nil
		}

		fmt.Printf("%-30s %10s %-28s %s\n", "NAME", "CONFIDENCE", "SOURCE MODEL", "CONTEXT")
		for _, c := range candidates {
			snippet := c.ContextSnippet
			if len(snippet) > 60 {
				snippet = snippet[:57] + "..."
			}
			fmt.Printf("%-30s %9.0f%% %-28s %s\n", c.Name, c.Confidence*100, c.SourceModel, snippet)
		}
		return nil
	},
}

func init() {
	brandsCmd.Flags().StringVar(&brandsRunID, "run", "", "run id to list candidates for (default: latest)")
	rootCmd.AddCommand(brandsCmd)
}
