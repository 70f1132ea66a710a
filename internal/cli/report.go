// internal/cli/report.go
package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/brandpulse/brandpulse/internal/config"
	"github.com/brandpulse/brandpulse/internal/store"
	"github.com/brandpulse/brandpulse/services"
)

var (
	reportRunID string
	reportHTML  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show per-brand visibility for a run (latest by default)",
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

		runID, err := resolveRunID(cmd, st, reportRunID)
		if err != nil {
			return err
		}

		reporter := services.NewReportService(st, cfg.Report.Title, log)
		report, err := reporter.BuildReport(ctx, runID)
		if err != nil {
			return err
		}

		fmt.Print(reporter.RenderText(report))

		if reportHTML != "" {
			html, err := reporter.RenderHTML(report)
			if err != nil {
				return err
			}
			if err := os.WriteFile(reportHTML, []byte(html), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", reportHTML, err)
			}
			fmt.Printf("\nHTML report written to %s\n", reportHTML)
		}
		return nil
	},
}

func resolveRunID(cmd *cobra.Command, st *store.Store, flag string) (uuid.UUID, error) {
	if flag != "" {
		id, err := uuid.Parse(flag)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid run id %q: %w", flag, err)
		}
		return id, nil
	}
	return st.LatestRunID(cmd.Context())
}

func init() {
	reportCmd.Flags().StringVar(&reportRunID, "run", "", "run id to report on (default: latest)")
	reportCmd.Flags().StringVar(&reportHTML, "html", "", "also write an HTML report to this path")
	rootCmd.AddCommand(reportCmd)
}
