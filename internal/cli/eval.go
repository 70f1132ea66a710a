// internal/cli/eval.go
package cli

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brandpulse/brandpulse/internal/config"
	"github.com/brandpulse/brandpulse/internal/extract"
)

var evalCmd = &cobra.Command{
	Use:   "eval <fixtures.csv>",
	Short: "Score the pattern extractor against a golden fixture file",
	Long: `Runs regex extraction over a CSV of golden cases and reports accuracy.

The CSV has a header row and three columns:
  case      a short name for the fixture
  text      the answer text to extract from
  expected  semicolon-separated "brand" or "brand:rank" entries, normalized form

Only the configured brand registry is used; no provider calls are made.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		registry, err := extract.NewRegistry(cfg.Brands.Mine, cfg.Brands.Competitors)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open fixtures: %w", err)
		}
		defer f.Close()

		reader := csv.NewReader(f)
		reader.FieldsPerRecord = 3
		records, err := reader.ReadAll()
		if err != nil {
			return fmt.Errorf("failed to parse fixtures: %w", err)
		}
		if len(records) < 2 {
			return fmt.Errorf("fixture file has no cases")
		}

		passed, failed := 0, 0
		for _, record := range records[1:] {
			name, text, expectedRaw := record[0], record[1], record[2]

			got := extract.AssignRanks(text, extract.DetectMentions(text, registry))
			gotSet := make(map[string]string, len(got))
			for _, m := range got {
				rank := ""
				if m.RankPosition != nil {
					rank = strconv.Itoa(*m.RankPosition)
				}
				gotSet[m.NormalizedName] = rank
			}

			expected, err := parseExpected(expectedRaw)
			if err != nil {
				return fmt.Errorf("case %q: %w", name, err)
			}

			if diff := compareExpected(expected, gotSet); diff != "" {
				failed++
				fmt.Printf("FAIL %s: %s\n", name, diff)
			} else {
				passed++
				if verbose {
					fmt.Printf("ok   %s\n", name)
				}
			}
		}

		fmt.Printf("\n%d/%d cases passed\n", passed, passed+failed)
		if failed > 0 {
			return fmt.Errorf("%d fixture cases failed", failed)
		}
		return nil
	},
}

// parseExpected parses "acme:1;globex;initech:3" into normalized name to
// rank ("" for unranked).
func parseExpected(raw string) (map[string]string, error) {
	out := make(map[string]string)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return out, nil
	}
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, rank := part, ""
		if i := strings.LastIndex(part, ":"); i >= 0 {
			name, rank = part[:i], strings.TrimSpace(part[i+1:])
			if _, err := strconv.Atoi(rank); err != nil {
				return nil, fmt.Errorf("bad rank in %q", part)
			}
		}
		out[extract.Normalize(name)] = rank
	}
	return out, nil
}

func compareExpected(expected, got map[string]string) string {
	var diffs []string
	for name, rank := range expected {
		gotRank, ok := got[name]
		switch {
		case !ok:
			diffs = append(diffs, fmt.Sprintf("missing %q", name))
		case gotRank != rank:
			diffs = append(diffs, fmt.Sprintf("%q rank %q, want %q", name, gotRank, rank))
		}
	}
	for name := range got {
		if _, ok := expected[name]; !ok {
			diffs = append(diffs, fmt.Sprintf("unexpected %q", name))
		}
	}
	return strings.Join(diffs, "; ")
}

func init() {
	rootCmd.AddCommand(evalCmd)
}
