// services/report_service.go
package services

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/brandpulse/brandpulse/internal/store"
)

type reportService struct {
	store *store.Store
	title string
	log   zerolog.Logger
}

// NewReportService builds reports from persisted runs. title heads the
// rendered output; empty falls back to a generic heading.
func NewReportService(s *store.Store, title string, log zerolog.Logger) ReportService {
	if title == "" {
		title = "Brand visibility report"
	}
	return &reportService{store: s, title: title, log: log}
}

func (r *reportService) BuildReport(ctx context.Context, runID uuid.UUID) (*Report, error) {
	run, err := r.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	stats, err := r.store.BrandStats(ctx, runID)
	if err != nil {
		return nil, err
	}
	totalAnswers, err := r.store.CountAnswers(ctx, runID)
	if err != nil {
		return nil, err
	}
	warnings, err := r.store.AnswerWarnings(ctx, runID)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Title:          r.title,
		RunID:          runID,
		TotalAnswers:   totalAnswers,
		TotalMentions:  run.TotalMentions,
		TotalCostUSD:   run.TotalCostUSD,
		BudgetExceeded: run.BudgetExceeded,
		Warnings:       warnings,
	}
	for _, s := range stats {
		br := BrandReport{
			Brand:    s.Brand,
			IsMine:   s.IsMine,
			Mentions: s.Mentions,
			AvgRank:  s.AvgRank,
		}
		if totalAnswers > 0 {
			br.Visibility = float64(s.Mentions) / float64(totalAnswers)
		}
		if s.Mentions > 0 {
			br.TopRankShare = float64(s.TopRankCount) / float64(s.Mentions)
		}
		report.Brands = append(report.Brands, br)
	}
	return report, nil
}

func (r *reportService) RenderText(report *Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", report.Title)
	fmt.Fprintf(&sb, "Run %s\n", report.RunID)
	fmt.Fprintf(&sb, "Answers: %d  Mentions: %d  Cost: $%.4f\n", report.TotalAnswers, report.TotalMentions, report.TotalCostUSD)
	if report.BudgetExceeded {
		sb.WriteString("NOTE: run stopped at budget ceiling\n")
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "%-30s %-6s %8s %10s %8s %9s\n", "BRAND", "MINE", "MENTIONS", "VISIBILITY", "AVG RANK", "TOP SHARE")
	for _, b := range report.Brands {
		mine := ""
		if b.IsMine {
			mine = "yes"
		}
		avgRank := "-"
		if b.AvgRank != nil {
			avgRank = fmt.Sprintf("%.1f", *b.AvgRank)
		}
		fmt.Fprintf(&sb, "%-30s %-6s %8d %9.0f%% %8s %8.0f%%\n",
			b.Brand, mine, b.Mentions, b.Visibility*100, avgRank, b.TopRankShare*100)
	}

	if len(report.Warnings) > 0 {
		sb.WriteString("\nExtraction warnings:\n")
		for _, w := range report.Warnings {
			fmt.Fprintf(&sb, "  - %s\n", w)
		}
	}
	return sb.String()
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
	"rank": func(v *float64) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprintf("%.1f", *v)
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.4rem 0.8rem; text-align: left; }
tr.mine { background: #eef6ee; font-weight: bold; }
.warnings { color: #a66; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>Run {{.RunID}}</p>
<p>{{.TotalAnswers}} answers, {{.TotalMentions}} mentions, ${{printf "%.4f" .TotalCostUSD}} spent.{{if .BudgetExceeded}} Run stopped at budget ceiling.{{end}}</p>
<table>
<tr><th>Brand</th><th>Mine</th><th>Mentions</th><th>Visibility</th><th>Avg rank</th><th>Top-rank share</th></tr>
{{range .Brands}}<tr{{if .IsMine}} class="mine"{{end}}>
<td>{{.Brand}}</td><td>{{if .IsMine}}yes{{end}}</td><td>{{.Mentions}}</td><td>{{pct .Visibility}}</td><td>{{rank .AvgRank}}</td><td>{{pct .TopRankShare}}</td>
</tr>
{{end}}</table>
{{if .Warnings}}<h2>Extraction warnings</h2><ul class="warnings">{{range .Warnings}}<li>{{.}}</li>{{end}}</ul>{{end}}
</body>
</html>
`))

func (r *reportService) RenderHTML(report *Report) (string, error) {
	var sb strings.Builder
	if err := reportTemplate.Execute(&sb, report); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return sb.String(), nil
}
