// Package report renders the weekly analysis into markdown and HTML.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/tinyvc/tinyvc/internal/payload"
	"github.com/tinyvc/tinyvc/models"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

// Input is everything the weekly report is rendered from.
type Input struct {
	Date         string
	Payload      models.LLMPayload
	Analysis     models.AnalysisOutput
	Evaluation   models.GroundednessReport
	Sentiment    models.SentimentData
	Correlations models.CorrelationMatrix
}

// BuildMarkdown renders the full weekly report as markdown.
func BuildMarkdown(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Weekly Investment Report - %s\n\n", in.Date)

	b.WriteString("## Executive Summary\n\n")
	b.WriteString(in.Analysis.ExecutiveSummary)
	b.WriteString("\n\n")

	writeMacroSection(&b, in)
	writeMarketSection(&b, in.Payload.MarketContext)
	writeNewsSection(&b, in.Payload.MarketNews)
	writeOpportunitiesSection(&b, in)
	writeScenariosSection(&b, in.Analysis.Scenarios)

	if in.Analysis.ThemesInFocus != "" {
		b.WriteString("## Themes in Focus\n\n")
		b.WriteString(in.Analysis.ThemesInFocus)
		b.WriteString("\n\n")
	}
	if in.Analysis.RisksToWatch != "" {
		b.WriteString("## Risks to Watch\n\n")
		b.WriteString(in.Analysis.RisksToWatch)
		b.WriteString("\n\n")
	}

	writeQualitySection(&b, in.Evaluation)
	writeCorrelationAppendix(&b, in.Correlations)

	b.WriteString("---\n\n")
	b.WriteString("*Automated research, not investment advice. Verify before acting.*\n")
	return b.String()
}

// ToHTML converts report markdown into a standalone HTML document.
func ToHTML(md string) (string, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(md), &body); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}

	var doc strings.Builder
	doc.WriteString(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: Georgia, serif; max-width: 720px; margin: 0 auto; padding: 24px; color: #1a1a1a; }
h1 { border-bottom: 2px solid #2c3e50; padding-bottom: 8px; }
h2 { color: #2c3e50; margin-top: 28px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ddd; padding: 6px 10px; text-align: left; }
th { background: #f4f4f4; }
blockquote { border-left: 3px solid #ccc; margin-left: 0; padding-left: 12px; color: #555; }
</style>
</head>
<body>
`)
	doc.Write(body.Bytes())
	doc.WriteString("\n</body>\n</html>\n")
	return doc.String(), nil
}

func writeMacroSection(b *strings.Builder, in Input) {
	env := in.Payload.MacroEnvironment

	b.WriteString("## Macro Environment\n\n")
	b.WriteString("| Indicator | Value |\n|---|---|\n")
	fmt.Fprintf(b, "| Fed Funds Rate | %.2f%% |\n", env.FedFundsRate)
	fmt.Fprintf(b, "| 10Y Treasury | %.2f%% |\n", env.Treasury10Y)
	fmt.Fprintf(b, "| Unemployment | %.1f%% |\n", env.Unemployment)
	fmt.Fprintf(b, "| CPI YoY | %.1f%% |\n", env.CPIYoY)
	fmt.Fprintf(b, "| Yield Curve Inverted | %s |\n", yesNo(env.YieldCurveInverted))
	fmt.Fprintf(b, "| Fear & Greed | %d (%s, %s) |\n\n", env.FearGreedScore, env.FearGreedLabel, in.Sentiment.TrendDirection())

	b.WriteString(in.Analysis.MacroInterpretation)
	b.WriteString("\n\n")
}

func writeMarketSection(b *strings.Builder, ctx models.MarketContext) {
	b.WriteString("## Market Regime\n\n")
	fmt.Fprintf(b, "- **Trend:** %s\n", ctx.TrendSignal)
	fmt.Fprintf(b, "- **Risk regime:** %s\n", ctx.RiskRegime)

	if len(ctx.SectorLeaders) > 0 {
		ranked := payload.SectorRanking(ctx.SectorLeaders)
		top := ranked
		if len(top) > 3 {
			top = top[:3]
		}
		parts := make([]string, 0, len(top))
		for _, t := range top {
			parts = append(parts, fmt.Sprintf("%s (%+.1f%%)", t, ctx.SectorLeaders[t]))
		}
		fmt.Fprintf(b, "- **Sector leaders (1M):** %s\n", strings.Join(parts, ", "))
	}
	b.WriteString("\n")
}

func writeNewsSection(b *strings.Builder, news models.MarketNews) {
	if news.DailyDrivers == "" && news.SectorContext == "" && news.MacroSentiment == "" {
		return
	}
	b.WriteString("## Market News\n\n")
	if news.DailyDrivers != "" {
		fmt.Fprintf(b, "**This week's drivers:** %s\n\n", news.DailyDrivers)
	}
	if news.SectorContext != "" {
		fmt.Fprintf(b, "**Sector rotation:** %s\n\n", news.SectorContext)
	}
	if news.MacroSentiment != "" {
		fmt.Fprintf(b, "**Macro sentiment:** %s\n\n", news.MacroSentiment)
	}
}

func writeOpportunitiesSection(b *strings.Builder, in Input) {
	b.WriteString("## Opportunities\n\n")
	for _, opp := range in.Analysis.Opportunities {
		fmt.Fprintf(b, "### %s - conviction %d/100\n\n", opp.Ticker, opp.ConvictionScore)
		if item, ok := in.Payload.OpportunityByTicker(opp.Ticker); ok {
			parts := []string{
				fmt.Sprintf("Price $%.2f", item.CurrentPrice),
				fmt.Sprintf("Score %.1f", item.OpportunityScore),
			}
			if item.PERatio != nil {
				parts = append(parts, fmt.Sprintf("P/E %.1f", *item.PERatio))
			}
			if item.PEGRatio != nil {
				parts = append(parts, fmt.Sprintf("PEG %.2f", *item.PEGRatio))
			}
			fmt.Fprintf(b, "%s\n\n", strings.Join(parts, " | "))
		}
		fmt.Fprintf(b, "**Bull case:** %s\n\n", opp.BullCase)
		fmt.Fprintf(b, "**Bear case:** %s\n\n", opp.BearCase)
		if opp.KeyMetrics != "" {
			fmt.Fprintf(b, "**Key metrics:** %s\n\n", opp.KeyMetrics)
		}
	}
}

func writeScenariosSection(b *strings.Builder, scenarios []models.Scenario) {
	if len(scenarios) == 0 {
		return
	}
	b.WriteString("## Allocation Scenarios\n\n")
	for _, s := range scenarios {
		fmt.Fprintf(b, "**%s** (%s)\n\n%s\n\n", s.Name, strings.Join(s.SuggestedTickers, ", "), s.Description)
	}
}

func writeQualitySection(b *strings.Builder, eval models.GroundednessReport) {
	b.WriteString("## Analysis Quality\n\n")
	fmt.Fprintf(b, "Groundedness: **%.0f%% (%s)**", eval.OverallGroundingScore*100, eval.QualityGrade)
	if len(eval.IssuesFound) > 0 {
		fmt.Fprintf(b, " - %s", strings.Join(eval.IssuesFound, "; "))
	}
	b.WriteString("\n\n")
}

// writeCorrelationAppendix renders the pairwise return correlations used
// by the diversification step. Omitted when the matrix could not be built.
func writeCorrelationAppendix(b *strings.Builder, matrix models.CorrelationMatrix) {
	if matrix.Empty() {
		return
	}

	b.WriteString("## Appendix: Return Correlations\n\n")
	b.WriteString("| |")
	for _, t := range matrix.Tickers {
		fmt.Fprintf(b, " %s |", t)
	}
	b.WriteString("\n|---|")
	for range matrix.Tickers {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for i, t := range matrix.Tickers {
		fmt.Fprintf(b, "| **%s** |", t)
		for j := range matrix.Tickers {
			fmt.Fprintf(b, " %.2f |", matrix.Values[i][j])
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
