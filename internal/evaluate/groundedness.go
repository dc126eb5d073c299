// Package evaluate checks LLM analysis output against the payload it was
// generated from and quantifies hallucinations.
package evaluate

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tinyvc/tinyvc/internal/stats"
	"github.com/tinyvc/tinyvc/models"
)

// Version identifies the evaluation logic for stored reports.
const Version = "1.0.0"

// Sub-check weights. Fixed: stored reports are only comparable across runs
// if the weighting never moves.
const (
	macroWeight      = 0.25
	tickerWeight     = 0.35
	metricWeight     = 0.30
	convictionWeight = 0.10
)

// Tolerance bands for numeric claims. The extraction is heuristic text
// matching, not parsing, so the bands are deliberately loose.
const (
	macroTolerance = 0.11
	peTolerance    = 2.0
	pegTolerance   = 0.5
)

// macroCheck ties a claim-extraction pattern to the payload field it must
// be checked against.
type macroCheck struct {
	pattern *regexp.Regexp
	name    string
	value   func(models.MacroEnvironment) float64
}

var macroChecks = []macroCheck{
	{
		pattern: regexp.MustCompile(`(?i)fed\s+funds?\s+rate.*?(\d+\.?\d+)`),
		name:    "fed funds rate",
		value:   func(m models.MacroEnvironment) float64 { return m.FedFundsRate },
	},
	{
		pattern: regexp.MustCompile(`(?i)10[-\s]?year?\s+treasury.*?(\d+\.?\d+)`),
		name:    "10Y treasury",
		value:   func(m models.MacroEnvironment) float64 { return m.Treasury10Y },
	},
	{
		pattern: regexp.MustCompile(`(?i)unemployment.*?(\d+\.?\d+)`),
		name:    "unemployment",
		value:   func(m models.MacroEnvironment) float64 { return m.Unemployment },
	},
	{
		pattern: regexp.MustCompile(`(?i)inflation.*?(\d+\.?\d+)`),
		name:    "inflation/CPI",
		value:   func(m models.MacroEnvironment) float64 { return m.CPIYoY },
	},
}

var (
	peMentionRe  = regexp.MustCompile(`(?i)P/E.*?(\d+\.?\d*)`)
	pegMentionRe = regexp.MustCompile(`(?i)PEG.*?(\d+\.?\d*)`)
)

// Evaluator compares an LLMPayload with the AnalysisOutput produced from
// it. Pure computation; neither input is mutated.
type Evaluator struct {
	logger zerolog.Logger
}

// New creates an Evaluator.
func New() *Evaluator {
	return &Evaluator{logger: log.With().Str("component", "groundedness_evaluator").Logger()}
}

// Evaluate produces the groundedness report and evaluation metadata for
// one payload/response pair.
func (e *Evaluator) Evaluate(payload models.LLMPayload, response models.AnalysisOutput) (models.GroundednessReport, models.EvaluationMetadata) {
	started := time.Now()
	e.logger.Info().Msg("evaluation started")

	macroScore, macroGrounded, macroTotal, macroHallucinations := e.checkMacroGrounding(payload, response)
	tickerScore, validCount, totalCount, hallucinated := e.checkTickerValidity(payload, response)
	metricScore, inconsistencies := e.checkMetricConsistency(payload, response)
	convictionCorr := e.convictionCorrelation(payload, response)

	convictionContribution := 0.5
	if convictionCorr != nil && *convictionCorr > 0.7 {
		convictionContribution = 1.0
	}

	overall := macroScore*macroWeight +
		tickerScore*tickerWeight +
		metricScore*metricWeight +
		convictionContribution*convictionWeight

	var issues []string
	if len(macroHallucinations) > 0 {
		issues = append(issues, fmt.Sprintf("%d macro claim(s) not grounded", len(macroHallucinations)))
	}
	if len(hallucinated) > 0 {
		issues = append(issues, fmt.Sprintf("%d hallucinated ticker(s)", len(hallucinated)))
	}
	if len(inconsistencies) > 0 {
		issues = append(issues, fmt.Sprintf("%d metric inconsistency(ies)", len(inconsistencies)))
	}
	if convictionCorr != nil && *convictionCorr < 0.5 {
		issues = append(issues, "low conviction-score correlation")
	}

	report := models.GroundednessReport{
		Date:                   payload.ReportDate,
		EvaluatedAt:            time.Now(),
		MacroClaimsTotal:       macroTotal,
		MacroClaimsGrounded:    macroGrounded,
		MacroGroundingScore:    macroScore,
		MacroHallucinations:    macroHallucinations,
		OpportunitiesTotal:     totalCount,
		OpportunitiesInPayload: validCount,
		HallucinatedTickers:    hallucinated,
		TickerAccuracy:         tickerScore,
		MetricInconsistencies:  inconsistencies,
		MetricConsistencyScore: metricScore,
		ConvictionCorrelation:  convictionCorr,
		OverallGroundingScore:  overall,
		QualityGrade:           Grade(overall),
		IssuesFound:            issues,
	}

	metadata := models.EvaluationMetadata{
		EvaluatorVersion:          Version,
		EvaluationDurationSeconds: time.Since(started).Seconds(),
		PayloadSizeKB:             jsonSizeKB(payload),
		ResponseSizeKB:            jsonSizeKB(response),
	}

	e.logger.Info().
		Float64("overall_score", overall).
		Str("grade", report.QualityGrade).
		Int("issues", len(issues)).
		Msg("evaluation complete")

	return report, metadata
}

// checkMacroGrounding scans the macro interpretation for numeric claims
// next to the four known macro terms. Zero claims found means the prose is
// qualitative, which is a full pass rather than a failure.
func (e *Evaluator) checkMacroGrounding(payload models.LLMPayload, response models.AnalysisOutput) (score float64, grounded, total int, hallucinations []string) {
	text := response.MacroInterpretation
	env := payload.MacroEnvironment

	for _, check := range macroChecks {
		actual := check.value(env)
		for _, match := range check.pattern.FindAllStringSubmatch(text, -1) {
			claimed, err := strconv.ParseFloat(match[1], 64)
			if err != nil {
				continue
			}
			total++
			if diff := claimed - actual; diff < macroTolerance && diff > -macroTolerance {
				grounded++
			} else {
				hallucinations = append(hallucinations,
					fmt.Sprintf("%s: claimed %v, actual %v", check.name, claimed, actual))
			}
		}
	}

	if total == 0 {
		return 1.0, 0, 0, nil
	}
	return float64(grounded) / float64(total), grounded, total, hallucinations
}

// checkTickerValidity verifies every ticker the response mentions exists
// in the payload. Zero mentioned tickers scores 1.0.
func (e *Evaluator) checkTickerValidity(payload models.LLMPayload, response models.AnalysisOutput) (score float64, valid, total int, hallucinated []string) {
	validTickers := payload.TickerSet()
	mentioned := response.MentionedTickers()

	// Deterministic order for the stored report.
	for _, ticker := range sortedKeys(mentioned) {
		total++
		if validTickers[ticker] {
			valid++
		} else {
			hallucinated = append(hallucinated, ticker)
		}
	}

	if total == 0 {
		return 1.0, 0, 0, nil
	}
	return float64(valid) / float64(total), valid, total, hallucinated
}

// checkMetricConsistency scans bull/bear case text of each valid response
// opportunity for P/E and PEG mentions and compares them to the payload.
// Hallucinated tickers are skipped here; they are already penalized by the
// ticker check. Zero metric mentions scores 1.0.
func (e *Evaluator) checkMetricConsistency(payload models.LLMPayload, response models.AnalysisOutput) (float64, []models.MetricInconsistency) {
	var inconsistencies []models.MetricInconsistency
	performed, passed := 0, 0

	for _, opp := range response.Opportunities {
		payloadOpp, ok := payload.OpportunityByTicker(opp.Ticker)
		if !ok {
			continue
		}

		combined := opp.BullCase + " " + opp.BearCase

		for _, match := range peMentionRe.FindAllStringSubmatch(combined, -1) {
			claimed, err := strconv.ParseFloat(match[1], 64)
			if err != nil {
				continue
			}
			performed++
			if payloadOpp.PERatio != nil && withinTolerance(claimed, *payloadOpp.PERatio, peTolerance) {
				passed++
			} else {
				inconsistencies = append(inconsistencies, models.MetricInconsistency{
					Ticker:  opp.Ticker,
					Metric:  "PE ratio",
					Claimed: formatFloat(claimed),
					Actual:  formatOptional(payloadOpp.PERatio),
				})
			}
		}

		for _, match := range pegMentionRe.FindAllStringSubmatch(combined, -1) {
			claimed, err := strconv.ParseFloat(match[1], 64)
			if err != nil {
				continue
			}
			performed++
			if payloadOpp.PEGRatio != nil && withinTolerance(claimed, *payloadOpp.PEGRatio, pegTolerance) {
				passed++
			} else {
				inconsistencies = append(inconsistencies, models.MetricInconsistency{
					Ticker:  opp.Ticker,
					Metric:  "PEG ratio",
					Claimed: formatFloat(claimed),
					Actual:  formatOptional(payloadOpp.PEGRatio),
				})
			}
		}
	}

	if performed == 0 {
		return 1.0, nil
	}
	return float64(passed) / float64(performed), inconsistencies
}

// convictionCorrelation is the Pearson correlation between response
// conviction scores and payload opportunity scores over the ticker
// intersection. Nil when undefined; a numerically degenerate correlation
// degrades to nil as well, never to a hard failure.
func (e *Evaluator) convictionCorrelation(payload models.LLMPayload, response models.AnalysisOutput) *float64 {
	var convictions, opportunityScores []float64
	for _, opp := range response.Opportunities {
		payloadOpp, ok := payload.OpportunityByTicker(opp.Ticker)
		if !ok {
			continue
		}
		convictions = append(convictions, float64(opp.ConvictionScore))
		opportunityScores = append(opportunityScores, payloadOpp.OpportunityScore)
	}

	if len(convictions) < 2 {
		return nil
	}
	r, err := stats.Pearson(convictions, opportunityScores)
	if err != nil {
		if !errors.Is(err, stats.ErrInsufficientData) {
			e.logger.Warn().Err(err).Msg("conviction correlation failed")
		}
		return nil
	}
	return &r
}

// Grade maps an overall score to a letter grade (inclusive lower bounds).
func Grade(score float64) string {
	switch {
	case score >= 0.95:
		return "A+"
	case score >= 0.90:
		return "A"
	case score >= 0.85:
		return "A-"
	case score >= 0.80:
		return "B+"
	case score >= 0.75:
		return "B"
	case score >= 0.70:
		return "B-"
	case score >= 0.65:
		return "C+"
	case score >= 0.60:
		return "C"
	case score >= 0.55:
		return "C-"
	case score >= 0.50:
		return "D"
	default:
		return "F"
	}
}

func withinTolerance(claimed, actual, tolerance float64) bool {
	diff := claimed - actual
	return diff < tolerance && diff > -tolerance
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(p *float64) string {
	if p == nil {
		return "N/A"
	}
	return formatFloat(*p)
}

func jsonSizeKB(v any) float64 {
	b, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return float64(len(b)) / 1024.0
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
