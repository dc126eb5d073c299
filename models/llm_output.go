package models

import "sort"

// LLMOpportunity is a single recommendation from the model.
type LLMOpportunity struct {
	Ticker          string `json:"ticker" validate:"required,min=1,max=10"`
	ConvictionScore int    `json:"conviction_score" validate:"gte=0,lte=100"`
	BullCase        string `json:"bull_case" validate:"required"`
	BearCase        string `json:"bear_case" validate:"required"`
	KeyMetrics      string `json:"key_metrics"`
}

// Scenario is one allocation approach suggested by the model.
type Scenario struct {
	Name             string   `json:"name" validate:"required"`
	Description      string   `json:"description" validate:"required"`
	SuggestedTickers []string `json:"suggested_tickers" validate:"min=1,max=5"`
}

// AnalysisOutput is the exact structured response received from the model.
type AnalysisOutput struct {
	ExecutiveSummary    string           `json:"executive_summary" validate:"required"`
	MacroInterpretation string           `json:"macro_interpretation" validate:"required"`
	Opportunities       []LLMOpportunity `json:"opportunities" validate:"min=1,max=10,dive"`
	Scenarios           []Scenario       `json:"scenarios" validate:"min=2,max=4,dive"`
	ThemesInFocus       string           `json:"themes_in_focus"`
	RisksToWatch        string           `json:"risks_to_watch"`
}

// SortByConviction orders opportunities by conviction descending.
func (a *AnalysisOutput) SortByConviction() {
	sort.SliceStable(a.Opportunities, func(i, j int) bool {
		return a.Opportunities[i].ConvictionScore > a.Opportunities[j].ConvictionScore
	})
}

// MentionedTickers is the set of tickers named anywhere in the response:
// the opportunity list plus every scenario ticker list.
func (a AnalysisOutput) MentionedTickers() map[string]bool {
	set := make(map[string]bool)
	for _, o := range a.Opportunities {
		set[o.Ticker] = true
	}
	for _, s := range a.Scenarios {
		for _, t := range s.SuggestedTickers {
			set[t] = true
		}
	}
	return set
}
