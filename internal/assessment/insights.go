// internal/assessment/insights.go
package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInsightsUnavailable = errors.New("INSIGHTS_UNAVAILABLE")
	ErrInsightsMalformed   = errors.New("INSIGHTS_MALFORMED")
)

// InsightsRequest carries the computed facts to the narrative provider.
// The provider explains the result; it never re-derives or overrides it.
type InsightsRequest struct {
	Input      *OpportunityInput
	Financials FinancialSummary
	Status     Status
	Score      int
	Criteria   AssessmentCriteria
	Passed     []CriterionResult
	Failed     []CriterionResult
	Attention  []CriterionResult
}

// InsightsGenerator produces narrative insights for a computed assessment.
// Implementations perform the only I/O in the assessment path and should
// honor the context deadline.
type InsightsGenerator interface {
	Generate(ctx context.Context, req InsightsRequest) (*Insights, error)
}

// ParseInsights decodes a provider response into Insights. Providers often
// wrap the JSON object in markdown code fences; fences are stripped before
// decoding. An empty summary counts as malformed so callers fall back to
// templated text.
func ParseInsights(raw string) (*Insights, error) {
	cleaned := stripCodeFences(raw)

	var parsed Insights
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsightsMalformed, err)
	}
	if strings.TrimSpace(parsed.Summary) == "" {
		return nil, fmt.Errorf("%w: empty summary", ErrInsightsMalformed)
	}
	if parsed.PathToGreen == nil {
		parsed.PathToGreen = []string{}
	}
	if parsed.Recommendations == nil {
		parsed.Recommendations = []string{}
	}
	return &parsed, nil
}

func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// FallbackInsights builds deterministic templated insights from the status
// and the margin gap. Used whenever the narrative provider is unavailable or
// returns something unparseable; it must produce non-empty fields for every
// status.
func FallbackInsights(status Status, fin FinancialSummary, criteria AssessmentCriteria) *Insights {
	gmPct := fin.GrossMarginPercent

	switch status {
	case StatusGreen:
		return &Insights{
			Summary: fmt.Sprintf(
				"This deal meets the investment criteria with a gross margin of %.1f%% against a %.1f%% target. The numbers support proceeding to detailed due diligence.",
				gmPct, criteria.GreenGMThreshold),
			PathToGreen: []string{"Deal already meets the green criteria"},
			Recommendations: []string{
				"Proceed to detailed due diligence",
				"Confirm construction quotes and sale price assumptions with current market data",
				"Lock in finance terms while the deal conditions hold",
			},
		}
	case StatusAmber:
		gap := criteria.GreenGMThreshold - gmPct
		return &Insights{
			Summary: fmt.Sprintf(
				"This deal is workable but below the green target: gross margin is %.1f%% and needs another %.1f points to reach %.1f%%. Address the flagged items before committing.",
				gmPct, gap, criteria.GreenGMThreshold),
			PathToGreen: []string{
				fmt.Sprintf("Lift gross margin by %.1f points through lower acquisition or construction costs", gap),
				"Secure pre-sales of 50% or more of units",
				"Obtain DA approval before settlement if not already held",
			},
			Recommendations: []string{
				"Renegotiate the land price or construction contract",
				"Re-test sale price assumptions against recent comparable sales",
				"Resolve every attention item before exchanging contracts",
			},
		}
	default:
		gap := criteria.AmberGMThreshold - gmPct
		pathToGreen := []string{
			"Restructure the deal to clear the minimum margin threshold",
			"Reduce land or construction costs materially",
			"Reassess sale prices against current comparable evidence",
		}
		if gap > 0 {
			pathToGreen[0] = fmt.Sprintf(
				"Lift gross margin by at least %.1f points to clear the %.1f%% minimum", gap, criteria.AmberGMThreshold)
		}
		return &Insights{
			Summary: fmt.Sprintf(
				"This deal does not meet the investment criteria in its current form: gross margin is %.1f%% against a %.1f%% minimum. Do not proceed without restructuring.",
				gmPct, criteria.AmberGMThreshold),
			PathToGreen: pathToGreen,
			Recommendations: []string{
				"Do not proceed on current numbers",
				"Resolve any critical failures before re-assessing",
				"Walk away if the vendor will not renegotiate",
			},
		}
	}
}
