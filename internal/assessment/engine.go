// internal/assessment/engine.go
package assessment

import (
	"context"
	"time"
)

// Engine runs the assessment pipeline: financial calculator, criteria
// evaluator, classifier, and optionally the narrative stage. The scoring
// stages are pure and deterministic; only the insights generator performs
// I/O. The generator is injected, never held as package state.
type Engine struct {
	insights InsightsGenerator
}

// NewEngine creates an Engine. A nil generator is valid: Assess then always
// uses the templated fallback insights.
func NewEngine(insights InsightsGenerator) *Engine {
	return &Engine{insights: insights}
}

// QuickAssess runs the synchronous scoring path with no I/O. Suitable for
// previews and drafts; for fixed input and criteria the score and status are
// identical across calls.
func (e *Engine) QuickAssess(input *OpportunityInput, criteria AssessmentCriteria) AssessmentResult {
	fin := CalculateFinancials(input)
	ev := EvaluateCriteria(input, fin, criteria)
	score := FinalScore(ev)
	status := DetermineStatus(score, fin.GrossMarginPercent, criteria, ev.HasCriticalFailures())

	return AssessmentResult{
		Status:          status,
		Score:           score,
		GMScore:         ev.GMScore,
		DeRiskScore:     ev.DeRiskScore,
		RiskScore:       ev.RiskScore,
		Financials:      fin,
		Passed:          ev.Passed,
		Failed:          ev.Failed,
		Attention:       ev.Attention,
		AssessedAt:      time.Now().UTC(),
		CriteriaVersion: criteria.Version,
	}
}

// Assess runs the full path: QuickAssess plus one attempt at narrative
// generation. Any generator failure degrades to the deterministic fallback;
// the numeric result is never blocked and no error surfaces to the caller.
func (e *Engine) Assess(ctx context.Context, input *OpportunityInput, criteria AssessmentCriteria) AssessmentResult {
	result := e.QuickAssess(input, criteria)

	insights := e.generateInsights(ctx, input, &result, criteria)
	result.Summary = insights.Summary
	result.PathToGreen = insights.PathToGreen
	result.Recommendations = insights.Recommendations

	return result
}

func (e *Engine) generateInsights(ctx context.Context, input *OpportunityInput, result *AssessmentResult, criteria AssessmentCriteria) *Insights {
	if e.insights == nil {
		result.FallbackUsed = true
		return FallbackInsights(result.Status, result.Financials, criteria)
	}

	generated, err := e.insights.Generate(ctx, InsightsRequest{
		Input:      input,
		Financials: result.Financials,
		Status:     result.Status,
		Score:      result.Score,
		Criteria:   criteria,
		Passed:     result.Passed,
		Failed:     result.Failed,
		Attention:  result.Attention,
	})
	if err != nil || generated == nil {
		result.FallbackUsed = true
		return FallbackInsights(result.Status, result.Financials, criteria)
	}
	return generated
}
