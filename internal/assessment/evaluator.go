// internal/assessment/evaluator.go
package assessment

import (
	"fmt"
	"math"
)

// gmScoreCap aligns the GM score ceiling with the default green threshold:
// a 25% margin saturates at 25 * 3 = 75 points. Margins above that earn no
// extra GM points; the remaining 25 points must come from de-risk factors.
const (
	gmPointsPerPercent = 3.0
	gmScoreCap         = 75.0
)

// EvaluateCriteria applies the rule set to a deal's input and financials.
// Pure function: it never errors on a well-formed input and never mutates
// the criteria.
func EvaluateCriteria(input *OpportunityInput, fin FinancialSummary, criteria AssessmentCriteria) Evaluation {
	ev := Evaluation{
		Passed:    []CriterionResult{},
		Failed:    []CriterionResult{},
		Attention: []CriterionResult{},
	}

	evaluateGrossMargin(&ev, fin, criteria)
	evaluateCriticalGates(&ev, input, criteria)
	evaluateDeRiskFactors(&ev, input, criteria.DeRiskFactors)
	evaluateRiskFactors(&ev, input, criteria.RiskFactors)

	return ev
}

// evaluateGrossMargin buckets the margin into exactly one of
// passed/attention/failed and sets the GM sub-score.
func evaluateGrossMargin(ev *Evaluation, fin FinancialSummary, criteria AssessmentCriteria) {
	gmPct := fin.GrossMarginPercent
	ev.GMScore = math.Min(gmPct*gmPointsPerPercent, gmScoreCap)
	points := int(math.Round(ev.GMScore))

	switch {
	case gmPct >= criteria.GreenGMThreshold:
		ev.Passed = append(ev.Passed, CriterionResult{
			Name:   "Gross margin",
			Passed: true,
			Points: points,
			Detail: fmt.Sprintf("gross margin %.1f%%", gmPct),
		})
	case gmPct >= criteria.AmberGMThreshold:
		ev.Attention = append(ev.Attention, CriterionResult{
			Name:     "Gross margin",
			Points:   points,
			Detail:   fmt.Sprintf("gross margin %.1f%%, %.1f%% required for green", gmPct, criteria.GreenGMThreshold),
			Severity: SeverityMedium,
		})
	default:
		ev.Failed = append(ev.Failed, CriterionResult{
			Name:     "Gross margin",
			Points:   points,
			Detail:   fmt.Sprintf("gross margin %.1f%%, minimum %.1f%% required", gmPct, criteria.AmberGMThreshold),
			Severity: SeverityCritical,
		})
	}
}

// evaluateCriticalGates checks the enabled boolean gates. A failed gate
// forces the deal red regardless of score.
//
// The RequireDAApproval toggle exists in the criteria but is deliberately
// not checked here; missing DA approval already costs its de-risk bonus.
func evaluateCriticalGates(ev *Evaluation, input *OpportunityInput, criteria AssessmentCriteria) {
	if criteria.RequireProofOfOwnership {
		if input.HasProofOfOwnership {
			ev.Passed = append(ev.Passed, CriterionResult{
				Name:   "Proof of ownership",
				Passed: true,
			})
		} else {
			ev.Failed = append(ev.Failed, CriterionResult{
				Name:     "Proof of ownership",
				Detail:   "no proof of ownership provided",
				Severity: SeverityCritical,
			})
			ev.CriticalFailures++
		}
	}

	if criteria.RequireNoLegalDisputes {
		if !input.HasActiveLegalDisputes {
			ev.Passed = append(ev.Passed, CriterionResult{
				Name:   "No active legal disputes",
				Passed: true,
			})
		} else {
			ev.Failed = append(ev.Failed, CriterionResult{
				Name:     "No active legal disputes",
				Detail:   "active legal disputes on the property",
				Severity: SeverityCritical,
			})
			ev.CriticalFailures++
		}
	}
}

func evaluateDeRiskFactors(ev *Evaluation, input *OpportunityInput, factors DeRiskFactors) {
	addBonus := func(name string, points int, detail string) {
		ev.DeRiskScore += points
		ev.Passed = append(ev.Passed, CriterionResult{
			Name:   name,
			Passed: true,
			Points: points,
			Detail: detail,
		})
	}

	if input.HasDAApproval {
		addBonus("DA approved", factors.DAApproved, "")
	}
	if input.HasVendorFinance {
		addBonus("Vendor finance", factors.VendorFinance, "")
	}
	if input.HasFixedPriceBuild {
		addBonus("Fixed-price construction", factors.FixedPriceBuild, "")
	}
	if input.HasExperiencedPM {
		addBonus("Experienced project manager", factors.ExperiencedPM, "")
	}
	if input.HasClearTitle {
		addBonus("Clear title", factors.ClearTitle, "")
	}
	if input.InGrowthCorridor {
		addBonus("Growth corridor location", factors.GrowthCorridor, "")
	}
	if input.HasPreSales && input.PreSalesPercent >= 50 {
		addBonus("Pre-sales secured", factors.PreSales50Plus,
			fmt.Sprintf("%.0f%% of units pre-sold", input.PreSalesPercent))
	}
}

// evaluateRiskFactors applies the penalty factors. Risk factors are
// informational rather than disqualifying, so they land in attention, not
// failed.
func evaluateRiskFactors(ev *Evaluation, input *OpportunityInput, factors RiskFactors) {
	addPenalty := func(name string, points int, detail string, severity Severity) {
		ev.RiskScore += points
		ev.Attention = append(ev.Attention, CriterionResult{
			Name:     name,
			Points:   points,
			Detail:   detail,
			Severity: severity,
		})
	}

	if input.HasPreviousLegalDisputes {
		addPenalty("Previous legal disputes", factors.PreviousLegalDisputes,
			"prior disputes were resolved", SeverityMedium)
	}
	if input.LandStage == LandStageNeedsRezoning {
		addPenalty("Rezoning required", factors.NeedsRezoning,
			"land requires rezoning before development", SeverityHigh)
	}
	if !input.HasPreSales {
		addPenalty("No pre-sales", factors.NoPreSales,
			"no pre-sales secured yet", SeverityLow)
	}
}
