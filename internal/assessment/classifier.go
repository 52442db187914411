// internal/assessment/classifier.go
package assessment

import "math"

// FinalScore combines the sub-scores into the 0-100 presentation score.
// Rounding happens here, before classification: the classifier compares the
// same rounded value that callers see.
func FinalScore(ev Evaluation) int {
	total := ev.GMScore + float64(ev.DeRiskScore) + float64(ev.RiskScore)
	return clampScore(int(math.Round(total)))
}

// DetermineStatus maps a rounded score and margin onto the RAG status.
// Precedence is fixed: critical failures override everything, then a margin
// below the amber floor, then the green conjunction (score AND margin), then
// the amber disjunction (score OR margin). Green requires both conditions;
// amber only one, so a deal can reach amber on margin alone or score alone.
func DetermineStatus(score int, gmPercent float64, criteria AssessmentCriteria, hasCriticalFailures bool) Status {
	switch {
	case hasCriticalFailures:
		return StatusRed
	case gmPercent < criteria.AmberGMThreshold:
		return StatusRed
	case score >= 80 && gmPercent >= criteria.GreenGMThreshold:
		return StatusGreen
	case score >= 60 || gmPercent >= criteria.AmberGMThreshold:
		return StatusAmber
	default:
		return StatusRed
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
