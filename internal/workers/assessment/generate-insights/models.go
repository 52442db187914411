// internal/workers/assessment/generate-insights/models.go
package generateinsights

import "dealflow-workers/internal/assessment"

type Input struct {
	Opportunity *assessment.OpportunityInput `json:"opportunity"`
	Assessment  *assessment.AssessmentResult `json:"assessment"`

	// Criteria the assessment was scored against; needed for threshold
	// references in the narrative. Defaults apply when absent.
	Criteria *assessment.AssessmentCriteria `json:"criteria,omitempty"`
}

type Output struct {
	Summary         string   `json:"summary"`
	PathToGreen     []string `json:"pathToGreen"`
	Recommendations []string `json:"recommendations"`
	FallbackUsed    bool     `json:"fallbackUsed"`
}
