// internal/workers/assessment/save-assessment/models.go
package saveassessment

import "dealflow-workers/internal/assessment"

type Input struct {
	DealID      string                       `json:"dealId"`
	CompanyID   string                       `json:"companyId,omitempty"`
	Opportunity *assessment.OpportunityInput `json:"opportunity,omitempty"`
	Assessment  *assessment.AssessmentResult `json:"assessment"`

	// Narrative produced by generate-insights; stored alongside the scores.
	Summary         string   `json:"summary,omitempty"`
	PathToGreen     []string `json:"pathToGreen,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	FallbackUsed    bool     `json:"fallbackUsed,omitempty"`
}

type Output struct {
	AssessmentID string `json:"assessmentId"`
	SavedAt      string `json:"savedAt"` // ISO 8601
}
