// internal/workers/assessment/index-assessment/models.go
package indexassessment

import "dealflow-workers/internal/assessment"

type Input struct {
	AssessmentID string                       `json:"assessmentId"`
	DealID       string                       `json:"dealId"`
	CompanyID    string                       `json:"companyId,omitempty"`
	Opportunity  *assessment.OpportunityInput `json:"opportunity,omitempty"`
	Assessment   *assessment.AssessmentResult `json:"assessment"`
	FallbackUsed bool                         `json:"fallbackUsed,omitempty"`
}

type Output struct {
	Indexed   bool   `json:"indexed"`
	IndexName string `json:"indexName"`
	IndexedAt string `json:"indexedAt"` // ISO 8601
}
