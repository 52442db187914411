// internal/workers/assessment/assess-deal/models.go
package assessdeal

import "dealflow-workers/internal/assessment"

type Input struct {
	CompanyID   string                       `json:"companyId,omitempty"`
	Opportunity *assessment.OpportunityInput `json:"opportunity"`

	// Criteria inline overrides the stored rule set; used for what-if runs.
	Criteria *assessment.AssessmentCriteria `json:"criteria,omitempty"`
}

type Output struct {
	Assessment      assessment.AssessmentResult `json:"assessment"`
	CriteriaVersion string                      `json:"criteriaVersion,omitempty"`
	CriteriaSource  string                      `json:"criteriaSource"` // "inline", "company", "default"
}
