// internal/workers/assessment/validate-opportunity/models.go
package validateopportunity

import "dealflow-workers/internal/assessment"

type Input struct {
	CompanyID   string                 `json:"companyId,omitempty"`
	Opportunity map[string]interface{} `json:"opportunity"`
}

type Output struct {
	Valid       bool                         `json:"valid"`
	Opportunity *assessment.OpportunityInput `json:"opportunity,omitempty"`
	Errors      []FieldError                 `json:"validationErrors,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
