// internal/workers/assessment/calculate-financials/models.go
package calculatefinancials

import "dealflow-workers/internal/assessment"

type Input struct {
	Opportunity *assessment.OpportunityInput `json:"opportunity"`
}

type Output struct {
	Financials assessment.FinancialSummary `json:"financials"`
	Units      int                         `json:"units"`
}
