// internal/models/deal.go
package models

import (
	"time"

	"dealflow-workers/internal/assessment"
)

// Deal is a persisted opportunity together with its latest assessment.
type Deal struct {
	ID          string                      `json:"id"`
	CompanyID   string                      `json:"companyId,omitempty"`
	Opportunity assessment.OpportunityInput `json:"opportunity"`
	Status      string                      `json:"status"`
	Score       int                         `json:"score"`
	CreatedAt   string                      `json:"createdAt"`
	UpdatedAt   string                      `json:"updatedAt"`
}

// AssessmentRecord is the row written by the save-assessment worker.
type AssessmentRecord struct {
	ID              string    `json:"id"`
	DealID          string    `json:"dealId"`
	CompanyID       string    `json:"companyId,omitempty"`
	Status          string    `json:"status"`
	Score           int       `json:"score"`
	CriteriaVersion string    `json:"criteriaVersion,omitempty"`
	ResultJSON      []byte    `json:"-"`
	AssessedAt      time.Time `json:"assessedAt"`
	CreatedAt       time.Time `json:"createdAt"`
}

// AssessmentDocument is the denormalised shape indexed into Elasticsearch by
// the index-assessment worker. Flat fields so dashboards can aggregate
// without nested mappings.
type AssessmentDocument struct {
	AssessmentID       string    `json:"assessmentId"`
	DealID             string    `json:"dealId"`
	CompanyID          string    `json:"companyId,omitempty"`
	DealName           string    `json:"dealName"`
	City               string    `json:"city,omitempty"`
	State              string    `json:"state,omitempty"`
	LandStage          string    `json:"landStage,omitempty"`
	Units              int       `json:"units"`
	Status             string    `json:"status"`
	Score              int       `json:"score"`
	GrossMarginPercent float64   `json:"grossMarginPercent"`
	TotalCost          float64   `json:"totalCost"`
	TotalRevenue       float64   `json:"totalRevenue"`
	CriteriaVersion    string    `json:"criteriaVersion,omitempty"`
	FallbackUsed       bool      `json:"fallbackUsed"`
	AssessedAt         time.Time `json:"assessedAt"`
}

// NotificationRecord captures the outcome of a delivery attempt.
type NotificationRecord struct {
	ID        string `json:"id"`
	Channel   string `json:"channel"` // "email" or "sms"
	Recipient string `json:"recipient"`
	Status    string `json:"status"`
	SentAt    string `json:"sentAt"`
}
