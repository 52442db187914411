// internal/assessment/types.go
package assessment

import "time"

// Status is the RAG classification of a deal.
type Status string

const (
	StatusGreen Status = "green"
	StatusAmber Status = "amber"
	StatusRed   Status = "red"
)

// Land stages accepted on an opportunity.
const (
	LandStageDAApproved    = "da_approved"
	LandStageNeedsRezoning = "needs_rezoning"
	LandStageVacant        = "vacant"
	LandStageRedevelopment = "redevelopment"
)

// Property size units accepted on an opportunity.
const (
	SizeUnitSqm   = "sqm"
	SizeUnitAcres = "acres"
	SizeUnitSqft  = "sqft"
)

// Severity tags a criterion result for UI emphasis. It never affects scoring.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// OpportunityInput is the raw record for a candidate property deal.
// Shape validation happens upstream (validate-opportunity worker); the
// engine assumes a well-formed input.
type OpportunityInput struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`

	PropertySize       float64 `json:"propertySize,omitempty"`
	SizeUnit           string  `json:"sizeUnit,omitempty"`
	LandStage          string  `json:"landStage,omitempty"`
	CurrentZoning      string  `json:"currentZoning,omitempty"`
	NumLots            int     `json:"numLots"`
	NumDwellings       int     `json:"numDwellings,omitempty"`
	ExistingStructures string  `json:"existingStructures,omitempty"`

	LandPurchasePrice   float64 `json:"landPurchasePrice"`
	InfrastructureCosts float64 `json:"infrastructureCosts"`
	ConstructionPerUnit float64 `json:"constructionPerUnit"`
	AvgSalePrice        float64 `json:"avgSalePrice"`
	ContingencyPercent  float64 `json:"contingencyPercent"`
	TimeframeMonths     int     `json:"timeframeMonths,omitempty"`

	HasProofOfOwnership      bool    `json:"hasProofOfOwnership"`
	HasActiveLegalDisputes   bool    `json:"hasActiveLegalDisputes"`
	HasPreviousLegalDisputes bool    `json:"hasPreviousLegalDisputes"`
	HasDAApproval            bool    `json:"hasDAApproval"`
	HasVendorFinance         bool    `json:"hasVendorFinance"`
	HasFixedPriceBuild       bool    `json:"hasFixedPriceBuild"`
	HasExperiencedPM         bool    `json:"hasExperiencedPM"`
	HasClearTitle            bool    `json:"hasClearTitle"`
	InGrowthCorridor         bool    `json:"inGrowthCorridor"`
	HasPreSales              bool    `json:"hasPreSales"`
	PreSalesPercent          float64 `json:"preSalesPercent,omitempty"`
}

// Units returns the unit count used for all per-unit math: dwellings take
// precedence over lots when supplied.
func (o *OpportunityInput) Units() int {
	if o.NumDwellings > 0 {
		return o.NumDwellings
	}
	return o.NumLots
}

// DeRiskFactors holds the bonus points awarded per de-risk flag.
// All values are non-negative.
type DeRiskFactors struct {
	DAApproved      int `json:"daApproved" mapstructure:"da_approved"`
	VendorFinance   int `json:"vendorFinance" mapstructure:"vendor_finance"`
	FixedPriceBuild int `json:"fixedPriceBuild" mapstructure:"fixed_price_build"`
	ExperiencedPM   int `json:"experiencedPM" mapstructure:"experienced_pm"`
	ClearTitle      int `json:"clearTitle" mapstructure:"clear_title"`
	GrowthCorridor  int `json:"growthCorridor" mapstructure:"growth_corridor"`
	PreSales50Plus  int `json:"preSales50Plus" mapstructure:"pre_sales_50_plus"`
}

// RiskFactors holds the penalty points deducted per risk flag.
// All values are non-positive.
type RiskFactors struct {
	PreviousLegalDisputes int `json:"previousLegalDisputes" mapstructure:"previous_legal_disputes"`
	NeedsRezoning         int `json:"needsRezoning" mapstructure:"needs_rezoning"`
	NoPreSales            int `json:"noPreSales" mapstructure:"no_pre_sales"`
}

// AssessmentCriteria is the tenant-configurable rule set. The engine never
// mutates it.
type AssessmentCriteria struct {
	Version string `json:"version,omitempty" mapstructure:"version"`

	GreenGMThreshold float64 `json:"greenGMThreshold" mapstructure:"green_gm_threshold"`
	AmberGMThreshold float64 `json:"amberGMThreshold" mapstructure:"amber_gm_threshold"`

	RequireProofOfOwnership bool `json:"requireProofOfOwnership" mapstructure:"require_proof_of_ownership"`
	RequireNoLegalDisputes  bool `json:"requireNoLegalDisputes" mapstructure:"require_no_legal_disputes"`
	RequireDAApproval       bool `json:"requireDAApproval" mapstructure:"require_da_approval"`

	DeRiskFactors DeRiskFactors `json:"deRiskFactors" mapstructure:"de_risk_factors"`
	RiskFactors   RiskFactors   `json:"riskFactors" mapstructure:"risk_factors"`
}

// DefaultCriteria is the canonical rule set used when a tenant has no
// configuration of its own.
func DefaultCriteria() AssessmentCriteria {
	return AssessmentCriteria{
		Version:          "default-v1",
		GreenGMThreshold: 25,
		AmberGMThreshold: 18,

		RequireProofOfOwnership: true,
		RequireNoLegalDisputes:  true,
		RequireDAApproval:       false,

		DeRiskFactors: DeRiskFactors{
			DAApproved:      15,
			VendorFinance:   10,
			FixedPriceBuild: 10,
			ExperiencedPM:   10,
			ClearTitle:      5,
			GrowthCorridor:  5,
			PreSales50Plus:  15,
		},
		RiskFactors: RiskFactors{
			PreviousLegalDisputes: -10,
			NeedsRezoning:         -15,
			NoPreSales:            -5,
		},
	}
}

// FinancialSummary holds the derived money figures for one opportunity.
// Computed once per assessment and never mutated.
type FinancialSummary struct {
	TotalCost          float64 `json:"totalCost"`
	TotalRevenue       float64 `json:"totalRevenue"`
	GrossMargin        float64 `json:"grossMargin"`
	GrossMarginPercent float64 `json:"grossMarginPercent"`
	CostPerUnit        float64 `json:"costPerUnit"`
	RevenuePerUnit     float64 `json:"revenuePerUnit"`
	ProfitPerUnit      float64 `json:"profitPerUnit"`
}

// CriterionResult is one evaluated rule. A criterion lands in exactly one of
// the passed/failed/attention sequences of an Evaluation.
type CriterionResult struct {
	Name     string   `json:"name"`
	Passed   bool     `json:"passed"`
	Points   int      `json:"points"`
	Detail   string   `json:"detail,omitempty"`
	Severity Severity `json:"severity,omitempty"`
}

// Evaluation is the Criteria Evaluator output: partitioned criterion results
// plus the three sub-scores.
type Evaluation struct {
	Passed    []CriterionResult `json:"passed"`
	Failed    []CriterionResult `json:"failed"`
	Attention []CriterionResult `json:"attention"`

	GMScore     float64 `json:"gmScore"`
	DeRiskScore int     `json:"deRiskScore"`
	RiskScore   int     `json:"riskScore"`

	// CriticalFailures counts failed critical gates (ownership, disputes).
	// The GM bucket failing is handled by the classifier's margin rule and
	// is not counted here.
	CriticalFailures int `json:"criticalFailures"`
}

// HasCriticalFailures reports whether any enabled critical gate failed.
func (e *Evaluation) HasCriticalFailures() bool {
	return e.CriticalFailures > 0
}

// Insights is the narrative output. Advisory only: it never influences the
// score or status.
type Insights struct {
	Summary         string   `json:"summary"`
	PathToGreen     []string `json:"pathToGreen"`
	Recommendations []string `json:"recommendations"`
}

// AssessmentResult is the final value object returned to callers. It is
// constructed once per call and not mutated afterwards. Persistence is the
// caller's concern (save-assessment worker).
type AssessmentResult struct {
	Status Status `json:"status"`
	Score  int    `json:"score"`

	GMScore     float64 `json:"gmScore"`
	DeRiskScore int     `json:"deRiskScore"`
	RiskScore   int     `json:"riskScore"`

	Financials FinancialSummary `json:"financials"`

	Passed    []CriterionResult `json:"passed"`
	Failed    []CriterionResult `json:"failed"`
	Attention []CriterionResult `json:"attention"`

	Summary         string   `json:"summary,omitempty"`
	PathToGreen     []string `json:"pathToGreen,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	FallbackUsed    bool     `json:"fallbackUsed,omitempty"`

	AssessedAt      time.Time `json:"assessedAt"`
	CriteriaVersion string    `json:"criteriaVersion,omitempty"`
}
