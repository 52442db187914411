// internal/assessment/financials.go
package assessment

// CalculateFinancials derives the money figures for one opportunity.
// Pure function. Contingency applies to land + infrastructure + construction
// only; professional, marketing, and finance line items from the intake forms
// are outside this model.
func CalculateFinancials(input *OpportunityInput) FinancialSummary {
	units := input.Units()

	constructionCost := input.ConstructionPerUnit * float64(units)
	baseCost := input.LandPurchasePrice + input.InfrastructureCosts + constructionCost
	contingency := baseCost * (input.ContingencyPercent / 100)
	totalCost := baseCost + contingency

	totalRevenue := input.AvgSalePrice * float64(units)
	grossMargin := totalRevenue - totalCost

	summary := FinancialSummary{
		TotalCost:      totalCost,
		TotalRevenue:   totalRevenue,
		GrossMargin:    grossMargin,
		RevenuePerUnit: input.AvgSalePrice,
	}

	// Zero-unit and zero-revenue deals must produce zeros, never NaN/Inf.
	if totalRevenue != 0 {
		summary.GrossMarginPercent = grossMargin / totalRevenue * 100
	}
	if units > 0 {
		summary.CostPerUnit = totalCost / float64(units)
		summary.ProfitPerUnit = grossMargin / float64(units)
	}

	return summary
}
