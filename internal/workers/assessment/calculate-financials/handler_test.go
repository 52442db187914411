// internal/workers/assessment/calculate-financials/handler_test.go
package calculatefinancials

import (
	"context"
	"testing"

	"dealflow-workers/internal/assessment"
	"dealflow-workers/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestOpportunity() *assessment.OpportunityInput {
	return &assessment.OpportunityInput{
		Name:                "Greenfield Estate Stage 1",
		LandStage:           assessment.LandStageDAApproved,
		NumLots:             10,
		LandPurchasePrice:   2000000,
		InfrastructureCosts: 0,
		ConstructionPerUnit: 330000,
		AvgSalePrice:        600000,
		ContingencyPercent:  5,
		HasDAApproval:       true,
		HasClearTitle:       true,
		HasProofOfOwnership: true,
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_ReferenceDeal(t *testing.T) {
	h := NewHandler(LoadConfig(), logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{
		Opportunity: createTestOpportunity(),
	})

	require.NoError(t, err)
	assert.Equal(t, 10, output.Units)
	assert.InDelta(t, 5565000, output.Financials.TotalCost, 0.01)
	assert.InDelta(t, 6000000, output.Financials.TotalRevenue, 0.01)
	assert.InDelta(t, 435000, output.Financials.GrossMargin, 0.01)
	assert.InDelta(t, 7.25, output.Financials.GrossMarginPercent, 0.001)
}

func TestHandler_Execute_DwellingsTakePrecedence(t *testing.T) {
	h := NewHandler(LoadConfig(), logger.NewTestLogger(t))

	opp := createTestOpportunity()
	opp.NumDwellings = 20

	output, err := h.Execute(context.Background(), &Input{Opportunity: opp})

	require.NoError(t, err)
	assert.Equal(t, 20, output.Units)
	assert.InDelta(t, 12000000, output.Financials.TotalRevenue, 0.01)
}

func TestHandler_Execute_MissingOpportunity(t *testing.T) {
	h := NewHandler(LoadConfig(), logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{})

	assert.Error(t, err)
}

func TestHandler_Execute_Deterministic(t *testing.T) {
	h := NewHandler(LoadConfig(), logger.NewTestLogger(t))
	input := &Input{Opportunity: createTestOpportunity()}

	first, err := h.Execute(context.Background(), input)
	require.NoError(t, err)

	second, err := h.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
