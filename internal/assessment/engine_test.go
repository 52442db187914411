// internal/assessment/engine_test.go
package assessment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	insights *Insights
	err      error
	calls    int
}

func (s *stubGenerator) Generate(_ context.Context, _ InsightsRequest) (*Insights, error) {
	s.calls++
	return s.insights, s.err
}

func TestQuickAssess_ReferenceScenarioIsRed(t *testing.T) {
	// GM is 7.25%, below the 18% amber floor, so the margin rule fires before
	// the +15 DA and +5 clear-title bonuses can matter.
	engine := NewEngine(nil)
	input := createTestOpportunity()

	result := engine.QuickAssess(input, DefaultCriteria())

	assert.Equal(t, StatusRed, result.Status)
	assert.InDelta(t, 7.25, result.Financials.GrossMarginPercent, 0.001)
	assert.Equal(t, 20, result.DeRiskScore)
	assert.Equal(t, "default-v1", result.CriteriaVersion)
	assert.False(t, result.AssessedAt.IsZero())
}

func TestQuickAssess_Deterministic(t *testing.T) {
	engine := NewEngine(nil)
	input := createTestOpportunity()
	criteria := DefaultCriteria()

	first := engine.QuickAssess(input, criteria)
	for i := 0; i < 5; i++ {
		next := engine.QuickAssess(input, criteria)
		// Everything except the timestamp must be bit-identical.
		next.AssessedAt = first.AssessedAt
		assert.Equal(t, first, next)
	}
}

func TestQuickAssess_CriticalOverride(t *testing.T) {
	engine := NewEngine(nil)
	input := createTestOpportunity()
	input.AvgSalePrice = 800000 // pushes GM well above green
	input.HasProofOfOwnership = false

	result := engine.QuickAssess(input, DefaultCriteria())

	assert.Equal(t, StatusRed, result.Status)
	assert.True(t, result.Financials.GrossMarginPercent > 25)
}

func TestQuickAssess_ScoreClamp(t *testing.T) {
	engine := NewEngine(nil)

	// Every bonus stacked on a saturated margin: 75 + 70 - 5 caps at 100.
	strong := createTestOpportunity()
	strong.AvgSalePrice = 900000
	strong.HasVendorFinance = true
	strong.HasFixedPriceBuild = true
	strong.HasExperiencedPM = true
	strong.InGrowthCorridor = true
	strong.HasPreSales = true
	strong.PreSalesPercent = 80

	result := engine.QuickAssess(strong, DefaultCriteria())
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, StatusGreen, result.Status)

	// Deep negative margin with every penalty must floor at zero.
	weak := createTestOpportunity()
	weak.AvgSalePrice = 300000
	weak.HasDAApproval = false
	weak.HasClearTitle = false
	weak.HasPreviousLegalDisputes = true
	weak.LandStage = LandStageNeedsRezoning

	result = engine.QuickAssess(weak, DefaultCriteria())
	assert.Equal(t, 0, result.Score)
	assert.Equal(t, StatusRed, result.Status)
}

func TestQuickAssess_ZeroUnitsDoesNotPanic(t *testing.T) {
	engine := NewEngine(nil)
	input := createTestOpportunity()
	input.NumLots = 0
	input.NumDwellings = 0

	result := engine.QuickAssess(input, DefaultCriteria())

	assert.Equal(t, 0.0, result.Financials.GrossMarginPercent)
	assert.Equal(t, StatusRed, result.Status)
}

func TestQuickAssess_HasNoNarrativeFields(t *testing.T) {
	engine := NewEngine(nil)
	result := engine.QuickAssess(createTestOpportunity(), DefaultCriteria())

	assert.Empty(t, result.Summary)
	assert.Empty(t, result.PathToGreen)
	assert.Empty(t, result.Recommendations)
}

func TestAssess_UsesGeneratedInsights(t *testing.T) {
	gen := &stubGenerator{insights: &Insights{
		Summary:         "Generated summary",
		PathToGreen:     []string{"a"},
		Recommendations: []string{"b"},
	}}
	engine := NewEngine(gen)

	result := engine.Assess(context.Background(), createTestOpportunity(), DefaultCriteria())

	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, "Generated summary", result.Summary)
	assert.False(t, result.FallbackUsed)
}

func TestAssess_FallsBackOnGeneratorError(t *testing.T) {
	statuses := map[Status]*OpportunityInput{}

	green := createTestOpportunity()
	green.AvgSalePrice = 900000
	green.HasPreSales = true
	green.PreSalesPercent = 60
	statuses[StatusGreen] = green

	amber := createTestOpportunity()
	amber.AvgSalePrice = 700000 // GM ~20.5%
	statuses[StatusAmber] = amber

	statuses[StatusRed] = createTestOpportunity()

	for expected, input := range statuses {
		t.Run(string(expected), func(t *testing.T) {
			gen := &stubGenerator{err: errors.New("provider down")}
			engine := NewEngine(gen)

			result := engine.Assess(context.Background(), input, DefaultCriteria())

			require.Equal(t, expected, result.Status)
			assert.Equal(t, 1, gen.calls, "single attempt, no retries")
			assert.True(t, result.FallbackUsed)
			assert.NotEmpty(t, result.Summary)
			assert.NotEmpty(t, result.PathToGreen)
			assert.NotEmpty(t, result.Recommendations)
		})
	}
}

func TestAssess_NilGeneratorUsesFallback(t *testing.T) {
	engine := NewEngine(nil)

	result := engine.Assess(context.Background(), createTestOpportunity(), DefaultCriteria())

	assert.True(t, result.FallbackUsed)
	assert.NotEmpty(t, result.Summary)
}

func TestAssess_InsightsNeverChangeScoreOrStatus(t *testing.T) {
	input := createTestOpportunity()
	criteria := DefaultCriteria()

	quick := NewEngine(nil).QuickAssess(input, criteria)
	full := NewEngine(&stubGenerator{insights: &Insights{Summary: "anything"}}).
		Assess(context.Background(), input, criteria)

	assert.Equal(t, quick.Status, full.Status)
	assert.Equal(t, quick.Score, full.Score)
	assert.Equal(t, quick.Financials, full.Financials)
}
