// internal/assessment/insights_test.go
package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInsights(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		expectErr bool
		summary   string
	}{
		{
			name:    "plain json",
			raw:     `{"summary":"Solid deal","pathToGreen":["secure pre-sales"],"recommendations":["proceed"]}`,
			summary: "Solid deal",
		},
		{
			name:    "json fenced with language tag",
			raw:     "```json\n{\"summary\":\"Fenced\",\"pathToGreen\":[],\"recommendations\":[]}\n```",
			summary: "Fenced",
		},
		{
			name:    "json fenced without language tag",
			raw:     "```\n{\"summary\":\"Plain fence\"}\n```",
			summary: "Plain fence",
		},
		{
			name:    "surrounding whitespace",
			raw:     "\n\n  {\"summary\":\"Padded\"}  \n",
			summary: "Padded",
		},
		{
			name:      "not json",
			raw:       "The deal looks fine to me.",
			expectErr: true,
		},
		{
			name:      "empty summary",
			raw:       `{"summary":"  ","pathToGreen":["x"]}`,
			expectErr: true,
		},
		{
			name:      "empty response",
			raw:       "",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseInsights(tt.raw)
			if tt.expectErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInsightsMalformed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.summary, parsed.Summary)
			assert.NotNil(t, parsed.PathToGreen)
			assert.NotNil(t, parsed.Recommendations)
		})
	}
}

func TestFallbackInsights_NonEmptyForEveryStatus(t *testing.T) {
	criteria := DefaultCriteria()

	tests := []struct {
		status Status
		gmPct  float64
	}{
		{StatusGreen, 28},
		{StatusAmber, 20},
		{StatusRed, 7.25},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			fin := FinancialSummary{GrossMarginPercent: tt.gmPct}
			insights := FallbackInsights(tt.status, fin, criteria)

			assert.NotEmpty(t, insights.Summary)
			assert.NotEmpty(t, insights.PathToGreen)
			assert.NotEmpty(t, insights.Recommendations)
		})
	}
}

func TestFallbackInsights_AmberStatesMarginGap(t *testing.T) {
	fin := FinancialSummary{GrossMarginPercent: 20}
	insights := FallbackInsights(StatusAmber, fin, DefaultCriteria())

	assert.Contains(t, insights.Summary, "20.0%")
	assert.Contains(t, insights.Summary, "5.0 points")
}

func TestFallbackInsights_Deterministic(t *testing.T) {
	fin := FinancialSummary{GrossMarginPercent: 12}
	first := FallbackInsights(StatusRed, fin, DefaultCriteria())
	second := FallbackInsights(StatusRed, fin, DefaultCriteria())
	assert.Equal(t, first, second)
}
