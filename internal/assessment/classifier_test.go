// internal/assessment/classifier_test.go
package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetermineStatus_Precedence(t *testing.T) {
	criteria := DefaultCriteria()

	tests := []struct {
		name             string
		score            int
		gmPercent        float64
		criticalFailures bool
		expected         Status
	}{
		{"critical failure overrides high score and margin", 95, 40, true, StatusRed},
		{"margin below amber floor overrides score", 85, 7.25, false, StatusRed},
		{"green needs both score and margin", 85, 26, false, StatusGreen},
		{"high score but margin below green stays amber", 85, 20, false, StatusAmber},
		{"low score but margin above green stays amber", 40, 26, false, StatusAmber},
		{"mid score with amber margin", 65, 20, false, StatusAmber},
		{"score at green boundary", 80, 25, false, StatusGreen},
		{"score one under green boundary", 79, 25, false, StatusAmber},
		{"margin at amber boundary", 10, 18, false, StatusAmber},
		{"margin just under amber boundary", 90, 17.9, false, StatusRed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := DetermineStatus(tt.score, tt.gmPercent, criteria, tt.criticalFailures)
			assert.Equal(t, tt.expected, status)
		})
	}
}

func TestFinalScore_RoundsBeforeClamping(t *testing.T) {
	tests := []struct {
		name     string
		ev       Evaluation
		expected int
	}{
		{"rounds half up", Evaluation{GMScore: 59.5}, 60},
		{"rounds down", Evaluation{GMScore: 59.4}, 59},
		{"clamps above hundred", Evaluation{GMScore: 75, DeRiskScore: 70}, 100},
		{"clamps below zero", Evaluation{GMScore: 10, RiskScore: -30}, 0},
		{"sub-scores sum", Evaluation{GMScore: 60, DeRiskScore: 25, RiskScore: -15}, 70},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FinalScore(tt.ev))
		})
	}
}

func TestFinalScore_RoundedValueDrivesClassification(t *testing.T) {
	// 79.6 rounds to 80, which crosses the green score threshold.
	criteria := DefaultCriteria()
	ev := Evaluation{GMScore: 74.6, DeRiskScore: 5}

	score := FinalScore(ev)
	assert.Equal(t, 80, score)
	assert.Equal(t, StatusGreen, DetermineStatus(score, 26, criteria, false))
}
