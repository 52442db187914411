// internal/workers/assessment/assess-deal/handler_test.go
package assessdeal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"dealflow-workers/internal/assessment"
	stderrors "dealflow-workers/internal/common/errors"
	"dealflow-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewCriteriaStore(db, nil, assessment.DefaultCriteria(), time.Minute, logger.NewTestLogger(t))
	return NewHandler(LoadConfig(), store, logger.NewTestLogger(t)), mock
}

func createTestOpportunity() *assessment.OpportunityInput {
	return &assessment.OpportunityInput{
		Name:                "Greenfield Estate Stage 1",
		LandStage:           assessment.LandStageDAApproved,
		NumLots:             10,
		LandPurchasePrice:   2000000,
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

func TestHandler_Execute_ReferenceDealIsRed(t *testing.T) {
	h, _ := newTestHandler(t)

	output, err := h.Execute(context.Background(), &Input{
		Opportunity: createTestOpportunity(),
	})

	require.NoError(t, err)
	assert.Equal(t, assessment.StatusRed, output.Assessment.Status)
	assert.Equal(t, "default", output.CriteriaSource)
	assert.Equal(t, "default-v1", output.CriteriaVersion)
	assert.InDelta(t, 7.25, output.Assessment.Financials.GrossMarginPercent, 0.001)

	// Narrative fields stay empty: generate-insights fills them downstream.
	assert.Empty(t, output.Assessment.Summary)
	assert.False(t, output.Assessment.FallbackUsed)
}

func TestHandler_Execute_InlineCriteria(t *testing.T) {
	h, _ := newTestHandler(t)

	relaxed := assessment.DefaultCriteria()
	relaxed.Version = "what-if-1"
	relaxed.GreenGMThreshold = 7
	relaxed.AmberGMThreshold = 5

	output, err := h.Execute(context.Background(), &Input{
		Opportunity: createTestOpportunity(),
		Criteria:    &relaxed,
	})

	require.NoError(t, err)
	assert.Equal(t, "inline", output.CriteriaSource)
	assert.Equal(t, "what-if-1", output.CriteriaVersion)
	// 7.25% margin clears the relaxed green threshold.
	assert.NotEqual(t, assessment.StatusRed, output.Assessment.Status)
}

func TestHandler_Execute_InlineCriteriaInvalidThresholds(t *testing.T) {
	h, _ := newTestHandler(t)

	bad := assessment.DefaultCriteria()
	bad.GreenGMThreshold = 10
	bad.AmberGMThreshold = 18

	_, err := h.Execute(context.Background(), &Input{
		Opportunity: createTestOpportunity(),
		Criteria:    &bad,
	})

	require.Error(t, err)
	stdErr, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeCriteriaInvalid, stdErr.Code)
}

func TestHandler_Execute_CompanyCriteriaFromDatabase(t *testing.T) {
	h, mock := newTestHandler(t)

	criteria := assessment.DefaultCriteria()
	criteria.Version = "acme-v2"
	criteria.GreenGMThreshold = 6
	criteria.AmberGMThreshold = 4
	raw := mustJSON(t, criteria)

	mock.ExpectQuery("SELECT version, criteria_json").
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"version", "criteria_json"}).
			AddRow("acme-v2", raw))

	output, err := h.Execute(context.Background(), &Input{
		CompanyID:   "acme",
		Opportunity: createTestOpportunity(),
	})

	require.NoError(t, err)
	assert.Equal(t, "company", output.CriteriaSource)
	assert.Equal(t, "acme-v2", output.CriteriaVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_MissingOpportunity(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{CompanyID: "acme"})

	require.Error(t, err)
	stdErr, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeAssessmentFailed, stdErr.Code)
}

func mustJSON(t *testing.T, v interface{}) []byte {
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
