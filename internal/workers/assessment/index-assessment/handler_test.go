// internal/workers/assessment/index-assessment/handler_test.go
package indexassessment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"dealflow-workers/internal/assessment"
	"dealflow-workers/internal/common/logger"
	"dealflow-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeIndexer struct {
	err       error
	calls     int
	lastIndex string
	lastDocID string
	lastBody  []byte
}

func (f *fakeIndexer) IndexDocument(_ context.Context, index, documentID string, body []byte) error {
	f.calls++
	f.lastIndex = index
	f.lastDocID = documentID
	f.lastBody = body
	return f.err
}

func createTestInput() *Input {
	return &Input{
		AssessmentID: "a1b2c3",
		DealID:       "deal-001",
		CompanyID:    "acme",
		Opportunity: &assessment.OpportunityInput{
			Name:      "Greenfield Estate Stage 1",
			City:      "Geelong",
			State:     "VIC",
			LandStage: assessment.LandStageDAApproved,
			NumLots:   10,
		},
		Assessment: &assessment.AssessmentResult{
			Status:          assessment.StatusRed,
			Score:           42,
			CriteriaVersion: "default-v1",
			Financials: assessment.FinancialSummary{
				TotalCost:          5565000,
				TotalRevenue:       6000000,
				GrossMarginPercent: 7.25,
			},
			AssessedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_IndexesDocument(t *testing.T) {
	indexer := &fakeIndexer{}
	h := NewHandler(LoadConfig(), indexer, logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.True(t, output.Indexed)
	assert.Equal(t, "deal-assessments", output.IndexName)
	assert.Equal(t, 1, indexer.calls)
	assert.Equal(t, "deal-assessments", indexer.lastIndex)
	assert.Equal(t, "a1b2c3", indexer.lastDocID)

	var doc models.AssessmentDocument
	require.NoError(t, json.Unmarshal(indexer.lastBody, &doc))
	assert.Equal(t, "deal-001", doc.DealID)
	assert.Equal(t, "Greenfield Estate Stage 1", doc.DealName)
	assert.Equal(t, 10, doc.Units)
	assert.Equal(t, "red", doc.Status)
	assert.InDelta(t, 7.25, doc.GrossMarginPercent, 0.001)
}

func TestHandler_Execute_IndexerError(t *testing.T) {
	indexer := &fakeIndexer{err: errors.New("cluster unavailable")}
	h := NewHandler(LoadConfig(), indexer, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), createTestInput())

	assert.Error(t, err)
}

func TestHandler_Execute_MissingAssessmentID(t *testing.T) {
	h := NewHandler(LoadConfig(), &fakeIndexer{}, logger.NewTestLogger(t))

	input := createTestInput()
	input.AssessmentID = ""

	_, err := h.Execute(context.Background(), input)

	assert.Error(t, err)
}

func TestHandler_Execute_MissingAssessment(t *testing.T) {
	h := NewHandler(LoadConfig(), &fakeIndexer{}, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{AssessmentID: "a1b2c3"})

	assert.Error(t, err)
}

func TestHandler_Execute_NoOpportunityStillIndexes(t *testing.T) {
	indexer := &fakeIndexer{}
	h := NewHandler(LoadConfig(), indexer, logger.NewTestLogger(t))

	input := createTestInput()
	input.Opportunity = nil

	output, err := h.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.True(t, output.Indexed)

	var doc models.AssessmentDocument
	require.NoError(t, json.Unmarshal(indexer.lastBody, &doc))
	assert.Empty(t, doc.DealName)
	assert.Zero(t, doc.Units)
}
