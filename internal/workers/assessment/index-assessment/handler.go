// internal/workers/assessment/index-assessment/handler.go
package indexassessment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	stderrors "dealflow-workers/internal/common/errors"
	"dealflow-workers/internal/common/logger"
	"dealflow-workers/internal/common/metrics"
	"dealflow-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "index-assessment"
)

// DocumentIndexer is satisfied by database.ElasticsearchClient.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, index, documentID string, body []byte) error
}

type Handler struct {
	config  *Config
	indexer DocumentIndexer
	errs    *stderrors.ErrorHandler
	logger  logger.Logger
}

func NewHandler(config *Config, indexer DocumentIndexer, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		indexer: indexer,
		errs:    stderrors.NewErrorHandler(log),
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stderrors.ErrCodeParseError)).Inc()
		h.errs.HandleJobError(context.Background(), client, job, stderrors.NewParseError(err))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "INDEXING_FAILED").Inc()
		h.errs.HandleJobError(ctx, client, job, stderrors.NewIndexingFailedError(h.config.IndexName, err))
		return nil
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.completeJob(client, job, output)
	return nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Assessment == nil {
		return nil, fmt.Errorf("assessment missing; run assess-deal first")
	}
	if input.AssessmentID == "" {
		return nil, fmt.Errorf("assessmentId is required; run save-assessment first")
	}

	doc := h.buildDocument(input)

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	if err := h.indexer.IndexDocument(ctx, h.config.IndexName, input.AssessmentID, body); err != nil {
		return nil, fmt.Errorf("index assessment %s: %w", input.AssessmentID, err)
	}

	h.logger.Info("assessment indexed", map[string]interface{}{
		"assessmentId": input.AssessmentID,
		"index":        h.config.IndexName,
		"status":       doc.Status,
	})

	return &Output{
		Indexed:   true,
		IndexName: h.config.IndexName,
		IndexedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (h *Handler) buildDocument(input *Input) models.AssessmentDocument {
	result := input.Assessment

	doc := models.AssessmentDocument{
		AssessmentID:       input.AssessmentID,
		DealID:             input.DealID,
		CompanyID:          input.CompanyID,
		Status:             string(result.Status),
		Score:              result.Score,
		GrossMarginPercent: result.Financials.GrossMarginPercent,
		TotalCost:          result.Financials.TotalCost,
		TotalRevenue:       result.Financials.TotalRevenue,
		CriteriaVersion:    result.CriteriaVersion,
		FallbackUsed:       input.FallbackUsed,
		AssessedAt:         result.AssessedAt,
	}

	if opp := input.Opportunity; opp != nil {
		doc.DealName = opp.Name
		doc.City = opp.City
		doc.State = opp.State
		doc.LandStage = opp.LandStage
		doc.Units = opp.Units()
	}

	return doc
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
