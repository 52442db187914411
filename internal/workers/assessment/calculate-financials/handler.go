// internal/workers/assessment/calculate-financials/handler.go
package calculatefinancials

import (
	"context"
	"encoding/json"
	"fmt"

	"dealflow-workers/internal/assessment"
	stderrors "dealflow-workers/internal/common/errors"
	"dealflow-workers/internal/common/logger"
	"dealflow-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "calculate-financials"
)

type Handler struct {
	config *Config
	errs   *stderrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		errs:   stderrors.NewErrorHandler(log),
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "ASSESSMENT_FAILED").Inc()
		h.errs.HandleJobError(ctx, client, job, stderrors.NewAssessmentFailedError(err))
		return nil
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.completeJob(client, job, output)
	return nil
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if input.Opportunity == nil {
		return nil, fmt.Errorf("opportunity missing; run validate-opportunity first")
	}

	fin := assessment.CalculateFinancials(input.Opportunity)

	h.logger.Info("financials calculated", map[string]interface{}{
		"name":               input.Opportunity.Name,
		"totalCost":          fin.TotalCost,
		"totalRevenue":       fin.TotalRevenue,
		"grossMarginPercent": fin.GrossMarginPercent,
	})

	return &Output{
		Financials: fin,
		Units:      input.Opportunity.Units(),
	}, nil
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
