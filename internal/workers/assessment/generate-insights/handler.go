// internal/workers/assessment/generate-insights/handler.go
package generateinsights

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
	TaskType = "generate-insights"
)

// Handler produces the narrative stage of an assessment. The generator gets
// one attempt; any failure degrades to templated fallback text so the job
// still completes. This worker never fails a workflow over narrative quality.
type Handler struct {
	config    *Config
	generator assessment.InsightsGenerator
	errs      *stderrors.ErrorHandler
	logger    logger.Logger
}

// NewHandler accepts a nil generator; the fallback then always applies.
func NewHandler(config *Config, generator assessment.InsightsGenerator, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		generator: generator,
		errs:      stderrors.NewErrorHandler(log),
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "INSIGHTS_GENERATION_FAILED").Inc()
		h.errs.HandleJobError(ctx, client, job, stderrors.NewInsightsGenerationFailedError(err))
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

	criteria := assessment.DefaultCriteria()
	if input.Criteria != nil {
		criteria = *input.Criteria
	}

	result := input.Assessment

	insights, fallbackUsed := h.generate(ctx, input, criteria)
	if fallbackUsed {
		metrics.InsightsFallbacks.Inc()
	}

	h.logger.Info("insights generated", map[string]interface{}{
		"status":       string(result.Status),
		"fallbackUsed": fallbackUsed,
	})

	return &Output{
		Summary:         insights.Summary,
		PathToGreen:     insights.PathToGreen,
		Recommendations: insights.Recommendations,
		FallbackUsed:    fallbackUsed,
	}, nil
}

func (h *Handler) generate(ctx context.Context, input *Input, criteria assessment.AssessmentCriteria) (*assessment.Insights, bool) {
	result := input.Assessment

	if h.generator == nil {
		return assessment.FallbackInsights(result.Status, result.Financials, criteria), true
	}

	insights, err := h.generator.Generate(ctx, assessment.InsightsRequest{
		Input:      input.Opportunity,
		Financials: result.Financials,
		Status:     result.Status,
		Score:      result.Score,
		Criteria:   criteria,
		Passed:     result.Passed,
		Failed:     result.Failed,
		Attention:  result.Attention,
	})
	if err != nil || insights == nil {
		if err != nil {
			h.logger.Warn("insights generation failed, using fallback", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return assessment.FallbackInsights(result.Status, result.Financials, criteria), true
	}

	return insights, false
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
