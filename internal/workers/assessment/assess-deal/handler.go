// internal/workers/assessment/assess-deal/handler.go
package assessdeal

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"dealflow-workers/internal/assessment"
	stderrors "dealflow-workers/internal/common/errors"
	"dealflow-workers/internal/common/logger"
	"dealflow-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "assess-deal"
)

// Handler runs the scoring pipeline against the company's rule set. The
// narrative stage runs separately in generate-insights so a slow GenAI call
// never delays the numeric verdict.
type Handler struct {
	config *Config
	engine *assessment.Engine
	store  *CriteriaStore
	errs   *stderrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, store *CriteriaStore, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		engine: assessment.NewEngine(nil),
		store:  store,
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
		code := "ASSESSMENT_FAILED"
		if stdErr, ok := err.(*stderrors.StandardError); ok {
			code = string(stdErr.Code)
		}
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
		h.errs.HandleJobError(ctx, client, job, err)
		return nil
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.AssessmentsByStatus.WithLabelValues(string(output.Assessment.Status)).Inc()
	metrics.AssessmentScore.Observe(float64(output.Assessment.Score))

	h.completeJob(client, job, output)
	return nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Opportunity == nil {
		return nil, stderrors.NewAssessmentFailedError(fmt.Errorf("opportunity missing; run validate-opportunity first"))
	}

	criteria, source, err := h.resolveCriteria(ctx, input)
	if err != nil {
		return nil, err
	}

	result := h.engine.QuickAssess(input.Opportunity, criteria)

	h.logger.Info("deal assessed", map[string]interface{}{
		"name":           input.Opportunity.Name,
		"status":         string(result.Status),
		"score":          result.Score,
		"gmScore":        strconv.FormatFloat(result.GMScore, 'f', 2, 64),
		"criteriaSource": source,
	})

	return &Output{
		Assessment:      result,
		CriteriaVersion: criteria.Version,
		CriteriaSource:  source,
	}, nil
}

func (h *Handler) resolveCriteria(ctx context.Context, input *Input) (assessment.AssessmentCriteria, string, error) {
	if input.Criteria != nil {
		c := *input.Criteria
		if c.GreenGMThreshold <= c.AmberGMThreshold {
			return assessment.AssessmentCriteria{}, "", stderrors.NewCriteriaInvalidError(
				fmt.Sprintf("inline criteria: green threshold (%.1f) must be above amber threshold (%.1f)",
					c.GreenGMThreshold, c.AmberGMThreshold))
		}
		return c, "inline", nil
	}

	return h.store.Load(ctx, input.CompanyID)
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
