// internal/workers/assessment/save-assessment/handler.go
package saveassessment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	stderrors "dealflow-workers/internal/common/errors"
	"dealflow-workers/internal/common/logger"
	"dealflow-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "save-assessment"
)

var (
	ErrDatabaseInsertFailed = errors.New("DATABASE_INSERT_FAILED")
	ErrDuplicateAssessment  = errors.New("DUPLICATE_ASSESSMENT")
)

type Handler struct {
	config *Config
	db     *sql.DB
	errs   *stderrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
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
		stdErr := h.classify(input.DealID, err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
		h.errs.HandleJobError(ctx, client, job, stdErr)
		return nil
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.completeJob(client, job, output)
	return nil
}

// classify maps the package sentinels onto broker-facing error codes.
func (h *Handler) classify(dealID string, err error) *stderrors.StandardError {
	switch {
	case errors.Is(err, ErrDuplicateAssessment):
		return stderrors.NewDuplicateAssessmentError(dealID)
	case errors.Is(err, ErrDatabaseInsertFailed):
		return stderrors.NewDatabaseInsertFailedError(err)
	default:
		return stderrors.NewAssessmentFailedError(err)
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Assessment == nil {
		return nil, fmt.Errorf("assessment missing; run assess-deal first")
	}
	if input.DealID == "" {
		return nil, fmt.Errorf("dealId is required")
	}

	result := input.Assessment

	// One assessment per deal per criteria version and timestamp; a re-run
	// with the same inputs is a duplicate.
	var exists bool
	err := h.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM assessments
			WHERE deal_id = $1 AND assessed_at = $2
		)`, input.DealID, result.AssessedAt).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("%w: duplicate check failed: %v", ErrDatabaseInsertFailed, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: assessment already stored for deal %s at %s",
			ErrDuplicateAssessment, input.DealID, result.AssessedAt.Format(time.RFC3339))
	}

	assessmentID := uuid.New().String()
	savedAt := time.Now().UTC()

	stored := *result
	stored.Summary = input.Summary
	stored.PathToGreen = input.PathToGreen
	stored.Recommendations = input.Recommendations
	stored.FallbackUsed = input.FallbackUsed

	resultJSON, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal assessment: %v", ErrDatabaseInsertFailed, err)
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO assessments (
			id, deal_id, company_id, status, score,
			criteria_version, result, assessed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		assessmentID,
		input.DealID,
		nullableString(input.CompanyID),
		string(result.Status),
		result.Score,
		nullableString(result.CriteriaVersion),
		resultJSON,
		result.AssessedAt,
		savedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: insert failed: %v", ErrDatabaseInsertFailed, err)
	}

	// Audit trail is best effort; a failed audit row never blocks the save.
	h.writeAuditLog(ctx, assessmentID, input, savedAt)

	h.logger.Info("assessment saved", map[string]interface{}{
		"assessmentId": assessmentID,
		"dealId":       input.DealID,
		"status":       string(result.Status),
		"score":        result.Score,
	})

	return &Output{
		AssessmentID: assessmentID,
		SavedAt:      savedAt.Format(time.RFC3339),
	}, nil
}

func (h *Handler) writeAuditLog(ctx context.Context, assessmentID string, input *Input, savedAt time.Time) {
	details, err := json.Marshal(map[string]interface{}{
		"dealId":    input.DealID,
		"companyId": input.CompanyID,
		"status":    string(input.Assessment.Status),
		"score":     input.Assessment.Score,
	})
	if err != nil {
		details = []byte("{}")
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		"assessment_saved",
		"assessment",
		assessmentID,
		details,
		savedAt,
	)
	if err != nil {
		h.logger.Warn("failed to write audit log", map[string]interface{}{
			"assessmentId": assessmentID,
			"error":        err.Error(),
		})
	}
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
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
