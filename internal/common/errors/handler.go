// internal/common/errors/handler.go
package errors

import (
	"context"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"dealflow-workers/internal/common/logger"
)

// ErrorHandler centralises job failure handling for all workers. It decides
// between FailJob (retryable technical errors) and ThrowError (business
// errors routed to BPMN error boundary events).
type ErrorHandler struct {
	log logger.Logger
}

func NewErrorHandler(log logger.Logger) *ErrorHandler {
	return &ErrorHandler{log: log}
}

// HandleJobError inspects err and reports it to the broker appropriately.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr, ok := err.(*StandardError)
	if !ok {
		stdErr = classifyUnknownError(err)
	}

	bpmnErr := ConvertToBPMNError(stdErr)

	log := h.log.WithFields(map[string]interface{}{
		"jobKey":    job.GetKey(),
		"jobType":   job.GetType(),
		"errorCode": string(stdErr.Code),
		"category":  GetErrorCategory(stdErr.Code),
		"retryable": stdErr.Retryable,
	})

	if stdErr.Retryable && job.GetRetries() > 1 {
		log.Warn("Job failed, will retry", map[string]interface{}{
			"remainingRetries": job.GetRetries() - 1,
		})
		h.failJob(ctx, client, job, bpmnErr)
		return
	}

	if stdErr.Retryable {
		log.Error("Job failed, retries exhausted", nil)
	} else {
		log.Error("Job failed with business error", map[string]interface{}{
			"details": stdErr.Details,
		})
	}
	h.throwBPMNError(ctx, client, job, bpmnErr)
}

func (h *ErrorHandler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	request, err := client.NewFailJobCommand().
		JobKey(job.GetKey()).
		Retries(job.GetRetries() - 1).
		ErrorMessage(bpmnErr.Message).
		VariablesFromMap(bpmnErr.ToErrorVariables())
	if err != nil {
		h.log.Error("Failed to build fail job command", map[string]interface{}{"error": err})
		return
	}

	failCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := request.Send(failCtx); err != nil {
		h.log.Error("Failed to send fail job command", map[string]interface{}{"error": err})
	}
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	request, err := client.NewThrowErrorCommand().
		JobKey(job.GetKey()).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message).
		VariablesFromMap(bpmnErr.ToErrorVariables())
	if err != nil {
		h.log.Error("Failed to build throw error command", map[string]interface{}{"error": err})
		return
	}

	throwCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := request.Send(throwCtx); err != nil {
		h.log.Error("Failed to send throw error command", map[string]interface{}{"error": err})
	}
}

// classifyUnknownError wraps a plain error into a StandardError with a best
// effort retryability guess based on the message.
func classifyUnknownError(err error) *StandardError {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return NewTimeoutError("unknown", err)
	case strings.Contains(msg, "connection") || strings.Contains(msg, "unavailable"):
		return NewExternalServiceError("unknown", err)
	default:
		return &StandardError{
			Code:      "INTERNAL_ERROR",
			Message:   "Unexpected internal error",
			Details:   err.Error(),
			Retryable: false,
			Timestamp: time.Now().UTC(),
		}
	}
}
