// internal/workers/notification/send-notification/handler.go
package sendnotification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	stderrors "dealflow-workers/internal/common/errors"
	"dealflow-workers/internal/common/logger"
	"dealflow-workers/internal/common/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "send-notification"
)

var (
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
)

// EmailSender is satisfied by the common aws SES wrapper.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SMSSender is satisfied by the common aws SNS wrapper.
type SMSSender interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

type Handler struct {
	config    *Config
	db        *sql.DB
	errs      *stderrors.ErrorHandler
	logger    logger.Logger
	sesClient EmailSender
	snsClient SMSSender
}

func NewHandler(config *Config, db *sql.DB, sesClient EmailSender, snsClient SMSSender, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		db:        db,
		errs:      stderrors.NewErrorHandler(log),
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
		sesClient: sesClient,
		snsClient: snsClient,
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
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "NOTIFICATION_SEND_FAILED").Inc()
		h.errs.HandleJobError(ctx, client, job, stderrors.NewNotificationSendFailedError("assessment", err))
		return nil
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.completeJob(client, job, output)
	return nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.CompanyID == "" {
		return nil, fmt.Errorf("companyId is required")
	}
	if input.Status == "" {
		return nil, fmt.Errorf("status is required")
	}

	notificationID := uuid.New().String()
	sentAt := time.Now().UTC().Format(time.RFC3339)

	email, phone, err := h.getStakeholderContact(ctx, input.CompanyID)
	if err != nil {
		h.logger.Warn("no stakeholder contact found", map[string]interface{}{
			"companyId": input.CompanyID,
		})
		return &Output{NotificationID: notificationID, Status: StatusDisabled, SentAt: sentAt}, nil
	}

	subject, body := buildMessage(input)

	emailSent := false
	smsSent := false

	if h.config.EmailEnabled && email != "" && h.sesClient != nil {
		if err := h.sendEmail(ctx, email, subject, body); err != nil {
			h.logger.Error("email send failed", map[string]interface{}{
				"error": err,
				"email": email,
			})
			return &Output{NotificationID: notificationID, Status: StatusFailed, SentAt: sentAt}, nil
		}
		emailSent = true
	}

	// SMS is reserved for red verdicts, which usually need a same-day call
	// on whether to drop the deal.
	if h.config.SMSEnabled && phone != "" && input.Status == "red" && h.snsClient != nil {
		if err := h.sendSMS(ctx, phone, subject); err != nil {
			h.logger.Error("SMS send failed", map[string]interface{}{
				"error": err,
				"phone": phone,
			})
			return &Output{NotificationID: notificationID, Status: StatusFailed, SentAt: sentAt}, nil
		}
		smsSent = true
	}

	status := StatusDisabled
	if emailSent || smsSent {
		status = StatusSent
	}

	h.logger.Info("notification processed", map[string]interface{}{
		"notificationId": notificationID,
		"status":         status,
		"emailSent":      emailSent,
		"smsSent":        smsSent,
	})

	return &Output{
		NotificationID: notificationID,
		Status:         status,
		SentAt:         sentAt,
	}, nil
}

func (h *Handler) getStakeholderContact(ctx context.Context, companyID string) (string, string, error) {
	var email, phone string
	err := h.db.QueryRowContext(ctx, `
		SELECT email, COALESCE(phone, '')
		FROM company_stakeholders
		WHERE company_id = $1 AND notify_on_assessment = true
		ORDER BY created_at ASC
		LIMIT 1`, companyID).Scan(&email, &phone)
	return email, phone, err
}

func buildMessage(input *Input) (subject, body string) {
	dealName := input.DealName
	if dealName == "" {
		dealName = input.DealID
	}

	switch input.Status {
	case "green":
		subject = fmt.Sprintf("Deal assessment: %s scored GREEN (%d)", dealName, input.Score)
		body = fmt.Sprintf(
			"The assessment for %s came back green with a score of %d. The deal meets the investment criteria and is ready for due diligence.",
			dealName, input.Score)
	case "amber":
		subject = fmt.Sprintf("Deal assessment: %s scored AMBER (%d)", dealName, input.Score)
		body = fmt.Sprintf(
			"The assessment for %s came back amber with a score of %d. The deal is workable but has items needing attention before commitment.",
			dealName, input.Score)
	default:
		subject = fmt.Sprintf("Deal assessment: %s scored RED (%d)", dealName, input.Score)
		body = fmt.Sprintf(
			"The assessment for %s came back red with a score of %d. The deal does not meet the investment criteria in its current form.",
			dealName, input.Score)
	}

	if input.AssessmentID != "" {
		body += fmt.Sprintf(" Assessment reference: %s.", input.AssessmentID)
	}
	if extra := formatMetadata(input.Metadata); extra != "" {
		body += " " + extra
	}

	return subject, body
}

func formatMetadata(metadata map[string]interface{}) string {
	if len(metadata) == 0 {
		return ""
	}
	parts := make([]string, 0, len(metadata))
	for k, v := range metadata {
		parts = append(parts, fmt.Sprintf("%s: %v", k, v))
	}
	return strings.Join(parts, ", ")
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
				Html: &sestypes.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationSendFailed, err)
	}
	return nil
}

func (h *Handler) sendSMS(ctx context.Context, to, message string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationSendFailed, err)
	}
	return nil
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
