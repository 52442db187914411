// internal/workers/notification/send-notification/models.go
package sendnotification

type Input struct {
	CompanyID    string                 `json:"companyId"`
	DealID       string                 `json:"dealId,omitempty"`
	DealName     string                 `json:"dealName,omitempty"`
	AssessmentID string                 `json:"assessmentId,omitempty"`
	Status       string                 `json:"status"` // green, amber, red
	Score        int                    `json:"score"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"` // "sent", "failed", "disabled"
	SentAt         string `json:"sentAt"` // ISO 8601
}

// Notification statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)
