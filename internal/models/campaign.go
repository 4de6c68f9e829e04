package models

import "time"

// Campaign status values
const (
	CampaignStatusPending   = "pending"
	CampaignStatusSending   = "sending"
	CampaignStatusCompleted = "completed"
)

// Send log status values
const (
	SendStatusSuccess = "success"
	SendStatusFailed  = "failed"
)

// Campaign is one execution of a template against a recipient set
type Campaign struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	TemplateID     string     `json:"templateId"`
	TemplateName   string     `json:"templateName"`
	RecipientCount int        `json:"recipientCount"`
	Status         string     `json:"status"`
	ZoomLink       string     `json:"zoomLink,omitempty"`
	MeetingDate    string     `json:"meetingDate,omitempty"`
	MeetingTime    string     `json:"meetingTime,omitempty"`
	Sent           int        `json:"sent"`
	Failed         int        `json:"failed"`
	SentAt         time.Time  `json:"sentAt"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// SendLogEntry records one delivery attempt within a campaign
type SendLogEntry struct {
	ID         int64     `json:"id"`
	CampaignID string    `json:"campaignId"`
	LeadID     *string   `json:"leadId"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}
