package models

import (
	"time"

	"github.com/google/uuid"
)

// Analytics is the per-campaign message funnel. At most one row per campaign;
// partial updates merge only the supplied counters.
type Analytics struct {
	ID         uuid.UUID `json:"id"`
	CampaignID uuid.UUID `json:"campaign_id"`
	AccountID  uuid.UUID `json:"account_id"`
	Sent       int       `json:"sent"`
	Delivered  int       `json:"delivered"`
	Read       int       `json:"read"`
	Optout     int       `json:"optout"`
	Hold       int       `json:"hold"`
	Failed     int       `json:"failed"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AnalyticsUpdate carries a partial counter update; nil fields keep their
// prior value.
type AnalyticsUpdate struct {
	Sent      *int `json:"sent,omitempty"`
	Delivered *int `json:"delivered,omitempty"`
	Read      *int `json:"read,omitempty"`
	Optout    *int `json:"optout,omitempty"`
	Hold      *int `json:"hold,omitempty"`
	Failed    *int `json:"failed,omitempty"`
}

// Message statuses
const (
	MessageStatusSent   = "sent"
	MessageStatusFailed = "failed"
)

// Message records one contact-campaign send attempt.
type Message struct {
	ID         uuid.UUID `json:"id"`
	CampaignID uuid.UUID `json:"campaign_id"`
	ContactID  uuid.UUID `json:"contact_id"`
	ExternalID *string   `json:"external_id,omitempty"`
	Status     string    `json:"status"`
	Error      *string   `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
