package models

import (
	"time"

	"github.com/google/uuid"
)

// Campaign statuses. Launch is the only way out of draft and active is
// terminal, so the claim in the repository layer is the whole state
// machine.
const (
	CampaignStatusDraft  = "draft"
	CampaignStatusActive = "active"
)

type Campaign struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Name      string    `json:"name"`
	// Template is the approved WhatsApp template name sent on launch.
	Template string `json:"template"`
	// ContactLabel selects the target segment; nil targets every contact.
	ContactLabel *string    `json:"contact_label,omitempty"`
	Status       string     `json:"status"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsDraft reports whether draft-only actions (edit, delete, launch) apply.
func (c *Campaign) IsDraft() bool { return c.Status == CampaignStatusDraft }
