package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog records security-relevant actions: registration, login,
// password resets, imports, batch deletes and campaign launches. Meta
// holds action-specific counters and is stored as jsonb. Entries are
// best-effort; a failed audit write never fails the operation.
type AuditLog struct {
	ID          uuid.UUID  `json:"id"`
	ActorUserID *uuid.UUID `json:"actor_user_id,omitempty"`
	AccountID   *uuid.UUID `json:"account_id,omitempty"`
	Action      string     `json:"action"`
	EntityType  string     `json:"entity_type"`
	EntityID    *uuid.UUID `json:"entity_id,omitempty"`
	Meta        any        `json:"meta,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
