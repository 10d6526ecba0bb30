package models

import (
	"time"

	"github.com/google/uuid"
)

type Contact struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Name      string    `json:"name"`
	// Mobile is the natural key within an account when deduplication is on.
	Mobile    string    `json:"mobile"`
	Location  string    `json:"location"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ImportResult aggregates a CSV import run. One response per upload; rows
// are never reported individually.
type ImportResult struct {
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
	Total      int `json:"total"`
}

// BatchDeleteResult classifies each id of a bulk delete independently.
type BatchDeleteResult struct {
	Success      int `json:"success"`
	NotFound     int `json:"notFound"`
	Unauthorized int `json:"unauthorized"`
	Errors       int `json:"error"`
}
