package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is the tenant boundary. Every other entity carries an AccountID
// and all queries are scoped to it.
type Account struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Username  string    `json:"username"`
	// Password holds the scrypt verifier (hex(key).hex(salt)), never the
	// plaintext. It is stripped from every response payload.
	Password       string     `json:"-"`
	Name           string     `json:"name"`
	Email          *string    `json:"email,omitempty"`
	ResetNonce     *string    `json:"-"`
	ResetExpiresAt *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
}
