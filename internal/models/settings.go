package models

import (
	"time"

	"github.com/google/uuid"
)

// Settings holds the per-account WhatsApp Cloud API configuration. A
// campaign cannot launch while the required fields are blank.
type Settings struct {
	ID             uuid.UUID `json:"id"`
	AccountID      uuid.UUID `json:"account_id"`
	APIURL         string    `json:"api_url"`
	AccessToken    string    `json:"access_token"`
	PhoneNumberID  string    `json:"phone_number_id"`
	WABAID         string    `json:"waba_id"`
	CampaignAPIKey string    `json:"campaign_api_key"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MissingFields lists the fields the send collaborator requires but are
// blank. Empty result means the account is launch-ready.
func (s *Settings) MissingFields() []string {
	var missing []string
	if s.AccessToken == "" {
		missing = append(missing, "access_token")
	}
	if s.PhoneNumberID == "" {
		missing = append(missing, "phone_number_id")
	}
	if s.WABAID == "" {
		missing = append(missing, "waba_id")
	}
	return missing
}

// Redacted returns a copy safe for response payloads: the access token is
// collapsed to a marker so it never round-trips to the client.
func (s Settings) Redacted() Settings {
	if s.AccessToken != "" {
		s.AccessToken = "***"
	}
	if s.CampaignAPIKey != "" {
		s.CampaignAPIKey = "***"
	}
	return s
}
