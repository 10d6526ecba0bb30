package dto

import "time"

type RegisterRequest struct {
	Username  string  `json:"username"`
	Password  string  `json:"password"`
	Name      string  `json:"name"`
	Email     *string `json:"email,omitempty"`
	AccountID *string `json:"accountId,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type ContactRequest struct {
	Name     string `json:"name"`
	Mobile   string `json:"mobile"`
	Location string `json:"location"`
	Label    string `json:"label,omitempty"`
}

type BatchDeleteRequest struct {
	IDs []string `json:"ids"`
}

type CampaignRequest struct {
	Name         string     `json:"name"`
	Template     string     `json:"template"`
	ContactLabel *string    `json:"contact_label,omitempty"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
}

type AnalyticsUpdateRequest struct {
	CampaignID string `json:"campaignId"`
	Sent       *int   `json:"sent,omitempty"`
	Delivered  *int   `json:"delivered,omitempty"`
	Read       *int   `json:"read,omitempty"`
	Optout     *int   `json:"optout,omitempty"`
	Hold       *int   `json:"hold,omitempty"`
	Failed     *int   `json:"failed,omitempty"`
}

type SettingsRequest struct {
	APIURL         string `json:"api_url"`
	AccessToken    string `json:"access_token"`
	PhoneNumberID  string `json:"phone_number_id"`
	WABAID         string `json:"waba_id"`
	CampaignAPIKey string `json:"campaign_api_key"`
}
