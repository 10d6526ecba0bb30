package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type UserResponse struct {
	User any `json:"user"`
}

type ListResponse struct {
	Items any `json:"items"`
	Count int `json:"count"`
}

type SettingsValidationResponse struct {
	Complete      bool     `json:"complete"`
	MissingFields []string `json:"missing_fields,omitempty"`
}
