package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/campaignhub/backend/internal/models"
	"go.uber.org/zap"
)

// WhatsAppSender abstracts the message provider so launch logic and tests
// do not depend on the Cloud API.
type WhatsAppSender interface {
	SendTemplate(ctx context.Context, creds models.Settings, to, template string) (string, error)
}

// WhatsAppClient talks to the WhatsApp Cloud API. Credentials are passed
// per call because each account carries its own access token and phone
// number id in settings.
type WhatsAppClient struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewWhatsAppClient(baseURL string, timeout time.Duration, log *zap.Logger) *WhatsAppClient {
	return &WhatsAppClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type templateRequest struct {
	MessagingProduct string          `json:"messaging_product"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Template         templatePayload `json:"template"`
}

type templatePayload struct {
	Name     string           `json:"name"`
	Language templateLanguage `json:"language"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (c *WhatsAppClient) SendTemplate(ctx context.Context, creds models.Settings, to, template string) (string, error) {
	body, err := json.Marshal(templateRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "template",
		Template: templatePayload{
			Name:     template,
			Language: templateLanguage{Code: "en_US"},
		},
	})
	if err != nil {
		return "", err
	}

	// Per-account settings may point at a different Graph host (sandbox,
	// proxy); the configured base is the fallback.
	base := c.baseURL
	if creds.APIURL != "" {
		base = strings.TrimRight(creds.APIURL, "/")
	}
	url := fmt.Sprintf("%s/%s/messages", base, creds.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp api unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("whatsapp api returned %d: %s", resp.StatusCode, string(b))
	}

	var result sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Messages) == 0 {
		return "", fmt.Errorf("whatsapp api returned no message id")
	}
	return result.Messages[0].ID, nil
}
