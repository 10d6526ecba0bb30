package services

import (
	"context"
	"errors"
	"strings"

	"github.com/campaignhub/backend/internal/models"
	"github.com/campaignhub/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SettingsService struct {
	settingsRepo repositories.SettingsRepository
	auditRepo    repositories.AuditRepository
	log          *zap.Logger
}

func NewSettingsService(
	settingsRepo repositories.SettingsRepository,
	auditRepo repositories.AuditRepository,
	log *zap.Logger,
) *SettingsService {
	return &SettingsService{
		settingsRepo: settingsRepo,
		auditRepo:    auditRepo,
		log:          log,
	}
}

// Get returns the account settings with secrets redacted. A missing row
// comes back as a zero-value settings object rather than 404, so new
// accounts see an empty form instead of an error.
func (s *SettingsService) Get(ctx context.Context, accountID uuid.UUID) (*models.Settings, error) {
	settings, err := s.settingsRepo.GetByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return &models.Settings{AccountID: accountID}, nil
		}
		return nil, err
	}
	redacted := settings.Redacted()
	return &redacted, nil
}

// Update upserts the account settings. Redacted markers sent back by the
// client keep the stored secret; blank fields clear it.
func (s *SettingsService) Update(ctx context.Context, accountID uuid.UUID, upd *models.Settings) (*models.Settings, error) {
	existing, err := s.settingsRepo.GetByAccount(ctx, accountID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	upd.AccountID = accountID
	upd.APIURL = strings.TrimSpace(upd.APIURL)
	upd.AccessToken = strings.TrimSpace(upd.AccessToken)
	upd.PhoneNumberID = strings.TrimSpace(upd.PhoneNumberID)
	upd.WABAID = strings.TrimSpace(upd.WABAID)
	upd.CampaignAPIKey = strings.TrimSpace(upd.CampaignAPIKey)

	if existing != nil {
		if upd.AccessToken == "***" {
			upd.AccessToken = existing.AccessToken
		}
		if upd.CampaignAPIKey == "***" {
			upd.CampaignAPIKey = existing.CampaignAPIKey
		}
	}

	if err := s.settingsRepo.Upsert(ctx, upd); err != nil {
		return nil, err
	}

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		AccountID:  &accountID,
		Action:     "settings_updated",
		EntityType: "settings",
		EntityID:   &upd.ID,
	})

	redacted := upd.Redacted()
	return &redacted, nil
}

// Validate reports which required fields are still blank. The launch
// endpoint enforces the same rule; this lets the UI surface it early.
func (s *SettingsService) Validate(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	settings, err := s.settingsRepo.GetByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			empty := models.Settings{}
			return empty.MissingFields(), nil
		}
		return nil, err
	}
	return settings.MissingFields(), nil
}
