package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strconv"

	"github.com/campaignhub/backend/internal/apperrors"
	"github.com/campaignhub/backend/internal/models"
	"github.com/campaignhub/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AnalyticsService struct {
	analyticsRepo repositories.AnalyticsRepository
	campaignRepo  repositories.CampaignRepository
	log           *zap.Logger
}

func NewAnalyticsService(
	analyticsRepo repositories.AnalyticsRepository,
	campaignRepo repositories.CampaignRepository,
	log *zap.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		analyticsRepo: analyticsRepo,
		campaignRepo:  campaignRepo,
		log:           log,
	}
}

// ownedCampaign resolves the campaign behind an analytics operation and
// enforces tenancy the same way the campaign endpoints do.
func (s *AnalyticsService) ownedCampaign(ctx context.Context, campaignID, accountID uuid.UUID) (*models.Campaign, error) {
	c, err := s.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("campaign not found")
		}
		return nil, err
	}
	if c.AccountID != accountID {
		return nil, apperrors.Authorization("campaign belongs to another account")
	}
	return c, nil
}

func (s *AnalyticsService) GetByCampaign(ctx context.Context, campaignID, accountID uuid.UUID) (*models.Analytics, error) {
	if _, err := s.ownedCampaign(ctx, campaignID, accountID); err != nil {
		return nil, err
	}

	a, err := s.analyticsRepo.GetByCampaign(ctx, campaignID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("no analytics for this campaign")
		}
		return nil, err
	}
	return a, nil
}

func (s *AnalyticsService) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Analytics, error) {
	return s.analyticsRepo.ListByAccount(ctx, accountID)
}

// Merge applies a partial counter update from delivery callbacks. Only one
// analytics row exists per campaign and only supplied fields change.
func (s *AnalyticsService) Merge(ctx context.Context, campaignID, accountID uuid.UUID, upd models.AnalyticsUpdate) (*models.Analytics, error) {
	if _, err := s.ownedCampaign(ctx, campaignID, accountID); err != nil {
		return nil, err
	}

	a, err := s.analyticsRepo.Merge(ctx, campaignID, upd)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("no analytics for this campaign")
		}
		return nil, err
	}
	return a, nil
}

// ExportCSV renders every campaign funnel of the account, one row per
// campaign.
func (s *AnalyticsService) ExportCSV(ctx context.Context, accountID uuid.UUID) ([]byte, error) {
	list, err := s.analyticsRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"campaign", "sent", "delivered", "read", "optout", "hold", "failed", "updated_at"})
	for _, a := range list {
		name := a.CampaignID.String()
		if campaign, err := s.campaignRepo.GetByID(ctx, a.CampaignID); err == nil {
			name = campaign.Name
		}
		_ = w.Write([]string{
			name,
			strconv.Itoa(a.Sent),
			strconv.Itoa(a.Delivered),
			strconv.Itoa(a.Read),
			strconv.Itoa(a.Optout),
			strconv.Itoa(a.Hold),
			strconv.Itoa(a.Failed),
			a.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
