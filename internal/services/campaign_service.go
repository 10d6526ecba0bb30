package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/campaignhub/backend/internal/apperrors"
	"github.com/campaignhub/backend/internal/events"
	"github.com/campaignhub/backend/internal/metrics"
	"github.com/campaignhub/backend/internal/models"
	"github.com/campaignhub/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CampaignService struct {
	campaignRepo  repositories.CampaignRepository
	contactRepo   repositories.ContactRepository
	settingsRepo  repositories.SettingsRepository
	analyticsRepo repositories.AnalyticsRepository
	messageRepo   repositories.MessageRepository
	auditRepo     repositories.AuditRepository
	sender        WhatsAppSender
	publisher     events.Publisher
	metrics       *metrics.Metrics
	log           *zap.Logger
}

func NewCampaignService(
	campaignRepo repositories.CampaignRepository,
	contactRepo repositories.ContactRepository,
	settingsRepo repositories.SettingsRepository,
	analyticsRepo repositories.AnalyticsRepository,
	messageRepo repositories.MessageRepository,
	auditRepo repositories.AuditRepository,
	sender WhatsAppSender,
	publisher events.Publisher,
	m *metrics.Metrics,
	log *zap.Logger,
) *CampaignService {
	return &CampaignService{
		campaignRepo:  campaignRepo,
		contactRepo:   contactRepo,
		settingsRepo:  settingsRepo,
		analyticsRepo: analyticsRepo,
		messageRepo:   messageRepo,
		auditRepo:     auditRepo,
		sender:        sender,
		publisher:     publisher,
		metrics:       m,
		log:           log,
	}
}

func (s *CampaignService) Create(ctx context.Context, accountID uuid.UUID, c *models.Campaign) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Template = strings.TrimSpace(c.Template)
	if c.Name == "" || c.Template == "" {
		return apperrors.Validation("MISSING_FIELDS", "name and template are required")
	}
	if c.ScheduledAt != nil && c.ScheduledAt.Before(time.Now()) {
		return apperrors.Validation("SCHEDULE_IN_PAST", "scheduled_at must be in the future")
	}

	c.AccountID = accountID
	c.Status = models.CampaignStatusDraft

	if err := s.campaignRepo.Create(ctx, c); err != nil {
		return err
	}

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		AccountID:  &accountID,
		Action:     "campaign_created",
		EntityType: "campaign",
		EntityID:   &c.ID,
	})

	return nil
}

// getOwned loads a campaign and enforces tenancy. Existence resolves
// before ownership, so foreign campaigns report 403 rather than 404.
func (s *CampaignService) getOwned(ctx context.Context, id, accountID uuid.UUID) (*models.Campaign, error) {
	c, err := s.campaignRepo.GetByID(ctx, id)
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

func (s *CampaignService) GetByID(ctx context.Context, id, accountID uuid.UUID) (*models.Campaign, error) {
	return s.getOwned(ctx, id, accountID)
}

func (s *CampaignService) List(ctx context.Context, accountID uuid.UUID, f repositories.CampaignFilter) ([]models.Campaign, error) {
	return s.campaignRepo.List(ctx, accountID, f)
}

func (s *CampaignService) Update(ctx context.Context, id, accountID uuid.UUID, upd *models.Campaign) (*models.Campaign, error) {
	existing, err := s.getOwned(ctx, id, accountID)
	if err != nil {
		return nil, err
	}
	if !existing.IsDraft() {
		return nil, apperrors.Validation("NOT_DRAFT", "only draft campaigns can be edited")
	}

	upd.Name = strings.TrimSpace(upd.Name)
	upd.Template = strings.TrimSpace(upd.Template)
	if upd.Name == "" || upd.Template == "" {
		return nil, apperrors.Validation("MISSING_FIELDS", "name and template are required")
	}
	if upd.ScheduledAt != nil && upd.ScheduledAt.Before(time.Now()) {
		return nil, apperrors.Validation("SCHEDULE_IN_PAST", "scheduled_at must be in the future")
	}

	upd.ID = existing.ID
	upd.AccountID = existing.AccountID
	upd.Status = existing.Status
	if err := s.campaignRepo.Update(ctx, upd); err != nil {
		return nil, err
	}
	return upd, nil
}

func (s *CampaignService) Delete(ctx context.Context, id, accountID uuid.UUID) error {
	existing, err := s.getOwned(ctx, id, accountID)
	if err != nil {
		return err
	}
	if !existing.IsDraft() {
		return apperrors.Validation("NOT_DRAFT", "only draft campaigns can be deleted")
	}
	if err := s.campaignRepo.Delete(ctx, id); err != nil {
		return err
	}

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		AccountID:  &accountID,
		Action:     "campaign_deleted",
		EntityType: "campaign",
		EntityID:   &id,
	})
	return nil
}

type LaunchResult struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	Status     string    `json:"status"`
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
	Total      int       `json:"total"`
}

// Launch runs the full pipeline: precondition checks, the atomic draft
// claim, the provider sends, per-contact message records, the analytics
// row and the lifecycle event. The claim happens before the first send so
// a concurrent launch of the same campaign can never double-deliver; if
// every send fails the claim is released and the campaign returns to
// draft.
func (s *CampaignService) Launch(ctx context.Context, id, accountID uuid.UUID) (*LaunchResult, error) {
	campaign, err := s.getOwned(ctx, id, accountID)
	if err != nil {
		return nil, err
	}
	if !campaign.IsDraft() {
		return nil, apperrors.Validation("NOT_DRAFT", "only draft campaigns can be launched")
	}

	settings, err := s.settingsRepo.GetByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.Validation("SETTINGS_MISSING", "whatsapp settings are not configured")
		}
		return nil, err
	}
	if missing := settings.MissingFields(); len(missing) > 0 {
		return nil, apperrors.Validation("SETTINGS_MISSING",
			"whatsapp settings are incomplete: "+strings.Join(missing, ", "))
	}

	contacts, err := s.contactRepo.ListSegment(ctx, accountID, campaign.ContactLabel)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, apperrors.Validation("EMPTY_SEGMENT", "campaign segment has no contacts")
	}

	claimed, err := s.campaignRepo.ClaimLaunch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claimed {
		s.observeLaunch("conflict")
		return nil, apperrors.Conflict("LAUNCH_CONFLICT", "campaign was launched concurrently")
	}

	if err := s.analyticsRepo.Init(ctx, id, accountID); err != nil {
		s.log.Error("failed to init analytics", zap.String("campaign_id", id.String()), zap.Error(err))
	}

	s.publishEvent(ctx, events.EventCampaignLaunched, map[string]any{
		"campaign_id": id.String(),
		"account_id":  accountID.String(),
		"total":       len(contacts),
	})

	result := &LaunchResult{CampaignID: id, Total: len(contacts)}
	for i, contact := range contacts {
		externalID, sendErr := s.sender.SendTemplate(ctx, *settings, contact.Mobile, campaign.Template)

		msg := &models.Message{
			CampaignID: id,
			ContactID:  contact.ID,
			Status:     models.MessageStatusSent,
		}
		if sendErr != nil {
			errText := sendErr.Error()
			msg.Status = models.MessageStatusFailed
			msg.Error = &errText
			result.Failed++
			if s.metrics != nil {
				s.metrics.MessagesFailed.Inc()
			}
		} else {
			msg.ExternalID = &externalID
			result.Sent++
			if s.metrics != nil {
				s.metrics.MessagesSent.Inc()
			}
		}
		if err := s.messageRepo.Create(ctx, msg); err != nil {
			s.log.Error("failed to record message", zap.String("campaign_id", id.String()), zap.Error(err))
		}

		s.publishEvent(ctx, events.EventCampaignProgress, map[string]any{
			"campaign_id": id.String(),
			"account_id":  accountID.String(),
			"processed":   i + 1,
			"sent":        result.Sent,
			"failed":      result.Failed,
			"total":       result.Total,
		})
	}

	if result.Sent == 0 {
		// The provider rejected everything; hand the campaign back to draft
		// so the operator can fix settings and retry.
		if err := s.campaignRepo.ReleaseLaunch(ctx, id); err != nil {
			s.log.Error("failed to release launch", zap.String("campaign_id", id.String()), zap.Error(err))
		}
		s.observeLaunch("failed")
		return nil, apperrors.External("SEND_FAILED", "all messages failed to send", nil)
	}

	if _, err := s.analyticsRepo.Merge(ctx, id, models.AnalyticsUpdate{
		Sent:   &result.Sent,
		Failed: &result.Failed,
	}); err != nil {
		s.log.Error("failed to record launch analytics", zap.String("campaign_id", id.String()), zap.Error(err))
	}

	result.Status = models.CampaignStatusActive

	s.publishEvent(ctx, events.EventCampaignCompleted, map[string]any{
		"campaign_id": id.String(),
		"account_id":  accountID.String(),
		"sent":        result.Sent,
		"failed":      result.Failed,
		"total":       result.Total,
	})
	s.observeLaunch("completed")

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		AccountID:  &accountID,
		Action:     "campaign_launched",
		EntityType: "campaign",
		EntityID:   &id,
		Meta: map[string]any{
			"sent":   result.Sent,
			"failed": result.Failed,
			"total":  result.Total,
		},
	})

	return result, nil
}

// LaunchDueScheduled launches every draft campaign whose scheduled time
// has passed. The scheduler worker invokes it on a ticker; precondition
// failures only log, the campaign stays draft for the next pass.
func (s *CampaignService) LaunchDueScheduled(ctx context.Context) {
	due, err := s.campaignRepo.ListDueScheduled(ctx, time.Now())
	if err != nil {
		s.log.Error("failed to list due campaigns", zap.Error(err))
		return
	}

	for _, c := range due {
		if _, err := s.Launch(ctx, c.ID, c.AccountID); err != nil {
			s.log.Warn("scheduled launch failed",
				zap.String("campaign_id", c.ID.String()),
				zap.Error(err),
			)
			continue
		}
		s.log.Info("scheduled campaign launched", zap.String("campaign_id", c.ID.String()))
	}
}

func (s *CampaignService) publishEvent(ctx context.Context, eventType string, payload map[string]any) {
	if err := s.publisher.Publish(ctx, events.StreamCampaign, events.Event{
		Type:    eventType,
		Payload: payload,
	}); err != nil {
		s.log.Warn("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

func (s *CampaignService) observeLaunch(outcome string) {
	if s.metrics != nil {
		s.metrics.CampaignLaunches.WithLabelValues(outcome).Inc()
	}
}
