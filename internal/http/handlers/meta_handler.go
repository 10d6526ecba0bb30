package handlers

import (
	"github.com/campaignhub/backend/internal/http/dto"
	"github.com/campaignhub/backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

type MetaHandler struct{}

func NewMetaHandler() *MetaHandler {
	return &MetaHandler{}
}

type MetaStatus struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var campaignStatuses = []MetaStatus{
	{ID: models.CampaignStatusDraft, Label: "Draft"},
	{ID: models.CampaignStatusActive, Label: "Active"},
}

var messageStatuses = []MetaStatus{
	{ID: models.MessageStatusSent, Label: "Sent"},
	{ID: models.MessageStatusFailed, Label: "Failed"},
}

func (h *MetaHandler) GetCampaignStatuses(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: campaignStatuses})
}

func (h *MetaHandler) GetMessageStatuses(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: messageStatuses})
}
