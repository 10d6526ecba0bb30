package handlers

import (
	"github.com/campaignhub/backend/internal/apperrors"
	"github.com/campaignhub/backend/internal/http/dto"
	"github.com/campaignhub/backend/internal/middleware"
	"github.com/campaignhub/backend/internal/models"
	"github.com/campaignhub/backend/internal/repositories"
	"github.com/campaignhub/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CampaignHandler struct {
	campaignService *services.CampaignService
	log             *zap.Logger
}

func NewCampaignHandler(campaignService *services.CampaignService, log *zap.Logger) *CampaignHandler {
	return &CampaignHandler{campaignService: campaignService, log: log}
}

func (h *CampaignHandler) Create(c *fiber.Ctx) error {
	var req dto.CampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	campaign := models.Campaign{
		Name:         req.Name,
		Template:     req.Template,
		ContactLabel: req.ContactLabel,
		ScheduledAt:  req.ScheduledAt,
	}
	if err := h.campaignService.Create(c.Context(), middleware.GetAccountID(c), &campaign); err != nil {
		return apperrors.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(campaign)
}

func (h *CampaignHandler) List(c *fiber.Ctx) error {
	f := repositories.CampaignFilter{
		Limit:  parseIntQuery(c, "limit"),
		Offset: parseIntQuery(c, "offset"),
	}
	if status := c.Query("status"); status != "" {
		f.Status = &status
	}

	campaigns, err := h.campaignService.List(c.Context(), middleware.GetAccountID(c), f)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	if campaigns == nil {
		campaigns = []models.Campaign{}
	}
	return c.JSON(dto.ListResponse{Items: campaigns, Count: len(campaigns)})
}

func (h *CampaignHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid campaign id"})
	}

	campaign, err := h.campaignService.GetByID(c.Context(), id, middleware.GetAccountID(c))
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(campaign)
}

func (h *CampaignHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid campaign id"})
	}

	var req dto.CampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	campaign, err := h.campaignService.Update(c.Context(), id, middleware.GetAccountID(c), &models.Campaign{
		Name:         req.Name,
		Template:     req.Template,
		ContactLabel: req.ContactLabel,
		ScheduledAt:  req.ScheduledAt,
	})
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(campaign)
}

func (h *CampaignHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid campaign id"})
	}

	if err := h.campaignService.Delete(c.Context(), id, middleware.GetAccountID(c)); err != nil {
		return apperrors.Respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Launch runs the synchronous send pipeline and returns the aggregate
// result once every contact in the segment has been attempted.
func (h *CampaignHandler) Launch(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid campaign id"})
	}

	result, err := h.campaignService.Launch(c.Context(), id, middleware.GetAccountID(c))
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(result)
}
