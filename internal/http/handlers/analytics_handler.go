package handlers

import (
	"github.com/campaignhub/backend/internal/apperrors"
	"github.com/campaignhub/backend/internal/http/dto"
	"github.com/campaignhub/backend/internal/middleware"
	"github.com/campaignhub/backend/internal/models"
	"github.com/campaignhub/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
	log              *zap.Logger
}

func NewAnalyticsHandler(analyticsService *services.AnalyticsService, log *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService, log: log}
}

func (h *AnalyticsHandler) List(c *fiber.Ctx) error {
	list, err := h.analyticsService.ListByAccount(c.Context(), middleware.GetAccountID(c))
	if err != nil {
		return apperrors.Respond(c, err)
	}
	if list == nil {
		list = []models.Analytics{}
	}
	return c.JSON(dto.ListResponse{Items: list, Count: len(list)})
}

func (h *AnalyticsHandler) GetByCampaign(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid campaign id"})
	}

	a, err := h.analyticsService.GetByCampaign(c.Context(), id, middleware.GetAccountID(c))
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(a)
}

// Update merges delivery counters reported by the provider callback relay.
func (h *AnalyticsHandler) Update(c *fiber.Ctx) error {
	var req dto.AnalyticsUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	id, err := uuid.Parse(req.CampaignID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid campaign id"})
	}

	a, err := h.analyticsService.Merge(c.Context(), id, middleware.GetAccountID(c), models.AnalyticsUpdate{
		Sent:      req.Sent,
		Delivered: req.Delivered,
		Read:      req.Read,
		Optout:    req.Optout,
		Hold:      req.Hold,
		Failed:    req.Failed,
	})
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(a)
}

func (h *AnalyticsHandler) ExportCSV(c *fiber.Ctx) error {
	data, err := h.analyticsService.ExportCSV(c.Context(), middleware.GetAccountID(c))
	if err != nil {
		return apperrors.Respond(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="analytics.csv"`)
	return c.Send(data)
}

// ExportPDF is advertised by the dashboard but not implemented on this
// backend. It answers 501 so clients can hide the button.
func (h *AnalyticsHandler) ExportPDF(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{
		Error: "pdf export is not supported",
		Code:  "EXPORT_UNSUPPORTED",
	})
}
