package handlers

import (
	"github.com/campaignhub/backend/internal/apperrors"
	"github.com/campaignhub/backend/internal/http/dto"
	"github.com/campaignhub/backend/internal/middleware"
	"github.com/campaignhub/backend/internal/models"
	"github.com/campaignhub/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type SettingsHandler struct {
	settingsService *services.SettingsService
	log             *zap.Logger
}

func NewSettingsHandler(settingsService *services.SettingsService, log *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService, log: log}
}

func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	settings, err := h.settingsService.Get(c.Context(), middleware.GetAccountID(c))
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(settings)
}

func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	var req dto.SettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	settings, err := h.settingsService.Update(c.Context(), middleware.GetAccountID(c), &models.Settings{
		APIURL:         req.APIURL,
		AccessToken:    req.AccessToken,
		PhoneNumberID:  req.PhoneNumberID,
		WABAID:         req.WABAID,
		CampaignAPIKey: req.CampaignAPIKey,
	})
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(settings)
}

// Validate reports launch readiness without attempting a launch.
func (h *SettingsHandler) Validate(c *fiber.Ctx) error {
	missing, err := h.settingsService.Validate(c.Context(), middleware.GetAccountID(c))
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(dto.SettingsValidationResponse{
		Complete:      len(missing) == 0,
		MissingFields: missing,
	})
}
