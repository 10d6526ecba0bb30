package handlers

import (
	"strconv"

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

type ContactHandler struct {
	contactService *services.ContactService
	log            *zap.Logger
}

func NewContactHandler(contactService *services.ContactService, log *zap.Logger) *ContactHandler {
	return &ContactHandler{contactService: contactService, log: log}
}

func (h *ContactHandler) Create(c *fiber.Ctx) error {
	var req dto.ContactRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	contact := models.Contact{
		Name:     req.Name,
		Mobile:   req.Mobile,
		Location: req.Location,
		Label:    req.Label,
	}
	if err := h.contactService.Create(c.Context(), middleware.GetAccountID(c), &contact); err != nil {
		return apperrors.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(contact)
}

func (h *ContactHandler) List(c *fiber.Ctx) error {
	f := repositories.ContactFilter{
		Search: c.Query("search"),
		Limit:  parseIntQuery(c, "limit"),
		Offset: parseIntQuery(c, "offset"),
	}
	if label := c.Query("label"); label != "" {
		f.Label = &label
	}

	contacts, err := h.contactService.List(c.Context(), middleware.GetAccountID(c), f)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	return c.JSON(dto.ListResponse{Items: contacts, Count: len(contacts)})
}

func (h *ContactHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contact id"})
	}

	contact, err := h.contactService.GetByID(c.Context(), id, middleware.GetAccountID(c))
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(contact)
}

func (h *ContactHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contact id"})
	}

	var req dto.ContactRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	contact, err := h.contactService.Update(c.Context(), id, middleware.GetAccountID(c), &models.Contact{
		Name:     req.Name,
		Mobile:   req.Mobile,
		Location: req.Location,
		Label:    req.Label,
	})
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(contact)
}

func (h *ContactHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contact id"})
	}

	if err := h.contactService.Delete(c.Context(), id, middleware.GetAccountID(c)); err != nil {
		return apperrors.Respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// BatchDelete accepts a list of ids and reports a per-class tally. Ids
// that fail to parse count into the error bucket instead of failing the
// request.
func (h *ContactHandler) BatchDelete(c *fiber.Ctx) error {
	var req dto.BatchDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if len(req.IDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "ids are required"})
	}

	var malformed int
	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			malformed++
			continue
		}
		ids = append(ids, id)
	}

	result := h.contactService.BatchDelete(c.Context(), middleware.GetAccountID(c), ids)
	result.Errors += malformed
	return c.JSON(result)
}

// ImportCSV streams the uploaded file straight into the import pipeline;
// nothing is staged on disk.
func (h *ContactHandler) ImportCSV(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "file is required"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "could not read uploaded file"})
	}
	defer file.Close()

	deduplicate := c.FormValue("deduplicate", "true") != "false"
	label := c.FormValue("label")

	result, err := h.contactService.ImportCSV(c.Context(), middleware.GetAccountID(c), file, label, deduplicate)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(result)
}

func parseIntQuery(c *fiber.Ctx, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}
