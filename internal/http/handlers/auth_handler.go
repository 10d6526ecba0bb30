package handlers

import (
	"github.com/campaignhub/backend/internal/apperrors"
	"github.com/campaignhub/backend/internal/config"
	"github.com/campaignhub/backend/internal/http/dto"
	"github.com/campaignhub/backend/internal/middleware"
	"github.com/campaignhub/backend/internal/repositories"
	"github.com/campaignhub/backend/internal/services"
	"github.com/campaignhub/backend/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *services.AuthService
	sessions    *session.Manager
	userRepo    repositories.UserRepository
	cfg         *config.Config
	log         *zap.Logger
}

func NewAuthHandler(authService *services.AuthService, sessions *session.Manager, userRepo repositories.UserRepository, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, sessions: sessions, userRepo: userRepo, cfg: cfg, log: log}
}

// Register creates the user and logs it in: the response carries both the
// user payload and a fresh session cookie.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	in := services.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Email:    req.Email,
	}
	if req.AccountID != nil {
		id, err := uuid.Parse(*req.AccountID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid accountId"})
		}
		in.AccountID = &id
	}

	user, err := h.authService.Register(c.Context(), in)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	token, err := h.authService.EstablishSession(c.Context(), user.ID, c.Cookies(h.cfg.SessionCookie))
	if err != nil {
		return apperrors.Respond(c, err)
	}
	middleware.SetSessionCookie(c, h.cfg, token)

	return c.Status(fiber.StatusCreated).JSON(dto.UserResponse{User: user})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	presented := c.Cookies(h.cfg.SessionCookie)
	user, token, err := h.authService.Login(c.Context(), req.Username, req.Password, presented)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	middleware.SetSessionCookie(c, h.cfg, token)
	return c.JSON(dto.UserResponse{User: user})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token := c.Cookies(h.cfg.SessionCookie)
	if token != "" {
		if err := h.authService.Logout(c.Context(), token); err != nil {
			h.log.Warn("logout failed to destroy session", zap.Error(err))
		}
	}

	// Logout is idempotent: no cookie still clears and acks.
	middleware.ClearSessionCookie(c, h.cfg)
	return c.JSON(fiber.Map{"message": "logged out"})
}

// User is the session probe the dashboard calls on page load. Unlike the
// protected routes it reports the unauthenticated state in the body, so
// the client can branch without treating 401 as an error.
func (h *AuthHandler) User(c *fiber.Ctx) error {
	unauthenticated := func() error {
		middleware.ClearSessionCookie(c, h.cfg)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"authenticated": false,
			"message":       "not logged in",
		})
	}

	token := c.Cookies(h.cfg.SessionCookie)
	if token == "" {
		return unauthenticated()
	}

	userID, err := h.sessions.Resolve(c.Context(), token)
	if err != nil {
		return unauthenticated()
	}
	user, err := h.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		_ = h.sessions.Destroy(c.Context(), token)
		return unauthenticated()
	}

	return c.JSON(fiber.Map{
		"authenticated": true,
		"user":          user,
	})
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "email is required"})
	}

	if err := h.authService.RequestPasswordReset(c.Context(), req.Email); err != nil {
		h.log.Error("password reset request failed", zap.Error(err))
	}

	// Same acknowledgement whether or not the email exists.
	return c.JSON(fiber.Map{"message": "if the email exists, a reset link has been sent"})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	if err := h.authService.CompletePasswordReset(c.Context(), req.Token, req.Password); err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "password updated"})
}
