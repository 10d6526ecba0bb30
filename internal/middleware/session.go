package middleware

import (
	"errors"

	"github.com/campaignhub/backend/internal/config"
	"github.com/campaignhub/backend/internal/repositories"
	"github.com/campaignhub/backend/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	CtxUserID    = "user_id"
	CtxAccountID = "account_id"
	CtxToken     = "session_token"
)

// SessionMiddleware authenticates the request from the session cookie.
// The session is refreshed on each hit (sliding expiry) and the owning
// user is loaded so handlers can rely on account scoping from locals.
func SessionMiddleware(cfg *config.Config, sessions *session.Manager, users repositories.UserRepository, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(cfg.SessionCookie)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required", "code": "UNAUTHENTICATED",
			})
		}

		userID, err := sessions.Resolve(c.Context(), token)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				log.Error("session resolve failed", zap.Error(err))
			}
			ClearSessionCookie(c, cfg)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "session expired", "code": "SESSION_EXPIRED",
			})
		}

		user, err := users.GetByID(c.Context(), userID)
		if err != nil {
			// Session outlived its user. Kill it so the client re-authenticates.
			_ = sessions.Destroy(c.Context(), token)
			ClearSessionCookie(c, cfg)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "session expired", "code": "SESSION_EXPIRED",
			})
		}

		c.Locals(CtxUserID, user.ID)
		c.Locals(CtxAccountID, user.AccountID)
		c.Locals(CtxToken, token)

		return c.Next()
	}
}

func GetUserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(CtxUserID).(uuid.UUID)
	return id
}

func GetAccountID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(CtxAccountID).(uuid.UUID)
	return id
}

func GetSessionToken(c *fiber.Ctx) string {
	token, _ := c.Locals(CtxToken).(string)
	return token
}

// SetSessionCookie writes the HTTP-only session cookie.
func SetSessionCookie(c *fiber.Ctx, cfg *config.Config, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.SessionCookie,
		Value:    token,
		MaxAge:   int(cfg.SessionTTL.Seconds()),
		HTTPOnly: true,
		Secure:   cfg.SessionSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}

func ClearSessionCookie(c *fiber.Ctx, cfg *config.Config) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.SessionCookie,
		Value:    "",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   cfg.SessionSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}
