package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campaignhub/backend/internal/apperrors"
	"github.com/campaignhub/backend/internal/auth"
	"github.com/campaignhub/backend/internal/config"
	"github.com/campaignhub/backend/internal/models"
	"github.com/campaignhub/backend/internal/repositories"
	"github.com/campaignhub/backend/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService struct {
	cfg         *config.Config
	accountRepo repositories.AccountRepository
	userRepo    repositories.UserRepository
	auditRepo   repositories.AuditRepository
	sessions    *session.Manager
	mailer      EmailSender
	log         *zap.Logger
}

func NewAuthService(
	cfg *config.Config,
	accountRepo repositories.AccountRepository,
	userRepo repositories.UserRepository,
	auditRepo repositories.AuditRepository,
	sessions *session.Manager,
	mailer EmailSender,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		cfg:         cfg,
		accountRepo: accountRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		sessions:    sessions,
		mailer:      mailer,
		log:         log,
	}
}

const minPasswordLen = 8

type RegisterInput struct {
	Username  string
	Password  string
	Name      string
	Email     *string
	AccountID *uuid.UUID // nil means create a fresh account
}

// Register creates the user and, when no account id is supplied, a new
// account owned by it. The handler establishes a session afterwards so
// registration doubles as login.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	if in.Username == "" || in.Name == "" {
		return nil, apperrors.Validation("MISSING_FIELDS", "username and name are required")
	}
	if len(in.Password) < minPasswordLen {
		return nil, apperrors.Validation("WEAK_PASSWORD",
			fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}

	accountID := uuid.Nil
	if in.AccountID != nil {
		account, err := s.accountRepo.GetByID(ctx, *in.AccountID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, apperrors.Validation("ACCOUNT_NOT_FOUND", "account does not exist")
			}
			return nil, err
		}
		accountID = account.ID
	} else {
		account := &models.Account{Name: in.Username}
		if err := s.accountRepo.Create(ctx, account); err != nil {
			return nil, err
		}
		accountID = account.ID
	}

	verifier, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		AccountID: accountID,
		Username:  in.Username,
		Password:  verifier,
		Name:      in.Name,
		Email:     in.Email,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperrors.Conflict("USERNAME_TAKEN", "username is already taken")
		}
		return nil, err
	}

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorUserID: &user.ID,
		AccountID:   &accountID,
		Action:      "user_registered",
		EntityType:  "user",
		EntityID:    &user.ID,
	})

	return user, nil
}

// EstablishSession mints a fresh session token for the user. Any token
// presented with the request is destroyed first, so a pre-set cookie can
// never be promoted to an authenticated one. Registration and login both
// go through here.
func (s *AuthService) EstablishSession(ctx context.Context, userID uuid.UUID, presentedToken string) (string, error) {
	if presentedToken != "" {
		_ = s.sessions.Destroy(ctx, presentedToken)
	}

	token, err := s.sessions.Create(ctx, userID)
	if err != nil {
		return "", err
	}

	if s.cfg.SessionSingle {
		if err := s.sessions.RevokeOthers(ctx, userID, token); err != nil {
			s.log.Warn("failed to revoke other sessions", zap.Error(err))
		}
	}

	return token, nil
}

// Login verifies credentials. The failure message never discloses whether
// the username or the password was wrong.
func (s *AuthService) Login(ctx context.Context, username, password, presentedToken string) (*models.User, string, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, "", apperrors.Authentication("INVALID_CREDENTIALS", "invalid username or password")
		}
		return nil, "", err
	}

	if !auth.VerifyPassword(password, user.Password) {
		return nil, "", apperrors.Authentication("INVALID_CREDENTIALS", "invalid username or password")
	}

	token, err := s.EstablishSession(ctx, user.ID, presentedToken)
	if err != nil {
		return nil, "", err
	}

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorUserID: &user.ID,
		AccountID:   &user.AccountID,
		Action:      "user_login",
		EntityType:  "user",
		EntityID:    &user.ID,
	})

	return user, token, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

// RequestPasswordReset issues a reset token for the given email. The
// response to the caller is identical whether or not the email is known,
// so the endpoint cannot be used to enumerate accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return err
	}

	nonce := uuid.NewString()
	expiresAt := time.Now().Add(s.cfg.ResetTokenTTL)
	if err := s.userRepo.SetResetNonce(ctx, user.ID, nonce, expiresAt); err != nil {
		return err
	}

	token, err := auth.GenerateResetToken(s.cfg.ResetSecret, user.ID, nonce, s.cfg.ResetTokenTTL)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(s.cfg.AppBaseURL, "/"), token)
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>Follow <a href=%q>this link</a> to reset your CampaignHub password. The link expires in %d minutes.</p>",
		user.Name, link, int(s.cfg.ResetTokenTTL.Minutes()),
	)
	if err := s.mailer.SendEmail(ctx, email, "Reset your CampaignHub password", body); err != nil {
		// Logged inside the mailer. The caller still gets the generic ack.
		return nil
	}

	return nil
}

// CompletePasswordReset redeems a reset token. The nonce embedded in the
// token must match the one stored on the user row; it is cleared on
// success, which makes every token single use.
func (s *AuthService) CompletePasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return apperrors.Validation("WEAK_PASSWORD",
			fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}

	// Token failures are caller-fixable input problems (400), not a missing
	// session, and the reason never says which check failed.
	claims, err := auth.ParseResetToken(s.cfg.ResetSecret, tokenStr)
	if err != nil {
		return apperrors.Validation("INVALID_RESET_TOKEN", "reset token is invalid or expired")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.Validation("INVALID_RESET_TOKEN", "reset token is invalid or expired")
		}
		return err
	}

	if user.ResetNonce == nil || *user.ResetNonce != claims.Nonce ||
		user.ResetExpiresAt == nil || user.ResetExpiresAt.Before(time.Now()) {
		return apperrors.Validation("INVALID_RESET_TOKEN", "reset token is invalid or expired")
	}

	verifier, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, verifier); err != nil {
		return err
	}
	if err := s.userRepo.ClearResetNonce(ctx, user.ID); err != nil {
		return err
	}

	// Existing sessions keep working only until they expire elsewhere; a
	// compromised password warrants cutting them all.
	if err := s.sessions.RevokeOthers(ctx, user.ID, ""); err != nil {
		s.log.Warn("failed to revoke sessions after password reset", zap.Error(err))
	}

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorUserID: &user.ID,
		AccountID:   &user.AccountID,
		Action:      "password_reset",
		EntityType:  "user",
		EntityID:    &user.ID,
	})

	return nil
}
