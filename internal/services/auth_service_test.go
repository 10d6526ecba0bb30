package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/campaignhub/backend/internal/apperrors"
	"github.com/campaignhub/backend/internal/auth"
	"github.com/campaignhub/backend/internal/config"
	"github.com/campaignhub/backend/internal/repositories"
	"github.com/campaignhub/backend/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// captureMailer records the last message so tests can pull the reset link
// out of the body.
type captureMailer struct {
	to, subject, body string
	calls             int
}

func (m *captureMailer) SendEmail(_ context.Context, to, subject, body string) error {
	m.to, m.subject, m.body = to, subject, body
	m.calls++
	return nil
}

type authFixture struct {
	svc      *AuthService
	users    repositories.UserRepository
	accounts repositories.AccountRepository
	sessions *session.Manager
	mailer   *captureMailer
	cfg      *config.Config
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := repositories.NewMemoryDB()
	accounts := repositories.NewMemoryAccountRepo(db)
	users := repositories.NewMemoryUserRepo(db)
	audit := repositories.NewMemoryAuditRepo(db)
	sessions := session.NewManager(session.NewMemoryStore(), time.Hour)
	mailer := &captureMailer{}
	cfg := &config.Config{
		SessionTTL:    time.Hour,
		ResetSecret:   "test-secret",
		ResetTokenTTL: 30 * time.Minute,
		AppBaseURL:    "http://localhost:3000",
	}
	svc := NewAuthService(cfg, accounts, users, audit, sessions, mailer, zap.NewNop())
	return &authFixture{svc: svc, users: users, accounts: accounts, sessions: sessions, mailer: mailer, cfg: cfg}
}

func strPtr(s string) *string { return &s }

func TestRegisterValidation(t *testing.T) {
	f := newAuthFixture(t)

	tests := []struct {
		name string
		in   RegisterInput
		code string
	}{
		{"blank username", RegisterInput{Username: "  ", Password: "hunter2!", Name: "A"}, "MISSING_FIELDS"},
		{"blank name", RegisterInput{Username: "a", Password: "hunter2!", Name: " "}, "MISSING_FIELDS"},
		{"short password", RegisterInput{Username: "a", Password: "short", Name: "A"}, "WEAK_PASSWORD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tt.in)
			var appErr *apperrors.Error
			if !errors.As(err, &appErr) || appErr.Code != tt.code {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestRegisterCreatesAccountWhenNoneGiven(t *testing.T) {
	f := newAuthFixture(t)

	user, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "alice", Password: "hunter2!", Name: "Alice",
	})
	if err != nil {
		t.Fatal(err)
	}
	if user.AccountID == uuid.Nil {
		t.Fatal("user has no account")
	}
	account, err := f.accounts.GetByID(context.Background(), user.AccountID)
	if err != nil {
		t.Fatalf("account not persisted: %v", err)
	}
	if account.Name != "alice" {
		t.Errorf("account name = %q, want alice", account.Name)
	}

	// A second user can join the existing account.
	peer, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "bob", Password: "hunter2!", Name: "Bob", AccountID: &account.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if peer.AccountID != account.ID {
		t.Errorf("peer account = %s, want %s", peer.AccountID, account.ID)
	}
}

func TestRegisterUnknownAccountRejected(t *testing.T) {
	f := newAuthFixture(t)
	missing := uuid.New()
	_, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "alice", Password: "hunter2!", Name: "Alice", AccountID: &missing,
	})
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Code != "ACCOUNT_NOT_FOUND" {
		t.Errorf("err = %v, want ACCOUNT_NOT_FOUND", err)
	}
}

func TestLoginDoesNotDiscloseWhichFieldWasWrong(t *testing.T) {
	f := newAuthFixture(t)
	if _, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "alice", Password: "hunter2!", Name: "Alice",
	}); err != nil {
		t.Fatal(err)
	}

	_, _, badUser := f.svc.Login(context.Background(), "nobody", "whatever1", "")
	_, _, badPass := f.svc.Login(context.Background(), "alice", "wrong-pass", "")

	for _, err := range []error{badUser, badPass} {
		var appErr *apperrors.Error
		if !errors.As(err, &appErr) || appErr.Code != "INVALID_CREDENTIALS" {
			t.Fatalf("err = %v, want INVALID_CREDENTIALS", err)
		}
	}
	if badUser.Error() != badPass.Error() {
		t.Errorf("unknown-user and bad-password messages differ: %q vs %q",
			badUser.Error(), badPass.Error())
	}
}

func TestEstablishSessionDiscardsPresentedToken(t *testing.T) {
	f := newAuthFixture(t)
	user, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "alice", Password: "hunter2!", Name: "Alice",
	})
	if err != nil {
		t.Fatal(err)
	}

	planted, err := f.sessions.Create(context.Background(), user.ID)
	if err != nil {
		t.Fatal(err)
	}

	_, token, err := f.svc.Login(context.Background(), "alice", "hunter2!", planted)
	if err != nil {
		t.Fatal(err)
	}
	if token == planted {
		t.Fatal("login promoted the presented token")
	}
	if _, err := f.sessions.Resolve(context.Background(), planted); err == nil {
		t.Error("presented token survived login")
	}
	if _, err := f.sessions.Resolve(context.Background(), token); err != nil {
		t.Errorf("fresh token does not resolve: %v", err)
	}
}

// resetTokenFromMail pulls the token query parameter out of the emailed
// reset link.
func resetTokenFromMail(t *testing.T, body string) string {
	t.Helper()
	const marker = "token="
	i := strings.Index(body, marker)
	if i < 0 {
		t.Fatalf("no reset link in mail body: %s", body)
	}
	rest := body[i+len(marker):]
	if j := strings.IndexAny(rest, `"&`); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "alice", Password: "hunter2!", Name: "Alice", Email: strPtr("alice@example.com"),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := f.svc.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatal(err)
	}
	if f.mailer.calls != 1 {
		t.Fatalf("mailer calls = %d, want 1", f.mailer.calls)
	}
	token := resetTokenFromMail(t, f.mailer.body)

	if err := f.svc.CompletePasswordReset(context.Background(), token, "new-password-1"); err != nil {
		t.Fatal(err)
	}

	if _, _, err := f.svc.Login(context.Background(), "alice", "hunter2!", ""); err == nil {
		t.Error("old password still accepted after reset")
	}
	if _, _, err := f.svc.Login(context.Background(), "alice", "new-password-1", ""); err != nil {
		t.Errorf("new password rejected: %v", err)
	}

	// The nonce was cleared, so the token is single use.
	err = f.svc.CompletePasswordReset(context.Background(), token, "another-pass-2")
	if !apperrors.Is(err, apperrors.KindValidation) {
		t.Errorf("reused token err = %v, want validation error", err)
	}
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	f := newAuthFixture(t)
	if err := f.svc.RequestPasswordReset(context.Background(), "nobody@example.com"); err != nil {
		t.Fatal(err)
	}
	if f.mailer.calls != 0 {
		t.Errorf("mailer calls = %d, want 0", f.mailer.calls)
	}
}

func TestPasswordResetRejectsTamperedToken(t *testing.T) {
	f := newAuthFixture(t)
	user, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "alice", Password: "hunter2!", Name: "Alice", Email: strPtr("alice@example.com"),
	})
	if err != nil {
		t.Fatal(err)
	}

	// Token signed with a different secret must not be accepted even when
	// the user and nonce line up.
	if err := f.svc.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatal(err)
	}
	stored, err := f.users.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatal(err)
	}
	forged, err := auth.GenerateResetToken("other-secret", user.ID, *stored.ResetNonce, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	err = f.svc.CompletePasswordReset(context.Background(), forged, "new-password-1")
	if !apperrors.Is(err, apperrors.KindValidation) {
		t.Errorf("forged token err = %v, want validation error", err)
	}
}

func TestPasswordResetRevokesSessions(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "alice", Password: "hunter2!", Name: "Alice", Email: strPtr("alice@example.com"),
	})
	if err != nil {
		t.Fatal(err)
	}
	_, token, err := f.svc.Login(context.Background(), "alice", "hunter2!", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := f.svc.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatal(err)
	}
	reset := resetTokenFromMail(t, f.mailer.body)
	if err := f.svc.CompletePasswordReset(context.Background(), reset, "new-password-1"); err != nil {
		t.Fatal(err)
	}

	if _, err := f.sessions.Resolve(context.Background(), token); err == nil {
		t.Error("session survived the password reset")
	}
}
