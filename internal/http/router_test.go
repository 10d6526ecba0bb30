package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/campaignhub/backend/internal/config"
	"github.com/campaignhub/backend/internal/events"
	"github.com/campaignhub/backend/internal/http/handlers"
	"github.com/campaignhub/backend/internal/metrics"
	"github.com/campaignhub/backend/internal/models"
	"github.com/campaignhub/backend/internal/repositories"
	"github.com/campaignhub/backend/internal/services"
	"github.com/campaignhub/backend/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type stubSender struct {
	calls int
	fail  bool
}

func (s *stubSender) SendTemplate(_ context.Context, _ models.Settings, _, _ string) (string, error) {
	if s.fail {
		return "", fmt.Errorf("provider down")
	}
	s.calls++
	return fmt.Sprintf("wamid.%d", s.calls), nil
}

type testApp struct {
	app    *fiber.App
	cfg    *config.Config
	sender *stubSender
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	log := zap.NewNop()
	cfg := &config.Config{
		SessionTTL:    time.Hour,
		SessionCookie: "campaignhub_session",
		ResetSecret:   "test-secret",
		ResetTokenTTL: 30 * time.Minute,
		AppBaseURL:    "http://localhost:3000",
	}

	db := repositories.NewMemoryDB()
	accounts := repositories.NewMemoryAccountRepo(db)
	users := repositories.NewMemoryUserRepo(db)
	contacts := repositories.NewMemoryContactRepo(db)
	campaigns := repositories.NewMemoryCampaignRepo(db)
	analytics := repositories.NewMemoryAnalyticsRepo(db)
	messages := repositories.NewMemoryMessageRepo(db)
	settings := repositories.NewMemorySettingsRepo(db)
	audit := repositories.NewMemoryAuditRepo(db)

	sessions := session.NewManager(session.NewMemoryStore(), cfg.SessionTTL)
	m := metrics.New(prometheus.NewRegistry())
	sender := &stubSender{}
	mailer := services.NewLogMailer(log)

	authService := services.NewAuthService(cfg, accounts, users, audit, sessions, mailer, log)
	contactService := services.NewContactService(contacts, audit, m, log)
	campaignService := services.NewCampaignService(campaigns, contacts, settings,
		analytics, messages, audit, sender, events.NopPublisher{}, m, log)
	analyticsService := services.NewAnalyticsService(analytics, campaigns, log)
	settingsService := services.NewSettingsService(settings, audit, log)

	app := fiber.New()
	SetupRouter(app, cfg, log, nil, sessions, users, nil,
		handlers.NewAuthHandler(authService, sessions, users, cfg, log),
		handlers.NewContactHandler(contactService, log),
		handlers.NewCampaignHandler(campaignService, log),
		handlers.NewAnalyticsHandler(analyticsService, log),
		handlers.NewSettingsHandler(settingsService, log),
		nil,
	)

	return &testApp{app: app, cfg: cfg, sender: sender}
}

func (ta *testApp) do(t *testing.T, method, path, cookie string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: ta.cfg.SessionCookie, Value: cookie})
	}
	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatal(err)
	}
}

// registerAndLogin creates a user and returns the session token issued by
// the register auto-login.
func (ta *testApp) registerAndLogin(t *testing.T, username string) string {
	t.Helper()
	resp := ta.do(t, "POST", "/api/register", "", map[string]any{
		"username": username,
		"password": "hunter2!",
		"name":     "Test User",
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.Name == ta.cfg.SessionCookie && c.Value != "" {
			return c.Value
		}
	}
	t.Fatal("register did not set a session cookie")
	return ""
}

func TestAuthFlow(t *testing.T) {
	ta := newTestApp(t)

	t.Run("user probe without a session", func(t *testing.T) {
		resp := ta.do(t, "GET", "/api/user", "", nil)
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
		var body map[string]any
		decodeBody(t, resp, &body)
		if body["authenticated"] != false {
			t.Errorf("authenticated = %v, want false", body["authenticated"])
		}
	})

	token := ta.registerAndLogin(t, "alice")

	t.Run("user probe returns the user without the verifier", func(t *testing.T) {
		resp := ta.do(t, "GET", "/api/user", token, nil)
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if !strings.Contains(string(raw), `"authenticated":true`) {
			t.Errorf("response missing authenticated flag: %s", raw)
		}
		if strings.Contains(string(raw), "password") {
			t.Errorf("response leaks password field: %s", raw)
		}
		if !strings.Contains(string(raw), "alice") {
			t.Errorf("response missing username: %s", raw)
		}
	})

	t.Run("wrong password is a 401 with a generic message", func(t *testing.T) {
		resp := ta.do(t, "POST", "/api/login", "", map[string]any{
			"username": "alice", "password": "wrong",
		})
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
		var body map[string]any
		decodeBody(t, resp, &body)
		if body["code"] != "INVALID_CREDENTIALS" {
			t.Errorf("code = %v, want INVALID_CREDENTIALS", body["code"])
		}
	})

	t.Run("unknown user fails the same way as a bad password", func(t *testing.T) {
		resp := ta.do(t, "POST", "/api/login", "", map[string]any{
			"username": "nobody", "password": "whatever",
		})
		var body map[string]any
		decodeBody(t, resp, &body)
		if body["code"] != "INVALID_CREDENTIALS" {
			t.Errorf("code = %v, want INVALID_CREDENTIALS", body["code"])
		}
	})

	t.Run("short password is rejected", func(t *testing.T) {
		resp := ta.do(t, "POST", "/api/register", "", map[string]any{
			"username": "shorty", "password": "short", "name": "Short",
		})
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		var body map[string]any
		decodeBody(t, resp, &body)
		if body["code"] != "WEAK_PASSWORD" {
			t.Errorf("code = %v, want WEAK_PASSWORD", body["code"])
		}
	})

	t.Run("duplicate username is a conflict", func(t *testing.T) {
		resp := ta.do(t, "POST", "/api/register", "", map[string]any{
			"username": "alice", "password": "hunter2!", "name": "Other",
		})
		if resp.StatusCode != fiber.StatusConflict {
			t.Errorf("status = %d, want 409", resp.StatusCode)
		}
		resp.Body.Close()
	})

	t.Run("logout invalidates the session", func(t *testing.T) {
		resp := ta.do(t, "POST", "/api/logout", token, nil)
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("logout status = %d", resp.StatusCode)
		}
		resp.Body.Close()

		resp = ta.do(t, "GET", "/api/user", token, nil)
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("status after logout = %d, want 401", resp.StatusCode)
		}
		resp.Body.Close()
	})

	t.Run("logout without a session still succeeds", func(t *testing.T) {
		resp := ta.do(t, "POST", "/api/logout", "", nil)
		if resp.StatusCode != fiber.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
		resp.Body.Close()
	})
}

func TestResetPasswordBadTokenIsBadRequest(t *testing.T) {
	ta := newTestApp(t)

	resp := ta.do(t, "POST", "/api/reset-password", "", map[string]any{
		"token": "not-a-real-token", "password": "new-password-1",
	})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	var body map[string]any
	decodeBody(t, resp, &body)
	if body["code"] != "INVALID_RESET_TOKEN" {
		t.Errorf("code = %v, want INVALID_RESET_TOKEN", body["code"])
	}
}

func TestLoginRotatesSessionToken(t *testing.T) {
	ta := newTestApp(t)
	first := ta.registerAndLogin(t, "bob")

	resp := ta.do(t, "POST", "/api/login", first, map[string]any{
		"username": "bob", "password": "hunter2!",
	})
	resp.Body.Close()

	var second string
	for _, c := range resp.Cookies() {
		if c.Name == ta.cfg.SessionCookie {
			second = c.Value
		}
	}
	if second == "" || second == first {
		t.Fatalf("login reused the presented token")
	}

	// The pre-login token was destroyed, not promoted.
	r := ta.do(t, "GET", "/api/user", first, nil)
	if r.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("old token still valid, status = %d", r.StatusCode)
	}
	r.Body.Close()
}

func TestContactEndpoints(t *testing.T) {
	ta := newTestApp(t)
	token := ta.registerAndLogin(t, "carol")

	resp := ta.do(t, "POST", "/api/contacts", token, map[string]any{
		"name": "Dana", "mobile": "15550100", "location": "NYC", "label": "gold",
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created models.Contact
	decodeBody(t, resp, &created)

	resp = ta.do(t, "GET", "/api/contacts?label=gold", token, nil)
	var list struct {
		Items []models.Contact `json:"items"`
		Count int              `json:"count"`
	}
	decodeBody(t, resp, &list)
	if list.Count != 1 || list.Items[0].ID != created.ID {
		t.Errorf("list = %+v, want the created contact", list)
	}

	// Cross-account read is forbidden, not hidden.
	other := ta.registerAndLogin(t, "mallory")
	resp = ta.do(t, "GET", "/api/contacts/"+created.ID.String(), other, nil)
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("cross-account status = %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()

	resp = ta.do(t, "DELETE", "/api/contacts/"+created.ID.String(), token, nil)
	if resp.StatusCode != fiber.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestContactImportEndpoint(t *testing.T) {
	ta := newTestApp(t)
	token := ta.registerAndLogin(t, "dave")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "contacts.csv")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte("name,mobile,location\nAlice,101,NYC\nAlice again,101,LA\nBlank,,X\n"))
	_ = w.WriteField("deduplicate", "true")
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", "/api/contacts/import", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: ta.cfg.SessionCookie, Value: token})
	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("import status = %d", resp.StatusCode)
	}

	var result models.ImportResult
	decodeBody(t, resp, &result)
	if result.Imported != 1 || result.Duplicates != 1 || result.Skipped != 1 || result.Total != 3 {
		t.Errorf("result = %+v, want 1 imported, 1 duplicate, 1 skipped of 3", result)
	}
}

func TestCampaignLaunchEndpoint(t *testing.T) {
	ta := newTestApp(t)
	token := ta.registerAndLogin(t, "erin")

	resp := ta.do(t, "POST", "/api/campaigns", token, map[string]any{
		"name": "Spring Sale", "template": "spring_sale",
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var campaign models.Campaign
	decodeBody(t, resp, &campaign)
	launchPath := "/api/campaigns/" + campaign.ID.String() + "/launch"

	// No settings yet
	resp = ta.do(t, "POST", launchPath, token, nil)
	var errBody map[string]any
	decodeBody(t, resp, &errBody)
	if errBody["code"] != "SETTINGS_MISSING" {
		t.Fatalf("code = %v, want SETTINGS_MISSING", errBody["code"])
	}

	resp = ta.do(t, "PUT", "/api/settings", token, map[string]any{
		"access_token": "secret-token", "phone_number_id": "123", "waba_id": "456",
	})
	resp.Body.Close()

	// Settings present but no contacts
	resp = ta.do(t, "POST", launchPath, token, nil)
	decodeBody(t, resp, &errBody)
	if errBody["code"] != "EMPTY_SEGMENT" {
		t.Fatalf("code = %v, want EMPTY_SEGMENT", errBody["code"])
	}

	resp = ta.do(t, "POST", "/api/contacts", token, map[string]any{
		"name": "Target", "mobile": "15550200", "location": "LA",
	})
	resp.Body.Close()

	resp = ta.do(t, "POST", launchPath, token, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("launch status = %d", resp.StatusCode)
	}
	var result services.LaunchResult
	decodeBody(t, resp, &result)
	if result.Sent != 1 || result.Total != 1 {
		t.Errorf("launch result = %+v, want 1 of 1 sent", result)
	}
	if ta.sender.calls != 1 {
		t.Errorf("provider calls = %d, want 1", ta.sender.calls)
	}

	// Analytics row exists and exports as csv
	resp = ta.do(t, "GET", "/api/analytics/"+campaign.ID.String(), token, nil)
	var a models.Analytics
	decodeBody(t, resp, &a)
	if a.Sent != 1 {
		t.Errorf("analytics sent = %d, want 1", a.Sent)
	}

	// Delivery callback relay merges counters by campaign id.
	resp = ta.do(t, "POST", "/api/analytics/update-metrics", token, map[string]any{
		"campaignId": campaign.ID.String(), "delivered": 1,
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("update-metrics status = %d", resp.StatusCode)
	}
	decodeBody(t, resp, &a)
	if a.Delivered != 1 || a.Sent != 1 {
		t.Errorf("merged analytics = %+v, want delivered 1 and sent 1", a)
	}

	resp = ta.do(t, "GET", "/api/analytics/export/csv", token, nil)
	if got := resp.Header.Get("Content-Type"); !strings.HasPrefix(got, "text/csv") {
		t.Errorf("export content type = %q", got)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(raw), "Spring Sale") {
		t.Errorf("csv missing campaign name: %s", raw)
	}

	resp = ta.do(t, "GET", "/api/analytics/export/pdf", token, nil)
	if resp.StatusCode != fiber.StatusNotImplemented {
		t.Errorf("pdf export status = %d, want 501", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSettingsRedaction(t *testing.T) {
	ta := newTestApp(t)
	token := ta.registerAndLogin(t, "frank")

	resp := ta.do(t, "PUT", "/api/settings", token, map[string]any{
		"access_token": "super-secret", "phone_number_id": "123", "waba_id": "456",
	})
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if strings.Contains(string(raw), "super-secret") {
		t.Fatalf("update response leaks the access token: %s", raw)
	}

	resp = ta.do(t, "GET", "/api/settings", token, nil)
	raw, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if strings.Contains(string(raw), "super-secret") {
		t.Fatalf("get response leaks the access token: %s", raw)
	}

	// Echoing the redaction marker back keeps the stored secret.
	resp = ta.do(t, "PUT", "/api/settings", token, map[string]any{
		"access_token": "***", "phone_number_id": "999", "waba_id": "456",
	})
	resp.Body.Close()

	resp = ta.do(t, "GET", "/api/settings/validate", token, nil)
	var validation struct {
		Complete bool `json:"complete"`
	}
	decodeBody(t, resp, &validation)
	if !validation.Complete {
		t.Errorf("settings should still be complete after marker round-trip")
	}
}
