package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/campaignhub/backend/internal/apperrors"
	"github.com/campaignhub/backend/internal/events"
	"github.com/campaignhub/backend/internal/metrics"
	"github.com/campaignhub/backend/internal/models"
	"github.com/campaignhub/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// fakeSender records sends and fails for mobiles listed in failFor.
type fakeSender struct {
	sent    []string
	failFor map[string]bool
	failAll bool
}

func (f *fakeSender) SendTemplate(_ context.Context, _ models.Settings, to, _ string) (string, error) {
	if f.failAll || f.failFor[to] {
		return "", errors.New("provider rejected message")
	}
	f.sent = append(f.sent, to)
	return fmt.Sprintf("wamid.%d", len(f.sent)), nil
}

type campaignFixture struct {
	db        *repositories.MemoryDB
	campaigns repositories.CampaignRepository
	contacts  repositories.ContactRepository
	settings  repositories.SettingsRepository
	messages  repositories.MessageRepository
	analytics repositories.AnalyticsRepository
	sender    *fakeSender
	svc       *CampaignService
	accountID uuid.UUID
}

func newCampaignFixture() *campaignFixture {
	db := repositories.NewMemoryDB()
	f := &campaignFixture{
		db:        db,
		campaigns: repositories.NewMemoryCampaignRepo(db),
		contacts:  repositories.NewMemoryContactRepo(db),
		settings:  repositories.NewMemorySettingsRepo(db),
		messages:  repositories.NewMemoryMessageRepo(db),
		analytics: repositories.NewMemoryAnalyticsRepo(db),
		sender:    &fakeSender{failFor: map[string]bool{}},
		accountID: uuid.New(),
	}
	f.svc = NewCampaignService(
		f.campaigns,
		f.contacts,
		f.settings,
		f.analytics,
		f.messages,
		repositories.NewMemoryAuditRepo(db),
		f.sender,
		events.NopPublisher{},
		metrics.New(prometheus.NewRegistry()),
		zap.NewNop(),
	)
	return f
}

func (f *campaignFixture) withSettings(t *testing.T) {
	t.Helper()
	err := f.settings.Upsert(context.Background(), &models.Settings{
		AccountID:     f.accountID,
		AccessToken:   "token",
		PhoneNumberID: "123",
		WABAID:        "456",
	})
	if err != nil {
		t.Fatal(err)
	}
}

func (f *campaignFixture) withContacts(t *testing.T, n int, label string) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := f.contacts.Create(context.Background(), &models.Contact{
			AccountID: f.accountID,
			Name:      fmt.Sprintf("Contact %d", i),
			Mobile:    fmt.Sprintf("1555%04d", i),
			Location:  "NYC",
			Label:     label,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
}

func (f *campaignFixture) draftCampaign(t *testing.T, label *string) *models.Campaign {
	t.Helper()
	c := &models.Campaign{Name: "Spring Sale", Template: "spring_sale", ContactLabel: label}
	if err := f.svc.Create(context.Background(), f.accountID, c); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCampaignCreateForcesDraft(t *testing.T) {
	f := newCampaignFixture()
	c := &models.Campaign{Name: "X", Template: "tpl", Status: "active"}
	if err := f.svc.Create(context.Background(), f.accountID, c); err != nil {
		t.Fatal(err)
	}
	if c.Status != models.CampaignStatusDraft {
		t.Errorf("status = %q, want draft", c.Status)
	}
}

func TestCampaignCreateRejectsPastSchedule(t *testing.T) {
	f := newCampaignFixture()
	past := time.Now().Add(-time.Hour)
	c := &models.Campaign{Name: "X", Template: "tpl", ScheduledAt: &past}
	if err := f.svc.Create(context.Background(), f.accountID, c); !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
}

func TestCampaignDraftOnlyGuards(t *testing.T) {
	f := newCampaignFixture()
	f.withSettings(t)
	f.withContacts(t, 1, "")
	c := f.draftCampaign(t, nil)

	if _, err := f.svc.Launch(context.Background(), c.ID, f.accountID); err != nil {
		t.Fatal(err)
	}

	// campaign is now active; edits, deletes and relaunches are rejected
	if _, err := f.svc.Update(context.Background(), c.ID, f.accountID, &models.Campaign{Name: "Y", Template: "tpl"}); !apperrors.Is(err, apperrors.KindValidation) {
		t.Errorf("update error = %v, want validation error", err)
	}
	if err := f.svc.Delete(context.Background(), c.ID, f.accountID); !apperrors.Is(err, apperrors.KindValidation) {
		t.Errorf("delete error = %v, want validation error", err)
	}
	if _, err := f.svc.Launch(context.Background(), c.ID, f.accountID); !apperrors.Is(err, apperrors.KindValidation) {
		t.Errorf("relaunch error = %v, want validation error", err)
	}
}

func TestCampaignCrossAccountIsForbidden(t *testing.T) {
	f := newCampaignFixture()
	c := f.draftCampaign(t, nil)
	stranger := uuid.New()

	if _, err := f.svc.GetByID(context.Background(), c.ID, stranger); !apperrors.Is(err, apperrors.KindAuthorization) {
		t.Errorf("error = %v, want authorization error", err)
	}
	if _, err := f.svc.GetByID(context.Background(), uuid.New(), stranger); !apperrors.Is(err, apperrors.KindNotFound) {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestLaunchPreconditions(t *testing.T) {
	t.Run("missing settings", func(t *testing.T) {
		f := newCampaignFixture()
		f.withContacts(t, 1, "")
		c := f.draftCampaign(t, nil)

		_, err := f.svc.Launch(context.Background(), c.ID, f.accountID)
		var appErr *apperrors.Error
		if !errors.As(err, &appErr) || appErr.Code != "SETTINGS_MISSING" {
			t.Fatalf("error = %v, want SETTINGS_MISSING", err)
		}

		got, _ := f.svc.GetByID(context.Background(), c.ID, f.accountID)
		if !got.IsDraft() {
			t.Errorf("campaign left draft on failed precondition")
		}
	})

	t.Run("incomplete settings", func(t *testing.T) {
		f := newCampaignFixture()
		f.withContacts(t, 1, "")
		_ = f.settings.Upsert(context.Background(), &models.Settings{
			AccountID:   f.accountID,
			AccessToken: "token", // phone_number_id and waba_id blank
		})
		c := f.draftCampaign(t, nil)

		_, err := f.svc.Launch(context.Background(), c.ID, f.accountID)
		var appErr *apperrors.Error
		if !errors.As(err, &appErr) || appErr.Code != "SETTINGS_MISSING" {
			t.Fatalf("error = %v, want SETTINGS_MISSING", err)
		}
	})

	t.Run("empty segment", func(t *testing.T) {
		f := newCampaignFixture()
		f.withSettings(t)
		f.withContacts(t, 3, "gold")
		label := "platinum"
		c := f.draftCampaign(t, &label)

		_, err := f.svc.Launch(context.Background(), c.ID, f.accountID)
		var appErr *apperrors.Error
		if !errors.As(err, &appErr) || appErr.Code != "EMPTY_SEGMENT" {
			t.Fatalf("error = %v, want EMPTY_SEGMENT", err)
		}
	})
}

func TestLaunchSendsToSegment(t *testing.T) {
	f := newCampaignFixture()
	f.withSettings(t)
	f.withContacts(t, 3, "gold")
	f.withContacts(t, 2, "silver")
	label := "gold"
	c := f.draftCampaign(t, &label)

	res, err := f.svc.Launch(context.Background(), c.ID, f.accountID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 3 || res.Sent != 3 || res.Failed != 0 {
		t.Errorf("result = %+v, want 3 sent of 3", res)
	}
	if len(f.sender.sent) != 3 {
		t.Errorf("provider calls = %d, want 3", len(f.sender.sent))
	}

	got, _ := f.svc.GetByID(context.Background(), c.ID, f.accountID)
	if got.Status != models.CampaignStatusActive {
		t.Errorf("status = %q, want active", got.Status)
	}

	msgs, _ := f.messages.ListByCampaign(context.Background(), c.ID, 10, 0)
	if len(msgs) != 3 {
		t.Errorf("message records = %d, want 3", len(msgs))
	}

	a, err := f.analytics.GetByCampaign(context.Background(), c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if a.Sent != 3 || a.Failed != 0 {
		t.Errorf("analytics sent = %d failed = %d, want 3 and 0", a.Sent, a.Failed)
	}
}

func TestLaunchPartialFailure(t *testing.T) {
	f := newCampaignFixture()
	f.withSettings(t)
	f.withContacts(t, 3, "")
	f.sender.failFor["15550001"] = true
	c := f.draftCampaign(t, nil)

	res, err := f.svc.Launch(context.Background(), c.ID, f.accountID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Sent != 2 || res.Failed != 1 {
		t.Errorf("result = %+v, want 2 sent 1 failed", res)
	}

	msgs, _ := f.messages.ListByCampaign(context.Background(), c.ID, 10, 0)
	var failed int
	for _, m := range msgs {
		if m.Status == models.MessageStatusFailed {
			failed++
			if m.Error == nil {
				t.Errorf("failed message missing error text")
			}
		}
	}
	if failed != 1 {
		t.Errorf("failed records = %d, want 1", failed)
	}
}

func TestLaunchTotalFailureReleasesClaim(t *testing.T) {
	f := newCampaignFixture()
	f.withSettings(t)
	f.withContacts(t, 2, "")
	f.sender.failAll = true
	c := f.draftCampaign(t, nil)

	if _, err := f.svc.Launch(context.Background(), c.ID, f.accountID); !apperrors.Is(err, apperrors.KindExternal) {
		t.Fatalf("error = %v, want external error", err)
	}

	got, _ := f.svc.GetByID(context.Background(), c.ID, f.accountID)
	if !got.IsDraft() {
		t.Errorf("status = %q, want draft after total send failure", got.Status)
	}
}

func TestConcurrentLaunchClaimsOnce(t *testing.T) {
	f := newCampaignFixture()
	c := f.draftCampaign(t, nil)

	claimed, err := f.campaigns.ClaimLaunch(context.Background(), c.ID)
	if err != nil || !claimed {
		t.Fatalf("first claim: claimed=%v err=%v", claimed, err)
	}
	claimed, err = f.campaigns.ClaimLaunch(context.Background(), c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if claimed {
		t.Fatal("second claim succeeded, want refusal")
	}
}

func TestLaunchDueScheduled(t *testing.T) {
	f := newCampaignFixture()
	f.withSettings(t)
	f.withContacts(t, 1, "")

	due := time.Now().Add(time.Minute)
	c := &models.Campaign{Name: "Later", Template: "tpl", ScheduledAt: &due}
	if err := f.svc.Create(context.Background(), f.accountID, c); err != nil {
		t.Fatal(err)
	}

	// not due yet
	f.svc.LaunchDueScheduled(context.Background())
	got, _ := f.svc.GetByID(context.Background(), c.ID, f.accountID)
	if !got.IsDraft() {
		t.Fatalf("campaign launched before its schedule")
	}

	past := time.Now().Add(-time.Minute)
	if err := f.campaigns.Update(context.Background(), &models.Campaign{
		ID: c.ID, Name: c.Name, Template: c.Template, ScheduledAt: &past,
	}); err != nil {
		t.Fatal(err)
	}

	f.svc.LaunchDueScheduled(context.Background())
	got, _ = f.svc.GetByID(context.Background(), c.ID, f.accountID)
	if got.Status != models.CampaignStatusActive {
		t.Errorf("status = %q, want active after due launch", got.Status)
	}
}
