package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/campaignhub/backend/internal/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned on unique-constraint violations.
	ErrDuplicate = errors.New("duplicate record")
)

// Repositories are interfaces so the storage backend is selected by
// configuration at startup: postgres in production, memory for tests and
// standalone runs.

type AccountRepository interface {
	Create(ctx context.Context, a *models.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, verifier string) error
	SetResetNonce(ctx context.Context, id uuid.UUID, nonce string, expiresAt time.Time) error
	ClearResetNonce(ctx context.Context, id uuid.UUID) error
}

type ContactFilter struct {
	Label  *string
	Search string
	Limit  int
	Offset int
}

type ContactRepository interface {
	Create(ctx context.Context, c *models.Contact) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error)
	// GetByMobile resolves the per-account natural key used by import dedup.
	GetByMobile(ctx context.Context, accountID uuid.UUID, mobile string) (*models.Contact, error)
	List(ctx context.Context, accountID uuid.UUID, f ContactFilter) ([]models.Contact, error)
	// ListSegment resolves a campaign's audience: all contacts of the
	// account, or those with the given label.
	ListSegment(ctx context.Context, accountID uuid.UUID, label *string) ([]models.Contact, error)
	Update(ctx context.Context, c *models.Contact) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type CampaignFilter struct {
	Status *string
	Limit  int
	Offset int
}

type CampaignRepository interface {
	Create(ctx context.Context, c *models.Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	List(ctx context.Context, accountID uuid.UUID, f CampaignFilter) ([]models.Campaign, error)
	Update(ctx context.Context, c *models.Campaign) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ClaimLaunch performs the atomic draft->active transition. It reports
	// false when the campaign was not in draft, so two concurrent launches
	// cannot both claim it.
	ClaimLaunch(ctx context.Context, id uuid.UUID) (bool, error)
	// ReleaseLaunch reverts active->draft after a failed external send.
	ReleaseLaunch(ctx context.Context, id uuid.UUID) error
	// ListDueScheduled returns draft campaigns whose scheduled_at has passed.
	ListDueScheduled(ctx context.Context, now time.Time) ([]models.Campaign, error)
}

type AnalyticsRepository interface {
	// Init creates the zeroed funnel row for a freshly launched campaign.
	Init(ctx context.Context, campaignID, accountID uuid.UUID) error
	Merge(ctx context.Context, campaignID uuid.UUID, upd models.AnalyticsUpdate) (*models.Analytics, error)
	GetByCampaign(ctx context.Context, campaignID uuid.UUID) (*models.Analytics, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Analytics, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) error
	ListByCampaign(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]models.Message, error)
}

type SettingsRepository interface {
	GetByAccount(ctx context.Context, accountID uuid.UUID) (*models.Settings, error)
	Upsert(ctx context.Context, s *models.Settings) error
}

type AuditRepository interface {
	Log(ctx context.Context, entry models.AuditLog) error
	GetByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]models.AuditLog, error)
}
