package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/campaignhub/backend/internal/models"
	"github.com/google/uuid"
)

// MemoryDB backs the in-memory repository set. Selected with
// STORAGE_DRIVER=memory; also the fixture for service and handler tests.
// One mutex guards everything: contention is irrelevant at this scale.
type MemoryDB struct {
	mu        sync.RWMutex
	accounts  map[uuid.UUID]models.Account
	users     map[uuid.UUID]models.User
	contacts  map[uuid.UUID]models.Contact
	campaigns map[uuid.UUID]models.Campaign
	analytics map[uuid.UUID]models.Analytics // keyed by campaign id
	messages  map[uuid.UUID][]models.Message // keyed by campaign id
	settings  map[uuid.UUID]models.Settings  // keyed by account id
	audit     []models.AuditLog
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		accounts:  make(map[uuid.UUID]models.Account),
		users:     make(map[uuid.UUID]models.User),
		contacts:  make(map[uuid.UUID]models.Contact),
		campaigns: make(map[uuid.UUID]models.Campaign),
		analytics: make(map[uuid.UUID]models.Analytics),
		messages:  make(map[uuid.UUID][]models.Message),
		settings:  make(map[uuid.UUID]models.Settings),
	}
}

type MemoryAccountRepo struct{ db *MemoryDB }

func NewMemoryAccountRepo(db *MemoryDB) *MemoryAccountRepo { return &MemoryAccountRepo{db: db} }

func (r *MemoryAccountRepo) Create(_ context.Context, a *models.Account) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	r.db.accounts[a.ID] = *a
	return nil
}

func (r *MemoryAccountRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	a, ok := r.db.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

type MemoryUserRepo struct{ db *MemoryDB }

func NewMemoryUserRepo(db *MemoryDB) *MemoryUserRepo { return &MemoryUserRepo{db: db} }

func (r *MemoryUserRepo) Create(_ context.Context, u *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.users {
		if existing.Username == u.Username {
			return ErrDuplicate
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	r.db.users[u.ID] = *u
	return nil
}

func (r *MemoryUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, u := range r.db.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, u := range r.db.users {
		if u.Email != nil && *u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, verifier string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Password = verifier
	r.db.users[id] = u
	return nil
}

func (r *MemoryUserRepo) SetResetNonce(_ context.Context, id uuid.UUID, nonce string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return ErrNotFound
	}
	u.ResetNonce = &nonce
	u.ResetExpiresAt = &expiresAt
	r.db.users[id] = u
	return nil
}

func (r *MemoryUserRepo) ClearResetNonce(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return ErrNotFound
	}
	u.ResetNonce = nil
	u.ResetExpiresAt = nil
	r.db.users[id] = u
	return nil
}

type MemoryContactRepo struct{ db *MemoryDB }

func NewMemoryContactRepo(db *MemoryDB) *MemoryContactRepo { return &MemoryContactRepo{db: db} }

func (r *MemoryContactRepo) Create(_ context.Context, c *models.Contact) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	r.db.contacts[c.ID] = *c
	return nil
}

func (r *MemoryContactRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Contact, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	c, ok := r.db.contacts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *MemoryContactRepo) GetByMobile(_ context.Context, accountID uuid.UUID, mobile string) (*models.Contact, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var found *models.Contact
	for _, c := range r.db.contacts {
		if c.AccountID == accountID && c.Mobile == mobile {
			c := c
			if found == nil || c.CreatedAt.Before(found.CreatedAt) {
				found = &c
			}
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (r *MemoryContactRepo) List(_ context.Context, accountID uuid.UUID, f ContactFilter) ([]models.Contact, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var contacts []models.Contact
	for _, c := range r.db.contacts {
		if c.AccountID != accountID {
			continue
		}
		if f.Label != nil && c.Label != *f.Label {
			continue
		}
		if f.Search != "" {
			s := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(c.Name), s) && !strings.Contains(c.Mobile, f.Search) {
				continue
			}
		}
		contacts = append(contacts, c)
	}
	sort.Slice(contacts, func(i, j int) bool { return contacts[i].CreatedAt.After(contacts[j].CreatedAt) })

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return paginate(contacts, limit, f.Offset), nil
}

func (r *MemoryContactRepo) ListSegment(_ context.Context, accountID uuid.UUID, label *string) ([]models.Contact, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var contacts []models.Contact
	for _, c := range r.db.contacts {
		if c.AccountID != accountID {
			continue
		}
		if label != nil && c.Label != *label {
			continue
		}
		contacts = append(contacts, c)
	}
	sort.Slice(contacts, func(i, j int) bool { return contacts[i].CreatedAt.Before(contacts[j].CreatedAt) })
	return contacts, nil
}

func (r *MemoryContactRepo) Update(_ context.Context, c *models.Contact) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.contacts[c.ID]
	if !ok {
		return ErrNotFound
	}
	c.AccountID = existing.AccountID
	c.CreatedAt = existing.CreatedAt
	r.db.contacts[c.ID] = *c
	return nil
}

func (r *MemoryContactRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.contacts, id)
	return nil
}

type MemoryCampaignRepo struct{ db *MemoryDB }

func NewMemoryCampaignRepo(db *MemoryDB) *MemoryCampaignRepo { return &MemoryCampaignRepo{db: db} }

func (r *MemoryCampaignRepo) Create(_ context.Context, c *models.Campaign) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.db.campaigns[c.ID] = *c
	return nil
}

func (r *MemoryCampaignRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Campaign, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	c, ok := r.db.campaigns[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *MemoryCampaignRepo) List(_ context.Context, accountID uuid.UUID, f CampaignFilter) ([]models.Campaign, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var campaigns []models.Campaign
	for _, c := range r.db.campaigns {
		if c.AccountID != accountID {
			continue
		}
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		campaigns = append(campaigns, c)
	}
	sort.Slice(campaigns, func(i, j int) bool { return campaigns[i].CreatedAt.After(campaigns[j].CreatedAt) })

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return paginate(campaigns, limit, f.Offset), nil
}

func (r *MemoryCampaignRepo) Update(_ context.Context, c *models.Campaign) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.campaigns[c.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = c.Name
	existing.Template = c.Template
	existing.ContactLabel = c.ContactLabel
	existing.ScheduledAt = c.ScheduledAt
	existing.UpdatedAt = time.Now()
	r.db.campaigns[c.ID] = existing
	*c = existing
	return nil
}

func (r *MemoryCampaignRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.campaigns, id)
	delete(r.db.analytics, id)
	delete(r.db.messages, id)
	return nil
}

func (r *MemoryCampaignRepo) ClaimLaunch(_ context.Context, id uuid.UUID) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.campaigns[id]
	if !ok || c.Status != models.CampaignStatusDraft {
		return false, nil
	}
	c.Status = models.CampaignStatusActive
	c.UpdatedAt = time.Now()
	r.db.campaigns[id] = c
	return true, nil
}

func (r *MemoryCampaignRepo) ReleaseLaunch(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.campaigns[id]
	if !ok || c.Status != models.CampaignStatusActive {
		return nil
	}
	c.Status = models.CampaignStatusDraft
	c.UpdatedAt = time.Now()
	r.db.campaigns[id] = c
	return nil
}

func (r *MemoryCampaignRepo) ListDueScheduled(_ context.Context, now time.Time) ([]models.Campaign, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var due []models.Campaign
	for _, c := range r.db.campaigns {
		if c.Status == models.CampaignStatusDraft && c.ScheduledAt != nil && !c.ScheduledAt.After(now) {
			due = append(due, c)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(*due[j].ScheduledAt) })
	return due, nil
}

type MemoryAnalyticsRepo struct{ db *MemoryDB }

func NewMemoryAnalyticsRepo(db *MemoryDB) *MemoryAnalyticsRepo { return &MemoryAnalyticsRepo{db: db} }

func (r *MemoryAnalyticsRepo) Init(_ context.Context, campaignID, accountID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.analytics[campaignID]
	id := uuid.New()
	if ok {
		id = existing.ID
	}
	r.db.analytics[campaignID] = models.Analytics{
		ID:         id,
		CampaignID: campaignID,
		AccountID:  accountID,
		UpdatedAt:  time.Now(),
	}
	return nil
}

func (r *MemoryAnalyticsRepo) Merge(_ context.Context, campaignID uuid.UUID, upd models.AnalyticsUpdate) (*models.Analytics, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.analytics[campaignID]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Sent != nil {
		a.Sent = *upd.Sent
	}
	if upd.Delivered != nil {
		a.Delivered = *upd.Delivered
	}
	if upd.Read != nil {
		a.Read = *upd.Read
	}
	if upd.Optout != nil {
		a.Optout = *upd.Optout
	}
	if upd.Hold != nil {
		a.Hold = *upd.Hold
	}
	if upd.Failed != nil {
		a.Failed = *upd.Failed
	}
	a.UpdatedAt = time.Now()
	r.db.analytics[campaignID] = a
	return &a, nil
}

func (r *MemoryAnalyticsRepo) GetByCampaign(_ context.Context, campaignID uuid.UUID) (*models.Analytics, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	a, ok := r.db.analytics[campaignID]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r *MemoryAnalyticsRepo) ListByAccount(_ context.Context, accountID uuid.UUID) ([]models.Analytics, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var list []models.Analytics
	for _, a := range r.db.analytics {
		if a.AccountID == accountID {
			list = append(list, a)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	return list, nil
}

type MemoryMessageRepo struct{ db *MemoryDB }

func NewMemoryMessageRepo(db *MemoryDB) *MemoryMessageRepo { return &MemoryMessageRepo{db: db} }

func (r *MemoryMessageRepo) Create(_ context.Context, m *models.Message) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	r.db.messages[m.CampaignID] = append(r.db.messages[m.CampaignID], *m)
	return nil
}

func (r *MemoryMessageRepo) ListByCampaign(_ context.Context, campaignID uuid.UUID, limit, offset int) ([]models.Message, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	all := r.db.messages[campaignID]
	return paginate(append([]models.Message(nil), all...), limit, offset), nil
}

type MemorySettingsRepo struct{ db *MemoryDB }

func NewMemorySettingsRepo(db *MemoryDB) *MemorySettingsRepo { return &MemorySettingsRepo{db: db} }

func (r *MemorySettingsRepo) GetByAccount(_ context.Context, accountID uuid.UUID) (*models.Settings, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	s, ok := r.db.settings[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *MemorySettingsRepo) Upsert(_ context.Context, s *models.Settings) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.settings[s.AccountID]
	if ok {
		s.ID = existing.ID
	} else {
		s.ID = uuid.New()
	}
	s.UpdatedAt = time.Now()
	r.db.settings[s.AccountID] = *s
	return nil
}

type MemoryAuditRepo struct{ db *MemoryDB }

func NewMemoryAuditRepo(db *MemoryDB) *MemoryAuditRepo { return &MemoryAuditRepo{db: db} }

func (r *MemoryAuditRepo) Log(_ context.Context, entry models.AuditLog) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	r.db.audit = append(r.db.audit, entry)
	return nil
}

func (r *MemoryAuditRepo) GetByEntity(_ context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]models.AuditLog, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	var logs []models.AuditLog
	for i := len(r.db.audit) - 1; i >= 0; i-- {
		l := r.db.audit[i]
		if l.EntityType == entityType && l.EntityID != nil && *l.EntityID == entityID {
			logs = append(logs, l)
		}
	}
	return paginate(logs, limit, offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
