package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Manager owns session lifecycle on top of a Store: opaque token issuance,
// sliding-expiry resolution, logout, and cross-session revocation.
type Manager struct {
	store  Store
	ttl    time.Duration
	active prometheus.Gauge
}

func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl}
}

// SetActiveGauge makes the manager track session count on the given gauge:
// incremented on Create, decremented on Destroy and RevokeOthers. Sessions
// that lapse by TTL are not observed, so the gauge can read high until the
// next explicit logout or revocation.
func (m *Manager) SetActiveGauge(g prometheus.Gauge) {
	m.active = g
}

// Create issues a fresh opaque token for the user. Callers doing a login
// must Destroy any presented token first so the identifier always changes
// across authentication (fixation defense).
func (m *Manager) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	token := uuid.NewString()
	if err := m.store.Create(ctx, token, userID, m.ttl); err != nil {
		return "", err
	}
	if m.active != nil {
		m.active.Inc()
	}
	return token, nil
}

// Resolve returns the user bound to the token and extends the rolling
// expiry window. ErrNotFound means missing or expired.
func (m *Manager) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	userID, err := m.store.Get(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}
	if err := m.store.Refresh(ctx, token, m.ttl); err != nil {
		return uuid.Nil, err
	}
	return userID, nil
}

func (m *Manager) Destroy(ctx context.Context, token string) error {
	deleted, err := m.store.Delete(ctx, token)
	if err != nil {
		return err
	}
	if deleted && m.active != nil {
		m.active.Dec()
	}
	return nil
}

// RevokeOthers invalidates every other session of the user. The freshly
// issued token is always kept.
func (m *Manager) RevokeOthers(ctx context.Context, userID uuid.UUID, keepToken string) error {
	revoked, err := m.store.DeleteAllForUser(ctx, userID, keepToken)
	if err != nil {
		return err
	}
	if revoked > 0 && m.active != nil {
		m.active.Sub(float64(revoked))
	}
	return nil
}

func (m *Manager) TTL() time.Duration { return m.ttl }
