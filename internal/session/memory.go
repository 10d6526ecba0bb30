package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRecord struct {
	userID    uuid.UUID
	expiresAt time.Time
}

// MemoryStore keeps sessions in-process. Used when SESSION_STORE=memory and
// as the fixture for handler tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memoryRecord)}
}

func (s *MemoryStore) Create(_ context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = memoryRecord{userID: userID, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (uuid.UUID, error) {
	s.mu.RLock()
	rec, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return uuid.Nil, ErrNotFound
	}
	if time.Now().After(rec.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return uuid.Nil, ErrNotFound
	}
	return rec.userID, nil
}

func (s *MemoryStore) Refresh(_ context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[token]
	if !ok || time.Now().After(rec.expiresAt) {
		delete(s.sessions, token)
		return ErrNotFound
	}
	rec.expiresAt = time.Now().Add(ttl)
	s.sessions[token] = rec
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[token]
	delete(s.sessions, token)
	return ok, nil
}

func (s *MemoryStore) DeleteAllForUser(_ context.Context, userID uuid.UUID, exceptToken string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	revoked := 0
	for token, rec := range s.sessions {
		if rec.userID == userID && token != exceptToken {
			delete(s.sessions, token)
			revoked++
		}
	}
	return revoked, nil
}
