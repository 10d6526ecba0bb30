package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a token does not resolve to a live session.
var ErrNotFound = errors.New("session not found")

// Store is the server-side session record: token -> {userID, expiry}.
// Implementations: redis (production) and memory (tests / single-node fallback).
// Deletions report what they removed so the manager can keep its live
// session gauge honest.
type Store interface {
	Create(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error
	Get(ctx context.Context, token string) (uuid.UUID, error)
	Refresh(ctx context.Context, token string, ttl time.Duration) error
	// Delete reports whether a live session was actually removed.
	Delete(ctx context.Context, token string) (bool, error)
	// DeleteAllForUser revokes every session of the user except the given
	// token and returns the number revoked.
	DeleteAllForUser(ctx context.Context, userID uuid.UUID, exceptToken string) (int, error)
}

const (
	sessionKeyPrefix = "session:"
	userIndexPrefix  = "user_sessions:"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(token string) string { return sessionKeyPrefix + token }

func userIndexKey(userID uuid.UUID) string { return userIndexPrefix + userID.String() }

func (s *RedisStore) Create(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	if err := s.client.Set(ctx, sessionKey(token), userID.String(), ttl).Err(); err != nil {
		return err
	}
	// Index for revocation. The set outlives individual sessions by one TTL;
	// stale members are skipped on revoke because their keys are gone.
	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, userIndexKey(userID), token)
	pipe.Expire(ctx, userIndexKey(userID), ttl*2)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Get(ctx context.Context, token string) (uuid.UUID, error) {
	val, err := s.client.Get(ctx, sessionKey(token)).Result()
	if err == redis.Nil {
		return uuid.Nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	userID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt session record: %w", err)
	}
	return userID, nil
}

func (s *RedisStore) Refresh(ctx context.Context, token string, ttl time.Duration) error {
	ok, err := s.client.Expire(ctx, sessionKey(token), ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) (bool, error) {
	val, err := s.client.Get(ctx, sessionKey(token)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	pipe := s.client.Pipeline()
	pipe.Del(ctx, sessionKey(token))
	if userID, perr := uuid.Parse(val); perr == nil {
		pipe.SRem(ctx, userIndexKey(userID), token)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisStore) DeleteAllForUser(ctx context.Context, userID uuid.UUID, exceptToken string) (int, error) {
	tokens, err := s.client.SMembers(ctx, userIndexKey(userID)).Result()
	if err != nil {
		return 0, err
	}
	revoked := 0
	for _, t := range tokens {
		if t == exceptToken {
			continue
		}
		// Index members can outlive their session keys; only count live Dels.
		n, err := s.client.Del(ctx, sessionKey(t)).Result()
		if err != nil {
			return revoked, err
		}
		revoked += int(n)
		_ = s.client.SRem(ctx, userIndexKey(userID), t).Err()
	}
	return revoked, nil
}
