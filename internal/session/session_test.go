package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
)

// stores under test: redis (via miniredis) and memory must behave identically.
func testStores(t *testing.T) map[string]Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Store{
		"redis":  NewRedisStore(client),
		"memory": NewMemoryStore(),
	}
}

func TestStoreCreateGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			userID := uuid.New()

			if err := store.Create(ctx, "tok-1", userID, time.Minute); err != nil {
				t.Fatalf("Create: %v", err)
			}

			got, err := store.Get(ctx, "tok-1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got != userID {
				t.Errorf("Get = %s, want %s", got, userID)
			}

			if _, err := store.Get(ctx, "missing"); err != ErrNotFound {
				t.Errorf("Get(missing) = %v, want ErrNotFound", err)
			}

			deleted, err := store.Delete(ctx, "tok-1")
			if err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if !deleted {
				t.Error("Delete of a live session should report true")
			}
			if _, err := store.Get(ctx, "tok-1"); err != ErrNotFound {
				t.Errorf("Get after Delete = %v, want ErrNotFound", err)
			}

			deleted, err = store.Delete(ctx, "tok-1")
			if err != nil {
				t.Fatalf("Delete again: %v", err)
			}
			if deleted {
				t.Error("Delete of a gone session should report false")
			}
		})
	}
}

func TestStoreRefreshMissing(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Refresh(ctx, "missing", time.Minute); err != ErrNotFound {
				t.Errorf("Refresh(missing) = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStoreDeleteAllForUserKeepsException(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			userID := uuid.New()
			other := uuid.New()

			for _, tok := range []string{"a", "b", "c"} {
				if err := store.Create(ctx, tok, userID, time.Minute); err != nil {
					t.Fatal(err)
				}
			}
			if err := store.Create(ctx, "other", other, time.Minute); err != nil {
				t.Fatal(err)
			}

			revoked, err := store.DeleteAllForUser(ctx, userID, "b")
			if err != nil {
				t.Fatalf("DeleteAllForUser: %v", err)
			}
			if revoked != 2 {
				t.Errorf("revoked = %d, want 2", revoked)
			}

			if _, err := store.Get(ctx, "a"); err != ErrNotFound {
				t.Error("token a should be revoked")
			}
			if _, err := store.Get(ctx, "c"); err != ErrNotFound {
				t.Error("token c should be revoked")
			}
			if _, err := store.Get(ctx, "b"); err != nil {
				t.Error("kept token b must survive revocation")
			}
			if _, err := store.Get(ctx, "other"); err != nil {
				t.Error("another user's session must survive revocation")
			}
		})
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	userID := uuid.New()

	if err := store.Create(ctx, "tok", userID, -time.Second); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "tok"); err != ErrNotFound {
		t.Errorf("expired session Get = %v, want ErrNotFound", err)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewRedisStore(client)

	if err := store.Create(ctx, "tok", uuid.New(), time.Minute); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := store.Get(ctx, "tok"); err != ErrNotFound {
		t.Errorf("expired session Get = %v, want ErrNotFound", err)
	}
}

func TestManagerResolveSlidesExpiry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	m := NewManager(NewRedisStore(client), time.Minute)

	userID := uuid.New()
	token, err := m.Create(ctx, userID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Touch the session just before expiry; the window must slide.
	mr.FastForward(50 * time.Second)
	if _, err := m.Resolve(ctx, token); err != nil {
		t.Fatalf("Resolve before expiry: %v", err)
	}

	mr.FastForward(50 * time.Second)
	got, err := m.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve after refresh: %v", err)
	}
	if got != userID {
		t.Errorf("Resolve = %s, want %s", got, userID)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := m.Resolve(ctx, token); err != ErrNotFound {
		t.Errorf("Resolve after full window = %v, want ErrNotFound", err)
	}
}

func TestManagerTracksActiveGauge(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Minute)
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_active_sessions"})
	m.SetActiveGauge(gauge)

	userID := uuid.New()
	var tokens []string
	for i := 0; i < 3; i++ {
		token, err := m.Create(ctx, userID)
		if err != nil {
			t.Fatal(err)
		}
		tokens = append(tokens, token)
	}
	if got := testutil.ToFloat64(gauge); got != 3 {
		t.Errorf("gauge after 3 creates = %v, want 3", got)
	}

	if err := m.Destroy(ctx, tokens[0]); err != nil {
		t.Fatal(err)
	}
	// Destroying an already-gone token must not double-decrement.
	if err := m.Destroy(ctx, tokens[0]); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(gauge); got != 2 {
		t.Errorf("gauge after destroy = %v, want 2", got)
	}

	if err := m.RevokeOthers(ctx, userID, tokens[2]); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(gauge); got != 1 {
		t.Errorf("gauge after revoke = %v, want 1", got)
	}
}

func TestManagerTokensAreUnique(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Minute)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := m.Create(ctx, uuid.New())
		if err != nil {
			t.Fatal(err)
		}
		if seen[token] {
			t.Fatalf("duplicate token issued: %s", token)
		}
		seen[token] = true
	}
}
