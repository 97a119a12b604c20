package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/decorhub/storefront/internal/core/domain"
	"github.com/decorhub/storefront/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubRoleSource struct {
	getUser func(ctx context.Context, email string) (*domain.UserProfile, error)
	calls   atomic.Int32
}

func (s *stubRoleSource) GetUser(ctx context.Context, email string) (*domain.UserProfile, error) {
	s.calls.Add(1)
	return s.getUser(ctx, email)
}

func roleSource(role domain.Role) *stubRoleSource {
	return &stubRoleSource{getUser: func(_ context.Context, email string) (*domain.UserProfile, error) {
		return &domain.UserProfile{Email: email, Role: role}, nil
	}}
}

func failingSource(err error) *stubRoleSource {
	return &stubRoleSource{getUser: func(context.Context, string) (*domain.UserProfile, error) {
		return nil, err
	}}
}

type memRoleCache struct {
	mu      sync.Mutex
	entries map[string]ports.RoleEntry
}

func newMemRoleCache() *memRoleCache {
	return &memRoleCache{entries: make(map[string]ports.RoleEntry)}
}

func (c *memRoleCache) Get(_ context.Context, email string) (*ports.RoleEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[email]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (c *memRoleCache) Set(_ context.Context, email string, entry ports.RoleEntry, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[email] = entry
	return nil
}

func (c *memRoleCache) Delete(_ context.Context, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, email)
	return nil
}

func newTestResolver(src *stubRoleSource, cache *memRoleCache) *RoleResolver {
	cfg := RoleResolverConfig{Retries: 2, RetryBase: time.Millisecond}
	if cache == nil {
		return NewRoleResolver(src, nil, cfg, zerolog.Nop())
	}
	return NewRoleResolver(src, cache, cfg, zerolog.Nop())
}

func waitRole(t *testing.T, q *RoleQuery) domain.Role {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	role, err := q.Wait(ctx)
	if err != nil {
		t.Fatalf("role query did not settle: %v", err)
	}
	return role
}

// ---------------------------------------------------------------------------
// Query
// ---------------------------------------------------------------------------

func TestRoleResolver_ResolvesBackendRole(t *testing.T) {
	cache := newMemRoleCache()
	r := newTestResolver(roleSource(domain.RoleAdmin), cache)

	q := r.Query(context.Background(), testIdentity("u1", "Admin@Example.com"))
	if got := waitRole(t, q); got != domain.RoleAdmin {
		t.Fatalf("expected admin, got %q", got)
	}
	if q.Err() != nil {
		t.Errorf("unexpected error: %v", q.Err())
	}
	if q.Loading() {
		t.Error("settled query must not be loading")
	}
	if _, ok := cache.entries["admin@example.com"]; !ok {
		t.Error("successful fetch must be cached under the normalized email")
	}
}

func TestRoleResolver_FetchFailureFallsBackToUser(t *testing.T) {
	src := failingSource(errors.New("network unreachable"))
	r := newTestResolver(src, nil)

	q := r.Query(context.Background(), testIdentity("u1", "a@example.com"))
	if got := waitRole(t, q); got != domain.RoleUser {
		t.Fatalf("expected fallback role user, got %q", got)
	}
	if !errors.Is(q.Err(), domain.ErrRoleFetch) {
		t.Errorf("expected ErrRoleFetch, got %v", q.Err())
	}
	if n := src.calls.Load(); n != 3 {
		t.Errorf("expected 1 attempt plus 2 retries, got %d calls", n)
	}
}

func TestRoleResolver_ForbiddenIsNotRetried(t *testing.T) {
	src := failingSource(domain.ErrForbidden)
	r := newTestResolver(src, nil)

	q := r.Query(context.Background(), testIdentity("u1", "a@example.com"))
	if got := waitRole(t, q); got != domain.RoleUser {
		t.Fatalf("expected user, got %q", got)
	}
	if !errors.Is(q.Err(), domain.ErrForbidden) {
		t.Errorf("expected wrapped ErrForbidden, got %v", q.Err())
	}
	if n := src.calls.Load(); n != 1 {
		t.Errorf("forbidden must not be retried, got %d calls", n)
	}
}

func TestRoleResolver_ZeroRetriesIsOneAttempt(t *testing.T) {
	src := failingSource(errors.New("network unreachable"))
	r := NewRoleResolver(src, nil, RoleResolverConfig{RetryBase: time.Millisecond}, zerolog.Nop())

	q := r.Query(context.Background(), testIdentity("u1", "a@example.com"))
	waitRole(t, q)
	if !errors.Is(q.Err(), domain.ErrRoleFetch) {
		t.Errorf("expected ErrRoleFetch, got %v", q.Err())
	}
	if n := src.calls.Load(); n != 1 {
		t.Errorf("zero retries must make one attempt, got %d calls", n)
	}
}

func TestRoleResolver_MalformedProfileIsNotRetried(t *testing.T) {
	src := failingSource(fmt.Errorf("decode GET /users/a@example.com: %w: %w", domain.ErrBadResponse, errors.New("invalid character")))
	r := newTestResolver(src, nil)

	q := r.Query(context.Background(), testIdentity("u1", "a@example.com"))
	if got := waitRole(t, q); got != domain.RoleUser {
		t.Fatalf("expected fallback role user, got %q", got)
	}
	if !errors.Is(q.Err(), domain.ErrBadResponse) {
		t.Errorf("expected wrapped ErrBadResponse, got %v", q.Err())
	}
	if n := src.calls.Load(); n != 1 {
		t.Errorf("a malformed body must not be retried, got %d calls", n)
	}
}

func TestRoleResolver_MissingProfileIsUser(t *testing.T) {
	src := failingSource(domain.ErrNotFound)
	cache := newMemRoleCache()
	r := newTestResolver(src, cache)

	q := r.Query(context.Background(), testIdentity("u1", "a@example.com"))
	if got := waitRole(t, q); got != domain.RoleUser {
		t.Fatalf("expected user, got %q", got)
	}
	if q.Err() != nil {
		t.Errorf("missing profile is not an error, got %v", q.Err())
	}
	if src.calls.Load() != 1 {
		t.Errorf("expected a single call, got %d", src.calls.Load())
	}
}

func TestRoleResolver_UnknownRoleIsUser(t *testing.T) {
	r := newTestResolver(roleSource("superadmin"), nil)
	q := r.Query(context.Background(), testIdentity("u1", "a@example.com"))
	if got := waitRole(t, q); got != domain.RoleUser {
		t.Fatalf("expected user for unknown role, got %q", got)
	}
}

func TestRoleResolver_DisabledWithoutIdentity(t *testing.T) {
	src := roleSource(domain.RoleAdmin)
	r := newTestResolver(src, nil)

	q := r.Query(context.Background(), nil)
	if !q.Disabled() || q.Loading() || q.Role() != "" {
		t.Fatalf("expected disabled idle query, got disabled=%v loading=%v role=%q", q.Disabled(), q.Loading(), q.Role())
	}
	if role, err := q.Refetch(context.Background()); role != "" || err != nil {
		t.Errorf("refetch on disabled query: role=%q err=%v", role, err)
	}
	if src.calls.Load() != 0 {
		t.Error("disabled query must never fetch")
	}
}

// ---------------------------------------------------------------------------
// Cache windows
// ---------------------------------------------------------------------------

func TestRoleResolver_FreshCacheSkipsFetch(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	src := roleSource(domain.RoleUser)
	cache := newMemRoleCache()
	cache.entries["a@example.com"] = ports.RoleEntry{Role: domain.RoleDecorator, FetchedAt: now.Add(-time.Minute)}

	r := newTestResolver(src, cache)
	r.now = func() time.Time { return now }

	q := r.Query(context.Background(), testIdentity("u1", "a@example.com"))
	if got := waitRole(t, q); got != domain.RoleDecorator {
		t.Fatalf("expected cached decorator, got %q", got)
	}
	if src.calls.Load() != 0 {
		t.Error("fresh entry must be served without a fetch")
	}
}

func TestRoleResolver_StaleCacheRefetches(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	src := roleSource(domain.RoleAdmin)
	cache := newMemRoleCache()
	cache.entries["a@example.com"] = ports.RoleEntry{Role: domain.RoleUser, FetchedAt: now.Add(-6 * time.Minute)}

	r := newTestResolver(src, cache)
	r.now = func() time.Time { return now }

	q := r.Query(context.Background(), testIdentity("u1", "a@example.com"))
	if got := waitRole(t, q); got != domain.RoleAdmin {
		t.Fatalf("expected refetched admin, got %q", got)
	}
	if !cache.entries["a@example.com"].FetchedAt.Equal(now) {
		t.Error("refetch must refresh the cache entry")
	}
}

func TestRoleResolver_StaleCacheNotServedOnFailure(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	src := failingSource(errors.New("timeout"))
	cache := newMemRoleCache()
	cache.entries["a@example.com"] = ports.RoleEntry{Role: domain.RoleAdmin, FetchedAt: now.Add(-6 * time.Minute)}

	r := newTestResolver(src, cache)
	r.now = func() time.Time { return now }

	q := r.Query(context.Background(), testIdentity("u1", "a@example.com"))
	if got := waitRole(t, q); got != domain.RoleUser {
		t.Fatalf("failed refetch must fall back to user, got %q", got)
	}
}

func TestRoleQuery_RefetchBypassesCache(t *testing.T) {
	var role atomic.Value
	role.Store(domain.RoleUser)
	src := &stubRoleSource{getUser: func(_ context.Context, email string) (*domain.UserProfile, error) {
		return &domain.UserProfile{Email: email, Role: role.Load().(domain.Role)}, nil
	}}
	r := newTestResolver(src, newMemRoleCache())

	q := r.Query(context.Background(), testIdentity("u1", "a@example.com"))
	if got := waitRole(t, q); got != domain.RoleUser {
		t.Fatalf("expected user, got %q", got)
	}

	role.Store(domain.RoleDecorator)
	got, err := q.Refetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != domain.RoleDecorator {
		t.Fatalf("refetch must bypass the fresh cache, got %q", got)
	}
	if src.calls.Load() != 2 {
		t.Errorf("expected 2 fetches, got %d", src.calls.Load())
	}
}

func TestRoleResolver_Invalidate(t *testing.T) {
	cache := newMemRoleCache()
	cache.entries["a@example.com"] = ports.RoleEntry{Role: domain.RoleAdmin, FetchedAt: time.Now()}
	r := newTestResolver(roleSource(domain.RoleUser), cache)

	if err := r.Invalidate(context.Background(), "A@example.com"); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.entries["a@example.com"]; ok {
		t.Fatal("invalidate must drop the entry")
	}
}

func TestRoleResolver_CoalescesConcurrentFetches(t *testing.T) {
	release := make(chan struct{})
	src := &stubRoleSource{getUser: func(_ context.Context, email string) (*domain.UserProfile, error) {
		<-release
		return &domain.UserProfile{Email: email, Role: domain.RoleAdmin}, nil
	}}
	r := newTestResolver(src, nil)

	queries := make([]*RoleQuery, 5)
	for i := range queries {
		queries[i] = r.Query(context.Background(), testIdentity("u1", "a@example.com"))
	}
	deadline := time.Now().Add(time.Second)
	for src.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)

	for _, q := range queries {
		if got := waitRole(t, q); got != domain.RoleAdmin {
			t.Fatalf("expected admin, got %q", got)
		}
	}
	if n := src.calls.Load(); n != 1 {
		t.Errorf("expected concurrent queries to share one fetch, got %d", n)
	}
}
