package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/decorhub/storefront/internal/core/domain"
	"github.com/decorhub/storefront/internal/core/ports"
)

const (
	defaultRoleFreshFor  = 5 * time.Minute
	defaultRoleRetainFor = 10 * time.Minute
	defaultRoleRetryBase = 200 * time.Millisecond
	roleFetchTimeout     = 10 * time.Second
)

// RoleResolverConfig bounds caching and retrying of role lookups.
type RoleResolverConfig struct {
	// FreshFor is how long a cached role is served without refetching.
	FreshFor time.Duration
	// RetainFor is how long an unused entry survives in the cache.
	RetainFor time.Duration
	// Retries is the number of extra attempts after a failed fetch. Zero
	// means a single attempt.
	Retries uint
	// RetryBase is the first backoff interval.
	RetryBase time.Duration
}

func (c RoleResolverConfig) withDefaults() RoleResolverConfig {
	if c.FreshFor <= 0 {
		c.FreshFor = defaultRoleFreshFor
	}
	if c.RetainFor < c.FreshFor {
		c.RetainFor = defaultRoleRetainFor
		if c.RetainFor < c.FreshFor {
			c.RetainFor = c.FreshFor
		}
	}
	if c.RetryBase <= 0 {
		c.RetryBase = defaultRoleRetryBase
	}
	return c
}

// RoleObserver receives the outcome of every backend role fetch. hit is true
// when the cache answered without a fetch.
type RoleObserver func(hit bool, err error)

// RoleResolver answers which role the current identity holds.
type RoleResolver struct {
	source   ports.RoleSource
	cache    ports.RoleCache
	cfg      RoleResolverConfig
	log      zerolog.Logger
	observe  RoleObserver
	now      func() time.Time
	inflight singleflight.Group
}

// NewRoleResolver returns a resolver reading from source and caching in
// cache. cache may be nil to disable caching.
func NewRoleResolver(source ports.RoleSource, cache ports.RoleCache, cfg RoleResolverConfig, log zerolog.Logger) *RoleResolver {
	return &RoleResolver{
		source:  source,
		cache:   cache,
		cfg:     cfg.withDefaults(),
		log:     log,
		observe: func(bool, error) {},
		now:     time.Now,
	}
}

// WithObserver installs fn to be told about cache hits and fetch outcomes.
func (r *RoleResolver) WithObserver(fn RoleObserver) *RoleResolver {
	if fn != nil {
		r.observe = fn
	}
	return r
}

// Query starts resolving the role of id in the background. A nil identity
// gives a disabled query that never fetches.
func (r *RoleResolver) Query(ctx context.Context, id *domain.Identity) *RoleQuery {
	q := &RoleQuery{resolver: r}
	if id == nil || normalizeEmail(id.Email) == "" {
		q.disabled = true
		q.done = closedChan()
		return q
	}
	q.email = normalizeEmail(id.Email)
	q.start(ctx, false)
	return q
}

// Invalidate drops the cached role for email so the next query refetches.
// Call it after any mutation that may change a role.
func (r *RoleResolver) Invalidate(ctx context.Context, email string) error {
	if r.cache == nil {
		return nil
	}
	if err := r.cache.Delete(ctx, normalizeEmail(email)); err != nil {
		return fmt.Errorf("invalidate role: %w", err)
	}
	return nil
}

// resolve returns the role for email. Errors are reported alongside the
// least-privileged role, never instead of it.
func (r *RoleResolver) resolve(ctx context.Context, email string, bypassCache bool) (domain.Role, error) {
	if !bypassCache && r.cache != nil {
		entry, err := r.cache.Get(ctx, email)
		if err != nil {
			r.log.Warn().Err(err).Msg("role cache read failed")
		} else if entry != nil && r.now().Sub(entry.FetchedAt) < r.cfg.FreshFor {
			r.observe(true, nil)
			return entry.Role, nil
		}
	}

	v, err, _ := r.inflight.Do(email, func() (any, error) {
		return r.fetch(context.WithoutCancel(ctx), email)
	})
	r.observe(false, err)
	if err != nil {
		r.log.Warn().Err(err).Msg("role fetch failed, falling back to default role")
		return domain.DefaultRole, fmt.Errorf("%w: %w", domain.ErrRoleFetch, err)
	}
	return v.(domain.Role), nil
}

func (r *RoleResolver) fetch(ctx context.Context, email string) (domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, roleFetchTimeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.RetryBase

	role, err := backoff.Retry(ctx, func() (domain.Role, error) {
		profile, err := r.source.GetUser(ctx, email)
		switch {
		case err == nil:
			return domain.ParseRole(string(profile.Role)), nil
		case errors.Is(err, domain.ErrNotFound):
			// No backend profile yet: the user holds the default role.
			return domain.DefaultRole, nil
		case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrForbidden),
			errors.Is(err, domain.ErrBadResponse):
			return "", backoff.Permanent(err)
		default:
			return "", err
		}
	}, backoff.WithBackOff(b), backoff.WithMaxTries(r.cfg.Retries+1))
	if err != nil {
		return "", err
	}

	if r.cache != nil {
		entry := ports.RoleEntry{Role: role, FetchedAt: r.now()}
		if err := r.cache.Set(ctx, email, entry, r.cfg.RetainFor); err != nil {
			r.log.Warn().Err(err).Msg("role cache write failed")
		}
	}
	return role, nil
}

// RoleQuery is the handle for one identity's role lookup.
type RoleQuery struct {
	resolver *RoleResolver
	email    string
	disabled bool

	mu      sync.Mutex
	role    domain.Role
	err     error
	loading bool
	done    chan struct{}
}

// Role returns the resolved role, or "" while loading or when disabled.
func (q *RoleQuery) Role() domain.Role {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.role
}

// Loading reports whether a fetch is in flight.
func (q *RoleQuery) Loading() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loading
}

// Err returns the last fetch error. The role is still set when Err is non-nil.
func (q *RoleQuery) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// Disabled reports whether the query was created without an identity.
func (q *RoleQuery) Disabled() bool { return q.disabled }

// Wait blocks until the current fetch settles. It only returns an error when
// ctx ends first; fetch failures are reported through Err.
func (q *RoleQuery) Wait(ctx context.Context) (domain.Role, error) {
	q.mu.Lock()
	done := q.done
	q.mu.Unlock()

	select {
	case <-done:
		return q.Role(), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Refetch bypasses the cache and waits for the new result.
func (q *RoleQuery) Refetch(ctx context.Context) (domain.Role, error) {
	if q.disabled {
		return "", nil
	}
	q.start(ctx, true)
	return q.Wait(ctx)
}

func (q *RoleQuery) start(ctx context.Context, bypassCache bool) {
	done := make(chan struct{})
	q.mu.Lock()
	q.loading = true
	q.done = done
	q.mu.Unlock()

	go func() {
		role, err := q.resolver.resolve(ctx, q.email, bypassCache)
		q.mu.Lock()
		// A newer start owns the result.
		if q.done == done {
			q.role, q.err, q.loading = role, err, false
		}
		q.mu.Unlock()
		close(done)
	}()
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
