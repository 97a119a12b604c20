package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/decorhub/storefront/internal/core/domain"
	"github.com/decorhub/storefront/internal/core/ports"
	"github.com/decorhub/storefront/internal/pkg/metrics"
)

// IdentityObserver is called after every identity change. signedIn is false
// when the identity was cleared.
type IdentityObserver func(id domain.Identity, signedIn bool)

// SessionStore is the single source of truth for who is signed in on one
// browser session. It is the only component that calls the identity
// provider's mutating operations.
type SessionStore struct {
	id       string
	provider ports.IdentityProvider
	users    ports.UserDirectory
	log      zerolog.Logger

	// order is held from an identity change until its observers have run, so
	// observers see changes in the order they were made.
	order sync.Mutex

	mu        sync.Mutex
	identity  *domain.Identity
	pending   int
	ready     chan struct{}
	observers map[int]IdentityObserver
	nextObs   int
	refs      int
}

// NewSessionStore returns a signed-out store that is not loading.
func NewSessionStore(id string, provider ports.IdentityProvider, users ports.UserDirectory, log zerolog.Logger) *SessionStore {
	ready := make(chan struct{})
	close(ready)
	return &SessionStore{
		id:        id,
		provider:  provider,
		users:     users,
		log:       log,
		ready:     ready,
		observers: make(map[int]IdentityObserver),
	}
}

// ID returns the browser session identifier this store belongs to.
func (s *SessionStore) ID() string { return s.id }

// Current returns a copy of the signed-in identity.
func (s *SessionStore) Current() (domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return domain.Identity{}, false
	}
	return *s.identity, true
}

// Loading reports whether an identity load (restore, sign-in, registration)
// is in progress.
func (s *SessionStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending > 0
}

// WaitReady blocks until no identity load is in progress or ctx is done.
func (s *SessionStore) WaitReady(ctx context.Context) error {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers fn for identity changes and returns its unsubscribe func.
func (s *SessionStore) Subscribe(fn IdentityObserver) func() {
	s.mu.Lock()
	key := s.nextObs
	s.nextObs++
	s.observers[key] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, key)
		s.mu.Unlock()
	}
}

// SignIn authenticates against the identity provider and sets the identity.
// Provider errors are returned unchanged.
func (s *SessionStore) SignIn(ctx context.Context, email, password string) (domain.Identity, error) {
	s.beginLoad()
	id, err := s.provider.SignIn(ctx, normalizeEmail(email), password)
	if err != nil {
		s.endLoad(nil, false)
		return domain.Identity{}, err
	}
	s.endLoad(id, true)

	s.log.Info().Str("uid", id.UID).Msg("signed in")
	return *id, nil
}

// Register creates the provider account and then the backend user record.
// When the backend write fails the provider account is deleted again and
// ErrProfileSync is returned; the store stays signed out.
func (s *SessionStore) Register(ctx context.Context, email, password string, profile domain.ProfilePatch) (domain.Identity, error) {
	s.beginLoad()
	id, err := s.provider.Register(ctx, normalizeEmail(email), password, profile)
	if err != nil {
		s.endLoad(nil, false)
		return domain.Identity{}, err
	}

	_, err = s.users.CreateUser(ctx, domain.UserProfile{
		Email:       id.Email,
		DisplayName: id.DisplayName,
		PhotoURL:    id.PhotoURL,
		Role:        domain.DefaultRole,
		CreatedAt:   id.CreatedAt,
	})
	if err != nil {
		s.log.Error().Err(err).Str("uid", id.UID).Msg("backend profile write failed, rolling back account")
		if delErr := s.provider.DeleteAccount(context.WithoutCancel(ctx), id.UID); delErr != nil {
			metrics.RegistrationRollbacksTotal.WithLabelValues("orphaned").Inc()
			s.log.Error().Err(delErr).Str("uid", id.UID).Str("email", id.Email).Msg("orphaned provider account")
		} else {
			metrics.RegistrationRollbacksTotal.WithLabelValues("deleted").Inc()
		}
		s.endLoad(nil, false)
		return domain.Identity{}, fmt.Errorf("register: %w: %w", domain.ErrProfileSync, err)
	}

	s.endLoad(id, true)
	s.log.Info().Str("uid", id.UID).Msg("registered")
	return *id, nil
}

// SignOut clears the local identity and the provider session. It reports
// whether this call performed the signed-in to signed-out transition; calling
// it while signed out is a no-op.
func (s *SessionStore) SignOut(ctx context.Context) (bool, error) {
	s.order.Lock()
	s.mu.Lock()
	cur := s.identity
	s.identity = nil
	s.mu.Unlock()

	if cur == nil {
		s.order.Unlock()
		return false, nil
	}
	s.publish(*cur, false)
	s.order.Unlock()

	if err := s.provider.SignOut(ctx, cur.UID); err != nil {
		s.log.Warn().Err(err).Str("uid", cur.UID).Msg("provider sign-out failed")
		return true, fmt.Errorf("sign out: %w", err)
	}
	s.log.Info().Str("uid", cur.UID).Msg("signed out")
	return true, nil
}

// UpdateProfile changes the display name and photo of the current identity.
func (s *SessionStore) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (domain.Identity, error) {
	cur, ok := s.Current()
	if !ok {
		return domain.Identity{}, domain.ErrNotSignedIn
	}
	if patch.Empty() {
		return cur, nil
	}

	updated, err := s.provider.UpdateProfile(ctx, cur.UID, patch)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("update profile: %w", err)
	}

	s.order.Lock()
	defer s.order.Unlock()
	s.mu.Lock()
	// A concurrent sign-out wins over the update.
	if s.identity == nil || s.identity.UID != cur.UID {
		s.mu.Unlock()
		return domain.Identity{}, domain.ErrNotSignedIn
	}
	next := patch.Apply(*s.identity)
	if updated != nil {
		next.DisplayName, next.PhotoURL = updated.DisplayName, updated.PhotoURL
	}
	s.identity = &next
	s.mu.Unlock()

	s.publish(next, true)
	return next, nil
}

// Token mints a fresh credential for the current identity.
func (s *SessionStore) Token(ctx context.Context, forceRefresh bool) (string, error) {
	cur, ok := s.Current()
	if !ok {
		return "", domain.ErrNotSignedIn
	}
	return s.provider.Token(ctx, cur.UID, forceRefresh)
}

// restore completes a load started with beginLoad by running load. A nil
// identity leaves the store signed out.
func (s *SessionStore) restore(ctx context.Context, load func(context.Context) (*domain.Identity, error)) {
	id, err := load(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("session restore failed")
		s.endLoad(nil, false)
		return
	}
	s.endLoad(id, id != nil)
}

func (s *SessionStore) beginLoad() {
	s.mu.Lock()
	if s.pending == 0 {
		s.ready = make(chan struct{})
	}
	s.pending++
	s.mu.Unlock()
}

func (s *SessionStore) endLoad(id *domain.Identity, set bool) {
	s.order.Lock()
	defer s.order.Unlock()
	s.mu.Lock()
	if set {
		clone := *id
		s.identity = &clone
	}
	s.pending--
	if s.pending == 0 {
		close(s.ready)
	}
	s.mu.Unlock()

	if set {
		s.publish(*id, true)
	}
}

// publish must be called with order held.
func (s *SessionStore) publish(id domain.Identity, signedIn bool) {
	s.mu.Lock()
	observers := make([]IdentityObserver, 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(id, signedIn)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
