package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/decorhub/storefront/internal/core/domain"
	"github.com/decorhub/storefront/internal/core/ports"
	"github.com/decorhub/storefront/internal/pkg/metrics"
)

const snapshotTimeout = 3 * time.Second

// ErrRegistryClosed is returned by Open after Close.
var ErrRegistryClosed = errors.New("session registry closed")

type registryEntry struct {
	store       *SessionStore
	unsubscribe func()
	lastUsed    time.Time
}

// SessionRegistry owns one SessionStore per browser session. Stores are
// reference counted: every Open must be paired with a Release. Signed-in
// stores outlive their last reference until Sweep evicts them; their identity
// survives in the snapshot store.
type SessionRegistry struct {
	provider  ports.IdentityProvider
	users     ports.UserDirectory
	snapshots ports.SnapshotStore
	queue     ports.SnapshotQueue
	ttl       time.Duration
	log       zerolog.Logger
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry
	closed  bool
}

// NewSessionRegistry builds a registry. snapshots may be nil, in which case
// identities only live in memory.
func NewSessionRegistry(
	provider ports.IdentityProvider,
	users ports.UserDirectory,
	snapshots ports.SnapshotStore,
	ttl time.Duration,
	log zerolog.Logger,
) *SessionRegistry {
	return &SessionRegistry{
		provider:  provider,
		users:     users,
		snapshots: snapshots,
		ttl:       ttl,
		log:       log,
		now:       time.Now,
		entries:   make(map[string]*registryEntry),
	}
}

// WithSnapshotQueue routes snapshot writes through q instead of writing them
// on the caller's goroutine.
func (r *SessionRegistry) WithSnapshotQueue(q ports.SnapshotQueue) *SessionRegistry {
	r.queue = q
	return r
}

// Open returns the store for sessionID, creating it if needed. A new store
// starts restoring its identity from the snapshot store in the background and
// reports Loading until that finishes.
func (r *SessionRegistry) Open(ctx context.Context, sessionID string) (*SessionStore, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	if e, ok := r.entries[sessionID]; ok {
		e.store.refs++
		e.lastUsed = r.now()
		r.mu.Unlock()
		return e.store, nil
	}

	store := NewSessionStore(sessionID, r.provider, r.users, r.log)
	store.refs = 1
	e := &registryEntry{store: store, lastUsed: r.now()}
	r.entries[sessionID] = e
	metrics.SessionsActive.Inc()

	if r.snapshots == nil {
		r.mu.Unlock()
		return store, nil
	}

	e.unsubscribe = store.Subscribe(r.persist(sessionID))
	// Register the restore as a load before the lock is released so
	// concurrent openers observe Loading.
	store.beginLoad()
	r.mu.Unlock()

	go func() {
		restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotTimeout)
		defer cancel()
		store.restore(restoreCtx, func(ctx context.Context) (*domain.Identity, error) {
			return r.snapshots.Load(ctx, sessionID)
		})
	}()
	return store, nil
}

// Release drops one reference to store. A signed-out store with no
// references is torn down immediately.
func (r *SessionRegistry) Release(store *SessionStore) {
	if store == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[store.id]
	if !ok || e.store != store {
		return
	}
	if store.refs > 0 {
		store.refs--
	}
	e.lastUsed = r.now()
	if store.refs == 0 && !store.Loading() {
		if _, signedIn := store.Current(); !signedIn {
			r.teardown(store.id, e)
		}
	}
}

// Sweep tears down unreferenced stores idle for longer than idle and returns
// how many were removed.
func (r *SessionRegistry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idle)
	removed := 0
	for id, e := range r.entries {
		if e.store.refs == 0 && e.lastUsed.Before(cutoff) {
			r.teardown(id, e)
			removed++
		}
	}
	return removed
}

// Run sweeps idle stores every interval until ctx is cancelled.
func (r *SessionRegistry) Run(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 {
		r.log.Error().Dur("interval", interval).Msg("session sweep disabled: interval must be positive")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(idle); n > 0 {
				r.log.Debug().Int("evicted", n).Msg("idle sessions swept")
			}
		}
	}
}

// Close tears down every store. Snapshots are kept so sessions can be
// restored by the next process.
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		r.teardown(id, e)
	}
	r.closed = true
}

// Len returns the number of live stores.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *SessionRegistry) teardown(id string, e *registryEntry) {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	delete(r.entries, id)
	metrics.SessionsActive.Dec()
}

// persist mirrors identity changes into the snapshot store.
func (r *SessionRegistry) persist(sessionID string) IdentityObserver {
	return func(id domain.Identity, signedIn bool) {
		if r.queue != nil {
			r.queue.Enqueue(ports.SnapshotWrite{SessionID: sessionID, Identity: id, SignedIn: signedIn, TTL: r.ttl})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()

		var err error
		if signedIn {
			err = r.snapshots.Save(ctx, sessionID, id, r.ttl)
		} else {
			err = r.snapshots.Delete(ctx, sessionID)
		}
		if err != nil {
			r.log.Warn().Err(err).Bool("signed_in", signedIn).Msg("session snapshot write failed")
		}
	}
}
