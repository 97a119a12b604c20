package ports

import (
	"context"
	"time"

	"github.com/decorhub/storefront/internal/core/domain"
)

// SessionReader is the read side of a session store plus the one write every
// consumer is allowed to trigger: a forced sign-out.
type SessionReader interface {
	Current() (domain.Identity, bool)
	Token(ctx context.Context, forceRefresh bool) (string, error)
	SignOut(ctx context.Context) (bool, error)
}

// SnapshotStore persists identities per browser session so a restarted
// process can restore them.
type SnapshotStore interface {
	Save(ctx context.Context, sessionID string, id domain.Identity, ttl time.Duration) error
	Load(ctx context.Context, sessionID string) (*domain.Identity, error)
	Delete(ctx context.Context, sessionID string) error
}

// UserDirectory is the backend user-record side of registration.
type UserDirectory interface {
	CreateUser(ctx context.Context, profile domain.UserProfile) (*domain.MutationResult, error)
}

// SnapshotWrite is one pending change to a session snapshot.
type SnapshotWrite struct {
	SessionID string
	Identity  domain.Identity
	SignedIn  bool
	TTL       time.Duration
}

// SnapshotQueue applies snapshot writes in the background. Writes for the
// same session are applied in the order they were enqueued.
type SnapshotQueue interface {
	Enqueue(w SnapshotWrite)
}
