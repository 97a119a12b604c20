package ports

import (
	"context"
	"time"

	"github.com/decorhub/storefront/internal/core/domain"
)

// RoleEntry is a cached role together with the time it was fetched.
type RoleEntry struct {
	Role      domain.Role `json:"role"`
	FetchedAt time.Time   `json:"fetched_at"`
}

// RoleCache stores roles by email. Entries disappear on their own after the
// retention window passed to Set.
type RoleCache interface {
	Get(ctx context.Context, email string) (*RoleEntry, error)
	Set(ctx context.Context, email string, entry RoleEntry, retention time.Duration) error
	Delete(ctx context.Context, email string) error
}

// RoleSource fetches the authoritative profile for an email from the backend.
type RoleSource interface {
	GetUser(ctx context.Context, email string) (*domain.UserProfile, error)
}
