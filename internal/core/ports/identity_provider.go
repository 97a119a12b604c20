package ports

import (
	"context"

	"github.com/decorhub/storefront/internal/core/domain"
)

// IdentityProvider is the external authentication boundary. Only the session
// store calls its mutating operations.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*domain.Identity, error)
	Register(ctx context.Context, email, password string, profile domain.ProfilePatch) (*domain.Identity, error)
	SignOut(ctx context.Context, uid string) error
	// Token mints a bearer credential for uid. forceRefresh skips any
	// provider-side reuse of a previously issued token.
	Token(ctx context.Context, uid string, forceRefresh bool) (string, error)
	UpdateProfile(ctx context.Context, uid string, patch domain.ProfilePatch) (*domain.Identity, error)
	DeleteAccount(ctx context.Context, uid string) error
}
