package ports

import (
	"context"
	"time"

	"github.com/decorhub/storefront/internal/core/domain"
)

// AccountRepository defines the persistence used by the local identity provider.
type AccountRepository interface {
	Create(ctx context.Context, acc *domain.Account) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, id string, patch domain.ProfilePatch) (*domain.Account, error)
	TouchSignIn(ctx context.Context, id string, at time.Time) error
	// BumpSessionVersion invalidates every credential minted so far.
	BumpSessionVersion(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
