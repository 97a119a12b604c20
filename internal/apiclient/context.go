package apiclient

import (
	"context"

	"github.com/decorhub/storefront/internal/core/domain"
	"github.com/decorhub/storefront/internal/core/ports"
)

type callerKey struct{}

// NewContext returns a copy of ctx carrying caller.
func NewContext(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// FromContext returns the caller stored in ctx, if any.
func FromContext(ctx context.Context) (*Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(*Caller)
	return c, ok && c != nil
}

// ScopedSource serves the shared core services. Each call goes through the
// caller found in its context, so the request is stamped and intercepted for
// the browser that triggered it. Without one the public caller is used.
type ScopedSource struct {
	client *Client
}

var (
	_ ports.RoleSource    = (*ScopedSource)(nil)
	_ ports.ServiceSource = (*ScopedSource)(nil)
)

func NewScopedSource(client *Client) *ScopedSource {
	return &ScopedSource{client: client}
}

func (s *ScopedSource) caller(ctx context.Context) *Caller {
	if c, ok := FromContext(ctx); ok {
		return c
	}
	return s.client.Public()
}

// GetUser goes through the quiet view: the role resolver turns 404 into the
// default role and reports fetch failures with its own notice.
func (s *ScopedSource) GetUser(ctx context.Context, email string) (*domain.UserProfile, error) {
	return s.caller(ctx).Quiet().GetUser(ctx, email)
}

func (s *ScopedSource) ListServices(ctx context.Context) ([]domain.Service, error) {
	return s.caller(ctx).ListServices(ctx)
}
