package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/decorhub/storefront/internal/core/domain"
)

type createUserRequest struct {
	Email       string      `json:"email"`
	DisplayName string      `json:"displayName,omitempty"`
	PhotoURL    string      `json:"photoURL,omitempty"`
	Role        domain.Role `json:"role"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type updateRoleRequest struct {
	Role domain.Role `json:"role"`
}

// GetUser fetches the backend profile for email. An empty body is reported as
// domain.ErrNotFound without raising the not-found notification.
func (c *Caller) GetUser(ctx context.Context, email string) (*domain.UserProfile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var raw *rawUser
	if err := c.Get(ctx, "/users/"+url.PathEscape(email), nil, &raw); err != nil {
		return nil, err
	}
	if raw == nil || (raw.Email == "" && raw.MongoID == "" && raw.ID == "") {
		return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	}
	p := raw.profile()
	return &p, nil
}

// ListUsers returns every backend user record.
func (c *Caller) ListUsers(ctx context.Context) ([]domain.UserProfile, error) {
	var raw []rawUser
	if err := c.Get(ctx, "/users", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.UserProfile, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.profile())
	}
	return out, nil
}

// CreateUser writes the backend record for a freshly registered identity.
func (c *Caller) CreateUser(ctx context.Context, p domain.UserProfile) (*domain.MutationResult, error) {
	body := createUserRequest{
		Email:       p.Email,
		DisplayName: p.DisplayName,
		PhotoURL:    p.PhotoURL,
		Role:        p.Role,
		CreatedAt:   p.CreatedAt,
	}
	return c.mutate(ctx, http.MethodPost, "/users", body)
}

// UpdateRole changes the role of the user with backend id.
func (c *Caller) UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.MutationResult, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("update role: unknown role %q", role)
	}
	return c.mutate(ctx, http.MethodPatch, "/users/"+url.PathEscape(id)+"/role", updateRoleRequest{Role: role})
}

// mutate sends a write and normalizes the acknowledgement.
func (c *Caller) mutate(ctx context.Context, method, path string, body any) (*domain.MutationResult, error) {
	var raw rawMutation
	if err := c.Do(ctx, method, path, nil, body, &raw); err != nil {
		return nil, err
	}
	res := raw.result()
	return &res, nil
}
