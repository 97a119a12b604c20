package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/decorhub/storefront/internal/core/domain"
)

type serviceRequest struct {
	Name           string  `json:"service_name"`
	Category       string  `json:"category"`
	Description    string  `json:"description,omitempty"`
	Price          float64 `json:"price"`
	Unit           string  `json:"unit,omitempty"`
	Image          string  `json:"image,omitempty"`
	CreatedByEmail string  `json:"createdByEmail,omitempty"`
}

func newServiceRequest(in domain.ServiceInput) serviceRequest {
	return serviceRequest{
		Name:        in.Name,
		Category:    in.Category,
		Description: in.Description,
		Price:       in.Price,
		Unit:        in.Unit,
		Image:       in.ImageURL,
	}
}

// ListServices returns the whole catalog.
func (c *Caller) ListServices(ctx context.Context) ([]domain.Service, error) {
	var raw []rawService
	if err := c.Get(ctx, "/services", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Service, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.service())
	}
	return out, nil
}

// CreateService adds a catalog entry owned by createdBy.
func (c *Caller) CreateService(ctx context.Context, in domain.ServiceInput, createdBy string) (*domain.MutationResult, error) {
	body := newServiceRequest(in)
	body.CreatedByEmail = createdBy
	return c.mutate(ctx, http.MethodPost, "/services", body)
}

// UpdateService replaces the editable fields of service id.
func (c *Caller) UpdateService(ctx context.Context, id string, in domain.ServiceInput) (*domain.MutationResult, error) {
	return c.mutate(ctx, http.MethodPatch, "/services/"+url.PathEscape(id), newServiceRequest(in))
}

// DeleteService removes service id.
func (c *Caller) DeleteService(ctx context.Context, id string) (*domain.MutationResult, error) {
	return c.mutate(ctx, http.MethodDelete, "/services/"+url.PathEscape(id), nil)
}
