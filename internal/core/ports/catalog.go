package ports

import (
	"context"

	"github.com/decorhub/storefront/internal/core/domain"
)

// ServiceSource fetches the full service catalog from the backend.
type ServiceSource interface {
	ListServices(ctx context.Context) ([]domain.Service, error)
}

// ListServicesInput carries all parameters for the catalog page.
type ListServicesInput struct {
	Category string
	Search   string
	MinPrice float64
	MaxPrice float64
	// Sort is one of price_asc, price_desc, rating or newest. Empty keeps
	// backend order.
	Sort  string
	Page  int
	Limit int
}

// ListServicesResult is returned by ListServices.
type ListServicesResult struct {
	Items      []domain.Service
	Categories []string
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// CatalogService is the read side of the public catalog.
type CatalogService interface {
	ListServices(ctx context.Context, in ListServicesInput) (*ListServicesResult, error)
	GetService(ctx context.Context, id string) (*domain.Service, error)
}
