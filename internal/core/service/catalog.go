package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/decorhub/storefront/internal/core/domain"
	"github.com/decorhub/storefront/internal/core/ports"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Catalog sort orders.
const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortRating    = "rating"
	SortNewest    = "newest"
)

type CatalogService struct {
	source ports.ServiceSource
	logger zerolog.Logger
}

func NewCatalogService(source ports.ServiceSource, logger zerolog.Logger) *CatalogService {
	return &CatalogService{source: source, logger: logger}
}

// ListServices fetches the catalog and applies filters, sorting and
// pagination in memory. The backend returns the whole array.
func (s *CatalogService) ListServices(ctx context.Context, in ports.ListServicesInput) (*ports.ListServicesResult, error) {
	if in.MinPrice > 0 && in.MaxPrice > 0 && in.MinPrice > in.MaxPrice {
		return nil, fmt.Errorf("%w: min_price greater than max_price", domain.ErrInvalidFilter)
	}

	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	all, err := s.source.ListServices(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list services")
		return nil, err
	}

	matched := filterServices(all, in)
	if err := sortServices(matched, in.Sort); err != nil {
		return nil, err
	}

	total := len(matched)
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}

	skip := (page - 1) * limit
	items := []domain.Service{}
	if skip < total {
		end := skip + limit
		if end > total {
			end = total
		}
		items = matched[skip:end]
	}

	return &ports.ListServicesResult{
		Items:      items,
		Categories: categories(all),
		Total:      int64(total),
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

func filterServices(all []domain.Service, in ports.ListServicesInput) []domain.Service {
	search := strings.ToLower(strings.TrimSpace(in.Search))
	out := make([]domain.Service, 0, len(all))
	for _, svc := range all {
		if in.Category != "" && !strings.EqualFold(svc.Category, in.Category) {
			continue
		}
		if in.MinPrice > 0 && svc.Price < in.MinPrice {
			continue
		}
		if in.MaxPrice > 0 && svc.Price > in.MaxPrice {
			continue
		}
		if search != "" {
			nameMatch := strings.Contains(strings.ToLower(svc.Name), search)
			descMatch := strings.Contains(strings.ToLower(svc.Description), search)
			if !nameMatch && !descMatch {
				continue
			}
		}
		out = append(out, svc)
	}
	return out
}

func sortServices(items []domain.Service, order string) error {
	var less func(a, b domain.Service) bool
	switch order {
	case "":
		return nil
	case SortPriceAsc:
		less = func(a, b domain.Service) bool { return a.Price < b.Price }
	case SortPriceDesc:
		less = func(a, b domain.Service) bool { return a.Price > b.Price }
	case SortRating:
		less = func(a, b domain.Service) bool { return a.Rating > b.Rating }
	case SortNewest:
		less = func(a, b domain.Service) bool { return a.CreatedAt.After(b.CreatedAt) }
	default:
		return fmt.Errorf("%w: unknown sort %q", domain.ErrInvalidFilter, order)
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
	return nil
}

// categories returns the distinct categories in first-seen order.
func categories(all []domain.Service) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, svc := range all {
		if svc.Category == "" {
			continue
		}
		key := strings.ToLower(svc.Category)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, svc.Category)
	}
	return out
}

// GetService returns one catalog entry by id.
func (s *CatalogService) GetService(ctx context.Context, id string) (*domain.Service, error) {
	all, err := s.source.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("service %s: %w", id, domain.ErrNotFound)
}
