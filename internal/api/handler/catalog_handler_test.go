package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/decorhub/storefront/internal/core/domain"
	"github.com/decorhub/storefront/internal/core/ports"
)

func TestCatalogHandler_List_BindsQuery(t *testing.T) {
	var got ports.ListServicesInput
	stub := &stubCatalog{listFn: func(_ context.Context, in ports.ListServicesInput) (*ports.ListServicesResult, error) {
		got = in
		return &ports.ListServicesResult{
			Items:      []domain.Service{{ID: "s1", Name: "Wedding Stage"}},
			Categories: []string{"Wedding"},
			Total:      1, Page: in.Page, Limit: in.Limit, TotalPages: 1,
		}, nil
	}}
	c, rec := newContext(http.MethodGet,
		"/?category=Wedding&search=stage&min_price=100&max_price=2000&sort=rating&page=2&limit=5", "", nil, nil, nil)

	if err := NewCatalogHandler(stub).List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	want := ports.ListServicesInput{Category: "Wedding", Search: "stage", MinPrice: 100, MaxPrice: 2000, Sort: "rating", Page: 2, Limit: 5}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	var p catalogPage
	decodePage(t, rec, &p)
	if len(p.Items) != 1 || p.Page != 2 || p.Limit != 5 || p.Categories[0] != "Wedding" {
		t.Fatalf("unexpected page: %+v", p)
	}
}

func TestCatalogHandler_List_BadQuery(t *testing.T) {
	stub := &stubCatalog{listFn: func(context.Context, ports.ListServicesInput) (*ports.ListServicesResult, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}
	c, _ := newContext(http.MethodGet, "/?min_price=cheap", "", nil, nil, nil)

	err := NewCatalogHandler(stub).List(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestCatalogHandler_List_InvalidFilterPassesThrough(t *testing.T) {
	stub := &stubCatalog{listFn: func(context.Context, ports.ListServicesInput) (*ports.ListServicesResult, error) {
		return nil, domain.ErrInvalidFilter
	}}
	c, _ := newContext(http.MethodGet, "/?sort=cheapest", "", nil, nil, nil)

	if err := NewCatalogHandler(stub).List(c); !errors.Is(err, domain.ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
}

func TestCatalogHandler_Get(t *testing.T) {
	stub := &stubCatalog{getFn: func(_ context.Context, id string) (*domain.Service, error) {
		if id != "s1" {
			return nil, domain.ErrNotFound
		}
		return &domain.Service{ID: "s1", Name: "Wedding Stage"}, nil
	}}

	c, rec := newContext(http.MethodGet, "/services/s1", "", nil, nil, nil)
	c.SetParamNames("id")
	c.SetParamValues("s1")
	if err := NewCatalogHandler(stub).Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var svc domain.Service
	decodePage(t, rec, &svc)
	if svc.Name != "Wedding Stage" {
		t.Fatalf("unexpected service: %+v", svc)
	}

	c, _ = newContext(http.MethodGet, "/services/zz", "", nil, nil, nil)
	c.SetParamNames("id")
	c.SetParamValues("zz")
	if err := NewCatalogHandler(stub).Get(c); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
