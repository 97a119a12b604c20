package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/decorhub/storefront/internal/core/domain"
	"github.com/decorhub/storefront/internal/core/ports"
)

// CatalogHandler serves the public catalog pages.
type CatalogHandler struct {
	service ports.CatalogService
}

func NewCatalogHandler(service ports.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

type catalogPage struct {
	Items      []domain.Service `json:"items"`
	Categories []string         `json:"categories"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
}

// List handles GET /.
//
// @Summary      Browse the service catalog
// @Tags         catalog
// @Produce      json
// @Param        category   query     string  false  "Category filter"
// @Param        search     query     string  false  "Text search over name and description"
// @Param        min_price  query     number  false  "Minimum price"
// @Param        max_price  query     number  false  "Maximum price"
// @Param        sort       query     string  false  "price_asc, price_desc, rating or newest"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Page size (default 20, max 100)"
// @Success      200        {object}  catalogPage
// @Failure      400        {object}  map[string]string
// @Router       / [get]
func (h *CatalogHandler) List(c echo.Context) error {
	var in ports.ListServicesInput
	err := echo.QueryParamsBinder(c).
		String("category", &in.Category).
		String("search", &in.Search).
		Float64("min_price", &in.MinPrice).
		Float64("max_price", &in.MaxPrice).
		String("sort", &in.Sort).
		Int("page", &in.Page).
		Int("limit", &in.Limit).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}

	res, err := h.service.ListServices(c.Request().Context(), in)
	if err != nil {
		return err
	}

	return render(c, http.StatusOK, catalogPage{
		Items:      res.Items,
		Categories: res.Categories,
		Total:      res.Total,
		Page:       res.Page,
		Limit:      res.Limit,
		TotalPages: res.TotalPages,
	})
}

// Get handles GET /services/:id.
//
// @Summary      Service details
// @Tags         catalog
// @Produce      json
// @Param        id   path      string  true  "Service id"
// @Success      200  {object}  domain.Service
// @Failure      404  {object}  map[string]string
// @Router       /services/{id} [get]
func (h *CatalogHandler) Get(c echo.Context) error {
	svc, err := h.service.GetService(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return render(c, http.StatusOK, svc)
}
