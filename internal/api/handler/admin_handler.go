package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/decorhub/storefront/internal/apiclient"
	"github.com/decorhub/storefront/internal/core/domain"
)

const (
	MsgRoleUpdated    = "Role updated"
	MsgServiceCreated = "Service created"
	MsgServiceUpdated = "Service updated"
	MsgServiceDeleted = "Service deleted"
)

// RoleInvalidator drops a cached role after it changed.
type RoleInvalidator interface {
	Invalidate(ctx context.Context, email string) error
}

// AdminHandler serves the admin dashboard. Every route sits behind
// RequireRole(admin).
type AdminHandler struct {
	roles RoleInvalidator
	log   zerolog.Logger
}

func NewAdminHandler(roles RoleInvalidator, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{roles: roles, log: log}
}

type updateRoleRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,role"`
}

type serviceRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Category    string  `json:"category" validate:"required,max=60"`
	Description string  `json:"description" validate:"max=2000"`
	Price       float64 `json:"price" validate:"gt=0"`
	Unit        string  `json:"unit" validate:"max=40"`
	ImageURL    string  `json:"image_url" validate:"omitempty,url"`
}

func (r serviceRequest) input() domain.ServiceInput {
	return domain.ServiceInput{
		Name:        r.Name,
		Category:    r.Category,
		Description: r.Description,
		Price:       r.Price,
		Unit:        r.Unit,
		ImageURL:    r.ImageURL,
	}
}

// Users handles GET /admin/users.
//
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Success      200  {array}   domain.UserProfile
// @Router       /admin/users [get]
func (h *AdminHandler) Users(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}
	users, err := caller.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return render(c, http.StatusOK, users)
}

// UpdateRole handles PATCH /admin/users/:id/role.
//
// @Summary      Change a user's role
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "User id"
// @Param        body  body      updateRoleRequest  true  "New role"
// @Success      200   {object}  domain.MutationResult
// @Failure      400   {object}  map[string]string
// @Router       /admin/users/{id}/role [patch]
func (h *AdminHandler) UpdateRole(c echo.Context) error {
	var req updateRoleRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	res, err := caller.UpdateRole(ctx, c.Param("id"), domain.Role(req.Role))
	if err != nil {
		return err
	}
	if err := h.roles.Invalidate(ctx, req.Email); err != nil {
		// The stale entry expires with the freshness window.
		h.log.Warn().Err(err).Msg("role cache invalidation failed")
	}
	notify(c, domain.NoticeSuccess, MsgRoleUpdated)
	return render(c, http.StatusOK, res)
}

// Bookings handles GET /admin/bookings.
//
// @Summary      List all bookings
// @Tags         admin
// @Produce      json
// @Param        status  query     string  false  "Booking status filter"
// @Success      200     {array}   domain.Booking
// @Router       /admin/bookings [get]
func (h *AdminHandler) Bookings(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}
	f := apiclient.BookingFilter{Status: domain.BookingStatus(c.QueryParam("status"))}
	bookings, err := caller.ListBookings(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return render(c, http.StatusOK, bookings)
}

// CreateService handles POST /admin/services.
//
// @Summary      Add a service to the catalog
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body      serviceRequest  true  "Service"
// @Success      201   {object}  domain.MutationResult
// @Failure      400   {object}  map[string]string
// @Router       /admin/services [post]
func (h *AdminHandler) CreateService(c echo.Context) error {
	var req serviceRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	id, caller, err := bookingScope(c)
	if err != nil {
		return err
	}
	res, err := caller.CreateService(c.Request().Context(), req.input(), id.Email)
	if err != nil {
		return err
	}
	notify(c, domain.NoticeSuccess, MsgServiceCreated)
	return render(c, http.StatusCreated, res)
}

// UpdateService handles PATCH /admin/services/:id.
//
// @Summary      Edit a service
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id    path      string          true  "Service id"
// @Param        body  body      serviceRequest  true  "Service"
// @Success      200   {object}  domain.MutationResult
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /admin/services/{id} [patch]
func (h *AdminHandler) UpdateService(c echo.Context) error {
	var req serviceRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}
	res, err := caller.UpdateService(c.Request().Context(), c.Param("id"), req.input())
	if err != nil {
		return err
	}
	notify(c, domain.NoticeSuccess, MsgServiceUpdated)
	return render(c, http.StatusOK, res)
}

// DeleteService handles DELETE /admin/services/:id.
//
// @Summary      Remove a service
// @Tags         admin
// @Produce      json
// @Param        id   path      string  true  "Service id"
// @Success      200  {object}  domain.MutationResult
// @Failure      404  {object}  map[string]string
// @Router       /admin/services/{id} [delete]
func (h *AdminHandler) DeleteService(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}
	res, err := caller.DeleteService(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	notify(c, domain.NoticeSuccess, MsgServiceDeleted)
	return render(c, http.StatusOK, res)
}
