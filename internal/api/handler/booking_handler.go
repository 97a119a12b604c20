package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/decorhub/storefront/internal/apiclient"
	"github.com/decorhub/storefront/internal/core/domain"
	"github.com/decorhub/storefront/internal/core/ports"
)

const (
	MsgBookingCreated   = "Booking created"
	MsgBookingCancelled = "Booking cancelled"
)

// BookingHandler serves the customer dashboard. Every route sits behind
// RequireAuth.
type BookingHandler struct {
	catalog ports.CatalogService
	now     func() time.Time
}

func NewBookingHandler(catalog ports.CatalogService) *BookingHandler {
	return &BookingHandler{catalog: catalog, now: time.Now}
}

type createBookingRequest struct {
	ServiceID string    `json:"service_id" validate:"required"`
	Date      time.Time `json:"date" validate:"required"`
	Location  string    `json:"location" validate:"required,max=200"`
}

// List handles GET /dashboard/bookings.
//
// @Summary      My bookings
// @Tags         bookings
// @Produce      json
// @Success      200  {array}   domain.Booking
// @Failure      401  {object}  map[string]string
// @Router       /dashboard/bookings [get]
func (h *BookingHandler) List(c echo.Context) error {
	id, caller, err := bookingScope(c)
	if err != nil {
		return err
	}
	bookings, err := caller.ListBookings(c.Request().Context(), apiclient.BookingFilter{CustomerEmail: id.Email})
	if err != nil {
		return err
	}
	return render(c, http.StatusOK, bookings)
}

// Create handles POST /bookings.
//
// @Summary      Book a service
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Param        body  body      createBookingRequest  true  "Booking details"
// @Success      201   {object}  domain.MutationResult
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /bookings [post]
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	if !req.Date.After(h.now()) {
		return &ValidationError{Message: "date must be in the future"}
	}
	id, caller, err := bookingScope(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	svc, err := h.catalog.GetService(ctx, req.ServiceID)
	if err != nil {
		return err
	}

	res, err := caller.CreateBooking(ctx, domain.Booking{
		ServiceID:     svc.ID,
		ServiceName:   svc.Name,
		CustomerEmail: id.Email,
		CustomerName:  id.DisplayName,
		Date:          req.Date,
		Location:      req.Location,
		Cost:          svc.Price,
	})
	if err != nil {
		return err
	}
	notify(c, domain.NoticeSuccess, MsgBookingCreated)
	return render(c, http.StatusCreated, res)
}

// Cancel handles DELETE /bookings/:id. Only unpaid pending bookings can be
// cancelled by the customer.
//
// @Summary      Cancel a booking
// @Tags         bookings
// @Produce      json
// @Param        id   path      string  true  "Booking id"
// @Success      200  {object}  domain.MutationResult
// @Failure      404  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /bookings/{id} [delete]
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, caller, err := bookingScope(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	b, err := findBooking(ctx, caller, apiclient.BookingFilter{CustomerEmail: id.Email}, c.Param("id"))
	if err != nil {
		return err
	}
	if b.Paid || b.Status != domain.BookingPending {
		return fmt.Errorf("%w: only unpaid pending bookings can be cancelled", domain.ErrInvalidTransition)
	}

	res, err := caller.DeleteBooking(ctx, b.ID)
	if err != nil {
		return err
	}
	notify(c, domain.NoticeSuccess, MsgBookingCancelled)
	return render(c, http.StatusOK, res)
}

func bookingScope(c echo.Context) (domain.Identity, *apiclient.Caller, error) {
	id, err := ctxIdentity(c)
	if err != nil {
		return domain.Identity{}, nil, err
	}
	caller, err := ctxCaller(c)
	if err != nil {
		return domain.Identity{}, nil, err
	}
	return id, caller, nil
}

// findBooking looks up bookingID among the bookings visible through f.
func findBooking(ctx context.Context, caller *apiclient.Caller, f apiclient.BookingFilter, bookingID string) (*domain.Booking, error) {
	bookings, err := caller.ListBookings(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range bookings {
		if bookings[i].ID == bookingID {
			return &bookings[i], nil
		}
	}
	return nil, fmt.Errorf("booking %s: %w", bookingID, domain.ErrNotFound)
}
