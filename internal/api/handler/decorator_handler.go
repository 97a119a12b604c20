package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/decorhub/storefront/internal/apiclient"
	"github.com/decorhub/storefront/internal/core/domain"
)

const MsgStatusUpdated = "Project status updated"

// DecoratorHandler serves the decorator dashboard. Every route sits behind
// RequireRole(decorator).
type DecoratorHandler struct{}

func NewDecoratorHandler() *DecoratorHandler {
	return &DecoratorHandler{}
}

type projectStatusRequest struct {
	Status string `json:"status" validate:"required,booking_status"`
}

// Projects handles GET /decorator/projects.
//
// @Summary      Bookings assigned to the signed-in decorator
// @Tags         decorator
// @Produce      json
// @Success      200  {array}   domain.Booking
// @Router       /decorator/projects [get]
func (h *DecoratorHandler) Projects(c echo.Context) error {
	id, caller, err := bookingScope(c)
	if err != nil {
		return err
	}
	projects, err := caller.ListBookings(c.Request().Context(), apiclient.BookingFilter{DecoratorEmail: id.Email})
	if err != nil {
		return err
	}
	return render(c, http.StatusOK, projects)
}

// UpdateStatus handles PATCH /decorator/projects/:id/status.
//
// @Summary      Advance a project's status
// @Tags         decorator
// @Accept       json
// @Produce      json
// @Param        id    path      string                true  "Booking id"
// @Param        body  body      projectStatusRequest  true  "Next status"
// @Success      200   {object}  domain.MutationResult
// @Failure      404   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /decorator/projects/{id}/status [patch]
func (h *DecoratorHandler) UpdateStatus(c echo.Context) error {
	var req projectStatusRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	id, caller, err := bookingScope(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	b, err := findBooking(ctx, caller, apiclient.BookingFilter{DecoratorEmail: id.Email}, c.Param("id"))
	if err != nil {
		return err
	}
	next := domain.BookingStatus(req.Status)
	if !b.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, b.Status, next)
	}

	res, err := caller.UpdateBookingStatus(ctx, b.ID, next)
	if err != nil {
		return err
	}
	notify(c, domain.NoticeSuccess, MsgStatusUpdated)
	return render(c, http.StatusOK, res)
}
