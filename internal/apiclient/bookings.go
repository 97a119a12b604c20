package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/decorhub/storefront/internal/core/domain"
)

// BookingFilter narrows ListBookings. Empty fields are not sent.
type BookingFilter struct {
	CustomerEmail  string
	DecoratorEmail string
	Status         domain.BookingStatus
}

func (f BookingFilter) query() url.Values {
	q := url.Values{}
	if f.CustomerEmail != "" {
		q.Set("email", f.CustomerEmail)
	}
	if f.DecoratorEmail != "" {
		q.Set("decoratorEmail", f.DecoratorEmail)
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	return q
}

type createBookingRequest struct {
	ServiceID    string               `json:"serviceId"`
	ServiceName  string               `json:"service_name"`
	UserEmail    string               `json:"userEmail"`
	UserName     string               `json:"userName,omitempty"`
	BookingDate  time.Time            `json:"bookingDate"`
	Location     string               `json:"location"`
	Cost         float64              `json:"cost"`
	Status       domain.BookingStatus `json:"status"`
	PaymentState string               `json:"paymentStatus"`
}

type bookingStatusRequest struct {
	Status domain.BookingStatus `json:"status"`
}

// ListBookings returns the bookings matching f.
func (c *Caller) ListBookings(ctx context.Context, f BookingFilter) ([]domain.Booking, error) {
	var raw []rawBooking
	if err := c.Get(ctx, "/bookings", f.query(), &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Booking, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.booking())
	}
	return out, nil
}

// CreateBooking records a new pending, unpaid booking.
func (c *Caller) CreateBooking(ctx context.Context, b domain.Booking) (*domain.MutationResult, error) {
	body := createBookingRequest{
		ServiceID:    b.ServiceID,
		ServiceName:  b.ServiceName,
		UserEmail:    b.CustomerEmail,
		UserName:     b.CustomerName,
		BookingDate:  b.Date,
		Location:     b.Location,
		Cost:         b.Cost,
		Status:       domain.BookingPending,
		PaymentState: "unpaid",
	}
	return c.mutate(ctx, http.MethodPost, "/bookings", body)
}

// UpdateBookingStatus moves booking id to status.
func (c *Caller) UpdateBookingStatus(ctx context.Context, id string, status domain.BookingStatus) (*domain.MutationResult, error) {
	return c.mutate(ctx, http.MethodPatch, "/bookings/"+url.PathEscape(id), bookingStatusRequest{Status: status})
}

// DeleteBooking cancels and removes booking id.
func (c *Caller) DeleteBooking(ctx context.Context, id string) (*domain.MutationResult, error) {
	return c.mutate(ctx, http.MethodDelete, "/bookings/"+url.PathEscape(id), nil)
}
