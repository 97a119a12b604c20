package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/decorhub/storefront/internal/apiclient"
	"github.com/decorhub/storefront/internal/core/domain"
)

const (
	defaultCurrency   = "usd"
	MsgPaymentSuccess = "Payment successful"
)

// PaymentHandler serves checkout and payment history. Every route sits
// behind RequireAuth.
type PaymentHandler struct {
	// publicURL is the externally visible origin used for checkout return
	// links. Empty means derive it from the request.
	publicURL string
	now       func() time.Time
}

func NewPaymentHandler(publicURL string) *PaymentHandler {
	return &PaymentHandler{publicURL: strings.TrimRight(publicURL, "/"), now: time.Now}
}

type checkoutRequest struct {
	BookingID string `json:"booking_id" validate:"required"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

type confirmPaymentRequest struct {
	BookingID     string `json:"booking_id" validate:"required"`
	TransactionID string `json:"transaction_id" validate:"required"`
}

// Checkout handles POST /payments/checkout.
//
// @Summary      Start a hosted checkout for a booking
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        body  body      checkoutRequest  true  "Booking to pay"
// @Success      200   {object}  checkoutResponse
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /payments/checkout [post]
func (h *PaymentHandler) Checkout(c echo.Context) error {
	var req checkoutRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	id, caller, err := bookingScope(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	b, err := findBooking(ctx, caller, apiclient.BookingFilter{CustomerEmail: id.Email}, req.BookingID)
	if err != nil {
		return err
	}
	if b.Paid {
		return echo.NewHTTPError(http.StatusConflict, "booking already paid")
	}
	if b.Status == domain.BookingCancelled {
		return echo.NewHTTPError(http.StatusConflict, "booking is cancelled")
	}

	origin := h.origin(c)
	redirect, err := caller.CreateCheckoutSession(ctx, domain.CheckoutRequest{
		BookingID:  b.ID,
		Amount:     b.Cost,
		Currency:   defaultCurrency,
		SuccessURL: origin + "/dashboard/payments?booking=" + url.QueryEscape(b.ID) + "&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  origin + "/dashboard/bookings",
	})
	if err != nil {
		return err
	}
	return render(c, http.StatusOK, checkoutResponse{URL: redirect})
}

// Confirm handles POST /payments/confirm, called when checkout returns.
//
// @Summary      Record a completed checkout
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        body  body      confirmPaymentRequest  true  "Completed checkout"
// @Success      201   {object}  domain.MutationResult
// @Failure      404   {object}  map[string]string
// @Router       /payments/confirm [post]
func (h *PaymentHandler) Confirm(c echo.Context) error {
	var req confirmPaymentRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	id, caller, err := bookingScope(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	b, err := findBooking(ctx, caller, apiclient.BookingFilter{CustomerEmail: id.Email}, req.BookingID)
	if err != nil {
		return err
	}
	if b.Paid {
		return render(c, http.StatusOK, domain.MutationResult{ID: b.ID, Message: "already paid"})
	}

	res, err := caller.RecordPayment(ctx, domain.Payment{
		BookingID:     b.ID,
		CustomerEmail: id.Email,
		Amount:        b.Cost,
		Currency:      defaultCurrency,
		TransactionID: req.TransactionID,
		PaidAt:        h.now().UTC(),
	})
	if err != nil {
		return err
	}
	notify(c, domain.NoticeSuccess, MsgPaymentSuccess)
	return render(c, http.StatusCreated, res)
}

// History handles GET /dashboard/payments.
//
// @Summary      My payment history
// @Tags         payments
// @Produce      json
// @Success      200  {array}   domain.Payment
// @Router       /dashboard/payments [get]
func (h *PaymentHandler) History(c echo.Context) error {
	id, caller, err := bookingScope(c)
	if err != nil {
		return err
	}
	payments, err := caller.ListPayments(c.Request().Context(), id.Email)
	if err != nil {
		return err
	}
	return render(c, http.StatusOK, payments)
}

func (h *PaymentHandler) origin(c echo.Context) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	return c.Scheme() + "://" + c.Request().Host
}
