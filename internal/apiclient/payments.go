package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/decorhub/storefront/internal/core/domain"
)

// ErrNoCheckoutURL is returned when the backend created a checkout session
// without a redirect URL.
var ErrNoCheckoutURL = errors.New("checkout session has no redirect url")

type recordPaymentRequest struct {
	BookingID     string    `json:"bookingId"`
	Email         string    `json:"email"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	TransactionID string    `json:"transactionId"`
	Date          time.Time `json:"date"`
}

type checkoutSessionRequest struct {
	BookingID  string  `json:"bookingId"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	SuccessURL string  `json:"successUrl"`
	CancelURL  string  `json:"cancelUrl"`
}

type checkoutSessionResponse struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	URL2 string `json:"redirectUrl"`
}

// ListPayments returns the payment history of email, or every payment when
// email is empty.
func (c *Caller) ListPayments(ctx context.Context, email string) ([]domain.Payment, error) {
	q := url.Values{}
	if email != "" {
		q.Set("email", email)
	}
	var raw []rawPayment
	if err := c.Get(ctx, "/payments", q, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Payment, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.payment())
	}
	return out, nil
}

// RecordPayment stores a settled payment and marks its booking paid.
func (c *Caller) RecordPayment(ctx context.Context, p domain.Payment) (*domain.MutationResult, error) {
	body := recordPaymentRequest{
		BookingID:     p.BookingID,
		Email:         p.CustomerEmail,
		Amount:        p.Amount,
		Currency:      p.Currency,
		TransactionID: p.TransactionID,
		Date:          p.PaidAt,
	}
	return c.mutate(ctx, http.MethodPost, "/payments", body)
}

// CreateCheckoutSession asks the backend for a hosted payment page and returns
// the URL to send the browser to.
func (c *Caller) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (string, error) {
	body := checkoutSessionRequest{
		BookingID:  req.BookingID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	}
	var resp checkoutSessionResponse
	if err := c.Post(ctx, "/create-checkout-session", body, &resp); err != nil {
		return "", err
	}
	redirect := first(resp.URL, resp.URL2)
	if redirect == "" {
		return "", ErrNoCheckoutURL
	}
	return redirect, nil
}
