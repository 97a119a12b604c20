package domain

import "time"

// Payment records a settled checkout for a booking.
type Payment struct {
	ID            string    `json:"id"`
	BookingID     string    `json:"booking_id"`
	CustomerEmail string    `json:"customer_email"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	TransactionID string    `json:"transaction_id"`
	PaidAt        time.Time `json:"paid_at"`
}

// CheckoutRequest asks the backend for a hosted payment page for a booking.
type CheckoutRequest struct {
	BookingID  string  `json:"booking_id"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	SuccessURL string  `json:"success_url"`
	CancelURL  string  `json:"cancel_url"`
}

// UserProfile is the backend user record for an identity.
type UserProfile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// MutationResult is the normalized acknowledgement returned by backend writes.
type MutationResult struct {
	ID       string `json:"id,omitempty"`
	Message  string `json:"message,omitempty"`
	Modified int64  `json:"modified"`
}
