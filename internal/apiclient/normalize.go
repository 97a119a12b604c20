package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/decorhub/storefront/internal/core/domain"
)

// The backend is loosely shaped: ids come as _id or id, numbers sometimes
// arrive as strings, and the acknowledgement key is spelt both "message" and
// "massage". Everything is decoded into the raw* types below and converted to
// domain records once, here.

// flexFloat decodes a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			return fmt.Errorf("number %q: %w", s, err)
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// flexTime decodes RFC 3339 timestamps, plain dates and unix milliseconds.
type flexTime time.Time

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] != '"' {
		var ms int64
		if err := json.Unmarshal(b, &ms); err != nil {
			return err
		}
		*t = flexTime(time.UnixMilli(ms).UTC())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = flexTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("unrecognized time %q", s)
}

func (t flexTime) time() time.Time { return time.Time(t) }

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstFloat(values ...flexFloat) float64 {
	for _, v := range values {
		if v != 0 {
			return float64(v)
		}
	}
	return 0
}

func firstTime(values ...flexTime) time.Time {
	for _, v := range values {
		if !v.time().IsZero() {
			return v.time()
		}
	}
	return time.Time{}
}

// ── Users ─────────────────────────────────────────────────────────────────────

type rawUser struct {
	MongoID      string   `json:"_id"`
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	DisplayName  string   `json:"displayName"`
	Name         string   `json:"name"`
	DisplayName2 string   `json:"display_name"`
	PhotoURL     string   `json:"photoURL"`
	Photo        string   `json:"photo"`
	PhotoURL2    string   `json:"photo_url"`
	Role         string   `json:"role"`
	CreatedAt    flexTime `json:"createdAt"`
	CreatedAt2   flexTime `json:"created_at"`
}

func (r rawUser) profile() domain.UserProfile {
	return domain.UserProfile{
		ID:          first(r.MongoID, r.ID),
		Email:       strings.ToLower(strings.TrimSpace(r.Email)),
		DisplayName: first(r.DisplayName, r.Name, r.DisplayName2),
		PhotoURL:    first(r.PhotoURL, r.Photo, r.PhotoURL2),
		Role:        domain.ParseRole(r.Role),
		CreatedAt:   firstTime(r.CreatedAt, r.CreatedAt2),
	}
}

// ── Services ──────────────────────────────────────────────────────────────────

type rawService struct {
	MongoID     string    `json:"_id"`
	ID          string    `json:"id"`
	Name        string    `json:"service_name"`
	Name2       string    `json:"name"`
	Category    string    `json:"category"`
	Category2   string    `json:"service_category"`
	Description string    `json:"description"`
	Price       flexFloat `json:"price"`
	Cost        flexFloat `json:"cost"`
	Unit        string    `json:"unit"`
	Image       string    `json:"image"`
	ImageURL    string    `json:"imageURL"`
	ImageURL2   string    `json:"image_url"`
	Rating      flexFloat `json:"rating"`
	CreatedBy   string    `json:"createdByEmail"`
	CreatedBy2  string    `json:"created_by"`
	CreatedAt   flexTime  `json:"createdAt"`
	CreatedAt2  flexTime  `json:"created_at"`
}

func (r rawService) service() domain.Service {
	return domain.Service{
		ID:          first(r.MongoID, r.ID),
		Name:        first(r.Name, r.Name2),
		Category:    first(r.Category, r.Category2),
		Description: r.Description,
		Price:       firstFloat(r.Price, r.Cost),
		Unit:        r.Unit,
		ImageURL:    first(r.Image, r.ImageURL, r.ImageURL2),
		Rating:      float64(r.Rating),
		CreatedBy:   first(r.CreatedBy, r.CreatedBy2),
		CreatedAt:   firstTime(r.CreatedAt, r.CreatedAt2),
	}
}

// ── Bookings ──────────────────────────────────────────────────────────────────

type rawBooking struct {
	MongoID        string    `json:"_id"`
	ID             string    `json:"id"`
	ServiceID      string    `json:"serviceId"`
	ServiceID2     string    `json:"service_id"`
	ServiceName    string    `json:"service_name"`
	ServiceName2   string    `json:"serviceName"`
	CustomerEmail  string    `json:"userEmail"`
	CustomerEmail2 string    `json:"customer_email"`
	CustomerName   string    `json:"userName"`
	CustomerName2  string    `json:"customer_name"`
	DecoratorEmail string    `json:"decoratorEmail"`
	Date           flexTime  `json:"bookingDate"`
	Date2          flexTime  `json:"date"`
	Location       string    `json:"location"`
	Cost           flexFloat `json:"cost"`
	Price          flexFloat `json:"price"`
	Status         string    `json:"status"`
	PaymentStatus  string    `json:"paymentStatus"`
	Paid           bool      `json:"paid"`
	CreatedAt      flexTime  `json:"createdAt"`
	CreatedAt2     flexTime  `json:"created_at"`
}

func (r rawBooking) booking() domain.Booking {
	status := domain.BookingStatus(strings.ToLower(strings.ReplaceAll(strings.TrimSpace(r.Status), "-", "_")))
	if status == "" {
		status = domain.BookingPending
	}
	return domain.Booking{
		ID:             first(r.MongoID, r.ID),
		ServiceID:      first(r.ServiceID, r.ServiceID2),
		ServiceName:    first(r.ServiceName, r.ServiceName2),
		CustomerEmail:  first(r.CustomerEmail, r.CustomerEmail2),
		CustomerName:   first(r.CustomerName, r.CustomerName2),
		DecoratorEmail: r.DecoratorEmail,
		Date:           firstTime(r.Date, r.Date2),
		Location:       r.Location,
		Cost:           firstFloat(r.Cost, r.Price),
		Status:         status,
		Paid:           r.Paid || strings.EqualFold(r.PaymentStatus, "paid"),
		CreatedAt:      firstTime(r.CreatedAt, r.CreatedAt2),
	}
}

// ── Payments ──────────────────────────────────────────────────────────────────

type rawPayment struct {
	MongoID       string    `json:"_id"`
	ID            string    `json:"id"`
	BookingID     string    `json:"bookingId"`
	BookingID2    string    `json:"booking_id"`
	Email         string    `json:"email"`
	Email2        string    `json:"customer_email"`
	Amount        flexFloat `json:"amount"`
	Price         flexFloat `json:"price"`
	Currency      string    `json:"currency"`
	TransactionID string    `json:"transactionId"`
	TransactionI2 string    `json:"transaction_id"`
	PaidAt        flexTime  `json:"date"`
	PaidAt2       flexTime  `json:"paidAt"`
}

func (r rawPayment) payment() domain.Payment {
	return domain.Payment{
		ID:            first(r.MongoID, r.ID),
		BookingID:     first(r.BookingID, r.BookingID2),
		CustomerEmail: first(r.Email, r.Email2),
		Amount:        firstFloat(r.Amount, r.Price),
		Currency:      strings.ToLower(first(r.Currency, "usd")),
		TransactionID: first(r.TransactionID, r.TransactionI2),
		PaidAt:        firstTime(r.PaidAt, r.PaidAt2),
	}
}

// ── Acknowledgements ──────────────────────────────────────────────────────────

type rawMutation struct {
	InsertedID    string `json:"insertedId"`
	MongoID       string `json:"_id"`
	ID            string `json:"id"`
	Message       string `json:"message"`
	Massage       string `json:"massage"`
	ModifiedCount int64  `json:"modifiedCount"`
	DeletedCount  int64  `json:"deletedCount"`
}

func (r rawMutation) result() domain.MutationResult {
	return domain.MutationResult{
		ID:       first(r.InsertedID, r.MongoID, r.ID),
		Message:  first(r.Message, r.Massage),
		Modified: r.ModifiedCount + r.DeletedCount,
	}
}

// extractMessage pulls a human-readable explanation out of an error body.
func extractMessage(body []byte) string {
	var m struct {
		rawMutation
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &m) != nil {
		return ""
	}
	return first(m.Message, m.Massage, m.Error)
}
