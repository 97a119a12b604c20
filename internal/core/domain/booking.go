package domain

import "time"

// BookingStatus represents the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingInProgress BookingStatus = "in_progress"
	BookingCompleted  BookingStatus = "completed"
	BookingCancelled  BookingStatus = "cancelled"
)

// validTransitions defines the allowed booking status changes.
var validTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:    {BookingConfirmed, BookingCancelled},
	BookingConfirmed:  {BookingInProgress, BookingCancelled},
	BookingInProgress: {BookingCompleted},
}

// Valid reports whether s is a known booking status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingInProgress, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a transition from s to next is valid.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Booking is a customer's reservation of a decoration service.
// Optional fields are left at their zero value when the backend omits them.
type Booking struct {
	ID             string        `json:"id"`
	ServiceID      string        `json:"service_id"`
	ServiceName    string        `json:"service_name"`
	CustomerEmail  string        `json:"customer_email"`
	CustomerName   string        `json:"customer_name,omitempty"`
	DecoratorEmail string        `json:"decorator_email,omitempty"`
	Date           time.Time     `json:"date"`
	Location       string        `json:"location,omitempty"`
	Cost           float64       `json:"cost"`
	Status         BookingStatus `json:"status"`
	Paid           bool          `json:"paid"`
	CreatedAt      time.Time     `json:"created_at"`
}

// BookingInput is what a customer submits when booking a service.
type BookingInput struct {
	ServiceID string    `json:"service_id"`
	Date      time.Time `json:"date"`
	Location  string    `json:"location"`
}
