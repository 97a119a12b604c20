package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/decorhub/storefront/internal/core/domain"
)

// fakePayments answers the booking list and records checkout and payment
// writes.
type fakePayments struct {
	bookings string

	mu       sync.Mutex
	checkout map[string]any
	payment  map[string]any
}

func (f *fakePayments) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch r.Method + " " + r.URL.Path {
	case "GET /bookings":
		_, _ = w.Write([]byte(f.bookings))
	case "POST /create-checkout-session":
		_ = json.NewDecoder(r.Body).Decode(&f.checkout)
		_, _ = w.Write([]byte(`{"id":"cs_1","url":"https://pay.example/cs_1"}`))
	case "POST /payments":
		_ = json.NewDecoder(r.Body).Decode(&f.payment)
		_, _ = w.Write([]byte(`{"insertedId":"p1"}`))
	case "GET /payments":
		_, _ = w.Write([]byte(`[{"_id":"p1","bookingId":"b1","email":"ana@example.com","amount":"1,200","transactionId":"tx"}]`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakePayments) bodies() (checkout, payment map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkout, f.payment
}

func TestPaymentHandler_Checkout(t *testing.T) {
	backend := &fakePayments{bookings: `[{"_id":"b1","status":"pending","cost":"450"}]`}
	caller := newBackend(t, backend.ServeHTTP)
	c, rec := newContext(http.MethodPost, "/payments/checkout", `{"booking_id":"b1"}`, nil, caller, ana)

	if err := NewPaymentHandler("https://shop.example/").Checkout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp checkoutResponse
	decodePage(t, rec, &resp)
	if resp.URL != "https://pay.example/cs_1" {
		t.Fatalf("unexpected checkout url: %q", resp.URL)
	}
	checkout, _ := backend.bodies()
	if checkout["amount"] != float64(450) {
		t.Fatalf("expected the booking cost to be charged, got %+v", checkout)
	}
	success, _ := checkout["successUrl"].(string)
	if !strings.HasPrefix(success, "https://shop.example/dashboard/payments?booking=b1") {
		t.Fatalf("unexpected success url: %q", success)
	}
	if checkout["cancelUrl"] != "https://shop.example/dashboard/bookings" {
		t.Fatalf("unexpected cancel url: %v", checkout["cancelUrl"])
	}
}

func TestPaymentHandler_Checkout_Conflicts(t *testing.T) {
	cases := map[string]string{
		"already paid": `[{"_id":"b1","status":"confirmed","paid":true}]`,
		"cancelled":    `[{"_id":"b1","status":"cancelled"}]`,
	}
	for name, list := range cases {
		t.Run(name, func(t *testing.T) {
			backend := &fakePayments{bookings: list}
			caller := newBackend(t, backend.ServeHTTP)
			c, _ := newContext(http.MethodPost, "/payments/checkout", `{"booking_id":"b1"}`, nil, caller, ana)

			err := NewPaymentHandler("").Checkout(c)
			var he *echo.HTTPError
			if !errors.As(err, &he) || he.Code != http.StatusConflict {
				t.Fatalf("expected 409, got %v", err)
			}
			if checkout, _ := backend.bodies(); checkout != nil {
				t.Fatal("no checkout session may be created")
			}
		})
	}
}

func TestPaymentHandler_Confirm(t *testing.T) {
	backend := &fakePayments{bookings: `[{"_id":"b1","status":"pending","cost":200}]`}
	caller := newBackend(t, backend.ServeHTTP)
	h := NewPaymentHandler("")
	h.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	c, rec := newContext(http.MethodPost, "/payments/confirm", `{"booking_id":"b1","transaction_id":"tx_9"}`, nil, caller, ana)

	if err := h.Confirm(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	_, payment := backend.bodies()
	if payment["transactionId"] != "tx_9" || payment["amount"] != float64(200) {
		t.Fatalf("unexpected payment body: %+v", payment)
	}
	flash := decodePage(t, rec, nil)
	if len(flash) != 1 || flash[0].Message != MsgPaymentSuccess {
		t.Fatalf("expected payment toast, got %+v", flash)
	}
}

func TestPaymentHandler_Confirm_AlreadyPaidIsIdempotent(t *testing.T) {
	backend := &fakePayments{bookings: `[{"_id":"b1","status":"confirmed","paymentStatus":"paid"}]`}
	caller := newBackend(t, backend.ServeHTTP)
	c, rec := newContext(http.MethodPost, "/payments/confirm", `{"booking_id":"b1","transaction_id":"tx_9"}`, nil, caller, ana)

	if err := NewPaymentHandler("").Confirm(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if _, payment := backend.bodies(); rec.Code != http.StatusOK || payment != nil {
		t.Fatalf("expected no second payment, got %d %+v", rec.Code, payment)
	}
}

func TestPaymentHandler_History(t *testing.T) {
	caller := newBackend(t, (&fakePayments{}).ServeHTTP)
	c, rec := newContext(http.MethodGet, "/dashboard/payments", "", nil, caller, ana)

	if err := NewPaymentHandler("").History(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var payments []domain.Payment
	decodePage(t, rec, &payments)
	if len(payments) != 1 || payments[0].Amount != 1200 || payments[0].Currency != "usd" {
		t.Fatalf("unexpected history: %+v", payments)
	}
}

// ---------------------------------------------------------------------------
// Admin
// ---------------------------------------------------------------------------

type stubInvalidator struct {
	invalidateFn func(ctx context.Context, email string) error
}

func (s *stubInvalidator) Invalidate(ctx context.Context, email string) error {
	return s.invalidateFn(ctx, email)
}

func TestAdminHandler_UpdateRole_InvalidatesCache(t *testing.T) {
	calls := make(chan string, 1)
	caller := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		calls <- r.Method + " " + r.URL.Path
		_, _ = w.Write([]byte(`{"modifiedCount":1}`))
	})
	var invalidated string
	roles := &stubInvalidator{invalidateFn: func(_ context.Context, email string) error {
		invalidated = email
		return errors.New("redis down")
	}}

	c, rec := newContext(http.MethodPatch, "/admin/users/64a/role", `{"email":"deco@example.com","role":"decorator"}`, nil, caller, ana)
	c.SetParamNames("id")
	c.SetParamValues("64a")

	if err := NewAdminHandler(roles, zerolog.Nop()).UpdateRole(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if path := <-calls; path != "PATCH /users/64a/role" {
		t.Fatalf("unexpected backend call %q", path)
	}
	if invalidated != "deco@example.com" {
		t.Fatalf("expected the cached role to be dropped, got %q", invalidated)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("a failed invalidation must not fail the request, got %d", rec.Code)
	}
}

func TestAdminHandler_UpdateRole_UnknownRole(t *testing.T) {
	c, _ := newContext(http.MethodPatch, "/admin/users/64a/role", `{"email":"deco@example.com","role":"owner"}`, nil, nil, ana)

	var ve *ValidationError
	if err := NewAdminHandler(nil, zerolog.Nop()).UpdateRole(c); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestAdminHandler_CreateService_RecordsCreator(t *testing.T) {
	bodies := make(chan map[string]any, 1)
	caller := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies <- body
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"insertedId":"s9"}`))
	})
	c, rec := newContext(http.MethodPost, "/admin/services",
		`{"name":"Garden Party","category":"Outdoor","price":350}`, nil, caller, ana)

	if err := NewAdminHandler(nil, zerolog.Nop()).CreateService(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var res domain.MutationResult
	decodePage(t, rec, &res)
	if res.ID != "s9" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if body := <-bodies; body["createdByEmail"] != "ana@example.com" {
		t.Fatalf("expected the admin to be recorded as creator, got %+v", body)
	}
}
