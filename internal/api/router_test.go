package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/decorhub/storefront/internal/api/handler"
	"github.com/decorhub/storefront/internal/api/middleware"
	"github.com/decorhub/storefront/internal/apiclient"
	"github.com/decorhub/storefront/internal/core/domain"
	"github.com/decorhub/storefront/internal/core/service"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubProvider struct{}

func (stubProvider) SignIn(_ context.Context, email, password string) (*domain.Identity, error) {
	if password != "secret1" {
		return nil, domain.ErrInvalidCredentials
	}
	return &domain.Identity{UID: "u-" + email, Email: email}, nil
}

func (stubProvider) Register(context.Context, string, string, domain.ProfilePatch) (*domain.Identity, error) {
	return nil, domain.ErrProviderUnavailable
}

func (stubProvider) SignOut(context.Context, string) error { return nil }

func (stubProvider) Token(_ context.Context, uid string, _ bool) (string, error) {
	return "tok-" + uid, nil
}

func (stubProvider) UpdateProfile(context.Context, string, domain.ProfilePatch) (*domain.Identity, error) {
	return nil, domain.ErrProviderUnavailable
}

func (stubProvider) DeleteAccount(context.Context, string) error { return nil }

// fakeBackend serves the catalog, an empty booking list and the role of
// every user.
func fakeBackend(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/services":
		_, _ = w.Write([]byte(`[{"_id":"s1","service_name":"Wedding Stage","category":"Wedding","price":"1200"}]`))
	case r.URL.Path == "/bookings":
		_, _ = w.Write([]byte(`[]`))
	case strings.HasPrefix(r.URL.Path, "/users/"):
		email := strings.TrimPrefix(r.URL.Path, "/users/")
		_, _ = w.Write([]byte(`{"email":"` + email + `","role":"user"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const sessionCookie = "decorhub_session"

func newTestRouter(t *testing.T) *echo.Echo {
	t.Helper()
	return newTestRouterWith(t, fakeBackend, 1)
}

func newTestRouterWith(t *testing.T, backend http.HandlerFunc, retries uint) *echo.Echo {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client, err := apiclient.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	source := apiclient.NewScopedSource(client)

	registry := service.NewSessionRegistry(stubProvider{}, client.Public(), nil, time.Hour, zerolog.Nop())
	t.Cleanup(registry.Close)

	roles := service.NewRoleResolver(source, nil,
		service.RoleResolverConfig{Retries: retries, RetryBase: time.Millisecond}, zerolog.Nop())

	return NewRouter(Dependencies{
		Log:      zerolog.Nop(),
		Client:   client,
		Registry: registry,
		Roles:    roles,
		Guard:    service.NewGuard(roles, 500*time.Millisecond),
		Catalog:  service.NewCatalogService(source, zerolog.Nop()),
		Session:  middleware.SessionConfig{CookieName: sessionCookie, TTL: time.Hour},
		Metrics:  prometheus.NewRegistry(),
	})
}

func serve(e *echo.Echo, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// cookieNamed returns the last cookie set under name, which is the one the
// browser keeps.
func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			found = ck
		}
	}
	return found
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRouter_Health(t *testing.T) {
	e := newTestRouter(t)

	rec := serve(e, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cookieNamed(rec, sessionCookie) != nil {
		t.Fatal("probes must not open a session")
	}
}

func TestRouter_CatalogIsPublic(t *testing.T) {
	e := newTestRouter(t)

	rec := serve(e, http.MethodGet, "/?category=wedding", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data struct {
			Items []domain.Service `json:"items"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Data.Items) != 1 || resp.Data.Items[0].Price != 1200 {
		t.Fatalf("unexpected catalog: %+v", resp.Data.Items)
	}
	if ck := cookieNamed(rec, sessionCookie); ck == nil || !ck.HttpOnly {
		t.Fatal("expected an http-only session cookie")
	}
}

func TestRouter_ProtectedRouteRedirectsToLogin(t *testing.T) {
	e := newTestRouter(t)

	rec := serve(e, http.MethodGet, "/admin/users", "")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/login?next=%2Fadmin%2Fusers" {
		t.Fatalf("unexpected location %q", loc)
	}
}

func TestRouter_SignInThenDashboard(t *testing.T) {
	e := newTestRouter(t)

	login := serve(e, http.MethodPost, "/login", `{"email":"ana@example.com","password":"secret1","next":"/dashboard/bookings"}`)
	if login.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", login.Code, login.Body.String())
	}
	if !strings.Contains(login.Body.String(), handler.MsgSignedIn) {
		t.Fatalf("expected the sign-in toast in %s", login.Body.String())
	}
	session := cookieNamed(login, sessionCookie)
	if session == nil {
		t.Fatal("expected a session cookie")
	}

	rec := serve(e, http.MethodGet, "/dashboard/bookings", "", session)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// A plain user is sent home from the admin area with a toast.
	admin := serve(e, http.MethodGet, "/admin/users", "", session)
	if admin.Code != http.StatusSeeOther || admin.Header().Get(echo.HeaderLocation) != domain.PathHome {
		t.Fatalf("expected 303 to /, got %d %q", admin.Code, admin.Header().Get(echo.HeaderLocation))
	}
	if cookieNamed(admin, "decorhub_flash") == nil {
		t.Fatal("expected a permission toast")
	}
}

func TestRouter_WrongPasswordIsUnauthorized(t *testing.T) {
	e := newTestRouter(t)

	rec := serve(e, http.MethodPost, "/login", `{"email":"ana@example.com","password":"nope"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRouter_UnknownRouteUsesErrorEnvelope(t *testing.T) {
	e := newTestRouter(t)

	rec := serve(e, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Error == "" {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
}

func TestRouter_Metrics(t *testing.T) {
	e := newTestRouter(t)
	serve(e, http.MethodGet, "/health", "")

	rec := serve(e, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "storefront_requests_total") {
		t.Fatalf("expected request metrics, got %s", rec.Body.String())
	}
}

func TestRouter_FailedRoleLookupRaisesOneNotice(t *testing.T) {
	var roleCalls atomic.Int32
	e := newTestRouterWith(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/users/") {
			roleCalls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fakeBackend(w, r)
	}, 3)

	login := serve(e, http.MethodPost, "/login", `{"email":"ana@example.com","password":"secret1"}`)
	session := cookieNamed(login, sessionCookie)
	if session == nil {
		t.Fatalf("login: expected a session cookie, got %d", login.Code)
	}

	admin := serve(e, http.MethodGet, "/admin/users", "", session)
	if admin.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", admin.Code)
	}
	if n := roleCalls.Load(); n != 4 {
		t.Fatalf("expected the first attempt and 3 retries, got %d calls", n)
	}
	flash := cookieNamed(admin, "decorhub_flash")
	if flash == nil {
		t.Fatal("expected a flash cookie")
	}

	page := serve(e, http.MethodGet, "/login", "", session, flash)
	var resp struct {
		Flash []domain.Notice `json:"flash"`
	}
	if err := json.Unmarshal(page.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	want := []string{middleware.MsgRoleUnverified, middleware.MsgNoPermission}
	if len(resp.Flash) != len(want) {
		t.Fatalf("expected %d notices, got %+v", len(want), resp.Flash)
	}
	for i, msg := range want {
		if resp.Flash[i].Message != msg {
			t.Fatalf("notice %d: expected %q, got %q", i, msg, resp.Flash[i].Message)
		}
	}
}
