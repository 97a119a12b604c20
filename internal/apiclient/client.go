// Package apiclient is the single HTTP client for the REST backend. Every
// request issued through a Caller is stamped with a freshly minted bearer
// credential for the caller's session, and every response is intercepted to
// turn authorization failures into a sign-out and a redirect to /login.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/decorhub/storefront/internal/core/domain"
	"github.com/decorhub/storefront/internal/core/ports"
	"github.com/decorhub/storefront/internal/pkg/metrics"
)

const (
	tracerName      = "github.com/decorhub/storefront/apiclient"
	defaultTimeout  = 10 * time.Second
	maxResponseBody = 1 << 20
)

// User-visible notifications raised by the response interceptor.
const (
	MsgSessionExpired = "Your session has expired. Please sign in again."
	MsgNotFound       = "Resource not found"
	MsgServerError    = "Server error, please try again later"
)

// Client holds the shared transport and the fixed base endpoint. It is safe
// for concurrent use and is meant to be built once at startup.
type Client struct {
	base   *url.URL
	http   *http.Client
	log    zerolog.Logger
	tracer trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default transport.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithTracer replaces the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// New returns a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if u.Path == "" {
		u.Path = "/"
	}

	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: defaultTimeout},
		log:    zerolog.Nop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the fixed backend endpoint.
func (c *Client) BaseURL() string { return c.base.String() }

// Scope is the per-consumer response handling context. Every field is
// optional: without a Session requests go out unauthenticated, without a
// Notifier or Navigator those side effects are skipped.
type Scope struct {
	Session   ports.SessionReader
	Navigator ports.Navigator
	Notifier  ports.Notifier
}

// Caller issues requests on behalf of one consumer.
type Caller struct {
	client *Client
	scope  Scope
	flags  *scopeFlags
	// quiet suppresses the not-found and server-error notices.
	quiet bool
}

// scopeFlags is shared by a Caller and its quiet view.
type scopeFlags struct {
	detached atomic.Bool
	// authHandled makes the authorization failure path run once per scope.
	authHandled atomic.Bool
}

// Attach registers scope and returns a Caller bound to it together with its
// detach func. After detach, responses still reject their calls but trigger
// no notification, sign-out or navigation.
func (c *Client) Attach(scope Scope) (*Caller, func()) {
	caller := &Caller{client: c, scope: scope, flags: &scopeFlags{}}
	return caller, func() { caller.flags.detached.Store(true) }
}

// Public returns a Caller with no session and no user-facing side effects.
func (c *Client) Public() *Caller {
	return &Caller{client: c, flags: &scopeFlags{}}
}

// Quiet returns a view of c on the same scope that raises no notice for 404
// or 5xx responses. Authorization failures are still handled, once for c and
// all its views. Use it where the caller reports those outcomes itself.
func (c *Caller) Quiet() *Caller {
	q := *c
	q.quiet = true
	return &q
}

// Get issues a GET and decodes a 2xx body into out.
func (c *Caller) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST with a JSON body.
func (c *Caller) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Patch issues a PATCH with a JSON body.
func (c *Caller) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, nil, body, out)
}

// Delete issues a DELETE.
func (c *Caller) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out)
}

// Do sends one request. Non-2xx responses are returned as *Error after the
// interceptor has run.
func (c *Caller) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.client.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	ctx, span := c.client.tracer.Start(ctx, "backend "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", u.Path),
		),
	)
	defer span.End()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	authenticated := c.stamp(ctx, req)
	span.SetAttributes(attribute.Bool("storefront.authenticated", authenticated))

	start := time.Now()
	resp, err := c.client.http.Do(req)
	metrics.BackendRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(method, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	metrics.BackendRequestsTotal.WithLabelValues(method, metrics.StatusClass(resp.StatusCode)).Inc()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newError(method, path, resp.StatusCode, payload)
		span.SetStatus(codes.Error, strconv.Itoa(resp.StatusCode))
		c.intercept(ctx, apiErr)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s %s: %w: %w", method, path, domain.ErrBadResponse, err)
	}
	return nil
}

// stamp sets the bearer credential when the scope has a signed-in identity.
// A failed mint is logged and the request goes out without the header.
func (c *Caller) stamp(ctx context.Context, req *http.Request) bool {
	s := c.scope.Session
	if s == nil {
		return false
	}
	if _, ok := s.Current(); !ok {
		return false
	}
	token, err := s.Token(ctx, true)
	if err != nil {
		metrics.TokenMintFailuresTotal.Inc()
		c.client.log.Warn().Err(err).Str("path", req.URL.Path).Msg("could not mint bearer credential, sending request without it")
		return false
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return true
}

func (c *Caller) intercept(ctx context.Context, e *Error) {
	status := e.StatusCode
	if c.flags.detached.Load() {
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			metrics.AuthFailuresTotal.WithLabelValues(strconv.Itoa(status), "ignored").Inc()
		}
		c.client.log.Debug().Int("status", status).Str("path", e.Path).Msg("late response after detach ignored")
		return
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		c.handleAuthFailure(ctx, status)
	case status == http.StatusNotFound:
		if !c.quiet {
			c.notify(domain.NoticeError, MsgNotFound)
		}
	case status >= 500:
		c.client.log.Error().Int("status", status).Str("method", e.Method).Str("path", e.Path).Msg("backend server error")
		if !c.quiet {
			c.notify(domain.NoticeError, MsgServerError)
		}
	}
}

// handleAuthFailure is the one authorization failure path. Repeats on the
// same scope are no-ops.
func (c *Caller) handleAuthFailure(ctx context.Context, status int) {
	label := strconv.Itoa(status)
	if !c.flags.authHandled.CompareAndSwap(false, true) {
		metrics.AuthFailuresTotal.WithLabelValues(label, "ignored").Inc()
		return
	}
	metrics.AuthFailuresTotal.WithLabelValues(label, "signed_out").Inc()

	c.notify(domain.NoticeWarning, MsgSessionExpired)

	if s := c.scope.Session; s != nil {
		transitioned, err := s.SignOut(context.WithoutCancel(ctx))
		if err != nil {
			c.client.log.Warn().Err(err).Msg("forced sign-out failed")
		}
		if transitioned {
			c.client.log.Info().Int("status", status).Msg("session signed out after backend rejection")
		}
	}

	if nav := c.scope.Navigator; nav != nil {
		nav.Replace(domain.PathLogin, domain.NavState{From: nav.CurrentPath()})
	}
}

func (c *Caller) notify(level domain.NoticeLevel, msg string) {
	if n := c.scope.Notifier; n != nil {
		n.Notify(level, msg)
	}
}
