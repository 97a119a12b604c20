// Package metrics defines and registers all custom Prometheus metrics for the
// storefront. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default Prometheus registry on package
// load and served by echoprometheus.NewHandler at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront"

// ── Backend client metrics ────────────────────────────────────────────────────

// BackendRequestsTotal counts requests sent to the REST backend.
// Labels:
//   - method: HTTP method
//   - code: status class ("2xx", "4xx", "5xx") or "error" for transport failures
var BackendRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_requests_total",
		Help:      "Total number of requests sent to the REST backend.",
	},
	[]string{"method", "code"},
)

// BackendRequestDuration measures backend round trips.
// Label:
//   - method: HTTP method
var BackendRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_request_duration_seconds",
		Help:      "Duration of REST backend requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method"},
)

// AuthFailuresTotal counts backend authorization failures and what they caused.
// Labels:
//   - status: "401" or "403"
//   - action: "signed_out" for the handled failure, "ignored" for repeats and
//     detached scopes
var AuthFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_failures_total",
		Help:      "Total number of 401/403 responses from the backend, by resulting action.",
	},
	[]string{"status", "action"},
)

// TokenMintFailuresTotal counts requests sent without a credential because
// minting failed.
var TokenMintFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_mint_failures_total",
		Help:      "Total number of outgoing requests whose bearer credential could not be minted.",
	},
)

// ── Role metrics ──────────────────────────────────────────────────────────────

// RoleLookupsTotal counts role resolutions.
// Label:
//   - result: "hit" (fresh cache), "fetched" (backend) or "fallback" (default
//     role after a failed fetch)
var RoleLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_lookups_total",
		Help:      "Total number of role resolutions, labelled by result.",
	},
	[]string{"result"},
)

// ── Session and guard metrics ─────────────────────────────────────────────────

// SessionsActive tracks the number of live session stores.
var SessionsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Current number of in-memory browser session stores.",
	},
)

// GuardDecisionsTotal counts route guard outcomes.
// Labels:
//   - guard: "auth" or the required role
//   - state: "loading", "unauthenticated", "wrong_role" or "authorized"
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of route guard decisions, by guard and state.",
	},
	[]string{"guard", "state"},
)

// RegistrationRollbacksTotal counts compensating deletions after a failed
// backend profile write.
// Label:
//   - result: "deleted" or "orphaned"
var RegistrationRollbacksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registration_rollbacks_total",
		Help:      "Total number of provider accounts rolled back after a failed registration.",
	},
	[]string{"result"},
)

// StatusClass buckets an HTTP status into "2xx", "3xx", "4xx" or "5xx".
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// ObserveRoleLookup adapts RoleLookupsTotal to a role resolver observer.
func ObserveRoleLookup(hit bool, err error) {
	switch {
	case hit:
		RoleLookupsTotal.WithLabelValues("hit").Inc()
	case err != nil:
		RoleLookupsTotal.WithLabelValues("fallback").Inc()
	default:
		RoleLookupsTotal.WithLabelValues("fetched").Inc()
	}
}
