package service

import (
	"context"
	"time"

	"github.com/decorhub/storefront/internal/core/domain"
)

const defaultGuardWait = 2 * time.Second

// GuardState is the outcome of evaluating a route guard.
type GuardState int

const (
	GuardLoading GuardState = iota
	GuardUnauthenticated
	GuardWrongRole
	GuardAuthorized
)

func (s GuardState) String() string {
	switch s {
	case GuardLoading:
		return "loading"
	case GuardUnauthenticated:
		return "unauthenticated"
	case GuardWrongRole:
		return "wrong_role"
	case GuardAuthorized:
		return "authorized"
	}
	return "unknown"
}

// GuardSession is the part of a SessionStore a guard reads.
type GuardSession interface {
	Current() (domain.Identity, bool)
	Loading() bool
	WaitReady(ctx context.Context) error
}

// GuardDecision is terminal for one request; the next request evaluates again.
type GuardDecision struct {
	State    GuardState
	Identity domain.Identity
	Role     domain.Role
	// RoleErr is set when the role fell back to the default after a failed fetch.
	RoleErr error
	// Redirect is the path to navigate to for Unauthenticated and WrongRole.
	Redirect string
	Nav      domain.NavState
}

// Allowed reports whether the protected handler may run.
func (d GuardDecision) Allowed() bool { return d.State == GuardAuthorized }

// Guard decides whether a request may reach a protected page.
type Guard struct {
	roles *RoleResolver
	wait  time.Duration
}

// NewGuard returns a guard that waits up to wait for pending identity and
// role loads before reporting GuardLoading.
func NewGuard(roles *RoleResolver, wait time.Duration) *Guard {
	if wait <= 0 {
		wait = defaultGuardWait
	}
	return &Guard{roles: roles, wait: wait}
}

// RequireAuth admits any signed-in identity. attempted is the path the user
// tried to reach; it is carried to the sign-in page.
func (g *Guard) RequireAuth(ctx context.Context, s GuardSession, attempted string) GuardDecision {
	ctx, cancel := context.WithTimeout(ctx, g.wait)
	defer cancel()
	return g.authenticate(ctx, s, attempted)
}

// RequireRole admits only identities whose resolved role equals role. An
// under-privileged user is sent home, not to sign-in.
func (g *Guard) RequireRole(ctx context.Context, s GuardSession, role domain.Role, attempted string) GuardDecision {
	ctx, cancel := context.WithTimeout(ctx, g.wait)
	defer cancel()

	d := g.authenticate(ctx, s, attempted)
	if d.State != GuardAuthorized {
		return d
	}

	id := d.Identity
	q := g.roles.Query(ctx, &id)
	got, err := q.Wait(ctx)
	if err != nil {
		return GuardDecision{State: GuardLoading, Identity: id}
	}

	d.Role, d.RoleErr = got, q.Err()
	if got != role {
		d.State = GuardWrongRole
		d.Redirect = domain.PathHome
		d.Nav = domain.NavState{From: attempted}
	}
	return d
}

func (g *Guard) authenticate(ctx context.Context, s GuardSession, attempted string) GuardDecision {
	if s == nil {
		return unauthenticated(attempted)
	}
	if s.Loading() {
		if err := s.WaitReady(ctx); err != nil {
			return GuardDecision{State: GuardLoading}
		}
	}
	id, ok := s.Current()
	if !ok {
		return unauthenticated(attempted)
	}
	return GuardDecision{State: GuardAuthorized, Identity: id}
}

func unauthenticated(attempted string) GuardDecision {
	return GuardDecision{
		State:    GuardUnauthenticated,
		Redirect: domain.PathLogin,
		Nav:      domain.NavState{From: attempted},
	}
}
