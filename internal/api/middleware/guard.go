package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/decorhub/storefront/internal/core/domain"
	"github.com/decorhub/storefront/internal/core/service"
	"github.com/decorhub/storefront/internal/pkg/metrics"
)

// Guard messages shown on the next render.
const (
	MsgNoPermission   = "You do not have permission to view that page"
	MsgRoleUnverified = "We could not verify your role. Showing the standard view."
)

type loadingResponse struct {
	Status string `json:"status"`
}

// RequireAuth admits signed-in sessions. Must run after Session.
func RequireAuth(g *service.Guard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := g.RequireAuth(c.Request().Context(), guardSession(c), c.Request().URL.RequestURI())
			return apply(c, "auth", d, next)
		}
	}
}

// RequireRole admits signed-in sessions whose resolved role is role. Must run
// after Session.
func RequireRole(g *service.Guard, role domain.Role) echo.MiddlewareFunc {
	label := "role:" + role.String()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := g.RequireRole(c.Request().Context(), guardSession(c), role, c.Request().URL.RequestURI())
			if d.RoleErr != nil {
				if f := FlashFrom(c); f != nil {
					f.Notify(domain.NoticeWarning, MsgRoleUnverified)
				}
			}
			if d.State == service.GuardWrongRole {
				if f := FlashFrom(c); f != nil {
					f.Notify(domain.NoticeError, MsgNoPermission)
				}
			}
			return apply(c, label, d, next)
		}
	}
}

func apply(c echo.Context, guard string, d service.GuardDecision, next echo.HandlerFunc) error {
	metrics.GuardDecisionsTotal.WithLabelValues(guard, d.State.String()).Inc()

	switch d.State {
	case service.GuardAuthorized:
		c.Set(KeyIdentity, d.Identity)
		if d.Role != "" {
			c.Set(KeyRole, d.Role)
		}
		return next(c)
	case service.GuardLoading:
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusAccepted, loadingResponse{Status: "loading"})
	}

	nav := NavigatorFrom(c)
	if nav == nil {
		nav = NewNavigator(c.Request())
	}
	// An earlier navigation, such as the sign-out after a rejected role
	// fetch, wins over the guard's own.
	nav.Replace(d.Redirect, d.Nav)
	if ok, err := redirectPending(c, nav); ok {
		return err
	}
	return c.NoContent(http.StatusSeeOther)
}

// guardSession avoids handing the guard a typed-nil interface.
func guardSession(c echo.Context) service.GuardSession {
	if s := SessionFrom(c); s != nil {
		return s
	}
	return nil
}

// IdentityFrom returns the identity admitted by a guard.
func IdentityFrom(c echo.Context) (domain.Identity, bool) {
	id, ok := c.Get(KeyIdentity).(domain.Identity)
	return id, ok
}

// RoleFrom returns the role resolved by RequireRole.
func RoleFrom(c echo.Context) domain.Role {
	r, ok := c.Get(KeyRole).(domain.Role)
	if !ok {
		return domain.DefaultRole
	}
	return r
}
