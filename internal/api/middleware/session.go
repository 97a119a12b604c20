package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/decorhub/storefront/internal/apiclient"
	"github.com/decorhub/storefront/internal/core/service"
)

// Context keys set by Session and Guard.
const (
	KeySession   = "session"
	KeyCaller    = "caller"
	KeyNavigator = "navigator"
	KeyFlash     = "flash"
	KeyIdentity  = "identity"
	KeyRole      = "role"
)

// SessionConfig controls the browser session cookie.
type SessionConfig struct {
	CookieName string
	Secure     bool
	TTL        time.Duration
}

// Session binds every request to its browser's SessionStore and to a Caller
// attached to that store. A navigation requested while the handler runs
// takes precedence over whatever the handler returned.
func Session(reg *service.SessionRegistry, client *apiclient.Client, cfg SessionConfig, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid := sessionID(c, cfg)

			store, err := reg.Open(c.Request().Context(), sid)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "sessions unavailable")
			}
			defer reg.Release(store)

			nav := NewNavigator(c.Request())
			flash := NewFlash(c, cfg.Secure)
			caller, detach := client.Attach(apiclient.Scope{
				Session:   store,
				Navigator: nav,
				Notifier:  flash,
			})
			defer detach()

			c.Set(KeySession, store)
			c.Set(KeyCaller, caller)
			c.Set(KeyNavigator, nav)
			c.Set(KeyFlash, flash)
			c.SetRequest(c.Request().WithContext(apiclient.NewContext(c.Request().Context(), caller)))

			herr := next(c)

			redirected, rerr := redirectPending(c, nav)
			if redirected {
				if herr != nil {
					log.Debug().Err(herr).Str("path", c.Path()).Msg("handler error superseded by navigation")
				}
				return rerr
			}
			return herr
		}
	}
}

func sessionID(c echo.Context, cfg SessionConfig) string {
	if ck, err := c.Cookie(cfg.CookieName); err == nil {
		if _, err := uuid.Parse(ck.Value); err == nil {
			return ck.Value
		}
	}
	sid := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     cfg.CookieName,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sid
}

// SessionFrom returns the request's session store.
func SessionFrom(c echo.Context) *service.SessionStore {
	s, _ := c.Get(KeySession).(*service.SessionStore)
	return s
}

// CallerFrom returns the request's backend caller.
func CallerFrom(c echo.Context) *apiclient.Caller {
	caller, _ := c.Get(KeyCaller).(*apiclient.Caller)
	return caller
}

// FlashFrom returns the request's notifier.
func FlashFrom(c echo.Context) *Flash {
	f, _ := c.Get(KeyFlash).(*Flash)
	return f
}

// NavigatorFrom returns the request's navigator.
func NavigatorFrom(c echo.Context) *Navigator {
	n, _ := c.Get(KeyNavigator).(*Navigator)
	return n
}
