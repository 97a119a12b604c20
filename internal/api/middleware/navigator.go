package middleware

import (
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/decorhub/storefront/internal/core/domain"
	"github.com/decorhub/storefront/internal/core/ports"
)

// Navigator records the first navigation requested while serving one
// request. The session middleware turns it into a 303 once the handler
// returns.
type Navigator struct {
	current string

	mu     sync.Mutex
	target string
	state  domain.NavState
}

var _ ports.Navigator = (*Navigator)(nil)

func NewNavigator(r *http.Request) *Navigator {
	return &Navigator{current: r.URL.RequestURI()}
}

// Replace records path as the destination. Later calls are ignored.
func (n *Navigator) Replace(path string, state domain.NavState) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.target != "" {
		return
	}
	n.target = path
	n.state = state
}

func (n *Navigator) CurrentPath() string { return n.current }

// Location returns the redirect URL, if any navigation was requested. The
// sign-in page receives the originating path as ?next=.
func (n *Navigator) Location() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.target == "" {
		return "", false
	}
	if n.target == domain.PathLogin && n.state.From != "" {
		return n.target + "?next=" + url.QueryEscape(n.state.From), true
	}
	return n.target, true
}

// redirectPending writes the recorded navigation. It reports false when there
// is none or the response is already on the wire.
func redirectPending(c echo.Context, nav *Navigator) (bool, error) {
	loc, ok := nav.Location()
	if !ok || c.Response().Committed {
		return false, nil
	}
	return true, c.Redirect(http.StatusSeeOther, loc)
}

// SafeNext returns next when it is a local absolute path and fallback
// otherwise.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return fallback
	}
	return next
}
