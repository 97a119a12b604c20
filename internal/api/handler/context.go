package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/decorhub/storefront/internal/api/middleware"
	"github.com/decorhub/storefront/internal/apiclient"
	"github.com/decorhub/storefront/internal/core/domain"
)

// page is the envelope of every rendered view. Flash carries the toasts
// queued since the last render.
type page struct {
	Data  any             `json:"data,omitempty"`
	Flash []domain.Notice `json:"flash,omitempty"`
}

func render(c echo.Context, code int, data any) error {
	p := page{Data: data}
	if f := middleware.FlashFrom(c); f != nil {
		p.Flash = f.Take()
	}
	return c.JSON(code, p)
}

func notify(c echo.Context, level domain.NoticeLevel, msg string) {
	if f := middleware.FlashFrom(c); f != nil {
		f.Notify(level, msg)
	}
}

// bindValid binds the request into req and validates it.
func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

// ctxIdentity returns the identity admitted by the route guard. Its absence
// means the route was registered without one.
func ctxIdentity(c echo.Context) (domain.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return domain.Identity{}, domain.ErrNotSignedIn
	}
	return id, nil
}

func ctxCaller(c echo.Context) (*apiclient.Caller, error) {
	caller := middleware.CallerFrom(c)
	if caller == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "request is not bound to a session")
	}
	return caller, nil
}
