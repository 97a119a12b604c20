package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/decorhub/storefront/internal/api/middleware"
	"github.com/decorhub/storefront/internal/core/domain"
	"github.com/decorhub/storefront/internal/core/service"
)

// Auth page messages.
const (
	MsgSignedIn       = "Signed in successfully"
	MsgRegistered     = "Account created successfully"
	MsgRegisterFailed = "Registration failed, please try again"
	MsgSignedOut      = "You have been signed out"
	MsgProfileUpdated = "Profile updated"
)

type AuthHandler struct {
	log zerolog.Logger
}

func NewAuthHandler(log zerolog.Logger) *AuthHandler {
	return &AuthHandler{log: log}
}

type loginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
	Next     string `json:"next" form:"next" query:"next"`
}

type registerRequest struct {
	Name     string `json:"name" form:"name" validate:"required,max=80"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
	PhotoURL string `json:"photo_url" form:"photo_url" validate:"omitempty,url"`
	Next     string `json:"next" form:"next" query:"next"`
}

type profileRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,min=1,max=80"`
	PhotoURL    *string `json:"photo_url" validate:"omitempty,url"`
}

type loginPage struct {
	SignedIn bool             `json:"signed_in"`
	Identity *domain.Identity `json:"identity,omitempty"`
	Next     string           `json:"next"`
}

type authResponse struct {
	Identity domain.Identity `json:"identity"`
	Redirect string          `json:"redirect"`
}

func sessionStore(c echo.Context) (*service.SessionStore, error) {
	s := middleware.SessionFrom(c)
	if s == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "request is not bound to a session")
	}
	return s, nil
}

// LoginPage handles GET /login.
//
// @Summary      Sign-in page
// @Tags         auth
// @Produce      json
// @Param        next  query     string  false  "Path to return to after signing in"
// @Success      200   {object}  loginPage
// @Router       /login [get]
func (h *AuthHandler) LoginPage(c echo.Context) error {
	store, err := sessionStore(c)
	if err != nil {
		return err
	}
	p := loginPage{Next: middleware.SafeNext(c.QueryParam("next"), domain.PathHome)}
	if id, ok := store.Current(); ok {
		p.SignedIn, p.Identity = true, &id
	}
	return render(c, http.StatusOK, p)
}

// Login handles POST /login.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	store, err := sessionStore(c)
	if err != nil {
		return err
	}

	id, err := store.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	notify(c, domain.NoticeSuccess, MsgSignedIn)
	return render(c, http.StatusOK, authResponse{
		Identity: id,
		Redirect: middleware.SafeNext(req.Next, domain.PathHome),
	})
}

// Register handles POST /register.
//
// @Summary      Create an account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	store, err := sessionStore(c)
	if err != nil {
		return err
	}

	profile := domain.ProfilePatch{DisplayName: &req.Name}
	if req.PhotoURL != "" {
		profile.PhotoURL = &req.PhotoURL
	}

	id, err := store.Register(c.Request().Context(), req.Email, req.Password, profile)
	if err != nil {
		if errors.Is(err, domain.ErrProfileSync) {
			notify(c, domain.NoticeError, MsgRegisterFailed)
		}
		return err
	}

	notify(c, domain.NoticeSuccess, MsgRegistered)
	return render(c, http.StatusCreated, authResponse{
		Identity: id,
		Redirect: middleware.SafeNext(req.Next, domain.PathHome),
	})
}

// Logout handles POST /logout.
//
// @Summary      Sign out
// @Tags         auth
// @Success      303
// @Router       /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	store, err := sessionStore(c)
	if err != nil {
		return err
	}
	if _, err := store.SignOut(c.Request().Context()); err != nil {
		// The local identity is already cleared.
		h.log.Warn().Err(err).Msg("sign-out incomplete")
	}
	notify(c, domain.NoticeInfo, MsgSignedOut)
	return c.Redirect(http.StatusSeeOther, domain.PathHome)
}

// UpdateProfile handles PATCH /profile.
//
// @Summary      Update display name and photo
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      profileRequest  true  "Fields to change"
// @Success      200   {object}  domain.Identity
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /profile [patch]
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	var req profileRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	store, err := sessionStore(c)
	if err != nil {
		return err
	}

	id, err := store.UpdateProfile(c.Request().Context(), domain.ProfilePatch{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		return err
	}
	notify(c, domain.NoticeSuccess, MsgProfileUpdated)
	return render(c, http.StatusOK, id)
}
