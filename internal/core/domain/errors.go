package domain

import "errors"

// Identity provider failures.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailInUse          = errors.New("email already in use")
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	ErrAccountNotFound     = errors.New("account not found")
)

// Session failures.
var (
	ErrNotSignedIn = errors.New("not signed in")
	// ErrProfileSync is returned by registration when the provider account was
	// created but the backend user record could not be written.
	ErrProfileSync = errors.New("backend profile could not be created")
)

// Backend response classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("access forbidden")
	ErrNotFound     = errors.New("resource not found")
	ErrServer       = errors.New("server error")
	// ErrBadResponse marks a 2xx body that could not be decoded.
	ErrBadResponse  = errors.New("malformed backend response")
	ErrRoleFetch    = errors.New("role could not be fetched")
)

// ErrInvalidTransition is returned when a booking status change is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrInvalidFilter is returned for catalog queries that cannot be satisfied.
var ErrInvalidFilter = errors.New("invalid filter")

// ErrWeakPassword is returned by registration for passwords below the minimum length.
var ErrWeakPassword = errors.New("password too weak")
