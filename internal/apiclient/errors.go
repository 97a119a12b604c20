package apiclient

import (
	"fmt"
	"net/http"

	"github.com/decorhub/storefront/internal/core/domain"
)

// Error is a non-2xx backend response. It unwraps to the domain sentinel for
// the status class, when there is one.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the backend's own explanation, when the body carried one.
	Message string
	Body    []byte
	kind    error
}

func newError(method, path string, status int, body []byte) *Error {
	return &Error{
		Method:     method,
		Path:       path,
		StatusCode: status,
		Message:    extractMessage(body),
		Body:       body,
		kind:       classify(status),
	}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("backend %s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

func (e *Error) Unwrap() error { return e.kind }

// classify maps a status code to a domain sentinel. Statuses without one are
// left for the caller to interpret.
func classify(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case status == http.StatusForbidden:
		return domain.ErrForbidden
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	case status >= 500:
		return domain.ErrServer
	}
	return nil
}
