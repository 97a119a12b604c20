package middleware

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/decorhub/storefront/internal/core/domain"
	"github.com/decorhub/storefront/internal/core/ports"
)

const (
	flashCookie     = "decorhub_flash"
	maxFlashNotices = 5
)

// Flash is a Notifier that queues toasts in a cookie until the next page
// render takes them.
type Flash struct {
	c      echo.Context
	secure bool

	mu      sync.Mutex
	pending []domain.Notice
}

var _ ports.Notifier = (*Flash)(nil)

// NewFlash loads the notices left by earlier requests.
func NewFlash(c echo.Context, secure bool) *Flash {
	f := &Flash{c: c, secure: secure}
	if ck, err := c.Cookie(flashCookie); err == nil {
		f.pending = decodeFlash(ck.Value)
	}
	return f
}

func (f *Flash) Notify(level domain.NoticeLevel, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, domain.Notice{Level: level, Message: message})
	if len(f.pending) > maxFlashNotices {
		f.pending = f.pending[len(f.pending)-maxFlashNotices:]
	}
	f.write()
}

// Take returns every queued notice and clears the queue.
func (f *Flash) Take() []domain.Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.pending
	f.pending = nil
	if out != nil {
		f.write()
	}
	return out
}

// write must be called with mu held.
func (f *Flash) write() {
	ck := &http.Cookie{
		Name:     flashCookie,
		Path:     "/",
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if len(f.pending) == 0 {
		ck.MaxAge = -1
	} else {
		ck.Value = encodeFlash(f.pending)
	}
	f.c.SetCookie(ck)
}

func encodeFlash(notices []domain.Notice) string {
	b, err := json.Marshal(notices)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeFlash(v string) []domain.Notice {
	b, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return nil
	}
	var notices []domain.Notice
	if json.Unmarshal(b, &notices) != nil {
		return nil
	}
	return notices
}
