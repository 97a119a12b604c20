package domain

// Well-known navigation targets.
const (
	PathLogin = "/login"
	PathHome  = "/"
)

// NavState travels with a redirect so the destination can send the user back.
type NavState struct {
	From string `json:"from,omitempty"`
}

// NoticeLevel classifies a transient user notification.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a one-shot toast shown on the next render.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}
