package ports

import "github.com/decorhub/storefront/internal/core/domain"

// Navigator moves the browser to another page, replacing the current history
// entry.
type Navigator interface {
	Replace(path string, state domain.NavState)
	CurrentPath() string
}

// Notifier queues a transient notification for the user.
type Notifier interface {
	Notify(level domain.NoticeLevel, message string)
}
