// Package ui holds the presentation ports used by the payment desk actions and
// the adapters that render them on a terminal or record them for HTTP replies.
package ui

import "context"

// Indicator is the colour attached to a notice.
type Indicator string

const (
	Green Indicator = "green"
	Red   Indicator = "red"
)

// Notice is a short alert shown after an action resolves.
type Notice struct {
	Message   string    `json:"message"`
	Indicator Indicator `json:"indicator"`
}

// Notifier displays notices.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Reloader refreshes the record currently on screen.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Navigator moves the user to another location.
type Navigator interface {
	Navigate(ctx context.Context, target string)
}

// Printer shows a blocking message to the user.
type Printer interface {
	Print(ctx context.Context, msg string)
}
