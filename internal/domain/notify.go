package domain

import "context"

// Level is the severity of a user-facing notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier surfaces transient, non-blocking messages to the user.
type Notifier interface {
	Notify(ctx context.Context, level Level, message string)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Level, string) {}
