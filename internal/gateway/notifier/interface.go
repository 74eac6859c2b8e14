package notifier

import "context"

// TextNotifier defines a minimal text notification interface.
// It is intentionally small so different components can depend on it without
// importing concrete implementations (e.g. Telegram).
type TextNotifier interface {
	SendText(ctx context.Context, text string) error
}

// Nop discards every message; used when Telegram is not configured.
type Nop struct{}

func (Nop) SendText(context.Context, string) error { return nil }
