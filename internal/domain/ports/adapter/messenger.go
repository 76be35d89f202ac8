// File: internal/domain/ports/adapter/messenger.go
package adapter

import "context"

type InlineButton struct {
	Text string
	Data string
	URL  string
}

// MessengerAdapter is the narrow gateway the core uses to reach the chat
// platform. Reconnect/backoff on transport conflicts is the gateway's
// concern; the core only sends.
type MessengerAdapter interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendButtons(ctx context.Context, chatID int64, text string, rows [][]InlineButton) error
}
