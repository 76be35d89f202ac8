package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-fieldops-dispatch/internal/domain/ports/adapter"
)

var (
	_ adapter.MessengerAdapter = (*RealMessengerAdapter)(nil)
	_ adapter.MessengerAdapter = (*NoOpMessengerAdapter)(nil)
)

// NoOpMessengerAdapter logs outgoing messages instead of delivering them.
// Used in dev mode when no bot token is wired up.
type NoOpMessengerAdapter struct {
	log *zerolog.Logger
}

func NewNoOpMessengerAdapter(logger *zerolog.Logger) *NoOpMessengerAdapter {
	compLog := logger.With().Str("component", "NoOpMessenger").Logger()
	return &NoOpMessengerAdapter{log: &compLog}
}

func (n *NoOpMessengerAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	n.log.Info().Int64("chat_id", chatID).Str("text", text).Msg("send (noop)")
	return nil
}

func (n *NoOpMessengerAdapter) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	n.log.Info().Int64("chat_id", chatID).Str("text", text).Int("rows", len(rows)).Msg("send buttons (noop)")
	return nil
}
