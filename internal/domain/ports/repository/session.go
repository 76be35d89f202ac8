package repository

import (
	"context"
)

// SessionStep identifies where a chat is inside a multi-step flow.
type SessionStep string

const (
	StepAwaitingPhone           SessionStep = "awaiting_phone"
	StepAwaitingContact         SessionStep = "awaiting_contact"
	StepAwaitingLoginUsername   SessionStep = "awaiting_login_username"
	StepAwaitingLoginPassword   SessionStep = "awaiting_login_password"
	StepAwaitingLoginPhone      SessionStep = "awaiting_login_phone"
	StepAwaitingBroadcastText   SessionStep = "awaiting_broadcast_text"
	StepAwaitingCompletionPhoto SessionStep = "awaiting_completion_photo"
)

// ConversationSession holds a chat's progress through a multi-step flow.
// Purely transient: loss on process restart is an accepted tradeoff of the
// in-memory implementation (a durable store is a drop-in alternative).
type ConversationSession struct {
	Step SessionStep       `json:"step"`
	Data map[string]string `json:"data"` // accumulated fields, e.g. job_id, full_name
}

// SessionStore is the port for per-chat conversational state. Sessions are
// chat-keyed; no cross-chat locking is needed.
type SessionStore interface {
	Set(ctx context.Context, chatID int64, s *ConversationSession) error
	Get(ctx context.Context, chatID int64) (*ConversationSession, error)
	Clear(ctx context.Context, chatID int64) error
}
