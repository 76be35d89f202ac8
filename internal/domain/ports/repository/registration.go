package repository

import (
	"context"

	"telegram-fieldops-dispatch/internal/domain/model"
)

// -----------------------------
// Registrations
// -----------------------------

type RegistrationRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Registration) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Registration, error)
	// FindPendingByChat returns the open registration for a chat, if any.
	// A chat holds at most one non-terminal registration at a time.
	FindPendingByChat(ctx context.Context, tx Tx, chatID int64) (*model.Registration, error)
	// FindPendingByPhone enforces the phone-uniqueness-among-pending invariant.
	FindPendingByPhone(ctx context.Context, tx Tx, phone string) (*model.Registration, error)
	FindRejectedByChat(ctx context.Context, tx Tx, chatID int64) (*model.Registration, error)
	ListPending(ctx context.Context, tx Tx) ([]*model.Registration, error)
}
