package repository

import (
	"context"

	"telegram-fieldops-dispatch/internal/domain/model"
)

// -----------------------------
// Technicians
// -----------------------------

type TechnicianRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Technician) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Technician, error)
	FindByChatID(ctx context.Context, tx Tx, chatID int64) (*model.Technician, error)
	FindByPhone(ctx context.Context, tx Tx, phone string) (*model.Technician, error)
	// ListActiveWithChat returns active technicians that have a linked chat,
	// i.e. the dispatchable technician pool.
	ListActiveWithChat(ctx context.Context, tx Tx) ([]*model.Technician, error)
	Count(ctx context.Context, tx Tx) (int, error)
}

// -----------------------------
// Admin users
// -----------------------------

type AdminRepository interface {
	Save(ctx context.Context, tx Tx, a *model.AdminUser) error
	FindByChatID(ctx context.Context, tx Tx, chatID int64) (*model.AdminUser, error)
	FindByUsername(ctx context.Context, tx Tx, username string) (*model.AdminUser, error)
	ListWithChat(ctx context.Context, tx Tx) ([]*model.AdminUser, error)
}
