package model

import (
	"time"

	"github.com/google/uuid"
)

type AdminRole string

const (
	RoleAdmin      AdminRole = "admin"
	RoleSuperAdmin AdminRole = "superadmin"
)

// AdminUser is a back-office operator. A chat handle identifies at most one
// AdminUser or one Technician, never both.
type AdminUser struct {
	ID        string
	Username  string
	Role      AdminRole
	ChatID    int64
	CreatedAt time.Time
}

func NewAdminUser(username string, role AdminRole) *AdminUser {
	if role == "" {
		role = RoleAdmin
	}
	return &AdminUser{
		ID:        uuid.NewString(),
		Username:  username,
		Role:      role,
		CreatedAt: time.Now(),
	}
}

func (a *AdminUser) HasChat() bool { return a.ChatID != 0 }
