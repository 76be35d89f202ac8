package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"telegram-fieldops-dispatch/internal/domain"
)

// Technician is a field worker eligible to claim jobs. ChatID links the
// technician to a chat handle; zero means no chat is linked yet.
type Technician struct {
	ID          string
	FullName    string
	Phone       string
	ChatID      int64
	IsActive    bool
	IsAvailable bool
	CreatedAt   time.Time
}

func NewTechnician(id, fullName, phone string, chatID int64) (*Technician, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if strings.TrimSpace(fullName) == "" || strings.TrimSpace(phone) == "" {
		return nil, domain.ErrValidation
	}
	return &Technician{
		ID:          id,
		FullName:    fullName,
		Phone:       NormalizePhone(phone),
		ChatID:      chatID,
		IsActive:    true,
		IsAvailable: true,
		CreatedAt:   time.Now(),
	}, nil
}

func (t *Technician) HasChat() bool { return t.ChatID != 0 }

// NormalizePhone strips spaces and dashes so phone equality checks are
// stable across input sources.
func NormalizePhone(phone string) string {
	r := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	p := r.Replace(strings.TrimSpace(phone))
	if strings.HasPrefix(p, "00") {
		p = "+" + p[2:]
	}
	return p
}
