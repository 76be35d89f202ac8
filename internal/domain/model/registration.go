package model

import (
	"time"

	"github.com/google/uuid"
)

type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "PENDING"
	RegistrationApproved RegistrationStatus = "APPROVED"
	RegistrationRejected RegistrationStatus = "REJECTED"
)

// Registration is a technician onboarding request awaiting admin review.
// At most one PENDING registration may exist per phone across all chats.
type Registration struct {
	ID           string
	ChatID       int64
	FullName     string
	Phone        string
	Status       RegistrationStatus
	RejectReason string
	CreatedAt    time.Time
	ResolvedAt   *time.Time
}

func NewRegistration(chatID int64, fullName, phone string) *Registration {
	return &Registration{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		FullName:  fullName,
		Phone:     NormalizePhone(phone),
		Status:    RegistrationPending,
		CreatedAt: time.Now(),
	}
}

// Reopen resets a rejected registration back to PENDING in place. This is
// the single allowed reopen after a rejection; metadata from the rejection
// cycle is cleared.
func (r *Registration) Reopen(fullName, phone string) {
	r.Status = RegistrationPending
	r.RejectReason = ""
	r.ResolvedAt = nil
	r.FullName = fullName
	r.Phone = NormalizePhone(phone)
	r.CreatedAt = time.Now()
}

func (r *Registration) Resolve(status RegistrationStatus, reason string) {
	now := time.Now()
	r.Status = status
	r.RejectReason = reason
	r.ResolvedAt = &now
}
