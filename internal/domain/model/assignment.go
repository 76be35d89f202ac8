package model

import (
	"time"

	"github.com/google/uuid"
)

// Assignment binds one technician to one job. A technician appears at most
// once per job; a job holds at most domain.MaxAssignmentsPerJob active rows.
type Assignment struct {
	ID           string
	JobID        string
	TechnicianID string
	AcceptedAt   time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	EvidenceRef  string
}

func NewAssignment(jobID, technicianID string) *Assignment {
	return &Assignment{
		ID:           uuid.NewString(),
		JobID:        jobID,
		TechnicianID: technicianID,
		AcceptedAt:   time.Now(),
	}
}

// Active reports whether the assignment still counts against job capacity.
func (a *Assignment) Active() bool { return a.CompletedAt == nil }
