package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"telegram-fieldops-dispatch/internal/domain"
)

type JobKind string

const (
	JobKindInstallation JobKind = "INSTALLATION"
	JobKindRepair       JobKind = "REPAIR"
)

// SubCategorySettings is the repair sub-category routed to the admin
// audience instead of field technicians.
const SubCategorySettings = "settings issue"

type JobStatus string

const (
	JobStatusOpen       JobStatus = "OPEN"
	JobStatusAssigned   JobStatus = "ASSIGNED"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusCancelled  JobStatus = "CANCELLED"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// Job is a unit of field work tracked through approval and execution states.
// Status is mutated only through the assignment use case.
type Job struct {
	ID             string
	Number         string
	Kind           JobKind
	SubCategory    string // repair sub-category; empty for installations
	Address        string
	CustomerRef    string
	ApprovalStatus ApprovalStatus
	Status         JobStatus
	CancelReason   string
	CreatedAt      time.Time
	ApprovedAt     *time.Time
	CompletedAt    *time.Time
}

func NewJob(id, number string, kind JobKind, subCategory, address, customerRef string, approved bool) (*Job, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if kind != JobKindInstallation && kind != JobKindRepair {
		return nil, domain.ErrValidation
	}
	if strings.TrimSpace(address) == "" {
		return nil, domain.ErrValidation
	}
	j := &Job{
		ID:          id,
		Number:      number,
		Kind:        kind,
		SubCategory: strings.TrimSpace(subCategory),
		Address:     address,
		CustomerRef: customerRef,
		Status:      JobStatusOpen,
		CreatedAt:   time.Now(),
	}
	if approved {
		now := time.Now()
		j.ApprovalStatus = ApprovalApproved
		j.ApprovedAt = &now
	} else {
		j.ApprovalStatus = ApprovalPending
	}
	return j, nil
}

// Terminal reports whether the job can no longer change state.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusCancelled
}

// Claimable reports whether the job can still accept a claim.
func (j *Job) Claimable() bool {
	return j.Status == JobStatusOpen || j.Status == JobStatusAssigned
}

// RoutesToAdmins reports whether dispatch must target the admin pool.
func (j *Job) RoutesToAdmins() bool {
	return j.Kind == JobKindRepair && strings.EqualFold(j.SubCategory, SubCategorySettings)
}
