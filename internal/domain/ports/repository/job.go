package repository

import (
	"context"
	"time"

	"telegram-fieldops-dispatch/internal/domain/model"
)

// -----------------------------
// Jobs
// -----------------------------

// JobRepository is the narrow adapter over the job store. The store is the
// single source of truth; UpdateStatus is conditional so a claim race
// resolves to exactly one winner.
type JobRepository interface {
	Save(ctx context.Context, tx Tx, j *model.Job) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Job, error)
	FindByNumber(ctx context.Context, tx Tx, number string) (*model.Job, error)
	// UpdateStatus sets the status only when the current value matches
	// expected. It returns domain.ErrStateConflict when it does not.
	UpdateStatus(ctx context.Context, tx Tx, id string, expected, next model.JobStatus) error
	// ListOlderThan returns non-terminal jobs in the given statuses created
	// before the cutoff. Used by the reminder sweep.
	ListOlderThan(ctx context.Context, tx Tx, cutoff time.Time, statuses []model.JobStatus) ([]*model.Job, error)
}

// -----------------------------
// Assignments
// -----------------------------

type AssignmentRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Assignment) error
	ListByJob(ctx context.Context, tx Tx, jobID string) ([]*model.Assignment, error)
	ListByTechnician(ctx context.Context, tx Tx, technicianID string) ([]*model.Assignment, error)
	Find(ctx context.Context, tx Tx, jobID, technicianID string) (*model.Assignment, error)
	CountActive(ctx context.Context, tx Tx, jobID string) (int, error)
	// ListCompletedSince returns assignments completed at or after the
	// cutoff, for the daily digest.
	ListCompletedSince(ctx context.Context, tx Tx, technicianID string, since time.Time) ([]*model.Assignment, error)
}
