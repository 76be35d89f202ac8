package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telegram-fieldops-dispatch/internal/domain"
	"telegram-fieldops-dispatch/internal/domain/model"
	"telegram-fieldops-dispatch/internal/domain/ports/repository"
	"telegram-fieldops-dispatch/internal/infra/logging"
	"telegram-fieldops-dispatch/internal/infra/metrics"
	"telegram-fieldops-dispatch/internal/usecase/joblock"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ AssignmentUseCase = (*assignmentUC)(nil)

// AssignmentUseCase enforces per-job capacity and legal state transitions.
// All operations on one job id are serialized through a per-job lock with a
// bounded acquire, so a claim race for the last slot resolves to exactly
// one winner.
type AssignmentUseCase interface {
	Claim(ctx context.Context, jobID, technicianID string) (*model.Assignment, error)
	Start(ctx context.Context, jobID, technicianID string) (*model.Job, error)
	Complete(ctx context.Context, jobID, technicianID, evidenceRef string) (*model.Job, error)
	Cancel(ctx context.Context, jobID, reason string) (*model.Job, error)
	ListByTechnician(ctx context.Context, technicianID string) ([]*model.Assignment, error)
	ListByJob(ctx context.Context, jobID string) ([]*model.Assignment, error)
}

type assignmentUC struct {
	jobs        repository.JobRepository
	assignments repository.AssignmentRepository
	locks       *joblock.Keyed
	log         *zerolog.Logger
}

func NewAssignmentUseCase(
	jobs repository.JobRepository,
	assignments repository.AssignmentRepository,
	locks *joblock.Keyed,
	logger *zerolog.Logger,
) *assignmentUC {
	compLog := logger.With().Str("component", "AssignmentUC").Logger()
	return &assignmentUC{
		jobs:        jobs,
		assignments: assignments,
		locks:       locks,
		log:         &compLog,
	}
}

// Claim inserts an assignment for the technician if the job is still
// claimable and below capacity. The loser of a race for the last slot gets
// domain.ErrCapacityExceeded and no state changes.
func (u *assignmentUC) Claim(ctx context.Context, jobID, technicianID string) (*model.Assignment, error) {
	defer logging.TraceDuration(u.log, "AssignmentUC.Claim")()

	release, err := u.locks.Acquire(ctx, jobID)
	if err != nil {
		metrics.ObserveClaim("lock_timeout")
		return nil, err
	}
	defer release()

	job, err := u.jobs.FindByID(ctx, repository.NoTX, jobID)
	if err != nil {
		return nil, err
	}
	if job.ApprovalStatus != model.ApprovalApproved {
		metrics.ObserveClaim("not_approved")
		return nil, domain.ErrStateConflict
	}
	if !job.Claimable() {
		metrics.ObserveClaim("state_conflict")
		return nil, domain.ErrStateConflict
	}

	if existing, err := u.assignments.Find(ctx, repository.NoTX, jobID, technicianID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	} else if existing != nil {
		metrics.ObserveClaim("already_assigned")
		return nil, domain.ErrAlreadyAssigned
	}

	active, err := u.assignments.CountActive(ctx, repository.NoTX, jobID)
	if err != nil {
		return nil, err
	}
	if active >= domain.MaxAssignmentsPerJob {
		metrics.ObserveClaim("capacity")
		return nil, domain.ErrCapacityExceeded
	}

	a := model.NewAssignment(jobID, technicianID)
	if err := u.assignments.Save(ctx, repository.NoTX, a); err != nil {
		return nil, fmt.Errorf("save assignment: %w", err)
	}

	// First claim moves the job out of OPEN.
	if job.Status == model.JobStatusOpen {
		if err := u.jobs.UpdateStatus(ctx, repository.NoTX, jobID, model.JobStatusOpen, model.JobStatusAssigned); err != nil {
			return nil, err
		}
	}

	metrics.ObserveClaim("accepted")
	u.log.Info().Str("job_id", jobID).Str("technician_id", technicianID).Int("slot", active+1).Msg("job claimed")
	return a, nil
}

// Start marks the technician's assignment as started and moves the job to
// IN_PROGRESS. Starting an already started job is a no-op.
func (u *assignmentUC) Start(ctx context.Context, jobID, technicianID string) (*model.Job, error) {
	defer logging.TraceDuration(u.log, "AssignmentUC.Start")()

	release, err := u.locks.Acquire(ctx, jobID)
	if err != nil {
		return nil, err
	}
	defer release()

	job, err := u.jobs.FindByID(ctx, repository.NoTX, jobID)
	if err != nil {
		return nil, err
	}

	a, err := u.assignments.Find(ctx, repository.NoTX, jobID, technicianID)
	if err != nil {
		return nil, err
	}

	if job.Status == model.JobStatusInProgress {
		return job, nil
	}
	if job.Status != model.JobStatusAssigned {
		return nil, domain.ErrStateConflict
	}

	now := time.Now()
	a.StartedAt = &now
	if err := u.assignments.Save(ctx, repository.NoTX, a); err != nil {
		return nil, fmt.Errorf("save assignment: %w", err)
	}
	if err := u.jobs.UpdateStatus(ctx, repository.NoTX, jobID, model.JobStatusAssigned, model.JobStatusInProgress); err != nil {
		return nil, err
	}
	job.Status = model.JobStatusInProgress

	u.log.Info().Str("job_id", jobID).Str("technician_id", technicianID).Msg("work started")
	return job, nil
}

// Complete applies the completion gate: the job must hold a full complement
// of assignments and the request must carry a photo evidence reference.
// Completing an already completed job returns the current state, not an error.
func (u *assignmentUC) Complete(ctx context.Context, jobID, technicianID, evidenceRef string) (*model.Job, error) {
	defer logging.TraceDuration(u.log, "AssignmentUC.Complete")()

	release, err := u.locks.Acquire(ctx, jobID)
	if err != nil {
		return nil, err
	}
	defer release()

	job, err := u.jobs.FindByID(ctx, repository.NoTX, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status == model.JobStatusCompleted {
		return job, nil
	}
	if job.Status != model.JobStatusAssigned && job.Status != model.JobStatusInProgress {
		return nil, domain.ErrStateConflict
	}

	requester, err := u.assignments.Find(ctx, repository.NoTX, jobID, technicianID)
	if err != nil {
		return nil, err
	}

	if evidenceRef == "" {
		return nil, domain.NewCompletionGateError("completion photo evidence")
	}
	active, err := u.assignments.CountActive(ctx, repository.NoTX, jobID)
	if err != nil {
		return nil, err
	}
	if active != domain.MaxAssignmentsPerJob {
		return nil, domain.NewCompletionGateError(
			fmt.Sprintf("%d assigned technicians (have %d)", domain.MaxAssignmentsPerJob, active))
	}

	now := time.Now()
	requester.EvidenceRef = evidenceRef

	all, err := u.assignments.ListByJob(ctx, repository.NoTX, jobID)
	if err != nil {
		return nil, err
	}
	for _, a := range all {
		if a.CompletedAt == nil {
			a.CompletedAt = &now
		}
		if a.TechnicianID == technicianID {
			a.EvidenceRef = evidenceRef
		}
		if err := u.assignments.Save(ctx, repository.NoTX, a); err != nil {
			return nil, fmt.Errorf("save assignment: %w", err)
		}
	}

	if err := u.jobs.UpdateStatus(ctx, repository.NoTX, jobID, job.Status, model.JobStatusCompleted); err != nil {
		return nil, err
	}
	job.Status = model.JobStatusCompleted
	job.CompletedAt = &now
	if err := u.jobs.Save(ctx, repository.NoTX, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	metrics.ObserveCompletion()
	u.log.Info().Str("job_id", jobID).Str("technician_id", technicianID).Msg("job completed")
	return job, nil
}

// Cancel moves any non-terminal job to CANCELLED and records the reason.
func (u *assignmentUC) Cancel(ctx context.Context, jobID, reason string) (*model.Job, error) {
	defer logging.TraceDuration(u.log, "AssignmentUC.Cancel")()

	release, err := u.locks.Acquire(ctx, jobID)
	if err != nil {
		return nil, err
	}
	defer release()

	job, err := u.jobs.FindByID(ctx, repository.NoTX, jobID)
	if err != nil {
		return nil, err
	}
	if job.Terminal() {
		return nil, domain.ErrStateConflict
	}

	if err := u.jobs.UpdateStatus(ctx, repository.NoTX, jobID, job.Status, model.JobStatusCancelled); err != nil {
		return nil, err
	}
	job.Status = model.JobStatusCancelled
	job.CancelReason = reason
	if err := u.jobs.Save(ctx, repository.NoTX, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	u.log.Info().Str("job_id", jobID).Str("reason", reason).Msg("job cancelled")
	return job, nil
}

func (u *assignmentUC) ListByTechnician(ctx context.Context, technicianID string) ([]*model.Assignment, error) {
	return u.assignments.ListByTechnician(ctx, repository.NoTX, technicianID)
}

func (u *assignmentUC) ListByJob(ctx context.Context, jobID string) ([]*model.Assignment, error) {
	return u.assignments.ListByJob(ctx, repository.NoTX, jobID)
}
