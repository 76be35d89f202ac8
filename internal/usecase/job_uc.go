package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"telegram-fieldops-dispatch/internal/domain"
	"telegram-fieldops-dispatch/internal/domain/model"
	"telegram-fieldops-dispatch/internal/domain/ports/repository"
	"telegram-fieldops-dispatch/internal/infra/logging"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ JobUseCase = (*jobUC)(nil)

// CreateJobParams is the input from the surrounding CRUD layer.
type CreateJobParams struct {
	Kind        string `validate:"required,oneof=INSTALLATION REPAIR"`
	SubCategory string `validate:"max=64"`
	Address     string `validate:"required,min=5"`
	CustomerRef string `validate:"required"`
}

// JobUseCase owns the approval side of the job lifecycle and the dispatch
// triggers the CRUD layer calls (onJobCreated / onJobApproved). Dispatch
// results are returned to the caller but never gate job persistence.
type JobUseCase interface {
	Create(ctx context.Context, p CreateJobParams) (*model.Job, *model.DispatchResult, error)
	Approve(ctx context.Context, jobID string) (*model.Job, *model.DispatchResult, error)
	Reject(ctx context.Context, jobID, reason string) (*model.Job, error)
	Cancel(ctx context.Context, jobID, reason string) (*model.Job, error)
	Get(ctx context.Context, jobID string) (*model.Job, error)
	GetByNumber(ctx context.Context, number string) (*model.Job, error)
}

type jobUC struct {
	jobs            repository.JobRepository
	assignmentUC    AssignmentUseCase
	dispatchUC      DispatchUseCase
	requireApproval bool
	validate        *validator.Validate
	log             *zerolog.Logger
}

func NewJobUseCase(
	jobs repository.JobRepository,
	assignmentUC AssignmentUseCase,
	dispatchUC DispatchUseCase,
	requireApproval bool,
	logger *zerolog.Logger,
) *jobUC {
	compLog := logger.With().Str("component", "JobUC").Logger()
	return &jobUC{
		jobs:            jobs,
		assignmentUC:    assignmentUC,
		dispatchUC:      dispatchUC,
		requireApproval: requireApproval,
		validate:        validator.New(),
		log:             &compLog,
	}
}

// Create persists a new job. With require_approval off the job is approved
// immediately and dispatched right away; otherwise it waits for an explicit
// Approve call before technicians hear about it.
func (u *jobUC) Create(ctx context.Context, p CreateJobParams) (*model.Job, *model.DispatchResult, error) {
	defer logging.TraceDuration(u.log, "JobUC.Create")()

	if err := u.validate.Struct(p); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	approved := !u.requireApproval
	job, err := model.NewJob("", newJobNumber(), model.JobKind(strings.ToUpper(p.Kind)), p.SubCategory, p.Address, p.CustomerRef, approved)
	if err != nil {
		return nil, nil, err
	}
	if err := u.jobs.Save(ctx, repository.NoTX, job); err != nil {
		return nil, nil, fmt.Errorf("save job: %w", err)
	}
	u.log.Info().Str("job_id", job.ID).Str("number", job.Number).Str("kind", string(job.Kind)).Bool("approved", approved).Msg("job created")

	var res *model.DispatchResult
	if approved {
		res = u.dispatchUC.Dispatch(ctx, job)
	}
	return job, res, nil
}

// Approve moves a pending job to APPROVED and dispatches it.
func (u *jobUC) Approve(ctx context.Context, jobID string) (*model.Job, *model.DispatchResult, error) {
	defer logging.TraceDuration(u.log, "JobUC.Approve")()

	job, err := u.jobs.FindByID(ctx, repository.NoTX, jobID)
	if err != nil {
		return nil, nil, err
	}
	if job.ApprovalStatus != model.ApprovalPending {
		return nil, nil, domain.ErrStateConflict
	}
	now := time.Now()
	job.ApprovalStatus = model.ApprovalApproved
	job.ApprovedAt = &now
	if err := u.jobs.Save(ctx, repository.NoTX, job); err != nil {
		return nil, nil, fmt.Errorf("save job: %w", err)
	}

	res := u.dispatchUC.Dispatch(ctx, job)
	return job, res, nil
}

// Reject marks a pending job REJECTED and cancels the linked OPEN job so it
// can never be claimed.
func (u *jobUC) Reject(ctx context.Context, jobID, reason string) (*model.Job, error) {
	defer logging.TraceDuration(u.log, "JobUC.Reject")()

	job, err := u.jobs.FindByID(ctx, repository.NoTX, jobID)
	if err != nil {
		return nil, err
	}
	if job.ApprovalStatus != model.ApprovalPending {
		return nil, domain.ErrStateConflict
	}
	job.ApprovalStatus = model.ApprovalRejected
	if err := u.jobs.Save(ctx, repository.NoTX, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	if job.Status == model.JobStatusOpen {
		return u.assignmentUC.Cancel(ctx, jobID, "approval rejected: "+reason)
	}
	return job, nil
}

func (u *jobUC) Cancel(ctx context.Context, jobID, reason string) (*model.Job, error) {
	defer logging.TraceDuration(u.log, "JobUC.Cancel")()
	return u.assignmentUC.Cancel(ctx, jobID, reason)
}

func (u *jobUC) Get(ctx context.Context, jobID string) (*model.Job, error) {
	return u.jobs.FindByID(ctx, repository.NoTX, jobID)
}

func (u *jobUC) GetByNumber(ctx context.Context, number string) (*model.Job, error) {
	return u.jobs.FindByNumber(ctx, repository.NoTX, strings.ToUpper(strings.TrimSpace(number)))
}

// newJobNumber makes a short sortable human-readable job number.
func newJobNumber() string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
	s := id.String()
	return "J-" + s[len(s)-8:]
}
