package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"telegram-fieldops-dispatch/internal/domain"
	"telegram-fieldops-dispatch/internal/domain/model"
	"telegram-fieldops-dispatch/internal/domain/ports/repository"
	"telegram-fieldops-dispatch/internal/usecase"

	"github.com/rs/zerolog"
)

// BotFacade composes usecases into high-level chat commands. Facade methods
// return strings so the messenger adapter just forwards them to the chat.
// Free-text, contact and photo input goes through the session router first
// (session_router.go); only unmatched input falls through to command parsing.
type BotFacade struct {
	AssignmentUC   usecase.AssignmentUseCase
	JobUC          usecase.JobUseCase
	RegistrationUC usecase.RegistrationUseCase
	TechnicianUC   usecase.TechnicianUseCase
	BroadcastUC    usecase.BroadcastUseCase

	Sessions repository.SessionStore
	Admins   repository.AdminRepository

	adminPassword string
	log           *zerolog.Logger
}

func NewBotFacade(
	assignmentUC usecase.AssignmentUseCase,
	jobUC usecase.JobUseCase,
	registrationUC usecase.RegistrationUseCase,
	technicianUC usecase.TechnicianUseCase,
	broadcastUC usecase.BroadcastUseCase,
	sessions repository.SessionStore,
	admins repository.AdminRepository,
	adminPassword string,
	logger *zerolog.Logger,
) *BotFacade {
	compLog := logger.With().Str("component", "BotFacade").Logger()
	return &BotFacade{
		AssignmentUC:   assignmentUC,
		JobUC:          jobUC,
		RegistrationUC: registrationUC,
		TechnicianUC:   technicianUC,
		BroadcastUC:    broadcastUC,
		Sessions:       sessions,
		Admins:         admins,
		adminPassword:  adminPassword,
		log:            &compLog,
	}
}

// HandleStart greets the chat and drops any stale multi-step session so old
// flow state cannot leak into later input.
func (b *BotFacade) HandleStart(ctx context.Context, chatID int64) (string, error) {
	b.closeSession(ctx, chatID)

	if tech, err := b.TechnicianUC.GetByChatID(ctx, chatID); err == nil && tech != nil {
		return fmt.Sprintf("Welcome back, %s!\nUse /myjobs to see your assignments.", tech.FullName), nil
	}
	if admin, err := b.Admins.FindByChatID(ctx, repository.NoTX, chatID); err == nil && admin != nil {
		return fmt.Sprintf("Welcome back, %s (admin).", admin.Username), nil
	}
	return "Welcome to the field operations bot!\nUse /register to sign up as a technician.", nil
}

// HandleClaim processes a claim callback for a job.
func (b *BotFacade) HandleClaim(ctx context.Context, chatID int64, jobID string) (string, error) {
	tech, err := b.TechnicianUC.GetByChatID(ctx, chatID)
	if err != nil {
		return "You are not registered as a technician. Use /register first.", nil
	}
	if !tech.IsActive {
		return "Your account is deactivated. Contact an administrator.", nil
	}

	a, err := b.AssignmentUC.Claim(ctx, jobID, tech.ID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCapacityExceeded):
			return "This job already has two technicians assigned.", nil
		case errors.Is(err, domain.ErrAlreadyAssigned):
			return "You have already claimed this job.", nil
		case errors.Is(err, domain.ErrStateConflict):
			return "This job is no longer open for claims. Please try again later.", nil
		case errors.Is(err, domain.ErrNotFound):
			return "This job no longer exists.", nil
		default:
			return "", fmt.Errorf("claim job: %w", err)
		}
	}

	job, jerr := b.JobUC.Get(ctx, jobID)
	number := jobID
	if jerr == nil {
		number = job.Number
	}
	b.log.Info().Str("job_id", jobID).Str("assignment_id", a.ID).Int64("chat_id", chatID).Msg("claim accepted")
	return fmt.Sprintf("✅ Job %s is yours. Use the Start button or /startwork %s when you arrive on site.", number, number), nil
}

// HandleStartWork moves a claimed job to IN_PROGRESS.
func (b *BotFacade) HandleStartWork(ctx context.Context, chatID int64, jobID string) (string, error) {
	tech, err := b.TechnicianUC.GetByChatID(ctx, chatID)
	if err != nil {
		return "You are not registered as a technician.", nil
	}
	job, err := b.AssignmentUC.Start(ctx, jobID, tech.ID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return "You are not assigned to this job.", nil
		case errors.Is(err, domain.ErrStateConflict):
			return "This job cannot be started in its current state.", nil
		default:
			return "", fmt.Errorf("start work: %w", err)
		}
	}
	return fmt.Sprintf("🔧 Work on job %s started. Good luck!", job.Number), nil
}

// HandleRequestCompletion opens the evidence-capture step. The actual
// completion happens when the photo arrives (HandlePhoto).
func (b *BotFacade) HandleRequestCompletion(ctx context.Context, chatID int64, jobID string) (string, error) {
	tech, err := b.TechnicianUC.GetByChatID(ctx, chatID)
	if err != nil {
		return "You are not registered as a technician.", nil
	}
	asgs, err := b.AssignmentUC.ListByJob(ctx, jobID)
	if err != nil {
		return "", fmt.Errorf("list assignments: %w", err)
	}
	mine := false
	for _, a := range asgs {
		if a.TechnicianID == tech.ID {
			mine = true
			break
		}
	}
	if !mine {
		return "You are not assigned to this job.", nil
	}

	b.openSession(ctx, chatID, repository.StepAwaitingCompletionPhoto, map[string]string{"job_id": jobID})
	return "📷 Please send a photo of the completed work to close this job.", nil
}

// HandleMyJobs lists the technician's active assignments.
func (b *BotFacade) HandleMyJobs(ctx context.Context, chatID int64) (string, error) {
	tech, err := b.TechnicianUC.GetByChatID(ctx, chatID)
	if err != nil {
		return "You are not registered as a technician. Use /register first.", nil
	}
	asgs, err := b.AssignmentUC.ListByTechnician(ctx, tech.ID)
	if err != nil {
		return "", fmt.Errorf("list assignments: %w", err)
	}

	var sb strings.Builder
	n := 0
	for _, a := range asgs {
		if !a.Active() {
			continue
		}
		job, err := b.JobUC.Get(ctx, a.JobID)
		if err != nil {
			continue
		}
		n++
		sb.WriteString(fmt.Sprintf("%d) %s - %s, %s [%s]\n", n, job.Number, job.Kind, job.Address, job.Status))
	}
	if n == 0 {
		return "You have no active assignments.", nil
	}
	return "Your active jobs:\n" + sb.String(), nil
}

// HandleSetAvailability flips whether this technician receives job offers.
func (b *BotFacade) HandleSetAvailability(ctx context.Context, chatID int64, available bool) (string, error) {
	tech, err := b.TechnicianUC.GetByChatID(ctx, chatID)
	if err != nil {
		return "You are not registered as a technician. Use /register first.", nil
	}
	if _, err := b.TechnicianUC.SetAvailability(ctx, tech.ID, available); err != nil {
		return "", fmt.Errorf("set availability: %w", err)
	}
	if available {
		return "You are marked available. New job offers will reach you again.", nil
	}
	return "You are marked unavailable. You will not receive new job offers until /available.", nil
}

// HandleRegister opens the registration flow for this chat.
func (b *BotFacade) HandleRegister(ctx context.Context, chatID int64, displayName string) (string, error) {
	if tech, err := b.TechnicianUC.GetByChatID(ctx, chatID); err == nil && tech != nil && tech.IsActive {
		return "You are already registered as a technician.", nil
	}
	b.openSession(ctx, chatID, repository.StepAwaitingContact, map[string]string{"full_name": displayName})
	return "Share your contact or type your phone number to register as a technician.\nSend /cancel to abort.", nil
}

// HandleCancelFlow aborts whatever multi-step flow this chat has open.
func (b *BotFacade) HandleCancelFlow(ctx context.Context, chatID int64) (string, error) {
	if s, _ := b.Sessions.Get(ctx, chatID); s == nil {
		return "Nothing to cancel.", nil
	}
	b.closeSession(ctx, chatID)
	return "Cancelled.", nil
}

// HandleLogin opens the admin login flow.
func (b *BotFacade) HandleLogin(ctx context.Context, chatID int64) (string, error) {
	b.openSession(ctx, chatID, repository.StepAwaitingLoginUsername, nil)
	return "Admin login. Enter your username:", nil
}

// HandleBroadcastPrompt opens broadcast composition (admins only).
func (b *BotFacade) HandleBroadcastPrompt(ctx context.Context, chatID int64) (string, error) {
	if !b.IsAdminChat(ctx, chatID) {
		return "You are not authorized to use this command.", nil
	}
	b.openSession(ctx, chatID, repository.StepAwaitingBroadcastText, nil)
	return "Enter the message to broadcast to all active technicians:", nil
}

// HandlePendingRegistrations lists reviewable registrations (admins only).
func (b *BotFacade) HandlePendingRegistrations(ctx context.Context, chatID int64) (string, []*model.Registration, error) {
	if !b.IsAdminChat(ctx, chatID) {
		return "You are not authorized to use this command.", nil, nil
	}
	regs, err := b.RegistrationUC.ListPending(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("list pending registrations: %w", err)
	}
	if len(regs) == 0 {
		return "No pending registrations.", nil, nil
	}
	var sb strings.Builder
	sb.WriteString("Pending registrations:\n")
	for i, r := range regs {
		sb.WriteString(fmt.Sprintf("%d) %s - %s\n", i+1, r.FullName, r.Phone))
	}
	return sb.String(), regs, nil
}

// HandleApproveRegistration approves a registration (admins only).
func (b *BotFacade) HandleApproveRegistration(ctx context.Context, chatID int64, registrationID string) (string, error) {
	if !b.IsAdminChat(ctx, chatID) {
		return "You are not authorized to use this command.", nil
	}
	tech, err := b.RegistrationUC.Approve(ctx, registrationID, "", "")
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return "Registration not found.", nil
		case errors.Is(err, domain.ErrStateConflict):
			return "This registration was already resolved.", nil
		default:
			return "", fmt.Errorf("approve registration: %w", err)
		}
	}
	return fmt.Sprintf("✅ Approved. %s is now an active technician.", tech.FullName), nil
}

// HandleRejectRegistration rejects a registration with a reason (admins only).
func (b *BotFacade) HandleRejectRegistration(ctx context.Context, chatID int64, registrationID, reason string) (string, error) {
	if !b.IsAdminChat(ctx, chatID) {
		return "You are not authorized to use this command.", nil
	}
	if _, err := b.RegistrationUC.Reject(ctx, registrationID, reason); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return "Registration not found.", nil
		case errors.Is(err, domain.ErrStateConflict):
			return "This registration was already resolved.", nil
		default:
			return "", fmt.Errorf("reject registration: %w", err)
		}
	}
	return "Registration rejected. The applicant has been notified.", nil
}

// IsAdminChat reports whether this chat belongs to a linked AdminUser.
func (b *BotFacade) IsAdminChat(ctx context.Context, chatID int64) bool {
	admin, err := b.Admins.FindByChatID(ctx, repository.NoTX, chatID)
	return err == nil && admin != nil
}
