package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"telegram-fieldops-dispatch/internal/domain"
	"telegram-fieldops-dispatch/internal/domain/model"
	"telegram-fieldops-dispatch/internal/domain/ports/adapter"
	"telegram-fieldops-dispatch/internal/domain/ports/repository"
	"telegram-fieldops-dispatch/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ RegistrationUseCase = (*registrationUC)(nil)

// RegistrationOutcome tells the chat layer how a submit was resolved so it
// can phrase the reply.
type RegistrationOutcome string

const (
	OutcomeAlreadyTechnician RegistrationOutcome = "already_technician"
	OutcomeAlreadyPending    RegistrationOutcome = "already_pending"
	OutcomeReopened          RegistrationOutcome = "reopened"
	OutcomeSubmitted         RegistrationOutcome = "submitted"
)

// RegistrationUseCase runs the PENDING/APPROVED/REJECTED onboarding
// lifecycle. Submit is idempotent against resubmission and enforces the
// one-pending-registration-per-phone invariant.
type RegistrationUseCase interface {
	Submit(ctx context.Context, chatID int64, fullName, phone string) (RegistrationOutcome, *model.Registration, error)
	Approve(ctx context.Context, registrationID, fullName, phone string) (*model.Technician, error)
	Reject(ctx context.Context, registrationID, reason string) (*model.Registration, error)
	ListPending(ctx context.Context) ([]*model.Registration, error)
}

type registrationUC struct {
	registrations repository.RegistrationRepository
	technicians   repository.TechnicianRepository
	tm            repository.TransactionManager
	messenger     adapter.MessengerAdapter
	log           *zerolog.Logger
}

func NewRegistrationUseCase(
	registrations repository.RegistrationRepository,
	technicians repository.TechnicianRepository,
	tm repository.TransactionManager,
	messenger adapter.MessengerAdapter,
	logger *zerolog.Logger,
) *registrationUC {
	compLog := logger.With().Str("component", "RegistrationUC").Logger()
	return &registrationUC{
		registrations: registrations,
		technicians:   technicians,
		tm:            tm,
		messenger:     messenger,
		log:           &compLog,
	}
}

var phoneRe = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// Submit resolves a registration request to exactly one of the outcomes:
// relink an existing technician, report the already-pending request, refuse a
// phone pending under another chat, reopen this chat's rejected request, or
// create a fresh PENDING row.
func (u *registrationUC) Submit(ctx context.Context, chatID int64, fullName, phone string) (RegistrationOutcome, *model.Registration, error) {
	defer logging.TraceDuration(u.log, "RegistrationUC.Submit")()

	phone = model.NormalizePhone(phone)
	if !phoneRe.MatchString(phone) {
		return "", nil, fmt.Errorf("%w: malformed phone number", domain.ErrValidation)
	}

	var outcome RegistrationOutcome
	var result *model.Registration
	// The duplicate-phone check and the insert must be one atomic unit, or
	// two chats racing on the same phone both pass the check.
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		// An active technician with this phone is relinked, not re-registered.
		if tech, err := u.technicians.FindByPhone(ctx, tx, phone); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		} else if tech != nil {
			tech.ChatID = chatID
			tech.IsActive = true
			if err := u.technicians.Save(ctx, tx, tech); err != nil {
				return fmt.Errorf("relink technician: %w", err)
			}
			u.log.Info().Str("technician_id", tech.ID).Int64("chat_id", chatID).Msg("technician relinked via registration")
			outcome = OutcomeAlreadyTechnician
			return nil
		}

		// Same chat resubmitting while pending: idempotent, no duplicate row.
		if pending, err := u.registrations.FindPendingByChat(ctx, tx, chatID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		} else if pending != nil {
			outcome, result = OutcomeAlreadyPending, pending
			return nil
		}

		// Phone already pending under a different chat.
		if other, err := u.registrations.FindPendingByPhone(ctx, tx, phone); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		} else if other != nil && other.ChatID != chatID {
			return domain.ErrDuplicateRegistration
		}

		// The one allowed reopen: a rejected registration for this chat is
		// reset in place rather than duplicated.
		if rejected, err := u.registrations.FindRejectedByChat(ctx, tx, chatID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		} else if rejected != nil {
			rejected.Reopen(fullName, phone)
			if err := u.registrations.Save(ctx, tx, rejected); err != nil {
				return fmt.Errorf("reopen registration: %w", err)
			}
			u.log.Info().Str("registration_id", rejected.ID).Int64("chat_id", chatID).Msg("rejected registration reopened")
			outcome, result = OutcomeReopened, rejected
			return nil
		}

		reg := model.NewRegistration(chatID, fullName, phone)
		if err := u.registrations.Save(ctx, tx, reg); err != nil {
			return fmt.Errorf("save registration: %w", err)
		}
		u.log.Info().Str("registration_id", reg.ID).Int64("chat_id", chatID).Str("phone", logging.Redact(phone, false)).Msg("registration submitted")
		outcome, result = OutcomeSubmitted, reg
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return outcome, result, nil
}

// Approve creates (or reactivates) the technician, closes the registration
// and notifies the applicant. Notification failure does not roll back the
// approval.
func (u *registrationUC) Approve(ctx context.Context, registrationID, fullName, phone string) (*model.Technician, error) {
	defer logging.TraceDuration(u.log, "RegistrationUC.Approve")()

	reg, err := u.registrations.FindByID(ctx, repository.NoTX, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.Status != model.RegistrationPending {
		return nil, domain.ErrStateConflict
	}
	if fullName == "" {
		fullName = reg.FullName
	}
	if phone == "" {
		phone = reg.Phone
	}

	var tech *model.Technician
	if existing, err := u.technicians.FindByPhone(ctx, repository.NoTX, model.NormalizePhone(phone)); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	} else if existing != nil {
		existing.ChatID = reg.ChatID
		existing.IsActive = true
		existing.FullName = fullName
		tech = existing
	} else {
		tech, err = model.NewTechnician("", fullName, phone, reg.ChatID)
		if err != nil {
			return nil, err
		}
	}
	if err := u.technicians.Save(ctx, repository.NoTX, tech); err != nil {
		return nil, fmt.Errorf("save technician: %w", err)
	}

	reg.Resolve(model.RegistrationApproved, "")
	if err := u.registrations.Save(ctx, repository.NoTX, reg); err != nil {
		return nil, fmt.Errorf("save registration: %w", err)
	}

	if reg.ChatID != 0 {
		if err := u.messenger.SendMessage(ctx, reg.ChatID, "🎉 Your registration was approved. You will now receive job offers."); err != nil {
			u.log.Warn().Err(err).Int64("chat_id", reg.ChatID).Msg("approval notification failed")
		}
	}
	u.log.Info().Str("registration_id", reg.ID).Str("technician_id", tech.ID).Msg("registration approved")
	return tech, nil
}

// Reject closes the registration with a reason and notifies the applicant.
func (u *registrationUC) Reject(ctx context.Context, registrationID, reason string) (*model.Registration, error) {
	defer logging.TraceDuration(u.log, "RegistrationUC.Reject")()

	reg, err := u.registrations.FindByID(ctx, repository.NoTX, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.Status != model.RegistrationPending {
		return nil, domain.ErrStateConflict
	}
	reg.Resolve(model.RegistrationRejected, reason)
	if err := u.registrations.Save(ctx, repository.NoTX, reg); err != nil {
		return nil, fmt.Errorf("save registration: %w", err)
	}

	if reg.ChatID != 0 {
		text := "Your registration was rejected."
		if reason != "" {
			text += " Reason: " + reason
		}
		if err := u.messenger.SendMessage(ctx, reg.ChatID, text); err != nil {
			u.log.Warn().Err(err).Int64("chat_id", reg.ChatID).Msg("rejection notification failed")
		}
	}
	u.log.Info().Str("registration_id", reg.ID).Str("reason", reason).Msg("registration rejected")
	return reg, nil
}

func (u *registrationUC) ListPending(ctx context.Context) ([]*model.Registration, error) {
	return u.registrations.ListPending(ctx, repository.NoTX)
}
