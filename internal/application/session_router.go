package application

import (
	"context"
	"errors"
	"fmt"

	"telegram-fieldops-dispatch/internal/domain"
	"telegram-fieldops-dispatch/internal/domain/ports/repository"
	"telegram-fieldops-dispatch/internal/infra/metrics"
	"telegram-fieldops-dispatch/internal/usecase"
)

// The session router matches every free-text / contact / photo input against
// the chat's open session step before it can reach command parsing. Matched
// input is consumed; the bool return tells the adapter whether to fall
// through.

// HandleFreeText routes plain text into the open flow, if any.
func (b *BotFacade) HandleFreeText(ctx context.Context, chatID int64, text string) (reply string, handled bool, err error) {
	s, err := b.Sessions.Get(ctx, chatID)
	if err != nil || s == nil {
		return "", false, nil
	}

	switch s.Step {
	case repository.StepAwaitingPhone, repository.StepAwaitingContact:
		// Typed phone number instead of a shared contact.
		return b.finishRegistration(ctx, chatID, s.Data["full_name"], text)

	case repository.StepAwaitingLoginUsername:
		s.Data = map[string]string{"username": text}
		s.Step = repository.StepAwaitingLoginPassword
		if err := b.Sessions.Set(ctx, chatID, s); err != nil {
			return "", true, err
		}
		return "Enter your password:", true, nil

	case repository.StepAwaitingLoginPassword:
		if text != b.adminPassword {
			b.closeSession(ctx, chatID)
			return "Wrong credentials.", true, nil
		}
		s.Step = repository.StepAwaitingLoginPhone
		if err := b.Sessions.Set(ctx, chatID, s); err != nil {
			return "", true, err
		}
		return "Enter your phone number:", true, nil

	case repository.StepAwaitingLoginPhone:
		username := s.Data["username"]
		admin, err := b.Admins.FindByUsername(ctx, repository.NoTX, username)
		if err != nil {
			b.closeSession(ctx, chatID)
			if errors.Is(err, domain.ErrNotFound) {
				return "Unknown admin account.", true, nil
			}
			return "", true, err
		}
		admin.ChatID = chatID
		if err := b.Admins.Save(ctx, repository.NoTX, admin); err != nil {
			return "", true, fmt.Errorf("link admin chat: %w", err)
		}
		b.closeSession(ctx, chatID)
		b.log.Info().Str("admin", username).Int64("chat_id", chatID).Msg("admin chat linked")
		return fmt.Sprintf("Logged in as %s. Admin commands are now available.", username), true, nil

	case repository.StepAwaitingBroadcastText:
		b.closeSession(ctx, chatID)
		n, err := b.BroadcastUC.BroadcastToTechnicians(ctx, text)
		if err != nil {
			return "", true, fmt.Errorf("broadcast: %w", err)
		}
		return fmt.Sprintf("📣 Broadcast queued for %d technicians.", n), true, nil

	case repository.StepAwaitingCompletionPhoto:
		// Text while we expect a photo: keep the session open and re-prompt.
		return "Please send a photo of the completed work, or /cancel to abort.", true, nil
	}

	return "", false, nil
}

// HandleContact consumes a shared contact for an open registration flow.
func (b *BotFacade) HandleContact(ctx context.Context, chatID int64, phone, fullName string) (reply string, handled bool, err error) {
	s, serr := b.Sessions.Get(ctx, chatID)
	if serr != nil || s == nil {
		return "", false, nil
	}
	if s.Step != repository.StepAwaitingPhone && s.Step != repository.StepAwaitingContact {
		return "", false, nil
	}
	name := s.Data["full_name"]
	if name == "" {
		name = fullName
	}
	return b.finishRegistration(ctx, chatID, name, phone)
}

// HandlePhoto consumes a photo when the chat is in the completion step and
// applies the completion gate with the photo as evidence.
func (b *BotFacade) HandlePhoto(ctx context.Context, chatID int64, fileID string) (reply string, handled bool, err error) {
	s, serr := b.Sessions.Get(ctx, chatID)
	if serr != nil || s == nil || s.Step != repository.StepAwaitingCompletionPhoto {
		return "", false, nil
	}
	jobID := s.Data["job_id"]

	tech, err := b.TechnicianUC.GetByChatID(ctx, chatID)
	if err != nil {
		b.closeSession(ctx, chatID)
		return "You are not registered as a technician.", true, nil
	}

	job, err := b.AssignmentUC.Complete(ctx, jobID, tech.ID, fileID)
	if err != nil {
		var gate *domain.CompletionGateError
		switch {
		case errors.As(err, &gate):
			// Keep the session open only when the photo itself is missing;
			// here the photo arrived, so the blocker is elsewhere.
			b.closeSession(ctx, chatID)
			return fmt.Sprintf("Cannot complete yet: the job needs %s.", gate.Missing), true, nil
		case errors.Is(err, domain.ErrStateConflict):
			b.closeSession(ctx, chatID)
			return "This job cannot be completed in its current state.", true, nil
		case errors.Is(err, domain.ErrNotFound):
			b.closeSession(ctx, chatID)
			return "You are not assigned to this job.", true, nil
		default:
			return "", true, fmt.Errorf("complete job: %w", err)
		}
	}

	b.closeSession(ctx, chatID)
	return fmt.Sprintf("🏁 Job %s is completed. Thank you!", job.Number), true, nil
}

func (b *BotFacade) finishRegistration(ctx context.Context, chatID int64, fullName, phone string) (string, bool, error) {
	outcome, _, err := b.RegistrationUC.Submit(ctx, chatID, fullName, phone)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			// keep the session so the user can retry with a valid number
			return "That does not look like a phone number. Try again or /cancel.", true, nil
		case errors.Is(err, domain.ErrDuplicateRegistration):
			b.closeSession(ctx, chatID)
			return "This phone number already has a pending registration from another account.", true, nil
		default:
			return "", true, fmt.Errorf("submit registration: %w", err)
		}
	}

	b.closeSession(ctx, chatID)
	switch outcome {
	case usecase.OutcomeAlreadyTechnician:
		return "You are already a technician, your chat has been relinked. Use /myjobs.", true, nil
	case usecase.OutcomeAlreadyPending:
		return "Your registration is already pending review.", true, nil
	case usecase.OutcomeReopened:
		return "Your registration was resubmitted for review.", true, nil
	default:
		return "✅ Registration submitted. You will be notified once it is reviewed.", true, nil
	}
}

func (b *BotFacade) openSession(ctx context.Context, chatID int64, step repository.SessionStep, data map[string]string) {
	if data == nil {
		data = map[string]string{}
	}
	prev, _ := b.Sessions.Get(ctx, chatID)
	if err := b.Sessions.Set(ctx, chatID, &repository.ConversationSession{Step: step, Data: data}); err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to open session")
		return
	}
	if prev == nil {
		metrics.SessionOpened()
	}
}

func (b *BotFacade) closeSession(ctx context.Context, chatID int64) {
	if s, _ := b.Sessions.Get(ctx, chatID); s == nil {
		return
	}
	if err := b.Sessions.Clear(ctx, chatID); err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to clear session")
		return
	}
	metrics.SessionClosed()
}
