package usecase

import (
	"context"
	"fmt"
	"sync"

	"telegram-fieldops-dispatch/internal/domain/model"
	"telegram-fieldops-dispatch/internal/domain/ports/adapter"
	"telegram-fieldops-dispatch/internal/domain/ports/repository"
	"telegram-fieldops-dispatch/internal/infra/logging"
	"telegram-fieldops-dispatch/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ DispatchUseCase = (*dispatchUC)(nil)

// DispatchUseCase selects the broadcast audience for a job and fans out the
// claim offers. Sends are independent: one recipient's failure never blocks
// or rolls back the others, and dispatch failure is never a reason to fail
// job creation.
type DispatchUseCase interface {
	Dispatch(ctx context.Context, job *model.Job) *model.DispatchResult
}

type dispatchUC struct {
	technicians repository.TechnicianRepository
	admins      repository.AdminRepository
	messenger   adapter.MessengerAdapter
	fanOutLimit int
	log         *zerolog.Logger
}

func NewDispatchUseCase(
	technicians repository.TechnicianRepository,
	admins repository.AdminRepository,
	messenger adapter.MessengerAdapter,
	fanOutLimit int,
	logger *zerolog.Logger,
) *dispatchUC {
	if fanOutLimit <= 0 {
		fanOutLimit = 16
	}
	compLog := logger.With().Str("component", "DispatchUC").Logger()
	return &dispatchUC{
		technicians: technicians,
		admins:      admins,
		messenger:   messenger,
		fanOutLimit: fanOutLimit,
		log:         &compLog,
	}
}

// Dispatch never returns an error; audience resolution failures yield an
// empty result with the failure logged.
func (u *dispatchUC) Dispatch(ctx context.Context, job *model.Job) *model.DispatchResult {
	defer logging.TraceDuration(u.log, "DispatchUC.Dispatch")()

	res := &model.DispatchResult{JobID: job.ID}

	chatIDs, audience, err := u.audience(ctx, job)
	res.Audience = audience
	if err != nil {
		u.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to resolve dispatch audience")
		return res
	}
	if len(chatIDs) == 0 {
		u.log.Warn().Str("job_id", job.ID).Str("audience", audience).Msg("dispatch audience is empty")
		return res
	}

	// Admins are notified, not offered: claims require a technician record,
	// so admin copies carry no claim button.
	text := jobOfferText(job)
	var rows [][]adapter.InlineButton
	if audience != "admins" {
		rows = [][]adapter.InlineButton{
			{{Text: "✅ Claim this job", Data: "claim:" + job.ID}},
		}
	} else {
		text = "⚠️ Settings issue, needs admin attention\n" + text
	}

	// Bounded fan-out; the gateway should not be hit with an unbounded burst.
	sem := make(chan struct{}, u.fanOutLimit)
	var mu sync.Mutex
	var wg sync.WaitGroup

	res.Attempted = len(chatIDs)
	for _, chatID := range chatIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(chatID int64) {
			defer wg.Done()
			defer func() { <-sem }()

			var err error
			if rows == nil {
				err = u.messenger.SendMessage(ctx, chatID, text)
			} else {
				err = u.messenger.SendButtons(ctx, chatID, text, rows)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				res.RecipientErrors = append(res.RecipientErrors, model.RecipientError{ChatID: chatID, Err: err})
				u.log.Warn().Err(err).Int64("chat_id", chatID).Str("job_id", job.ID).Msg("dispatch send failed")
				return
			}
			res.Succeeded++
		}(chatID)
	}
	wg.Wait()

	metrics.ObserveDispatch(audience, res.Succeeded, res.Failed)
	u.log.Info().
		Str("job_id", job.ID).
		Str("audience", audience).
		Int("attempted", res.Attempted).
		Int("succeeded", res.Succeeded).
		Int("failed", res.Failed).
		Msg("dispatch finished")
	return res
}

// audience applies the routing rule: settings-issue repairs go to the admin
// pool, everything else to available technicians with a linked chat.
func (u *dispatchUC) audience(ctx context.Context, job *model.Job) ([]int64, string, error) {
	if job.RoutesToAdmins() {
		admins, err := u.admins.ListWithChat(ctx, repository.NoTX)
		if err != nil {
			return nil, "admins", fmt.Errorf("list admins: %w", err)
		}
		out := make([]int64, 0, len(admins))
		for _, a := range admins {
			out = append(out, a.ChatID)
		}
		return out, "admins", nil
	}

	techs, err := u.technicians.ListActiveWithChat(ctx, repository.NoTX)
	if err != nil {
		return nil, "technicians", fmt.Errorf("list technicians: %w", err)
	}
	out := make([]int64, 0, len(techs))
	for _, t := range techs {
		if !t.IsAvailable {
			continue
		}
		out = append(out, t.ChatID)
	}
	return out, "technicians", nil
}

func jobOfferText(job *model.Job) string {
	kind := "Installation"
	if job.Kind == model.JobKindRepair {
		kind = "Repair"
		if job.SubCategory != "" {
			kind += " (" + job.SubCategory + ")"
		}
	}
	return fmt.Sprintf("🔧 New job %s\n%s\nAddress: %s\nCustomer: %s",
		job.Number, kind, job.Address, job.CustomerRef)
}
