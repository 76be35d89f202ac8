package usecase

import (
	"context"
	"time"

	"telegram-fieldops-dispatch/internal/domain/model"
	"telegram-fieldops-dispatch/internal/domain/ports/adapter"
	"telegram-fieldops-dispatch/internal/domain/ports/repository"
	"telegram-fieldops-dispatch/internal/infra/worker"

	"github.com/rs/zerolog"
)

// BroadcastUseCase sends an admin-composed announcement to every active
// technician with a linked chat. Fire-and-forget: the caller gets the queued
// count, failed sends are logged per recipient.
type BroadcastUseCase interface {
	BroadcastToTechnicians(ctx context.Context, message string) (int, error)
}

type broadcastUC struct {
	technicians repository.TechnicianRepository
	messenger   adapter.MessengerAdapter
	workerPool  *worker.Pool
	log         *zerolog.Logger
}

func NewBroadcastUseCase(
	technicians repository.TechnicianRepository,
	messenger adapter.MessengerAdapter,
	pool *worker.Pool,
	logger *zerolog.Logger,
) BroadcastUseCase {
	compLog := logger.With().Str("component", "BroadcastUC").Logger()
	return &broadcastUC{
		technicians: technicians,
		messenger:   messenger,
		workerPool:  pool,
		log:         &compLog,
	}
}

func (uc *broadcastUC) BroadcastToTechnicians(ctx context.Context, message string) (int, error) {
	techs, err := uc.technicians.ListActiveWithChat(ctx, repository.NoTX)
	if err != nil {
		uc.log.Error().Err(err).Msg("failed to fetch technicians for broadcast")
		return 0, err
	}

	// Throttle to respect the chat platform's rate limits (approx. 30 msg/sec)
	throttle := time.NewTicker(time.Second / 25)

	go func() {
		defer throttle.Stop()
		uc.log.Info().Int("recipients", len(techs)).Msg("starting technician broadcast")

		for _, t := range techs {
			<-throttle.C

			task := uc.createSendTask(t, message)
			if err := uc.workerPool.Submit(task); err != nil {
				uc.log.Warn().Err(err).Int64("chat_id", t.ChatID).Msg("failed to submit broadcast task")
			}
		}
		uc.log.Info().Msg("broadcast finished queuing all tasks")
	}()

	return len(techs), nil
}

// createSendTask creates a closure for the worker pool to execute.
func (uc *broadcastUC) createSendTask(t *model.Technician, message string) worker.Task {
	return func(ctx context.Context) error {
		if err := uc.messenger.SendMessage(ctx, t.ChatID, message); err != nil {
			// e.g. the technician blocked the bot; log and move on
			uc.log.Warn().Err(err).Int64("chat_id", t.ChatID).Msg("broadcast send failed")
		}
		return nil
	}
}
