package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-fieldops-dispatch/internal/usecase"
)

// ReminderWorker periodically sweeps for assignments that have been sitting
// unfinished past the configured age and nudges their technicians.
type ReminderWorker struct {
	interval   time.Duration
	staleAfter time.Duration
	reminderUC usecase.ReminderUseCase
	log        *zerolog.Logger
}

func NewReminderWorker(interval, staleAfter time.Duration, reminderUC usecase.ReminderUseCase, logger *zerolog.Logger) *ReminderWorker {
	compLog := logger.With().Str("component", "ReminderWorker").Logger()
	return &ReminderWorker{
		interval:   interval,
		staleAfter: staleAfter,
		reminderUC: reminderUC,
		log:        &compLog,
	}
}

func (w *ReminderWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting reminder worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping reminder worker")
			return ctx.Err()
		case <-ticker.C:
			sent, err := w.reminderUC.SweepStale(ctx, w.staleAfter)
			if err != nil {
				w.log.Error().Err(err).Msg("stale sweep failed")
			}
			if sent > 0 {
				w.log.Info().Int("count", sent).Msg("stale job reminders sent")
			}
		}
	}
}
