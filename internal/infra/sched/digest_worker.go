package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-fieldops-dispatch/internal/usecase"
)

// DigestWorker sends each technician a daily summary at the configured hour
// (local time). It checks once a minute and fires at most once per day.
type DigestWorker struct {
	hour       int
	reminderUC usecase.ReminderUseCase
	log        *zerolog.Logger

	lastSent time.Time
}

func NewDigestWorker(hour int, reminderUC usecase.ReminderUseCase, logger *zerolog.Logger) *DigestWorker {
	compLog := logger.With().Str("component", "DigestWorker").Logger()
	return &DigestWorker{
		hour:       hour,
		reminderUC: reminderUC,
		log:        &compLog,
	}
}

func (w *DigestWorker) Run(ctx context.Context) error {
	w.log.Info().Int("hour", w.hour).Msg("Starting digest worker")
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping digest worker")
			return ctx.Err()
		case now := <-ticker.C:
			if !w.due(now) {
				continue
			}
			sent, err := w.reminderUC.SendDailyDigest(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("daily digest failed")
				continue
			}
			w.lastSent = now
			w.log.Info().Int("count", sent).Msg("daily digests sent")
		}
	}
}

func (w *DigestWorker) due(now time.Time) bool {
	if now.Hour() != w.hour {
		return false
	}
	return w.lastSent.IsZero() || now.YearDay() != w.lastSent.YearDay() || now.Year() != w.lastSent.Year()
}
