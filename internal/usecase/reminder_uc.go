package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"telegram-fieldops-dispatch/internal/domain/model"
	"telegram-fieldops-dispatch/internal/domain/ports/adapter"
	"telegram-fieldops-dispatch/internal/domain/ports/repository"
	"telegram-fieldops-dispatch/internal/infra/logging"
	"telegram-fieldops-dispatch/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ ReminderUseCase = (*reminderUC)(nil)

// ReminderUseCase produces the periodic reminder sweep and the daily digest.
// Both are best-effort notification passes: a failed send is logged and
// skipped, never retried within the same sweep, and never blocks the
// request path.
type ReminderUseCase interface {
	// SweepStale reminds each technician holding an unfinished assignment on
	// a job older than the threshold. One reminder per technician per sweep.
	SweepStale(ctx context.Context, olderThan time.Duration) (int, error)
	// SendDailyDigest sends every active technician a summary of today's
	// completed work and their current active assignments.
	SendDailyDigest(ctx context.Context) (int, error)
}

type reminderUC struct {
	jobs        repository.JobRepository
	assignments repository.AssignmentRepository
	technicians repository.TechnicianRepository
	messenger   adapter.MessengerAdapter
	log         *zerolog.Logger
}

func NewReminderUseCase(
	jobs repository.JobRepository,
	assignments repository.AssignmentRepository,
	technicians repository.TechnicianRepository,
	messenger adapter.MessengerAdapter,
	logger *zerolog.Logger,
) *reminderUC {
	compLog := logger.With().Str("component", "ReminderUC").Logger()
	return &reminderUC{
		jobs:        jobs,
		assignments: assignments,
		technicians: technicians,
		messenger:   messenger,
		log:         &compLog,
	}
}

func (u *reminderUC) SweepStale(ctx context.Context, olderThan time.Duration) (int, error) {
	defer logging.TraceDuration(u.log, "ReminderUC.SweepStale")()

	cutoff := time.Now().Add(-olderThan)
	stale, err := u.jobs.ListOlderThan(ctx, repository.NoTX, cutoff,
		[]model.JobStatus{model.JobStatusAssigned, model.JobStatusInProgress})
	if err != nil {
		return 0, fmt.Errorf("list stale jobs: %w", err)
	}

	// Collect stale job numbers per technician so each one gets a single
	// reminder regardless of how many jobs are overdue.
	perTech := make(map[string][]string)
	for _, job := range stale {
		asgs, err := u.assignments.ListByJob(ctx, repository.NoTX, job.ID)
		if err != nil {
			u.log.Warn().Err(err).Str("job_id", job.ID).Msg("list assignments failed during sweep")
			continue
		}
		for _, a := range asgs {
			if a.Active() {
				perTech[a.TechnicianID] = append(perTech[a.TechnicianID], job.Number)
			}
		}
	}

	sent := 0
	for techID, numbers := range perTech {
		tech, err := u.technicians.FindByID(ctx, repository.NoTX, techID)
		if err != nil || !tech.HasChat() {
			continue
		}
		text := fmt.Sprintf("⏰ Reminder: you have %d unfinished job(s): %s.\nPlease update their status.",
			len(numbers), strings.Join(numbers, ", "))
		if err := u.messenger.SendMessage(ctx, tech.ChatID, text); err != nil {
			metrics.ObserveReminder("stale", false)
			u.log.Warn().Err(err).Int64("chat_id", tech.ChatID).Msg("reminder send failed")
			continue
		}
		metrics.ObserveReminder("stale", true)
		sent++
	}
	return sent, nil
}

func (u *reminderUC) SendDailyDigest(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "ReminderUC.SendDailyDigest")()

	techs, err := u.technicians.ListActiveWithChat(ctx, repository.NoTX)
	if err != nil {
		return 0, fmt.Errorf("list technicians: %w", err)
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	sent := 0
	for _, tech := range techs {
		completed, err := u.assignments.ListCompletedSince(ctx, repository.NoTX, tech.ID, startOfDay)
		if err != nil {
			u.log.Warn().Err(err).Str("technician_id", tech.ID).Msg("digest query failed")
			continue
		}
		all, err := u.assignments.ListByTechnician(ctx, repository.NoTX, tech.ID)
		if err != nil {
			u.log.Warn().Err(err).Str("technician_id", tech.ID).Msg("digest query failed")
			continue
		}
		active := 0
		for _, a := range all {
			if a.Active() {
				active++
			}
		}

		text := fmt.Sprintf("📋 Daily summary\nCompleted today: %d\nActive assignments: %d", len(completed), active)
		if err := u.messenger.SendMessage(ctx, tech.ChatID, text); err != nil {
			metrics.ObserveReminder("digest", false)
			u.log.Warn().Err(err).Int64("chat_id", tech.ChatID).Msg("digest send failed")
			continue
		}
		metrics.ObserveReminder("digest", true)
		sent++
	}
	return sent, nil
}
