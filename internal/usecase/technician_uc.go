package usecase

import (
	"context"

	"telegram-fieldops-dispatch/internal/domain/model"
	"telegram-fieldops-dispatch/internal/domain/ports/repository"
	"telegram-fieldops-dispatch/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ TechnicianUseCase = (*technicianUC)(nil)

// TechnicianUseCase exposes registry reads and the small set of technician
// self-service mutations used by chat flows.
type TechnicianUseCase interface {
	GetByChatID(ctx context.Context, chatID int64) (*model.Technician, error)
	ListDispatchable(ctx context.Context) ([]*model.Technician, error)
	SetAvailability(ctx context.Context, technicianID string, available bool) (*model.Technician, error)
	Deactivate(ctx context.Context, technicianID string) error
	Count(ctx context.Context) (int, error)
}

type technicianUC struct {
	technicians repository.TechnicianRepository
	log         *zerolog.Logger
}

func NewTechnicianUseCase(technicians repository.TechnicianRepository, logger *zerolog.Logger) *technicianUC {
	compLog := logger.With().Str("component", "TechnicianUC").Logger()
	return &technicianUC{technicians: technicians, log: &compLog}
}

func (u *technicianUC) GetByChatID(ctx context.Context, chatID int64) (*model.Technician, error) {
	return u.technicians.FindByChatID(ctx, repository.NoTX, chatID)
}

func (u *technicianUC) ListDispatchable(ctx context.Context) ([]*model.Technician, error) {
	return u.technicians.ListActiveWithChat(ctx, repository.NoTX)
}

func (u *technicianUC) SetAvailability(ctx context.Context, technicianID string, available bool) (*model.Technician, error) {
	defer logging.TraceDuration(u.log, "TechnicianUC.SetAvailability")()

	tech, err := u.technicians.FindByID(ctx, repository.NoTX, technicianID)
	if err != nil {
		return nil, err
	}
	tech.IsAvailable = available
	if err := u.technicians.Save(ctx, repository.NoTX, tech); err != nil {
		return nil, err
	}
	u.log.Info().Str("technician_id", technicianID).Bool("available", available).Msg("availability changed")
	return tech, nil
}

func (u *technicianUC) Deactivate(ctx context.Context, technicianID string) error {
	defer logging.TraceDuration(u.log, "TechnicianUC.Deactivate")()

	tech, err := u.technicians.FindByID(ctx, repository.NoTX, technicianID)
	if err != nil {
		return err
	}
	tech.IsActive = false
	return u.technicians.Save(ctx, repository.NoTX, tech)
}

func (u *technicianUC) Count(ctx context.Context) (int, error) {
	return u.technicians.Count(ctx, repository.NoTX)
}
