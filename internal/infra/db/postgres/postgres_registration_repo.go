package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-fieldops-dispatch/internal/domain"
	"telegram-fieldops-dispatch/internal/domain/model"
	"telegram-fieldops-dispatch/internal/domain/ports/repository"
)

var _ repository.RegistrationRepository = (*PostgresRegistrationRepo)(nil)

type PostgresRegistrationRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRegistrationRepo(pool *pgxpool.Pool) *PostgresRegistrationRepo {
	return &PostgresRegistrationRepo{pool: pool}
}

const registrationColumns = `id, chat_id, full_name, phone, status, reject_reason, created_at, resolved_at`

func (r *PostgresRegistrationRepo) Save(ctx context.Context, tx repository.Tx, reg *model.Registration) error {
	const q = `
INSERT INTO registrations (id, chat_id, full_name, phone, status, reject_reason, created_at, resolved_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  full_name=$3, phone=$4, status=$5, reject_reason=$6, created_at=$7, resolved_at=$8;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		reg.ID, reg.ChatID, reg.FullName, reg.Phone, reg.Status, reg.RejectReason, reg.CreatedAt, reg.ResolvedAt)
	return err
}

func (r *PostgresRegistrationRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Registration, error) {
	row, err := queryRowSQL(ctx, r.pool, tx, `SELECT `+registrationColumns+` FROM registrations WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanRegistration(row)
}

func (r *PostgresRegistrationRepo) FindPendingByChat(ctx context.Context, tx repository.Tx, chatID int64) (*model.Registration, error) {
	row, err := queryRowSQL(ctx, r.pool, tx,
		`SELECT `+registrationColumns+` FROM registrations WHERE chat_id=$1 AND status='PENDING';`, chatID)
	if err != nil {
		return nil, err
	}
	return scanRegistration(row)
}

func (r *PostgresRegistrationRepo) FindPendingByPhone(ctx context.Context, tx repository.Tx, phone string) (*model.Registration, error) {
	row, err := queryRowSQL(ctx, r.pool, tx,
		`SELECT `+registrationColumns+` FROM registrations WHERE phone=$1 AND status='PENDING';`, phone)
	if err != nil {
		return nil, err
	}
	return scanRegistration(row)
}

func (r *PostgresRegistrationRepo) FindRejectedByChat(ctx context.Context, tx repository.Tx, chatID int64) (*model.Registration, error) {
	row, err := queryRowSQL(ctx, r.pool, tx,
		`SELECT `+registrationColumns+` FROM registrations WHERE chat_id=$1 AND status='REJECTED' ORDER BY created_at DESC LIMIT 1;`, chatID)
	if err != nil {
		return nil, err
	}
	return scanRegistration(row)
}

func (r *PostgresRegistrationRepo) ListPending(ctx context.Context, tx repository.Tx) ([]*model.Registration, error) {
	rows, err := querySQL(ctx, r.pool, tx,
		`SELECT `+registrationColumns+` FROM registrations WHERE status='PENDING' ORDER BY created_at;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var reg model.Registration
	err := row.Scan(&reg.ID, &reg.ChatID, &reg.FullName, &reg.Phone, &reg.Status, &reg.RejectReason, &reg.CreatedAt, &reg.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}
