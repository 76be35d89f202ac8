package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-fieldops-dispatch/internal/domain"
	"telegram-fieldops-dispatch/internal/domain/model"
	"telegram-fieldops-dispatch/internal/domain/ports/repository"
)

var _ repository.TechnicianRepository = (*PostgresTechnicianRepo)(nil)

type PostgresTechnicianRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresTechnicianRepo(pool *pgxpool.Pool) *PostgresTechnicianRepo {
	return &PostgresTechnicianRepo{pool: pool}
}

const technicianColumns = `id, full_name, phone, chat_id, is_active, is_available, created_at`

func (r *PostgresTechnicianRepo) Save(ctx context.Context, tx repository.Tx, t *model.Technician) error {
	const q = `
INSERT INTO technicians (id, full_name, phone, chat_id, is_active, is_available, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  full_name=$2, phone=$3, chat_id=$4, is_active=$5, is_available=$6;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		t.ID, t.FullName, t.Phone, t.ChatID, t.IsActive, t.IsAvailable, t.CreatedAt)
	return err
}

func (r *PostgresTechnicianRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Technician, error) {
	row, err := queryRowSQL(ctx, r.pool, tx, `SELECT `+technicianColumns+` FROM technicians WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanTechnician(row)
}

func (r *PostgresTechnicianRepo) FindByChatID(ctx context.Context, tx repository.Tx, chatID int64) (*model.Technician, error) {
	row, err := queryRowSQL(ctx, r.pool, tx, `SELECT `+technicianColumns+` FROM technicians WHERE chat_id=$1;`, chatID)
	if err != nil {
		return nil, err
	}
	return scanTechnician(row)
}

func (r *PostgresTechnicianRepo) FindByPhone(ctx context.Context, tx repository.Tx, phone string) (*model.Technician, error) {
	row, err := queryRowSQL(ctx, r.pool, tx, `SELECT `+technicianColumns+` FROM technicians WHERE phone=$1;`, phone)
	if err != nil {
		return nil, err
	}
	return scanTechnician(row)
}

func (r *PostgresTechnicianRepo) ListActiveWithChat(ctx context.Context, tx repository.Tx) ([]*model.Technician, error) {
	rows, err := querySQL(ctx, r.pool, tx,
		`SELECT `+technicianColumns+` FROM technicians WHERE is_active AND chat_id <> 0 ORDER BY created_at;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Technician
	for rows.Next() {
		t, err := scanTechnician(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresTechnicianRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := queryRowSQL(ctx, r.pool, tx, `SELECT COUNT(*) FROM technicians;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count technicians: %w", err)
	}
	return n, nil
}

func scanTechnician(row pgx.Row) (*model.Technician, error) {
	var t model.Technician
	err := row.Scan(&t.ID, &t.FullName, &t.Phone, &t.ChatID, &t.IsActive, &t.IsAvailable, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
