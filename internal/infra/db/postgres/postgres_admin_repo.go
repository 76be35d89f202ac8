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

var _ repository.AdminRepository = (*PostgresAdminRepo)(nil)

type PostgresAdminRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAdminRepo(pool *pgxpool.Pool) *PostgresAdminRepo {
	return &PostgresAdminRepo{pool: pool}
}

const adminColumns = `id, username, role, chat_id, created_at`

func (r *PostgresAdminRepo) Save(ctx context.Context, tx repository.Tx, a *model.AdminUser) error {
	const q = `
INSERT INTO admin_users (id, username, role, chat_id, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET username=$2, role=$3, chat_id=$4;
`
	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.Username, a.Role, a.ChatID, a.CreatedAt)
	return err
}

func (r *PostgresAdminRepo) FindByChatID(ctx context.Context, tx repository.Tx, chatID int64) (*model.AdminUser, error) {
	row, err := queryRowSQL(ctx, r.pool, tx, `SELECT `+adminColumns+` FROM admin_users WHERE chat_id=$1;`, chatID)
	if err != nil {
		return nil, err
	}
	return scanAdmin(row)
}

func (r *PostgresAdminRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.AdminUser, error) {
	row, err := queryRowSQL(ctx, r.pool, tx, `SELECT `+adminColumns+` FROM admin_users WHERE username=$1;`, username)
	if err != nil {
		return nil, err
	}
	return scanAdmin(row)
}

func (r *PostgresAdminRepo) ListWithChat(ctx context.Context, tx repository.Tx) ([]*model.AdminUser, error) {
	rows, err := querySQL(ctx, r.pool, tx, `SELECT `+adminColumns+` FROM admin_users WHERE chat_id <> 0;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.AdminUser
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAdmin(row pgx.Row) (*model.AdminUser, error) {
	var a model.AdminUser
	err := row.Scan(&a.ID, &a.Username, &a.Role, &a.ChatID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
