package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-fieldops-dispatch/internal/domain"
	"telegram-fieldops-dispatch/internal/domain/model"
	"telegram-fieldops-dispatch/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*PostgresJobRepo)(nil)

type PostgresJobRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresJobRepo(pool *pgxpool.Pool) *PostgresJobRepo {
	return &PostgresJobRepo{pool: pool}
}

const jobColumns = `id, number, kind, sub_category, address, customer_ref,
       approval_status, status, cancel_reason, created_at, approved_at, completed_at`

func (r *PostgresJobRepo) Save(ctx context.Context, tx repository.Tx, j *model.Job) error {
	const q = `
INSERT INTO jobs (
  id, number, kind, sub_category, address, customer_ref,
  approval_status, status, cancel_reason, created_at, approved_at, completed_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
) ON CONFLICT (id) DO UPDATE SET
  approval_status=$7, status=$8, cancel_reason=$9, approved_at=$11, completed_at=$12;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		j.ID, j.Number, j.Kind, j.SubCategory, j.Address, j.CustomerRef,
		j.ApprovalStatus, j.Status, j.CancelReason, j.CreatedAt, j.ApprovedAt, j.CompletedAt)
	return err
}

func (r *PostgresJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	row, err := queryRowSQL(ctx, r.pool, tx, `SELECT `+jobColumns+` FROM jobs WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

func (r *PostgresJobRepo) FindByNumber(ctx context.Context, tx repository.Tx, number string) (*model.Job, error) {
	row, err := queryRowSQL(ctx, r.pool, tx, `SELECT `+jobColumns+` FROM jobs WHERE number=$1;`, number)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

// UpdateStatus performs the conditional write that makes claims race-safe:
// the row changes only if it still carries the expected status.
func (r *PostgresJobRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, expected, next model.JobStatus) error {
	const q = `UPDATE jobs SET status=$3 WHERE id=$1 AND status=$2;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, expected, next)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStateConflict
	}
	return nil
}

func (r *PostgresJobRepo) ListOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, statuses []model.JobStatus) ([]*model.Job, error) {
	ss := make([]string, len(statuses))
	for i, s := range statuses {
		ss[i] = string(s)
	}
	const q = `SELECT ` + jobColumns + ` FROM jobs WHERE created_at < $1 AND status = ANY($2) ORDER BY created_at;`
	rows, err := querySQL(ctx, r.pool, tx, q, cutoff, ss)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	err := row.Scan(&j.ID, &j.Number, &j.Kind, &j.SubCategory, &j.Address, &j.CustomerRef,
		&j.ApprovalStatus, &j.Status, &j.CancelReason, &j.CreatedAt, &j.ApprovedAt, &j.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &j, nil
}
