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

var _ repository.AssignmentRepository = (*PostgresAssignmentRepo)(nil)

type PostgresAssignmentRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAssignmentRepo(pool *pgxpool.Pool) *PostgresAssignmentRepo {
	return &PostgresAssignmentRepo{pool: pool}
}

const assignmentColumns = `id, job_id, technician_id, accepted_at, started_at, completed_at, evidence_ref`

func (r *PostgresAssignmentRepo) Save(ctx context.Context, tx repository.Tx, a *model.Assignment) error {
	const q = `
INSERT INTO assignments (id, job_id, technician_id, accepted_at, started_at, completed_at, evidence_ref)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  started_at=$5, completed_at=$6, evidence_ref=$7;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		a.ID, a.JobID, a.TechnicianID, a.AcceptedAt, a.StartedAt, a.CompletedAt, a.EvidenceRef)
	return err
}

func (r *PostgresAssignmentRepo) Find(ctx context.Context, tx repository.Tx, jobID, technicianID string) (*model.Assignment, error) {
	row, err := queryRowSQL(ctx, r.pool, tx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE job_id=$1 AND technician_id=$2;`, jobID, technicianID)
	if err != nil {
		return nil, err
	}
	return scanAssignment(row)
}

func (r *PostgresAssignmentRepo) ListByJob(ctx context.Context, tx repository.Tx, jobID string) ([]*model.Assignment, error) {
	rows, err := querySQL(ctx, r.pool, tx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE job_id=$1 ORDER BY accepted_at;`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAssignments(rows)
}

func (r *PostgresAssignmentRepo) ListByTechnician(ctx context.Context, tx repository.Tx, technicianID string) ([]*model.Assignment, error) {
	rows, err := querySQL(ctx, r.pool, tx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE technician_id=$1 ORDER BY accepted_at DESC;`, technicianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAssignments(rows)
}

func (r *PostgresAssignmentRepo) CountActive(ctx context.Context, tx repository.Tx, jobID string) (int, error) {
	row, err := queryRowSQL(ctx, r.pool, tx,
		`SELECT COUNT(*) FROM assignments WHERE job_id=$1 AND completed_at IS NULL;`, jobID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count active assignments: %w", err)
	}
	return n, nil
}

func (r *PostgresAssignmentRepo) ListCompletedSince(ctx context.Context, tx repository.Tx, technicianID string, since time.Time) ([]*model.Assignment, error) {
	rows, err := querySQL(ctx, r.pool, tx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE technician_id=$1 AND completed_at >= $2;`, technicianID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAssignments(rows)
}

func scanAssignment(row pgx.Row) (*model.Assignment, error) {
	var a model.Assignment
	err := row.Scan(&a.ID, &a.JobID, &a.TechnicianID, &a.AcceptedAt, &a.StartedAt, &a.CompletedAt, &a.EvidenceRef)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func collectAssignments(rows pgx.Rows) ([]*model.Assignment, error) {
	var out []*model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
