package pipeline

import (
	"context"
	"database/sql"
	"errors"

	"github.com/andresuchdata/distroflow/internal/domain"
)

// Repository handles database operations for snapshot run tracking
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new snapshot run repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateRun inserts a new snapshot run record
func (r *Repository) CreateRun(ctx context.Context, run *domain.SnapshotRun) error {
	query := `
		INSERT INTO snapshot_runs (id, status, rows, object_key, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Status, run.Rows, run.ObjectKey, run.StartedAt,
	)
	return err
}

// UpdateRun updates status, counters and completion of a run
func (r *Repository) UpdateRun(ctx context.Context, run *domain.SnapshotRun) error {
	query := `
		UPDATE snapshot_runs
		SET status = $1, rows = $2, object_key = $3, error = $4, finished_at = $5
		WHERE id = $6
	`

	_, err := r.db.ExecContext(ctx, query,
		run.Status, run.Rows, run.ObjectKey, run.Error, run.FinishedAt, run.ID,
	)
	return err
}

// GetRun retrieves a run by ID. A missing run yields nil, nil.
func (r *Repository) GetRun(ctx context.Context, id string) (*domain.SnapshotRun, error) {
	query := `
		SELECT id, status, rows, object_key, error, started_at, finished_at
		FROM snapshot_runs
		WHERE id = $1
	`

	run := &domain.SnapshotRun{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.Status, &run.Rows, &run.ObjectKey,
		&run.Error, &run.StartedAt, &run.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return run, nil
}

// ListRecentRuns returns the latest runs, newest first
func (r *Repository) ListRecentRuns(ctx context.Context, limit int) ([]*domain.SnapshotRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, status, rows, object_key, error, started_at, finished_at
		FROM snapshot_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.SnapshotRun
	for rows.Next() {
		run := &domain.SnapshotRun{}
		if err := rows.Scan(
			&run.ID, &run.Status, &run.Rows, &run.ObjectKey,
			&run.Error, &run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
