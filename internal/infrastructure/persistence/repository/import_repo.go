package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vansh-000/CampusOne/internal/application/port"
	"github.com/vansh-000/CampusOne/internal/domain/entity"
)

// ImportJobRepository implements port.ImportJobRepository
type ImportJobRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewImportJobRepository creates a new import job repository
func NewImportJobRepository(db *sql.DB, logger *zap.Logger) port.ImportJobRepository {
	return &ImportJobRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an import job row
func (r *ImportJobRepository) Create(ctx context.Context, job *entity.ImportJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	if job.StartedAt.IsZero() {
		job.StartedAt = now
	}
	if job.Status == "" {
		job.Status = entity.ImportStatusPending
	}

	query := `
		INSERT INTO import_jobs (id, institution_id, kind, total, processed, success, failed, status, started_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		job.ID,
		job.InstitutionID,
		job.Kind,
		job.Total,
		job.Processed,
		job.Success,
		job.Failed,
		job.Status,
		job.StartedAt,
		job.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create import job",
			zap.String("kind", job.Kind),
			zap.Error(err))
		return fmt.Errorf("failed to create import job: %w", err)
	}
	return nil
}

// GetByID retrieves an import job together with its error rows
func (r *ImportJobRepository) GetByID(ctx context.Context, id string) (*entity.ImportJob, error) {
	query := `
		SELECT id, institution_id, kind, total, processed, success, failed, status, started_at, finished_at, created_at
		FROM import_jobs WHERE id = ?
	`
	var job entity.ImportJob
	var finishedAt sql.NullTime
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&job.ID,
		&job.InstitutionID,
		&job.Kind,
		&job.Total,
		&job.Processed,
		&job.Success,
		&job.Failed,
		&job.Status,
		&job.StartedAt,
		&finishedAt,
		&job.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("import job %s: %w", id, port.ErrNotFound)
		}
		r.logger.Error("Failed to get import job", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get import job: %w", err)
	}
	if finishedAt.Valid {
		job.FinishedAt = &finishedAt.Time
	}

	errRows, err := getExecutor(ctx, r.db).QueryContext(ctx,
		`SELECT row_number, reason FROM import_errors WHERE import_id = ? ORDER BY row_number ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list import errors: %w", err)
	}
	defer errRows.Close()
	for errRows.Next() {
		var ie entity.ImportError
		if err := errRows.Scan(&ie.Row, &ie.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan import error: %w", err)
		}
		job.Errors = append(job.Errors, ie)
	}
	if err := errRows.Err(); err != nil {
		return nil, err
	}
	return &job, nil
}

// RecordRowResult advances the counters for one processed row and flips the
// job to completed once every row has been accounted for. All statements run
// on the executor resolved from ctx, so callers wrap this in a transaction.
func (r *ImportJobRepository) RecordRowResult(ctx context.Context, id string, rowNumber int, succeeded bool, reason string) error {
	exec := getExecutor(ctx, r.db)

	successDelta, failedDelta := 1, 0
	if !succeeded {
		successDelta, failedDelta = 0, 1
	}

	result, err := exec.ExecContext(ctx, `
		UPDATE import_jobs
		SET processed = processed + 1, success = success + ?, failed = failed + ?
		WHERE id = ?
	`, successDelta, failedDelta, id)
	if err != nil {
		r.logger.Error("Failed to record import row result",
			zap.String("import_id", id),
			zap.Error(err))
		return fmt.Errorf("failed to record row result: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("import job %s: %w", id, port.ErrNotFound)
	}

	if !succeeded {
		if _, err := exec.ExecContext(ctx,
			`INSERT INTO import_errors (import_id, row_number, reason) VALUES (?, ?, ?)`,
			id, rowNumber, reason,
		); err != nil {
			return fmt.Errorf("failed to record import error: %w", err)
		}
	}

	_, err = exec.ExecContext(ctx, `
		UPDATE import_jobs
		SET status = ?, finished_at = ?
		WHERE id = ? AND processed >= total AND status = ?
	`, entity.ImportStatusCompleted, time.Now().UTC(), id, entity.ImportStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to finalize import job: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.ImportJobRepository = (*ImportJobRepository)(nil)
