package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vansh-000/CampusOne/internal/application/port"
	"github.com/vansh-000/CampusOne/internal/domain/entity"
	"github.com/vansh-000/CampusOne/internal/domain/workflow"
)

// ApplicationRepository implements port.ApplicationRepository
type ApplicationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *sql.DB, logger *zap.Logger) port.ApplicationRepository {
	return &ApplicationRepository{
		db:     db,
		logger: logger,
	}
}

const applicationColumns = `
	id, applicant_id, institution_id, application_type, subject, description,
	start_date, end_date, current_status, initial_step_id, current_step_id,
	created_at, updated_at
`

// Create inserts the application row
func (r *ApplicationRepository) Create(ctx context.Context, app *entity.Application) error {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	app.UpdatedAt = now

	query := `
		INSERT INTO applications (
			id, applicant_id, institution_id, application_type, subject,
			description, start_date, end_date, current_status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		app.ID,
		app.ApplicantID,
		app.InstitutionID,
		app.ApplicationType,
		app.Subject,
		app.Description,
		nullTime(app.StartDate),
		nullTime(app.EndDate),
		app.CurrentStatus,
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create application",
			zap.String("applicant_id", app.ApplicantID),
			zap.Error(err))
		return fmt.Errorf("failed to create application: %w", mapConstraintError(err))
	}
	return nil
}

// GetByID retrieves an application by id
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*entity.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = ?`
	app, err := scanApplication(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("application %s: %w", id, port.ErrNotFound)
		}
		r.logger.Error("Failed to get application", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

// SetInitialStep binds the first flow node to a freshly created application
func (r *ApplicationRepository) SetInitialStep(ctx context.Context, id, nodeID string) error {
	query := `
		UPDATE applications
		SET initial_step_id = ?, current_step_id = ?, updated_at = ?
		WHERE id = ? AND initial_step_id IS NULL
	`
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, nodeID, nodeID, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to set initial step", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to set initial step: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("application %s already has an initial step: %w", id, port.ErrConflict)
	}
	return nil
}

// AdvanceStep moves the current step pointer and status. The conditional
// WHERE clause is the optimistic-concurrency check: a racing transition that
// already moved the pointer makes this a zero-row update.
func (r *ApplicationRepository) AdvanceStep(ctx context.Context, id, expectedStepID, newStepID string, status workflow.Status) error {
	query := `
		UPDATE applications
		SET current_step_id = ?, current_status = ?, updated_at = ?
		WHERE id = ? AND current_step_id = ?
	`
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, newStepID, status, time.Now().UTC(), id, expectedStepID)
	if err != nil {
		r.logger.Error("Failed to advance application step",
			zap.String("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to advance step: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("application %s current step moved: %w", id, port.ErrConflict)
	}
	return nil
}

// ListByApplicant returns the applicant's applications, newest first
func (r *ApplicationRepository) ListByApplicant(ctx context.Context, applicantID string) ([]*entity.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE applicant_id = ? ORDER BY created_at DESC`
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, applicantID)
	if err != nil {
		r.logger.Error("Failed to list applications by applicant",
			zap.String("applicant_id", applicantID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()
	return collectApplications(rows)
}

// ListByIDs returns applications matching ids, optionally filtered by status
func (r *ApplicationRepository) ListByIDs(ctx context.Context, ids []string, statuses []workflow.Status) ([]*entity.Application, error) {
	if len(ids) == 0 {
		return []*entity.Application{}, nil
	}

	args := make([]interface{}, 0, len(ids)+len(statuses))
	for _, id := range ids {
		args = append(args, id)
	}
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id IN (` + placeholders(len(ids)) + `)`
	if len(statuses) > 0 {
		query += ` AND current_status IN (` + placeholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at DESC`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list applications by ids", zap.Error(err))
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()
	return collectApplications(rows)
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*entity.Application, error) {
	var app entity.Application
	var startDate, endDate sql.NullTime
	var initialStepID, currentStepID sql.NullString

	err := row.Scan(
		&app.ID,
		&app.ApplicantID,
		&app.InstitutionID,
		&app.ApplicationType,
		&app.Subject,
		&app.Description,
		&startDate,
		&endDate,
		&app.CurrentStatus,
		&initialStepID,
		&currentStepID,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if startDate.Valid {
		app.StartDate = &startDate.Time
	}
	if endDate.Valid {
		app.EndDate = &endDate.Time
	}
	app.InitialStepID = initialStepID.String
	app.CurrentStepID = currentStepID.String
	return &app, nil
}

func collectApplications(rows *sql.Rows) ([]*entity.Application, error) {
	apps := []*entity.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Verify interface compliance
var _ port.ApplicationRepository = (*ApplicationRepository)(nil)
