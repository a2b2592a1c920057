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

// StudentRepository implements port.StudentRepository
type StudentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStudentRepository creates a new student repository
func NewStudentRepository(db *sql.DB, logger *zap.Logger) port.StudentRepository {
	return &StudentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a student. A duplicate (institution_id, enrollment_number)
// pair comes back as port.ErrDuplicate.
func (r *StudentRepository) Create(ctx context.Context, student *entity.Student) error {
	if student.ID == "" {
		student.ID = uuid.New().String()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO students (id, user_id, institution_id, enrollment_number, branch_code, admission_year, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		student.ID,
		student.UserID,
		student.InstitutionID,
		student.EnrollmentNumber,
		nullString(student.BranchCode),
		student.AdmissionYear,
		student.CreatedAt,
	)
	if err != nil {
		mapped := mapConstraintError(err)
		if !errors.Is(mapped, port.ErrDuplicate) {
			r.logger.Error("Failed to create student",
				zap.String("enrollment_number", student.EnrollmentNumber),
				zap.Error(err))
		}
		return fmt.Errorf("failed to create student: %w", mapped)
	}
	return nil
}

// GetByUserID retrieves a student record by the owning user id
func (r *StudentRepository) GetByUserID(ctx context.Context, userID string) (*entity.Student, error) {
	query := `
		SELECT id, user_id, institution_id, enrollment_number, branch_code, admission_year, created_at
		FROM students WHERE user_id = ?
	`
	var student entity.Student
	var branchCode sql.NullString
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(
		&student.ID,
		&student.UserID,
		&student.InstitutionID,
		&student.EnrollmentNumber,
		&branchCode,
		&student.AdmissionYear,
		&student.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("student for user %s: %w", userID, port.ErrNotFound)
		}
		r.logger.Error("Failed to get student", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	student.BranchCode = branchCode.String
	return &student, nil
}

// FacultyRepository implements port.FacultyRepository
type FacultyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewFacultyRepository creates a new faculty repository
func NewFacultyRepository(db *sql.DB, logger *zap.Logger) port.FacultyRepository {
	return &FacultyRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a faculty record. A duplicate (institution_id, employee_code)
// pair comes back as port.ErrDuplicate.
func (r *FacultyRepository) Create(ctx context.Context, faculty *entity.Faculty) error {
	if faculty.ID == "" {
		faculty.ID = uuid.New().String()
	}
	if faculty.CreatedAt.IsZero() {
		faculty.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO faculty (id, user_id, institution_id, employee_code, department_code, designation, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		faculty.ID,
		faculty.UserID,
		faculty.InstitutionID,
		faculty.EmployeeCode,
		nullString(faculty.DepartmentCode),
		nullString(faculty.Designation),
		faculty.CreatedAt,
	)
	if err != nil {
		mapped := mapConstraintError(err)
		if !errors.Is(mapped, port.ErrDuplicate) {
			r.logger.Error("Failed to create faculty",
				zap.String("employee_code", faculty.EmployeeCode),
				zap.Error(err))
		}
		return fmt.Errorf("failed to create faculty: %w", mapped)
	}
	return nil
}

// GetByUserID retrieves a faculty record by the owning user id
func (r *FacultyRepository) GetByUserID(ctx context.Context, userID string) (*entity.Faculty, error) {
	query := `
		SELECT id, user_id, institution_id, employee_code, department_code, designation, created_at
		FROM faculty WHERE user_id = ?
	`
	var faculty entity.Faculty
	var departmentCode, designation sql.NullString
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(
		&faculty.ID,
		&faculty.UserID,
		&faculty.InstitutionID,
		&faculty.EmployeeCode,
		&departmentCode,
		&designation,
		&faculty.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("faculty for user %s: %w", userID, port.ErrNotFound)
		}
		r.logger.Error("Failed to get faculty", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get faculty: %w", err)
	}
	faculty.DepartmentCode = departmentCode.String
	faculty.Designation = designation.String
	return &faculty, nil
}

// Verify interface compliance
var (
	_ port.StudentRepository = (*StudentRepository)(nil)
	_ port.FacultyRepository = (*FacultyRepository)(nil)
)
