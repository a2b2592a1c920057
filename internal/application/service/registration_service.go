package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vansh-000/CampusOne/internal/application/port"
	"github.com/vansh-000/CampusOne/internal/domain/entity"
)

// StudentRegistration carries one student roster record
type StudentRegistration struct {
	InstitutionID    string
	Name             string
	Email            string
	EnrollmentNumber string
	BranchCode       string
	AdmissionYear    int
}

// FacultyRegistration carries one faculty roster record
type FacultyRegistration struct {
	InstitutionID  string
	Name           string
	Email          string
	EmployeeCode   string
	DepartmentCode string
	Designation    string
}

// RegistrationService creates user + student / user + faculty records as one
// atomic unit. It backs both single-record registration and the bulk import
// worker.
type RegistrationService interface {
	RegisterStudent(ctx context.Context, in StudentRegistration) (*entity.Student, error)
	RegisterFaculty(ctx context.Context, in FacultyRegistration) (*entity.Faculty, error)
}

type registrationService struct {
	userRepo    port.UserRepository
	studentRepo port.StudentRepository
	facultyRepo port.FacultyRepository
	txManager   port.TransactionManager
	logger      *zap.Logger
}

// NewRegistrationService creates a new RegistrationService
func NewRegistrationService(
	userRepo port.UserRepository,
	studentRepo port.StudentRepository,
	facultyRepo port.FacultyRepository,
	txManager port.TransactionManager,
	logger *zap.Logger,
) RegistrationService {
	return &registrationService{
		userRepo:    userRepo,
		studentRepo: studentRepo,
		facultyRepo: facultyRepo,
		txManager:   txManager,
		logger:      logger,
	}
}

// RegisterStudent creates the user and student rows together
func (s *registrationService) RegisterStudent(ctx context.Context, in StudentRegistration) (*entity.Student, error) {
	if in.Name == "" || in.Email == "" || in.EnrollmentNumber == "" {
		return nil, fmt.Errorf("%w: name, email and enrollment number are required", ErrValidation)
	}

	now := time.Now().UTC()
	user := &entity.User{
		InstitutionID: in.InstitutionID,
		Name:          in.Name,
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		Role:          entity.RoleStudent,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	student := &entity.Student{
		InstitutionID:    in.InstitutionID,
		EnrollmentNumber: in.EnrollmentNumber,
		BranchCode:       in.BranchCode,
		AdmissionYear:    in.AdmissionYear,
		CreatedAt:        now,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.userRepo.Create(txCtx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		student.UserID = user.ID
		if err := s.studentRepo.Create(txCtx, student); err != nil {
			return fmt.Errorf("create student: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to register student",
			zap.String("email", user.Email),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Student registered",
		zap.String("student_id", student.ID),
		zap.String("enrollment_number", student.EnrollmentNumber))
	return student, nil
}

// RegisterFaculty creates the user and faculty rows together
func (s *registrationService) RegisterFaculty(ctx context.Context, in FacultyRegistration) (*entity.Faculty, error) {
	if in.Name == "" || in.Email == "" || in.EmployeeCode == "" {
		return nil, fmt.Errorf("%w: name, email and employee code are required", ErrValidation)
	}

	now := time.Now().UTC()
	user := &entity.User{
		InstitutionID: in.InstitutionID,
		Name:          in.Name,
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		Role:          entity.RoleFaculty,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	faculty := &entity.Faculty{
		InstitutionID:  in.InstitutionID,
		EmployeeCode:   in.EmployeeCode,
		DepartmentCode: in.DepartmentCode,
		Designation:    in.Designation,
		CreatedAt:      now,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.userRepo.Create(txCtx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		faculty.UserID = user.ID
		if err := s.facultyRepo.Create(txCtx, faculty); err != nil {
			return fmt.Errorf("create faculty: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to register faculty",
			zap.String("email", user.Email),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Faculty registered",
		zap.String("faculty_id", faculty.ID),
		zap.String("employee_code", faculty.EmployeeCode))
	return faculty, nil
}

// StudentFromRecord maps a parsed roster row onto a registration input.
// Header names follow the roster template: name, email, enrollment_number,
// branch_code, admission_year.
func StudentFromRecord(institutionID string, record map[string]string) StudentRegistration {
	year, _ := strconv.Atoi(strings.TrimSpace(record["admission_year"]))
	return StudentRegistration{
		InstitutionID:    institutionID,
		Name:             strings.TrimSpace(record["name"]),
		Email:            strings.TrimSpace(record["email"]),
		EnrollmentNumber: strings.TrimSpace(record["enrollment_number"]),
		BranchCode:       strings.TrimSpace(record["branch_code"]),
		AdmissionYear:    year,
	}
}

// FacultyFromRecord maps a parsed roster row onto a registration input
func FacultyFromRecord(institutionID string, record map[string]string) FacultyRegistration {
	return FacultyRegistration{
		InstitutionID:  institutionID,
		Name:           strings.TrimSpace(record["name"]),
		Email:          strings.TrimSpace(record["email"]),
		EmployeeCode:   strings.TrimSpace(record["employee_code"]),
		DepartmentCode: strings.TrimSpace(record["department_code"]),
		Designation:    strings.TrimSpace(record["designation"]),
	}
}
