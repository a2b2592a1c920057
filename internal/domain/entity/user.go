package entity

import "time"

// User role constants
const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)

// User is an identity record scoped to an institution. Email is unique per
// institution.
type User struct {
	ID            string    `json:"id"`
	InstitutionID string    `json:"institution_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Student links a user to an enrollment. The branch code and admission year
// together form the batch key used by attendance/marks collaborators.
type Student struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	InstitutionID    string    `json:"institution_id"`
	EnrollmentNumber string    `json:"enrollment_number"`
	BranchCode       string    `json:"branch_code"`
	AdmissionYear    int       `json:"admission_year"`
	CreatedAt        time.Time `json:"created_at"`
}

// Faculty links a user to an appointment
type Faculty struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	InstitutionID  string    `json:"institution_id"`
	EmployeeCode   string    `json:"employee_code"`
	DepartmentCode string    `json:"department_code"`
	Designation    string    `json:"designation"`
	CreatedAt      time.Time `json:"created_at"`
}

// ActingIdentity is the resolved identity of the request's caller, passed
// explicitly into every core operation.
type ActingIdentity struct {
	UserID        string `json:"user_id"`
	InstitutionID string `json:"institution_id"`
}
