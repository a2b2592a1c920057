package port

import (
	"context"

	"github.com/vansh-000/CampusOne/internal/domain/entity"
	"github.com/vansh-000/CampusOne/internal/domain/workflow"
)

// ApplicationRepository defines persistence operations for Application
type ApplicationRepository interface {
	// Create inserts the application row. Step references may be empty; they
	// are bound later in the same transaction via SetInitialStep.
	Create(ctx context.Context, app *entity.Application) error

	// GetByID retrieves an application, ErrNotFound if absent
	GetByID(ctx context.Context, id string) (*entity.Application, error)

	// SetInitialStep binds initial_step_id and current_step_id to the first
	// flow node of a freshly created application
	SetInitialStep(ctx context.Context, id, nodeID string) error

	// AdvanceStep moves current_step_id from expectedStepID to newStepID and
	// writes the new status. The update is conditional on current_step_id
	// still equalling expectedStepID; ErrConflict when the row has moved on.
	AdvanceStep(ctx context.Context, id, expectedStepID, newStepID string, status workflow.Status) error

	// ListByApplicant returns the caller's applications, newest first
	ListByApplicant(ctx context.Context, applicantID string) ([]*entity.Application, error)

	// ListByIDs returns applications matching ids, optionally filtered to the
	// given statuses, newest first
	ListByIDs(ctx context.Context, ids []string, statuses []workflow.Status) ([]*entity.Application, error)
}

// FlowNodeRepository defines persistence operations for ApplicationFlowNode
type FlowNodeRepository interface {
	Create(ctx context.Context, node *entity.ApplicationFlowNode) error

	// GetByID retrieves a flow node, ErrNotFound if absent
	GetByID(ctx context.Context, id string) (*entity.ApplicationFlowNode, error)

	// ListByApplication returns an application's nodes ordered by creation
	// time ascending
	ListByApplication(ctx context.Context, applicationID string) ([]*entity.ApplicationFlowNode, error)

	// SetNextNode binds next_node_id on the chain tail. The update is
	// conditional on next_node_id still being null; ErrConflict when the node
	// already has a successor.
	SetNextNode(ctx context.Context, id, nextNodeID string) error

	// ListApplicationIDsByRecipient returns distinct application ids having a
	// node routed to the user with the given action
	ListApplicationIDsByRecipient(ctx context.Context, toUserID string, action workflow.Action) ([]string, error)

	// ListApplicationIDsByActor returns distinct application ids the user has
	// ever acted on
	ListApplicationIDsByActor(ctx context.Context, fromUserID string) ([]string, error)
}

// UserRepository defines persistence operations for User
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, institutionID, email string) (*entity.User, error)
}

// StudentRepository defines persistence operations for Student
type StudentRepository interface {
	Create(ctx context.Context, student *entity.Student) error
	GetByUserID(ctx context.Context, userID string) (*entity.Student, error)
}

// FacultyRepository defines persistence operations for Faculty
type FacultyRepository interface {
	Create(ctx context.Context, faculty *entity.Faculty) error
	GetByUserID(ctx context.Context, userID string) (*entity.Faculty, error)
}

// ImportJobRepository defines persistence operations for ImportJob
type ImportJobRepository interface {
	Create(ctx context.Context, job *entity.ImportJob) error

	// GetByID retrieves a job with its error rows, ErrNotFound if absent
	GetByID(ctx context.Context, id string) (*entity.ImportJob, error)

	// RecordRowResult advances the job's counters for one processed row,
	// appending an error row on failure, and flips the job to completed when
	// every row has been processed
	RecordRowResult(ctx context.Context, id string, rowNumber int, succeeded bool, reason string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
