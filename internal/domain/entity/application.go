package entity

import (
	"time"

	"github.com/vansh-000/CampusOne/internal/domain/workflow"
)

// ApplicationType constants. The set is closed: anything else is rejected at
// the service boundary.
const (
	ApplicationTypeLeave       = "leave"
	ApplicationTypeDayout      = "dayout"
	ApplicationTypeVacation    = "vacation"
	ApplicationTypeCertificate = "certificate"
	ApplicationTypeGeneral     = "general"
)

var validApplicationTypes = map[string]bool{
	ApplicationTypeLeave:       true,
	ApplicationTypeDayout:      true,
	ApplicationTypeVacation:    true,
	ApplicationTypeCertificate: true,
	ApplicationTypeGeneral:     true,
}

// IsValidApplicationType returns true if t belongs to the closed type set
func IsValidApplicationType(t string) bool {
	return validApplicationTypes[t]
}

// SubmissionMessage is the message recorded on the first flow node of every
// application.
const SubmissionMessage = "Application Submitted"

// Application represents one approval workflow instance routed between users.
// InitialStepID and CurrentStepID reference flow nodes; both are set when the
// application is created together with its first node and CurrentStepID moves
// on every transition.
type Application struct {
	ID              string          `json:"id"`
	ApplicantID     string          `json:"applicant_id"`
	InstitutionID   string          `json:"institution_id"`
	ApplicationType string          `json:"application_type"`
	Subject         string          `json:"subject"`
	Description     string          `json:"description"`
	StartDate       *time.Time      `json:"start_date,omitempty"`
	EndDate         *time.Time      `json:"end_date,omitempty"`
	CurrentStatus   workflow.Status `json:"current_status"`
	InitialStepID   string          `json:"initial_step_id,omitempty"`
	CurrentStepID   string          `json:"current_step_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ApplicationFlowNode is one recorded step in an application's routing
// history. Nodes form a single linear chain: PreviousNodeID points at the
// node this one follows (empty for the first node) and NextNodeID is set
// exactly once, when a later node supersedes this one.
type ApplicationFlowNode struct {
	ID             string          `json:"id"`
	ApplicationID  string          `json:"application_id"`
	FromUserID     string          `json:"from_user_id"`
	ToUserID       string          `json:"to_user_id"`
	Message        string          `json:"message,omitempty"`
	ActionType     workflow.Action `json:"action_type"`
	PreviousNodeID string          `json:"previous_node_id,omitempty"`
	NextNodeID     string          `json:"next_node_id,omitempty"`
	ActionDate     time.Time       `json:"action_date"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ApplicationDetail bundles an application with its full ordered history
type ApplicationDetail struct {
	Application *Application           `json:"application"`
	FlowNodes   []*ApplicationFlowNode `json:"flow_nodes"`
}

// ApplicationEvent is published after every successful workflow operation so
// downstream notification senders can react. Delivery is best effort.
type ApplicationEvent struct {
	ApplicationID string    `json:"application_id"`
	Action        string    `json:"action"`
	FromUserID    string    `json:"from_user_id"`
	ToUserID      string    `json:"to_user_id"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}
