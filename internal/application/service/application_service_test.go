package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/vansh-000/CampusOne/internal/application/port"
	"github.com/vansh-000/CampusOne/internal/domain/entity"
	"github.com/vansh-000/CampusOne/internal/domain/workflow"
)

// Mock repositories

type mockAppRepo struct {
	createFunc          func(ctx context.Context, app *entity.Application) error
	getByIDFunc         func(ctx context.Context, id string) (*entity.Application, error)
	setInitialStepFunc  func(ctx context.Context, id, nodeID string) error
	advanceStepFunc     func(ctx context.Context, id, expectedStepID, newStepID string, status workflow.Status) error
	listByApplicantFunc func(ctx context.Context, applicantID string) ([]*entity.Application, error)
	listByIDsFunc       func(ctx context.Context, ids []string, statuses []workflow.Status) ([]*entity.Application, error)
}

func (m *mockAppRepo) Create(ctx context.Context, app *entity.Application) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, app)
	}
	app.ID = "app-1"
	return nil
}

func (m *mockAppRepo) GetByID(ctx context.Context, id string) (*entity.Application, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, port.ErrNotFound
}

func (m *mockAppRepo) SetInitialStep(ctx context.Context, id, nodeID string) error {
	if m.setInitialStepFunc != nil {
		return m.setInitialStepFunc(ctx, id, nodeID)
	}
	return nil
}

func (m *mockAppRepo) AdvanceStep(ctx context.Context, id, expectedStepID, newStepID string, status workflow.Status) error {
	if m.advanceStepFunc != nil {
		return m.advanceStepFunc(ctx, id, expectedStepID, newStepID, status)
	}
	return nil
}

func (m *mockAppRepo) ListByApplicant(ctx context.Context, applicantID string) ([]*entity.Application, error) {
	if m.listByApplicantFunc != nil {
		return m.listByApplicantFunc(ctx, applicantID)
	}
	return []*entity.Application{}, nil
}

func (m *mockAppRepo) ListByIDs(ctx context.Context, ids []string, statuses []workflow.Status) ([]*entity.Application, error) {
	if m.listByIDsFunc != nil {
		return m.listByIDsFunc(ctx, ids, statuses)
	}
	return []*entity.Application{}, nil
}

type mockNodeRepo struct {
	createFunc                func(ctx context.Context, node *entity.ApplicationFlowNode) error
	getByIDFunc               func(ctx context.Context, id string) (*entity.ApplicationFlowNode, error)
	listByApplicationFunc     func(ctx context.Context, applicationID string) ([]*entity.ApplicationFlowNode, error)
	setNextNodeFunc           func(ctx context.Context, id, nextNodeID string) error
	listAppIDsByRecipientFunc func(ctx context.Context, toUserID string, action workflow.Action) ([]string, error)
	listAppIDsByActorFunc     func(ctx context.Context, fromUserID string) ([]string, error)
}

func (m *mockNodeRepo) Create(ctx context.Context, node *entity.ApplicationFlowNode) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, node)
	}
	node.ID = "node-new"
	return nil
}

func (m *mockNodeRepo) GetByID(ctx context.Context, id string) (*entity.ApplicationFlowNode, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, port.ErrNotFound
}

func (m *mockNodeRepo) ListByApplication(ctx context.Context, applicationID string) ([]*entity.ApplicationFlowNode, error) {
	if m.listByApplicationFunc != nil {
		return m.listByApplicationFunc(ctx, applicationID)
	}
	return []*entity.ApplicationFlowNode{}, nil
}

func (m *mockNodeRepo) SetNextNode(ctx context.Context, id, nextNodeID string) error {
	if m.setNextNodeFunc != nil {
		return m.setNextNodeFunc(ctx, id, nextNodeID)
	}
	return nil
}

func (m *mockNodeRepo) ListApplicationIDsByRecipient(ctx context.Context, toUserID string, action workflow.Action) ([]string, error) {
	if m.listAppIDsByRecipientFunc != nil {
		return m.listAppIDsByRecipientFunc(ctx, toUserID, action)
	}
	return []string{}, nil
}

func (m *mockNodeRepo) ListApplicationIDsByActor(ctx context.Context, fromUserID string) ([]string, error) {
	if m.listAppIDsByActorFunc != nil {
		return m.listAppIDsByActorFunc(ctx, fromUserID)
	}
	return []string{}, nil
}

type mockUserRepo struct {
	getByIDFunc func(ctx context.Context, id string) (*entity.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *entity.User) error { return nil }

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.User{ID: id, Active: true}, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, institutionID, email string) (*entity.User, error) {
	return nil, port.ErrNotFound
}

// mockTxManager runs the unit inline; transactional semantics are covered by
// the SQLite integration tests
type mockTxManager struct{}

func (mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockPublisher struct {
	events []entity.ApplicationEvent
	err    error
}

func (m *mockPublisher) PublishApplicationEvent(ctx context.Context, event entity.ApplicationEvent) error {
	m.events = append(m.events, event)
	return m.err
}

func newTestService(apps *mockAppRepo, nodes *mockNodeRepo, users *mockUserRepo, pub *mockPublisher) ApplicationService {
	// Avoid wrapping a typed-nil *mockPublisher in the interface, which would
	// defeat the service's nil-publisher check.
	var publisher port.EventPublisher
	if pub != nil {
		publisher = pub
	}
	return NewApplicationService(apps, nodes, users, mockTxManager{}, publisher, false, zap.NewNop())
}

var testActor = entity.ActingIdentity{UserID: "u1", InstitutionID: "inst-1"}

func TestCreate_BuildsFirstNode(t *testing.T) {
	var createdNode *entity.ApplicationFlowNode
	nodes := &mockNodeRepo{
		createFunc: func(ctx context.Context, node *entity.ApplicationFlowNode) error {
			node.ID = "node-1"
			createdNode = node
			return nil
		},
	}
	pub := &mockPublisher{}
	svc := newTestService(&mockAppRepo{}, nodes, &mockUserRepo{}, pub)

	app, err := svc.Create(context.Background(), testActor, CreateApplicationInput{
		ApplicationType: entity.ApplicationTypeLeave,
		Subject:         "Medical leave",
		Description:     "Three days",
		ToUserID:        "u2",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if app.CurrentStatus != workflow.StatusPending {
		t.Errorf("expected status pending, got %s", app.CurrentStatus)
	}
	if createdNode == nil {
		t.Fatal("expected first node to be created")
	}
	if createdNode.ActionType != workflow.ActionForwarded {
		t.Errorf("expected first node action forwarded, got %s", createdNode.ActionType)
	}
	if createdNode.Message != entity.SubmissionMessage {
		t.Errorf("expected submission message, got %q", createdNode.Message)
	}
	if createdNode.PreviousNodeID != "" {
		t.Errorf("first node must have no predecessor, got %q", createdNode.PreviousNodeID)
	}
	if createdNode.FromUserID != "u1" || createdNode.ToUserID != "u2" {
		t.Errorf("node routed %s -> %s, want u1 -> u2", createdNode.FromUserID, createdNode.ToUserID)
	}
	if app.CurrentStepID != "node-1" || app.InitialStepID != "node-1" {
		t.Errorf("step ids not bound: initial=%q current=%q", app.InitialStepID, app.CurrentStepID)
	}
	if len(pub.events) != 1 || pub.events[0].Action != "forwarded" {
		t.Errorf("expected one forwarded event, got %+v", pub.events)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(&mockAppRepo{}, &mockNodeRepo{}, &mockUserRepo{}, nil)

	tests := []struct {
		name  string
		input CreateApplicationInput
	}{
		{"missing type", CreateApplicationInput{Subject: "s", Description: "d", ToUserID: "u2"}},
		{"missing subject", CreateApplicationInput{ApplicationType: "leave", Description: "d", ToUserID: "u2"}},
		{"missing description", CreateApplicationInput{ApplicationType: "leave", Subject: "s", ToUserID: "u2"}},
		{"unknown type", CreateApplicationInput{ApplicationType: "sabbatical", Subject: "s", Description: "d", ToUserID: "u2"}},
		{"missing recipient", CreateApplicationInput{ApplicationType: "leave", Subject: "s", Description: "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), testActor, tt.input)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestCreate_UnknownRecipient(t *testing.T) {
	users := &mockUserRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.User, error) {
			return nil, port.ErrNotFound
		},
	}
	svc := newTestService(&mockAppRepo{}, &mockNodeRepo{}, users, nil)

	_, err := svc.Create(context.Background(), testActor, CreateApplicationInput{
		ApplicationType: entity.ApplicationTypeGeneral,
		Subject:         "s",
		Description:     "d",
		ToUserID:        "ghost",
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for unknown recipient, got %v", err)
	}
}

func TestForward_StatusMirrorsAction(t *testing.T) {
	apps := &mockAppRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Application, error) {
			return &entity.Application{
				ID: id, CurrentStatus: workflow.StatusPending, CurrentStepID: "node-1",
			}, nil
		},
	}
	var advancedTo workflow.Status
	apps.advanceStepFunc = func(ctx context.Context, id, expectedStepID, newStepID string, status workflow.Status) error {
		advancedTo = status
		return nil
	}
	nodes := &mockNodeRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.ApplicationFlowNode, error) {
			return &entity.ApplicationFlowNode{ID: id, ToUserID: "u1"}, nil
		},
	}
	svc := newTestService(apps, nodes, &mockUserRepo{}, nil)

	node, err := svc.Forward(context.Background(), testActor, "app-1", "u3", "please review")
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if advancedTo != workflow.StatusForwarded {
		t.Errorf("expected status forwarded, got %s", advancedTo)
	}
	if node.ActionType != workflow.ActionForwarded {
		t.Errorf("expected node action forwarded, got %s", node.ActionType)
	}
	if node.PreviousNodeID != "node-1" {
		t.Errorf("new node must point back at the old tail, got %q", node.PreviousNodeID)
	}
}

func TestApprove_SelfReferentialNode(t *testing.T) {
	apps := &mockAppRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Application, error) {
			return &entity.Application{
				ID: id, CurrentStatus: workflow.StatusForwarded, CurrentStepID: "node-2",
			}, nil
		},
	}
	nodes := &mockNodeRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.ApplicationFlowNode, error) {
			return &entity.ApplicationFlowNode{ID: id}, nil
		},
	}
	svc := newTestService(apps, nodes, &mockUserRepo{}, nil)

	node, err := svc.Approve(context.Background(), testActor, "app-1", "ok")
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if node.FromUserID != "u1" || node.ToUserID != "u1" {
		t.Errorf("approve node must be self-referential, got %s -> %s", node.FromUserID, node.ToUserID)
	}
	if node.ActionType != workflow.ActionApproved {
		t.Errorf("expected action approved, got %s", node.ActionType)
	}
}

func TestTransition_TerminalApplication(t *testing.T) {
	apps := &mockAppRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Application, error) {
			return &entity.Application{
				ID: id, CurrentStatus: workflow.StatusApproved, CurrentStepID: "node-3",
			}, nil
		},
	}
	nodeCreated := false
	nodes := &mockNodeRepo{
		createFunc: func(ctx context.Context, node *entity.ApplicationFlowNode) error {
			nodeCreated = true
			return nil
		},
	}
	svc := newTestService(apps, nodes, &mockUserRepo{}, nil)

	_, err := svc.Reject(context.Background(), testActor, "app-1", "too late")
	if !errors.Is(err, workflow.ErrTerminalStatus) {
		t.Errorf("expected ErrTerminalStatus, got %v", err)
	}
	if nodeCreated {
		t.Error("terminal application must not grow a new node")
	}
}

func TestTransition_ConflictRollsUp(t *testing.T) {
	apps := &mockAppRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Application, error) {
			return &entity.Application{
				ID: id, CurrentStatus: workflow.StatusPending, CurrentStepID: "node-1",
			}, nil
		},
		advanceStepFunc: func(ctx context.Context, id, expectedStepID, newStepID string, status workflow.Status) error {
			return port.ErrConflict
		},
	}
	nodes := &mockNodeRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.ApplicationFlowNode, error) {
			return &entity.ApplicationFlowNode{ID: id}, nil
		},
	}
	svc := newTestService(apps, nodes, &mockUserRepo{}, nil)

	_, err := svc.Forward(context.Background(), testActor, "app-1", "u3", "")
	if !errors.Is(err, port.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestTransition_NotFound(t *testing.T) {
	svc := newTestService(&mockAppRepo{}, &mockNodeRepo{}, &mockUserRepo{}, nil)

	_, err := svc.Approve(context.Background(), testActor, "missing", "")
	if !errors.Is(err, port.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListPendingApprovals_ExcludesMovedOn(t *testing.T) {
	// u2 received a forward on both applications, but app-b has since been
	// forwarded onwards: its current node is routed to someone else.
	apps := &mockAppRepo{
		listByIDsFunc: func(ctx context.Context, ids []string, statuses []workflow.Status) ([]*entity.Application, error) {
			return []*entity.Application{
				{ID: "app-a", CurrentStatus: workflow.StatusForwarded, CurrentStepID: "node-a2"},
				{ID: "app-b", CurrentStatus: workflow.StatusForwarded, CurrentStepID: "node-b3"},
			}, nil
		},
	}
	nodes := &mockNodeRepo{
		listAppIDsByRecipientFunc: func(ctx context.Context, toUserID string, action workflow.Action) ([]string, error) {
			return []string{"app-a", "app-b"}, nil
		},
		getByIDFunc: func(ctx context.Context, id string) (*entity.ApplicationFlowNode, error) {
			switch id {
			case "node-a2":
				return &entity.ApplicationFlowNode{ID: id, ToUserID: "u2"}, nil
			case "node-b3":
				return &entity.ApplicationFlowNode{ID: id, ToUserID: "u9"}, nil
			}
			return nil, port.ErrNotFound
		},
	}
	svc := newTestService(apps, nodes, &mockUserRepo{}, nil)

	pending, err := svc.ListPendingApprovals(context.Background(), entity.ActingIdentity{UserID: "u2"})
	if err != nil {
		t.Fatalf("ListPendingApprovals failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "app-a" {
		t.Errorf("expected only app-a pending, got %+v", pending)
	}
}

func TestListPendingApprovals_NoInbox(t *testing.T) {
	svc := newTestService(&mockAppRepo{}, &mockNodeRepo{}, &mockUserRepo{}, nil)

	pending, err := svc.ListPendingApprovals(context.Background(), testActor)
	if err != nil {
		t.Fatalf("ListPendingApprovals failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected empty inbox, got %d", len(pending))
	}
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	pub := &mockPublisher{err: errors.New("redis down")}
	svc := newTestService(&mockAppRepo{}, &mockNodeRepo{}, &mockUserRepo{}, pub)

	_, err := svc.Create(context.Background(), testActor, CreateApplicationInput{
		ApplicationType: entity.ApplicationTypeGeneral,
		Subject:         "s",
		Description:     "d",
		ToUserID:        "u2",
	})
	if err != nil {
		t.Fatalf("Create must not fail on publish error, got %v", err)
	}
}
