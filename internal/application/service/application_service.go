package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vansh-000/CampusOne/internal/application/port"
	"github.com/vansh-000/CampusOne/internal/domain/entity"
	"github.com/vansh-000/CampusOne/internal/domain/workflow"
)

// ErrValidation is returned when a required field is missing or malformed
var ErrValidation = errors.New("validation failed")

// CreateApplicationInput carries the caller-supplied fields for a new
// application. Applicant and institution come from the acting identity, never
// from the body.
type CreateApplicationInput struct {
	ApplicationType string
	Subject         string
	Description     string
	StartDate       *time.Time
	EndDate         *time.Time
	ToUserID        string
}

// ApplicationService is the approval-workflow engine: it creates routing
// chains, appends transitions and answers history and inbox queries.
type ApplicationService interface {
	Create(ctx context.Context, actor entity.ActingIdentity, in CreateApplicationInput) (*entity.Application, error)
	Forward(ctx context.Context, actor entity.ActingIdentity, applicationID, toUserID, message string) (*entity.ApplicationFlowNode, error)
	Approve(ctx context.Context, actor entity.ActingIdentity, applicationID, message string) (*entity.ApplicationFlowNode, error)
	Reject(ctx context.Context, actor entity.ActingIdentity, applicationID, message string) (*entity.ApplicationFlowNode, error)
	GetByID(ctx context.Context, applicationID string) (*entity.ApplicationDetail, error)
	ListMine(ctx context.Context, actor entity.ActingIdentity) ([]*entity.Application, error)
	ListPendingApprovals(ctx context.Context, actor entity.ActingIdentity) ([]*entity.Application, error)
	ListProcessedByMe(ctx context.Context, actor entity.ActingIdentity) ([]*entity.Application, error)
}

type applicationService struct {
	appRepo           port.ApplicationRepository
	nodeRepo          port.FlowNodeRepository
	userRepo          port.UserRepository
	txManager         port.TransactionManager
	publisher         port.EventPublisher
	requireLeaveDates bool
	logger            *zap.Logger
}

// NewApplicationService creates the workflow engine service.
// requireLeaveDates gates date-range validation for leave/dayout/vacation
// applications; it is off by default.
func NewApplicationService(
	appRepo port.ApplicationRepository,
	nodeRepo port.FlowNodeRepository,
	userRepo port.UserRepository,
	txManager port.TransactionManager,
	publisher port.EventPublisher,
	requireLeaveDates bool,
	logger *zap.Logger,
) ApplicationService {
	return &applicationService{
		appRepo:           appRepo,
		nodeRepo:          nodeRepo,
		userRepo:          userRepo,
		txManager:         txManager,
		publisher:         publisher,
		requireLeaveDates: requireLeaveDates,
		logger:            logger,
	}
}

// Create creates the application together with its first flow node as one
// atomic unit. The application's own status stays at its initial "pending"
// value even though the first node records a "forwarded" action; the first
// real transition overwrites it.
func (s *applicationService) Create(ctx context.Context, actor entity.ActingIdentity, in CreateApplicationInput) (*entity.Application, error) {
	if err := s.validateCreate(ctx, in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	app := &entity.Application{
		ApplicantID:     actor.UserID,
		InstitutionID:   actor.InstitutionID,
		ApplicationType: in.ApplicationType,
		Subject:         in.Subject,
		Description:     in.Description,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		CurrentStatus:   workflow.StatusPending,
	}
	firstNode := &entity.ApplicationFlowNode{
		FromUserID: actor.UserID,
		ToUserID:   in.ToUserID,
		Message:    entity.SubmissionMessage,
		ActionType: workflow.ActionForwarded,
		ActionDate: now,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.appRepo.Create(txCtx, app); err != nil {
			return fmt.Errorf("create application: %w", err)
		}
		firstNode.ApplicationID = app.ID
		if err := s.nodeRepo.Create(txCtx, firstNode); err != nil {
			return fmt.Errorf("create first flow node: %w", err)
		}
		if err := s.appRepo.SetInitialStep(txCtx, app.ID, firstNode.ID); err != nil {
			return fmt.Errorf("bind initial step: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create application",
			zap.String("applicant_id", actor.UserID),
			zap.Error(err))
		return nil, err
	}

	app.InitialStepID = firstNode.ID
	app.CurrentStepID = firstNode.ID

	s.publish(ctx, entity.ApplicationEvent{
		ApplicationID: app.ID,
		Action:        workflow.ActionForwarded.String(),
		FromUserID:    actor.UserID,
		ToUserID:      in.ToUserID,
		Status:        app.CurrentStatus.String(),
		OccurredAt:    now,
	})

	s.logger.Info("Application created",
		zap.String("application_id", app.ID),
		zap.String("application_type", app.ApplicationType),
		zap.String("applicant_id", actor.UserID))
	return app, nil
}

// Forward routes the application to a new recipient
func (s *applicationService) Forward(ctx context.Context, actor entity.ActingIdentity, applicationID, toUserID, message string) (*entity.ApplicationFlowNode, error) {
	if toUserID == "" {
		return nil, fmt.Errorf("%w: toUserId is required", ErrValidation)
	}
	if _, err := s.userRepo.GetByID(ctx, toUserID); err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, fmt.Errorf("%w: recipient user %s not found", ErrValidation, toUserID)
		}
		return nil, err
	}
	return s.transition(ctx, actor, applicationID, toUserID, message, workflow.ActionForwarded)
}

// Approve terminates the application in its approved state. The node is
// self-referential: toUserId equals the actor.
func (s *applicationService) Approve(ctx context.Context, actor entity.ActingIdentity, applicationID, message string) (*entity.ApplicationFlowNode, error) {
	return s.transition(ctx, actor, applicationID, actor.UserID, message, workflow.ActionApproved)
}

// Reject terminates the application in its rejected state
func (s *applicationService) Reject(ctx context.Context, actor entity.ActingIdentity, applicationID, message string) (*entity.ApplicationFlowNode, error) {
	return s.transition(ctx, actor, applicationID, actor.UserID, message, workflow.ActionRejected)
}

// transition appends one node to the application's flow chain. The new node,
// the old tail's next pointer and the application's step/status move as one
// atomic unit; a concurrent transition on the same application surfaces as
// ErrConflict from the conditional updates and rolls everything back.
func (s *applicationService) transition(ctx context.Context, actor entity.ActingIdentity, applicationID, toUserID, message string, action workflow.Action) (*entity.ApplicationFlowNode, error) {
	app, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	newStatus, err := workflow.Next(app.CurrentStatus, action)
	if err != nil {
		return nil, err
	}

	currentNode, err := s.nodeRepo.GetByID(ctx, app.CurrentStepID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	node := &entity.ApplicationFlowNode{
		ApplicationID:  app.ID,
		FromUserID:     actor.UserID,
		ToUserID:       toUserID,
		Message:        message,
		ActionType:     action,
		PreviousNodeID: currentNode.ID,
		ActionDate:     now,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.nodeRepo.Create(txCtx, node); err != nil {
			return fmt.Errorf("create flow node: %w", err)
		}
		if err := s.nodeRepo.SetNextNode(txCtx, currentNode.ID, node.ID); err != nil {
			return fmt.Errorf("link previous node: %w", err)
		}
		if err := s.appRepo.AdvanceStep(txCtx, app.ID, currentNode.ID, node.ID, newStatus); err != nil {
			return fmt.Errorf("advance application step: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to record transition",
			zap.String("application_id", applicationID),
			zap.String("action", action.String()),
			zap.Error(err))
		return nil, err
	}

	s.publish(ctx, entity.ApplicationEvent{
		ApplicationID: app.ID,
		Action:        action.String(),
		FromUserID:    actor.UserID,
		ToUserID:      toUserID,
		Status:        newStatus.String(),
		OccurredAt:    now,
	})

	s.logger.Info("Application transition recorded",
		zap.String("application_id", app.ID),
		zap.String("action", action.String()),
		zap.String("from_user_id", actor.UserID),
		zap.String("to_user_id", toUserID))
	return node, nil
}

// GetByID returns the application and its full ordered history
func (s *applicationService) GetByID(ctx context.Context, applicationID string) (*entity.ApplicationDetail, error) {
	app, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	nodes, err := s.nodeRepo.ListByApplication(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	return &entity.ApplicationDetail{Application: app, FlowNodes: nodes}, nil
}

// ListMine returns the caller's own applications, newest first
func (s *applicationService) ListMine(ctx context.Context, actor entity.ActingIdentity) ([]*entity.Application, error) {
	return s.appRepo.ListByApplicant(ctx, actor.UserID)
}

// ListPendingApprovals returns applications currently awaiting action from
// the caller. A node routed to the caller only counts while its application
// is still live (pending or forwarded): filtering on the application's cached
// status excludes terminal applications and ones that have since moved on.
func (s *applicationService) ListPendingApprovals(ctx context.Context, actor entity.ActingIdentity) ([]*entity.Application, error) {
	ids, err := s.nodeRepo.ListApplicationIDsByRecipient(ctx, actor.UserID, workflow.ActionForwarded)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*entity.Application{}, nil
	}
	apps, err := s.appRepo.ListByIDs(ctx, ids, []workflow.Status{workflow.StatusPending, workflow.StatusForwarded})
	if err != nil {
		return nil, err
	}
	// A node that is no longer the current step must not surface even if the
	// application is still live (it was forwarded onwards to someone else).
	pending := make([]*entity.Application, 0, len(apps))
	for _, app := range apps {
		node, err := s.nodeRepo.GetByID(ctx, app.CurrentStepID)
		if err != nil {
			return nil, err
		}
		if node.ToUserID == actor.UserID {
			pending = append(pending, app)
		}
	}
	return pending, nil
}

// ListProcessedByMe returns every application the caller has ever acted on
func (s *applicationService) ListProcessedByMe(ctx context.Context, actor entity.ActingIdentity) ([]*entity.Application, error) {
	ids, err := s.nodeRepo.ListApplicationIDsByActor(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*entity.Application{}, nil
	}
	return s.appRepo.ListByIDs(ctx, ids, nil)
}

func (s *applicationService) validateCreate(ctx context.Context, in CreateApplicationInput) error {
	if in.ApplicationType == "" || in.Subject == "" || in.Description == "" {
		return fmt.Errorf("%w: applicationType, subject and description are required", ErrValidation)
	}
	if !entity.IsValidApplicationType(in.ApplicationType) {
		return fmt.Errorf("%w: unknown application type %q", ErrValidation, in.ApplicationType)
	}
	if in.ToUserID == "" {
		return fmt.Errorf("%w: toUserId is required", ErrValidation)
	}
	if s.requireLeaveDates {
		switch in.ApplicationType {
		case entity.ApplicationTypeLeave, entity.ApplicationTypeDayout, entity.ApplicationTypeVacation:
			if in.StartDate == nil || in.EndDate == nil {
				return fmt.Errorf("%w: startDate and endDate are required for %s applications", ErrValidation, in.ApplicationType)
			}
			if in.EndDate.Before(*in.StartDate) {
				return fmt.Errorf("%w: endDate precedes startDate", ErrValidation)
			}
		}
	}
	if _, err := s.userRepo.GetByID(ctx, in.ToUserID); err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return fmt.Errorf("%w: recipient user %s not found", ErrValidation, in.ToUserID)
		}
		return err
	}
	return nil
}

func (s *applicationService) publish(ctx context.Context, event entity.ApplicationEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishApplicationEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish application event",
			zap.String("application_id", event.ApplicationID),
			zap.Error(err))
	}
}
