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
	"github.com/vansh-000/CampusOne/internal/domain/workflow"
)

// FlowNodeRepository implements port.FlowNodeRepository
type FlowNodeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewFlowNodeRepository creates a new flow node repository
func NewFlowNodeRepository(db *sql.DB, logger *zap.Logger) port.FlowNodeRepository {
	return &FlowNodeRepository{
		db:     db,
		logger: logger,
	}
}

const flowNodeColumns = `
	id, application_id, from_user_id, to_user_id, message, action_type,
	previous_node_id, next_node_id, action_date, created_at
`

// Create inserts a flow node. next_node_id always starts null; it is bound
// later, exactly once, via SetNextNode.
func (r *FlowNodeRepository) Create(ctx context.Context, node *entity.ApplicationFlowNode) error {
	if node.ID == "" {
		node.ID = uuid.New().String()
	}
	if node.ActionDate.IsZero() {
		node.ActionDate = time.Now().UTC()
	}
	if node.CreatedAt.IsZero() {
		node.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO application_flow_nodes (
			id, application_id, from_user_id, to_user_id, message,
			action_type, previous_node_id, action_date, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		node.ID,
		node.ApplicationID,
		node.FromUserID,
		node.ToUserID,
		nullString(node.Message),
		node.ActionType,
		nullString(node.PreviousNodeID),
		node.ActionDate,
		node.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create flow node",
			zap.String("application_id", node.ApplicationID),
			zap.Error(err))
		return fmt.Errorf("failed to create flow node: %w", err)
	}
	return nil
}

// GetByID retrieves a flow node by id
func (r *FlowNodeRepository) GetByID(ctx context.Context, id string) (*entity.ApplicationFlowNode, error) {
	if id == "" {
		return nil, fmt.Errorf("flow node id empty: %w", port.ErrNotFound)
	}
	query := `SELECT ` + flowNodeColumns + ` FROM application_flow_nodes WHERE id = ?`
	node, err := scanFlowNode(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("flow node %s: %w", id, port.ErrNotFound)
		}
		r.logger.Error("Failed to get flow node", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get flow node: %w", err)
	}
	return node, nil
}

// ListByApplication returns an application's nodes ordered by creation time
func (r *FlowNodeRepository) ListByApplication(ctx context.Context, applicationID string) ([]*entity.ApplicationFlowNode, error) {
	query := `SELECT ` + flowNodeColumns + ` FROM application_flow_nodes WHERE application_id = ? ORDER BY created_at ASC`
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, applicationID)
	if err != nil {
		r.logger.Error("Failed to list flow nodes",
			zap.String("application_id", applicationID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list flow nodes: %w", err)
	}
	defer rows.Close()

	nodes := []*entity.ApplicationFlowNode{}
	for rows.Next() {
		node, err := scanFlowNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow node: %w", err)
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

// SetNextNode binds the successor pointer on the chain tail. The null check
// in the WHERE clause guarantees the pointer is set exactly once.
func (r *FlowNodeRepository) SetNextNode(ctx context.Context, id, nextNodeID string) error {
	query := `
		UPDATE application_flow_nodes
		SET next_node_id = ?
		WHERE id = ? AND next_node_id IS NULL
	`
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, nextNodeID, id)
	if err != nil {
		r.logger.Error("Failed to set next node", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to set next node: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("flow node %s already has a successor: %w", id, port.ErrConflict)
	}
	return nil
}

// ListApplicationIDsByRecipient returns distinct application ids with a node
// routed to the user carrying the given action
func (r *FlowNodeRepository) ListApplicationIDsByRecipient(ctx context.Context, toUserID string, action workflow.Action) ([]string, error) {
	query := `SELECT DISTINCT application_id FROM application_flow_nodes WHERE to_user_id = ? AND action_type = ?`
	return r.collectIDs(ctx, query, toUserID, action)
}

// ListApplicationIDsByActor returns distinct application ids the user has
// acted on
func (r *FlowNodeRepository) ListApplicationIDsByActor(ctx context.Context, fromUserID string) ([]string, error) {
	query := `SELECT DISTINCT application_id FROM application_flow_nodes WHERE from_user_id = ?`
	return r.collectIDs(ctx, query, fromUserID)
}

func (r *FlowNodeRepository) collectIDs(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query flow node application ids", zap.Error(err))
		return nil, fmt.Errorf("failed to query flow nodes: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan application id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanFlowNode(row rowScanner) (*entity.ApplicationFlowNode, error) {
	var node entity.ApplicationFlowNode
	var message, previousNodeID, nextNodeID sql.NullString

	err := row.Scan(
		&node.ID,
		&node.ApplicationID,
		&node.FromUserID,
		&node.ToUserID,
		&message,
		&node.ActionType,
		&previousNodeID,
		&nextNodeID,
		&node.ActionDate,
		&node.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	node.Message = message.String
	node.PreviousNodeID = previousNodeID.String
	node.NextNodeID = nextNodeID.String
	return &node, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Verify interface compliance
var _ port.FlowNodeRepository = (*FlowNodeRepository)(nil)
