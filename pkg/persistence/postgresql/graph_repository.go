package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chatforge/chatforge/pkg/models"
	"github.com/chatforge/chatforge/pkg/persistence"
)

// NodeRepository handles flow_nodes row operations.
type NodeRepository struct {
	db *sql.DB
}

// GetNodeByFlow retrieves one node of a flow.
func (nr *NodeRepository) GetNodeByFlow(ctx context.Context, flowID, nodeID string) (*models.FlowNode, error) {
	row := nr.db.QueryRowContext(ctx, `
		SELECT id, flow_id, name, type, position_x, position_y, config, metadata
		FROM flow_nodes WHERE flow_id = $1 AND id = $2`, flowID, nodeID)

	node, err := scanNode(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewNodeError("GetNodeByFlow", flowID, nodeID, persistence.ErrNodeNotFound)
		}

		return nil, persistence.NewNodeError("GetNodeByFlow", flowID, nodeID, err)
	}

	return node, nil
}

// SaveNode inserts the node and bumps the flow version in one transaction.
func (nr *NodeRepository) SaveNode(ctx context.Context, flowID string, node *models.FlowNode) error {
	return inTx(ctx, nr.db, func(tx *sql.Tx) error {
		err := bumpFlowVersion(ctx, tx, flowID)
		if err != nil {
			return persistence.NewNodeError("SaveNode", flowID, node.ID, err)
		}

		config, metadata, err := marshalNodePayload(node)
		if err != nil {
			return persistence.NewNodeError("SaveNode", flowID, node.ID, err)
		}

		node.FlowID = flowID

		_, err = tx.ExecContext(ctx, `
			INSERT INTO flow_nodes (id, flow_id, name, type, position_x, position_y, config, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			node.ID, flowID, node.Name, node.Type, node.Position.X, node.Position.Y, config, metadata)
		if err != nil {
			return persistence.NewNodeError("SaveNode", flowID, node.ID, err)
		}

		return nil
	})
}

// UpdateNode rewrites the node row and bumps the flow version.
func (nr *NodeRepository) UpdateNode(ctx context.Context, flowID string, node *models.FlowNode) error {
	return inTx(ctx, nr.db, func(tx *sql.Tx) error {
		err := bumpFlowVersion(ctx, tx, flowID)
		if err != nil {
			return persistence.NewNodeError("UpdateNode", flowID, node.ID, err)
		}

		config, metadata, err := marshalNodePayload(node)
		if err != nil {
			return persistence.NewNodeError("UpdateNode", flowID, node.ID, err)
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE flow_nodes
			SET name = $3, position_x = $4, position_y = $5, config = $6, metadata = $7
			WHERE flow_id = $1 AND id = $2`,
			flowID, node.ID, node.Name, node.Position.X, node.Position.Y, config, metadata)
		if err != nil {
			return persistence.NewNodeError("UpdateNode", flowID, node.ID, err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return persistence.NewNodeError("UpdateNode", flowID, node.ID, err)
		}

		if rows == 0 {
			return persistence.NewNodeError("UpdateNode", flowID, node.ID, persistence.ErrNodeNotFound)
		}

		return nil
	})
}

// DeleteNodeWithTransitions removes the node and every transition
// referencing it, atomically.
func (nr *NodeRepository) DeleteNodeWithTransitions(ctx context.Context, flowID, nodeID string) error {
	return inTx(ctx, nr.db, func(tx *sql.Tx) error {
		err := bumpFlowVersion(ctx, tx, flowID)
		if err != nil {
			return persistence.NewNodeError("DeleteNodeWithTransitions", flowID, nodeID, err)
		}

		_, err = tx.ExecContext(ctx, `
			DELETE FROM flow_transitions
			WHERE flow_id = $1 AND (from_node_id = $2 OR to_node_id = $2)`, flowID, nodeID)
		if err != nil {
			return persistence.NewNodeError("DeleteNodeWithTransitions", flowID, nodeID, err)
		}

		result, err := tx.ExecContext(ctx,
			"DELETE FROM flow_nodes WHERE flow_id = $1 AND id = $2", flowID, nodeID)
		if err != nil {
			return persistence.NewNodeError("DeleteNodeWithTransitions", flowID, nodeID, err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return persistence.NewNodeError("DeleteNodeWithTransitions", flowID, nodeID, err)
		}

		if rows == 0 {
			return persistence.NewNodeError("DeleteNodeWithTransitions", flowID, nodeID, persistence.ErrNodeNotFound)
		}

		return nil
	})
}

// TransitionRepository handles flow_transitions row operations.
type TransitionRepository struct {
	db *sql.DB
}

// GetTransitionByFlow retrieves one transition of a flow.
func (tr *TransitionRepository) GetTransitionByFlow(ctx context.Context, flowID, transitionID string) (*models.FlowTransition, error) {
	row := tr.db.QueryRowContext(ctx, `
		SELECT id, flow_id, from_node_id, to_node_id, condition, priority, metadata
		FROM flow_transitions WHERE flow_id = $1 AND id = $2`, flowID, transitionID)

	transition, err := scanTransition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewTransitionError("GetTransitionByFlow", flowID, transitionID, persistence.ErrTransitionNotFound)
		}

		return nil, persistence.NewTransitionError("GetTransitionByFlow", flowID, transitionID, err)
	}

	return transition, nil
}

// SaveTransition inserts the transition and bumps the flow version. The
// node foreign keys reject dangling endpoints.
func (tr *TransitionRepository) SaveTransition(ctx context.Context, flowID string, transition *models.FlowTransition) error {
	return inTx(ctx, tr.db, func(tx *sql.Tx) error {
		err := bumpFlowVersion(ctx, tx, flowID)
		if err != nil {
			return persistence.NewTransitionError("SaveTransition", flowID, transition.ID, err)
		}

		metadata, err := marshalMetadata(transition.Metadata)
		if err != nil {
			return persistence.NewTransitionError("SaveTransition", flowID, transition.ID, err)
		}

		transition.FlowID = flowID

		_, err = tx.ExecContext(ctx, `
			INSERT INTO flow_transitions (id, flow_id, from_node_id, to_node_id, condition, priority, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			transition.ID, flowID, transition.FromNodeID, transition.ToNodeID,
			transition.Condition, transition.Priority, metadata)
		if err != nil {
			return persistence.NewTransitionError("SaveTransition", flowID, transition.ID, err)
		}

		return nil
	})
}

// UpdateTransition rewrites the transition row and bumps the flow version.
func (tr *TransitionRepository) UpdateTransition(ctx context.Context, flowID string, transition *models.FlowTransition) error {
	return inTx(ctx, tr.db, func(tx *sql.Tx) error {
		err := bumpFlowVersion(ctx, tx, flowID)
		if err != nil {
			return persistence.NewTransitionError("UpdateTransition", flowID, transition.ID, err)
		}

		metadata, err := marshalMetadata(transition.Metadata)
		if err != nil {
			return persistence.NewTransitionError("UpdateTransition", flowID, transition.ID, err)
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE flow_transitions
			SET condition = $3, priority = $4, metadata = $5
			WHERE flow_id = $1 AND id = $2`,
			flowID, transition.ID, transition.Condition, transition.Priority, metadata)
		if err != nil {
			return persistence.NewTransitionError("UpdateTransition", flowID, transition.ID, err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return persistence.NewTransitionError("UpdateTransition", flowID, transition.ID, err)
		}

		if rows == 0 {
			return persistence.NewTransitionError("UpdateTransition", flowID, transition.ID, persistence.ErrTransitionNotFound)
		}

		return nil
	})
}

// DeleteTransition removes one transition and bumps the flow version.
func (tr *TransitionRepository) DeleteTransition(ctx context.Context, flowID, transitionID string) error {
	return inTx(ctx, tr.db, func(tx *sql.Tx) error {
		err := bumpFlowVersion(ctx, tx, flowID)
		if err != nil {
			return persistence.NewTransitionError("DeleteTransition", flowID, transitionID, err)
		}

		result, err := tx.ExecContext(ctx,
			"DELETE FROM flow_transitions WHERE flow_id = $1 AND id = $2", flowID, transitionID)
		if err != nil {
			return persistence.NewTransitionError("DeleteTransition", flowID, transitionID, err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return persistence.NewTransitionError("DeleteTransition", flowID, transitionID, err)
		}

		if rows == 0 {
			return persistence.NewTransitionError("DeleteTransition", flowID, transitionID, persistence.ErrTransitionNotFound)
		}

		return nil
	})
}

func marshalNodePayload(node *models.FlowNode) ([]byte, []byte, error) {
	if node.Config == nil {
		node.Config = map[string]any{}
	}

	config, err := json.Marshal(node.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal node config: %w", err)
	}

	metadata, err := marshalMetadata(node.Metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal node metadata: %w", err)
	}

	return config, metadata, nil
}

// inTx runs fn inside a transaction, rolling back on error.
func inTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	err = fn(tx)
	if err != nil {
		_ = tx.Rollback()

		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
