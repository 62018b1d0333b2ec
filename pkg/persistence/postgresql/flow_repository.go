package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/chatforge/chatforge/pkg/models"
	"github.com/chatforge/chatforge/pkg/persistence"
)

const uniqueViolation = "23505"

// FlowRepository handles flow row operations.
type FlowRepository struct {
	db *sql.DB
}

const flowColumns = `id, tenant_id, name, slug, description, is_active, is_default,
	version, config, metadata, created_at, updated_at, deleted_at`

// ListFlows returns paginated and filtered flows.
func (fr *FlowRepository) ListFlows(ctx context.Context, opts persistence.ListFlowsOptions) (*persistence.FlowListResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}

	if opts.SortOrder == "" {
		opts.SortOrder = "desc"
	}

	allowedSorts := map[string]bool{"created_at": true, "updated_at": true, "name": true}
	if !allowedSorts[opts.SortBy] {
		return nil, fmt.Errorf("%w: %s", persistence.ErrInvalidSortField, opts.SortBy)
	}

	order := "DESC"
	if opts.SortOrder == "asc" {
		order = "ASC"
	}

	where := "WHERE deleted_at IS NULL"
	args := []any{}

	if opts.TenantID != "" {
		args = append(args, opts.TenantID)
		where += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}

	if opts.IsActive != nil {
		args = append(args, *opts.IsActive)
		where += fmt.Sprintf(" AND is_active = $%d", len(args))
	}

	var totalCount int64

	err := fr.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM flows "+where, args...).Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count flows: %w", err)
	}

	// Sort column is allowlisted above, safe to interpolate.
	query := fmt.Sprintf("SELECT %s FROM flows %s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		flowColumns, where, opts.SortBy, order, len(args)+1, len(args)+2)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := fr.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	defer rows.Close()

	flows := make([]*models.Flow, 0)

	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}

		if opts.IncludeGraph {
			err = fr.loadGraph(ctx, flow)
			if err != nil {
				return nil, err
			}
		}

		flows = append(flows, flow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate flows: %w", err)
	}

	return &persistence.FlowListResult{
		Flows:       flows,
		TotalCount:  totalCount,
		HasNextPage: int64(opts.Offset+len(flows)) < totalCount,
	}, nil
}

// GetByID retrieves a flow with nodes and transitions populated. Returns
// nil without error when absent or soft-deleted.
func (fr *FlowRepository) GetByID(ctx context.Context, flowID string) (*models.Flow, error) {
	row := fr.db.QueryRowContext(ctx,
		"SELECT "+flowColumns+" FROM flows WHERE id = $1 AND deleted_at IS NULL", flowID)

	flow, err := scanFlow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	err = fr.loadGraph(ctx, flow)
	if err != nil {
		return nil, err
	}

	return flow, nil
}

// GetBySlug retrieves a tenant's flow by slug, or nil.
func (fr *FlowRepository) GetBySlug(ctx context.Context, tenantID, slug string) (*models.Flow, error) {
	row := fr.db.QueryRowContext(ctx,
		"SELECT "+flowColumns+" FROM flows WHERE tenant_id = $1 AND slug = $2 AND deleted_at IS NULL",
		tenantID, slug)

	flow, err := scanFlow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	err = fr.loadGraph(ctx, flow)
	if err != nil {
		return nil, err
	}

	return flow, nil
}

// Save upserts the flow record. Nodes and transitions are managed through
// their own repositories.
func (fr *FlowRepository) Save(ctx context.Context, flow *models.Flow) error {
	config, err := json.Marshal(flow.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal flow config: %w", err)
	}

	metadata, err := marshalMetadata(flow.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal flow metadata: %w", err)
	}

	if flow.Version == 0 {
		flow.Version = 1
	}

	_, err = fr.db.ExecContext(ctx, `
		INSERT INTO flows (id, tenant_id, name, slug, description, is_active, is_default, version, config, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			description = EXCLUDED.description,
			is_active = EXCLUDED.is_active,
			is_default = EXCLUDED.is_default,
			config = EXCLUDED.config,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()`,
		flow.ID, flow.TenantID, flow.Name, flow.Slug, flow.Description,
		flow.IsActive, flow.IsDefault, flow.Version, config, metadata)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return persistence.NewFlowError("Save", flow.ID, persistence.ErrSlugAlreadyExists)
		}

		return persistence.NewFlowError("Save", flow.ID, err)
	}

	return nil
}

// Delete soft-deletes the flow.
func (fr *FlowRepository) Delete(ctx context.Context, flowID string) error {
	result, err := fr.db.ExecContext(ctx,
		"UPDATE flows SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL",
		flowID)
	if err != nil {
		return persistence.NewFlowError("Delete", flowID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return persistence.NewFlowError("Delete", flowID, err)
	}

	if rows == 0 {
		return persistence.NewFlowError("Delete", flowID, persistence.ErrFlowNotFound)
	}

	return nil
}

// loadGraph populates the flow's nodes and transitions.
func (fr *FlowRepository) loadGraph(ctx context.Context, flow *models.Flow) error {
	nodes, err := fr.db.QueryContext(ctx, `
		SELECT id, flow_id, name, type, position_x, position_y, config, metadata
		FROM flow_nodes WHERE flow_id = $1 ORDER BY id`, flow.ID)
	if err != nil {
		return fmt.Errorf("failed to load nodes for flow %s: %w", flow.ID, err)
	}
	defer nodes.Close()

	flow.Nodes = make([]*models.FlowNode, 0)

	for nodes.Next() {
		node, err := scanNode(nodes)
		if err != nil {
			return err
		}

		flow.Nodes = append(flow.Nodes, node)
	}

	if err := nodes.Err(); err != nil {
		return fmt.Errorf("failed to iterate nodes for flow %s: %w", flow.ID, err)
	}

	transitions, err := fr.db.QueryContext(ctx, `
		SELECT id, flow_id, from_node_id, to_node_id, condition, priority, metadata
		FROM flow_transitions WHERE flow_id = $1 ORDER BY priority DESC, id`, flow.ID)
	if err != nil {
		return fmt.Errorf("failed to load transitions for flow %s: %w", flow.ID, err)
	}
	defer transitions.Close()

	flow.Transitions = make([]*models.FlowTransition, 0)

	for transitions.Next() {
		transition, err := scanTransition(transitions)
		if err != nil {
			return err
		}

		flow.Transitions = append(flow.Transitions, transition)
	}

	if err := transitions.Err(); err != nil {
		return fmt.Errorf("failed to iterate transitions for flow %s: %w", flow.ID, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlow(row rowScanner) (*models.Flow, error) {
	var (
		flow     models.Flow
		config   []byte
		metadata []byte
	)

	err := row.Scan(&flow.ID, &flow.TenantID, &flow.Name, &flow.Slug, &flow.Description,
		&flow.IsActive, &flow.IsDefault, &flow.Version, &config, &metadata,
		&flow.CreatedAt, &flow.UpdatedAt, &flow.DeletedAt)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(config, &flow.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config for flow %s: %w", flow.ID, err)
	}

	flow.Metadata, err = unmarshalMetadata(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata for flow %s: %w", flow.ID, err)
	}

	return &flow, nil
}

func scanNode(row rowScanner) (*models.FlowNode, error) {
	var (
		node     models.FlowNode
		config   []byte
		metadata []byte
	)

	err := row.Scan(&node.ID, &node.FlowID, &node.Name, &node.Type,
		&node.Position.X, &node.Position.Y, &config, &metadata)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(config, &node.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config for node %s: %w", node.ID, err)
	}

	node.Metadata, err = unmarshalMetadata(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata for node %s: %w", node.ID, err)
	}

	return &node, nil
}

func scanTransition(row rowScanner) (*models.FlowTransition, error) {
	var (
		transition models.FlowTransition
		metadata   []byte
	)

	err := row.Scan(&transition.ID, &transition.FlowID, &transition.FromNodeID,
		&transition.ToNodeID, &transition.Condition, &transition.Priority, &metadata)
	if err != nil {
		return nil, err
	}

	transition.Metadata, err = unmarshalMetadata(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata for transition %s: %w", transition.ID, err)
	}

	return &transition, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}

	return json.Marshal(metadata)
}

func unmarshalMetadata(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var metadata map[string]any

	err := json.Unmarshal(raw, &metadata)
	if err != nil {
		return nil, err
	}

	return metadata, nil
}
