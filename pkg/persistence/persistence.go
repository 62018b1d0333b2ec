// Package persistence provides the data storage abstraction for flows,
// nodes and transitions.
package persistence

import (
	"context"

	"github.com/chatforge/chatforge/pkg/models"
)

// Persistence is the entry point to all repositories of one storage
// backend.
type Persistence interface {
	FlowRepository() FlowRepository
	NodeRepository() NodeRepository
	TransitionRepository() TransitionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListFlowsOptions controls filtering, sorting and pagination when
// listing flows. Soft-deleted flows are always excluded.
type ListFlowsOptions struct {
	Limit     int
	Offset    int
	TenantID  string
	IsActive  *bool
	SortBy    string // created_at, updated_at, name
	SortOrder string // asc, desc

	// IncludeGraph loads nodes and transitions for every listed flow.
	// List views usually leave it off.
	IncludeGraph bool
}

// FlowListResult is a page of flows plus pagination metadata.
type FlowListResult struct {
	Flows       []*models.Flow `json:"flows"`
	TotalCount  int64          `json:"total_count"`
	HasNextPage bool           `json:"has_next_page"`
}

// FlowRepository stores flow records. GetByID returns the flow with nodes
// and transitions eagerly populated, or nil when absent.
type FlowRepository interface {
	ListFlows(ctx context.Context, opts ListFlowsOptions) (*FlowListResult, error)
	GetByID(ctx context.Context, id string) (*models.Flow, error)
	GetBySlug(ctx context.Context, tenantID, slug string) (*models.Flow, error)
	Save(ctx context.Context, flow *models.Flow) error
	Delete(ctx context.Context, id string) error // soft delete
}

// NodeRepository stores nodes within a flow. Every structural write bumps
// the owning flow's version.
type NodeRepository interface {
	GetNodeByFlow(ctx context.Context, flowID, nodeID string) (*models.FlowNode, error)
	SaveNode(ctx context.Context, flowID string, node *models.FlowNode) error
	UpdateNode(ctx context.Context, flowID string, node *models.FlowNode) error

	// DeleteNodeWithTransitions removes the node and, atomically, every
	// transition referencing it from either end.
	DeleteNodeWithTransitions(ctx context.Context, flowID, nodeID string) error
}

// TransitionRepository stores transitions within a flow. Every structural
// write bumps the owning flow's version.
type TransitionRepository interface {
	GetTransitionByFlow(ctx context.Context, flowID, transitionID string) (*models.FlowTransition, error)
	SaveTransition(ctx context.Context, flowID string, transition *models.FlowTransition) error
	UpdateTransition(ctx context.Context, flowID string, transition *models.FlowTransition) error
	DeleteTransition(ctx context.Context, flowID, transitionID string) error
}
