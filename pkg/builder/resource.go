package builder

import (
	"context"

	"github.com/chatforge/chatforge/pkg/models"
	"github.com/chatforge/chatforge/pkg/services"
)

// FlowResource is the backend surface an editor session mutates through.
// The restore operations re-insert entities with their original IDs and
// exist for undo.
type FlowResource interface {
	FetchFlow(ctx context.Context, flowID string) (*models.Flow, error)

	CreateNode(ctx context.Context, flowID string, req *services.CreateNodeRequest) (*models.FlowNode, error)
	UpdateNode(ctx context.Context, flowID, nodeID string, req *services.UpdateNodeRequest) (*models.FlowNode, error)
	DeleteNode(ctx context.Context, flowID, nodeID string) error
	RestoreNode(ctx context.Context, flowID string, node *models.FlowNode) error

	CreateTransition(ctx context.Context, flowID string, req *services.CreateTransitionRequest) (*models.FlowTransition, error)
	UpdateTransition(ctx context.Context, flowID, transitionID string, req *services.UpdateTransitionRequest) (*models.FlowTransition, error)
	DeleteTransition(ctx context.Context, flowID, transitionID string) error
	RestoreTransition(ctx context.Context, flowID string, transition *models.FlowTransition) error
}

// ServiceResource adapts the service layer to the FlowResource surface.
type ServiceResource struct {
	Flows       *services.Flow
	Nodes       *services.Node
	Transitions *services.Transition
}

var _ FlowResource = (*ServiceResource)(nil)

func (r *ServiceResource) FetchFlow(ctx context.Context, flowID string) (*models.Flow, error) {
	return r.Flows.FetchByID(ctx, flowID)
}

func (r *ServiceResource) CreateNode(ctx context.Context, flowID string, req *services.CreateNodeRequest) (*models.FlowNode, error) {
	return r.Nodes.CreateNode(ctx, flowID, req)
}

func (r *ServiceResource) UpdateNode(ctx context.Context, flowID, nodeID string, req *services.UpdateNodeRequest) (*models.FlowNode, error) {
	return r.Nodes.UpdateNode(ctx, flowID, nodeID, req)
}

func (r *ServiceResource) DeleteNode(ctx context.Context, flowID, nodeID string) error {
	return r.Nodes.DeleteNode(ctx, flowID, nodeID)
}

func (r *ServiceResource) RestoreNode(ctx context.Context, flowID string, node *models.FlowNode) error {
	return r.Nodes.RestoreNode(ctx, flowID, node)
}

func (r *ServiceResource) CreateTransition(ctx context.Context, flowID string, req *services.CreateTransitionRequest) (*models.FlowTransition, error) {
	return r.Transitions.CreateTransition(ctx, flowID, req)
}

func (r *ServiceResource) UpdateTransition(ctx context.Context, flowID, transitionID string, req *services.UpdateTransitionRequest) (*models.FlowTransition, error) {
	return r.Transitions.UpdateTransition(ctx, flowID, transitionID, req)
}

func (r *ServiceResource) DeleteTransition(ctx context.Context, flowID, transitionID string) error {
	return r.Transitions.DeleteTransition(ctx, flowID, transitionID)
}

func (r *ServiceResource) RestoreTransition(ctx context.Context, flowID string, transition *models.FlowTransition) error {
	return r.Transitions.RestoreTransition(ctx, flowID, transition)
}
