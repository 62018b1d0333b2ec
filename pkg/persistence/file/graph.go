package file

import (
	"context"

	"github.com/chatforge/chatforge/pkg/models"
	"github.com/chatforge/chatforge/pkg/persistence"
)

// NodeRepository stores nodes inside the owning flow document.
type NodeRepository struct {
	p *Persistence
}

// GetNodeByFlow retrieves one node of a flow.
func (nr *NodeRepository) GetNodeByFlow(ctx context.Context, flowID, nodeID string) (*models.FlowNode, error) {
	flow, err := nr.p.flowRepo.GetByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	if flow == nil {
		return nil, persistence.NewNodeError("GetNodeByFlow", flowID, nodeID, persistence.ErrFlowNotFound)
	}

	node := flow.NodeByID(nodeID)
	if node == nil {
		return nil, persistence.NewNodeError("GetNodeByFlow", flowID, nodeID, persistence.ErrNodeNotFound)
	}

	return node, nil
}

// SaveNode appends a new node to the flow and bumps the flow version.
func (nr *NodeRepository) SaveNode(ctx context.Context, flowID string, node *models.FlowNode) error {
	return nr.p.flowRepo.mutate(ctx, "SaveNode", flowID, func(flow *models.Flow) error {
		node.FlowID = flowID
		flow.Nodes = append(flow.Nodes, node)

		return nil
	})
}

// UpdateNode replaces the matching node in place and bumps the flow version.
func (nr *NodeRepository) UpdateNode(ctx context.Context, flowID string, node *models.FlowNode) error {
	return nr.p.flowRepo.mutate(ctx, "UpdateNode", flowID, func(flow *models.Flow) error {
		for i, existing := range flow.Nodes {
			if existing.ID == node.ID {
				node.FlowID = flowID
				flow.Nodes[i] = node

				return nil
			}
		}

		return persistence.NewNodeError("UpdateNode", flowID, node.ID, persistence.ErrNodeNotFound)
	})
}

// DeleteNodeWithTransitions removes the node and every transition touching
// it in one write.
func (nr *NodeRepository) DeleteNodeWithTransitions(ctx context.Context, flowID, nodeID string) error {
	return nr.p.flowRepo.mutate(ctx, "DeleteNodeWithTransitions", flowID, func(flow *models.Flow) error {
		found := false

		nodes := flow.Nodes[:0]
		for _, node := range flow.Nodes {
			if node.ID == nodeID {
				found = true

				continue
			}

			nodes = append(nodes, node)
		}

		if !found {
			return persistence.NewNodeError("DeleteNodeWithTransitions", flowID, nodeID, persistence.ErrNodeNotFound)
		}

		flow.Nodes = nodes

		transitions := flow.Transitions[:0]
		for _, transition := range flow.Transitions {
			if transition.FromNodeID == nodeID || transition.ToNodeID == nodeID {
				continue
			}

			transitions = append(transitions, transition)
		}

		flow.Transitions = transitions

		return nil
	})
}

// TransitionRepository stores transitions inside the owning flow document.
type TransitionRepository struct {
	p *Persistence
}

// GetTransitionByFlow retrieves one transition of a flow.
func (tr *TransitionRepository) GetTransitionByFlow(ctx context.Context, flowID, transitionID string) (*models.FlowTransition, error) {
	flow, err := tr.p.flowRepo.GetByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	if flow == nil {
		return nil, persistence.NewTransitionError("GetTransitionByFlow", flowID, transitionID, persistence.ErrFlowNotFound)
	}

	transition := flow.TransitionByID(transitionID)
	if transition == nil {
		return nil, persistence.NewTransitionError("GetTransitionByFlow", flowID, transitionID, persistence.ErrTransitionNotFound)
	}

	return transition, nil
}

// SaveTransition appends a new transition and bumps the flow version.
// Both endpoints must exist in the flow.
func (tr *TransitionRepository) SaveTransition(ctx context.Context, flowID string, transition *models.FlowTransition) error {
	return tr.p.flowRepo.mutate(ctx, "SaveTransition", flowID, func(flow *models.Flow) error {
		if flow.NodeByID(transition.FromNodeID) == nil {
			return persistence.NewNodeError("SaveTransition", flowID, transition.FromNodeID, persistence.ErrNodeNotFound)
		}

		if flow.NodeByID(transition.ToNodeID) == nil {
			return persistence.NewNodeError("SaveTransition", flowID, transition.ToNodeID, persistence.ErrNodeNotFound)
		}

		transition.FlowID = flowID
		flow.Transitions = append(flow.Transitions, transition)

		return nil
	})
}

// UpdateTransition replaces the matching transition in place and bumps the
// flow version.
func (tr *TransitionRepository) UpdateTransition(ctx context.Context, flowID string, transition *models.FlowTransition) error {
	return tr.p.flowRepo.mutate(ctx, "UpdateTransition", flowID, func(flow *models.Flow) error {
		for i, existing := range flow.Transitions {
			if existing.ID == transition.ID {
				transition.FlowID = flowID
				flow.Transitions[i] = transition

				return nil
			}
		}

		return persistence.NewTransitionError("UpdateTransition", flowID, transition.ID, persistence.ErrTransitionNotFound)
	})
}

// DeleteTransition removes one transition and bumps the flow version.
func (tr *TransitionRepository) DeleteTransition(ctx context.Context, flowID, transitionID string) error {
	return tr.p.flowRepo.mutate(ctx, "DeleteTransition", flowID, func(flow *models.Flow) error {
		for i, existing := range flow.Transitions {
			if existing.ID == transitionID {
				flow.Transitions = append(flow.Transitions[:i], flow.Transitions[i+1:]...)

				return nil
			}
		}

		return persistence.NewTransitionError("DeleteTransition", flowID, transitionID, persistence.ErrTransitionNotFound)
	})
}
