package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chatforge/chatforge/pkg/eventbus"
	"github.com/chatforge/chatforge/pkg/events"
	"github.com/chatforge/chatforge/pkg/models"
	"github.com/chatforge/chatforge/pkg/persistence"
	"github.com/chatforge/chatforge/pkg/registry"
)

// CreateNodeRequest represents the request to create a new flow node.
// Config may be nil, in which case the registry default for the type is
// applied.
type CreateNodeRequest struct {
	Type     models.NodeType
	Name     string
	Position models.Position
	Config   map[string]any
	Metadata map[string]any
}

// UpdateNodeRequest represents a partial node update. Nil fields keep
// their current value; Type cannot be changed.
type UpdateNodeRequest struct {
	Name     *string
	Position *models.Position
	Config   map[string]any
	Metadata map[string]any
}

// Node handles node-related business operations.
type Node struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	publisher   eventbus.EventPublisher
}

// NewNode creates a new node service.
func NewNode(persistence persistence.Persistence, reg *registry.Registry, publisher eventbus.EventPublisher) *Node {
	return &Node{persistence: persistence, registry: reg, publisher: publisher}
}

// CreateNode creates a new node in the specified flow, seeded with the
// registry's default config for its type. A second start node is rejected.
func (s *Node) CreateNode(ctx context.Context, flowID string, req *CreateNodeRequest) (*models.FlowNode, error) {
	ctx, span := tracer.Start(ctx, "nodes.create")
	defer span.End()

	flow, err := s.fetchFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}

	def, err := s.registry.DefinitionOf(req.Type)
	if err != nil {
		return nil, err
	}

	if req.Type == models.NodeTypeStart && len(flow.StartNodes()) > 0 {
		return nil, ErrStartNodeExists
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = def.Label
	}

	config := req.Config
	if config == nil {
		config, err = s.registry.DefaultConfig(req.Type)
		if err != nil {
			return nil, err
		}
	}

	node := &models.FlowNode{
		ID:       uuid.New().String(),
		FlowID:   flowID,
		Name:     name,
		Type:     req.Type,
		Position: req.Position,
		Config:   config,
		Metadata: req.Metadata,
	}

	err = s.persistence.NodeRepository().SaveNode(ctx, flowID, node)
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("failed to save node: %w", err)
	}

	s.publish(ctx, flowID, events.NodeCreated{
		BaseEvent: s.baseEvent(events.NodeCreatedEvent, flow),
		Node:      node,
	})

	return node, nil
}

// RestoreNode re-inserts a previously deleted node, preserving its
// identifier. Used by editor undo.
func (s *Node) RestoreNode(ctx context.Context, flowID string, node *models.FlowNode) error {
	ctx, span := tracer.Start(ctx, "nodes.restore")
	defer span.End()

	flow, err := s.fetchFlow(ctx, flowID)
	if err != nil {
		return err
	}

	if _, err := s.registry.DefinitionOf(node.Type); err != nil {
		return err
	}

	err = s.persistence.NodeRepository().SaveNode(ctx, flowID, node)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("failed to restore node: %w", err)
	}

	s.publish(ctx, flowID, events.NodeCreated{
		BaseEvent: s.baseEvent(events.NodeCreatedEvent, flow),
		Node:      node,
	})

	return nil
}

// GetNode retrieves a specific node from the specified flow.
func (s *Node) GetNode(ctx context.Context, flowID, nodeID string) (*models.FlowNode, error) {
	return s.persistence.NodeRepository().GetNodeByFlow(ctx, flowID, nodeID)
}

// UpdateNode applies a partial update to an existing node.
func (s *Node) UpdateNode(ctx context.Context, flowID, nodeID string, req *UpdateNodeRequest) (*models.FlowNode, error) {
	ctx, span := tracer.Start(ctx, "nodes.update")
	defer span.End()

	flow, err := s.fetchFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}

	existing, err := s.persistence.NodeRepository().GetNodeByFlow(ctx, flowID, nodeID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, ErrNameRequired
		}

		existing.Name = *req.Name
	}

	if req.Position != nil {
		existing.Position = *req.Position
	}

	if req.Config != nil {
		existing.Config = req.Config
	}

	if req.Metadata != nil {
		existing.Metadata = req.Metadata
	}

	err = s.persistence.NodeRepository().UpdateNode(ctx, flowID, existing)
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("failed to update node: %w", err)
	}

	s.publish(ctx, flowID, events.NodeUpdated{
		BaseEvent: s.baseEvent(events.NodeUpdatedEvent, flow),
		Node:      existing,
	})

	return existing, nil
}

// DeleteNode deletes a node and, atomically, every transition referencing
// it from either end.
func (s *Node) DeleteNode(ctx context.Context, flowID, nodeID string) error {
	ctx, span := tracer.Start(ctx, "nodes.delete")
	defer span.End()

	flow, err := s.fetchFlow(ctx, flowID)
	if err != nil {
		return err
	}

	if flow.NodeByID(nodeID) == nil {
		return ErrNodeNotFound
	}

	cascaded := make([]string, 0)

	for _, transition := range flow.Transitions {
		if transition.FromNodeID == nodeID || transition.ToNodeID == nodeID {
			cascaded = append(cascaded, transition.ID)
		}
	}

	err = s.persistence.NodeRepository().DeleteNodeWithTransitions(ctx, flowID, nodeID)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("failed to delete node: %w", err)
	}

	s.publish(ctx, flowID, events.NodeDeleted{
		BaseEvent:             s.baseEvent(events.NodeDeletedEvent, flow),
		NodeID:                nodeID,
		CascadedTransitionIDs: cascaded,
	})

	return nil
}

func (s *Node) fetchFlow(ctx context.Context, flowID string) (*models.Flow, error) {
	flow, err := s.persistence.FlowRepository().GetByID(ctx, flowID)
	if err != nil {
		if persistence.IsFlowNotFound(err) {
			return nil, ErrFlowNotFound
		}

		return nil, fmt.Errorf("failed to get flow: %w", err)
	}

	if flow == nil {
		return nil, ErrFlowNotFound
	}

	return flow, nil
}

func (s *Node) baseEvent(eventType events.EventType, flow *models.Flow) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TenantID:  flow.TenantID,
		FlowID:    flow.ID,
	}
}

func (s *Node) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.Publish(ctx, key, event)
	if err != nil {
		slog.WarnContext(ctx, "Failed to publish node event",
			"event_type", event.GetType(), "error", err)
	}
}
