package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chatforge/chatforge/pkg/eventbus"
	"github.com/chatforge/chatforge/pkg/events"
	"github.com/chatforge/chatforge/pkg/models"
	"github.com/chatforge/chatforge/pkg/persistence"
)

// CreateTransitionRequest represents the request to connect two nodes.
type CreateTransitionRequest struct {
	FromNodeID string
	ToNodeID   string
	Condition  string
	Priority   int
	Metadata   map[string]any
}

// UpdateTransitionRequest represents a partial transition update. The
// endpoints cannot be changed; delete and recreate instead.
type UpdateTransitionRequest struct {
	Condition *string
	Priority  *int
	Metadata  map[string]any
}

// Transition handles transition-related business operations.
type Transition struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
}

// NewTransition creates a new transition service.
func NewTransition(persistence persistence.Persistence, publisher eventbus.EventPublisher) *Transition {
	return &Transition{persistence: persistence, publisher: publisher}
}

// CreateTransition connects two existing nodes of a flow. Self-loops are
// rejected, as are priorities outside the 0..100 range.
func (s *Transition) CreateTransition(ctx context.Context, flowID string, req *CreateTransitionRequest) (*models.FlowTransition, error) {
	ctx, span := tracer.Start(ctx, "transitions.create")
	defer span.End()

	flow, err := s.fetchFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}

	if req.FromNodeID == req.ToNodeID {
		return nil, ErrSelfTransition
	}

	if flow.NodeByID(req.FromNodeID) == nil || flow.NodeByID(req.ToNodeID) == nil {
		return nil, ErrNodeNotFound
	}

	if req.Priority < 0 || req.Priority > 100 {
		return nil, ErrInvalidPriority
	}

	transition := &models.FlowTransition{
		ID:         uuid.New().String(),
		FlowID:     flowID,
		FromNodeID: req.FromNodeID,
		ToNodeID:   req.ToNodeID,
		Condition:  req.Condition,
		Priority:   req.Priority,
		Metadata:   req.Metadata,
	}

	err = s.persistence.TransitionRepository().SaveTransition(ctx, flowID, transition)
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("failed to save transition: %w", err)
	}

	s.publish(ctx, flowID, events.TransitionCreated{
		BaseEvent:  s.baseEvent(events.TransitionCreatedEvent, flow),
		Transition: transition,
	})

	return transition, nil
}

// RestoreTransition re-inserts a previously deleted transition, preserving
// its identifier. Used by editor undo.
func (s *Transition) RestoreTransition(ctx context.Context, flowID string, transition *models.FlowTransition) error {
	ctx, span := tracer.Start(ctx, "transitions.restore")
	defer span.End()

	flow, err := s.fetchFlow(ctx, flowID)
	if err != nil {
		return err
	}

	if transition.FromNodeID == transition.ToNodeID {
		return ErrSelfTransition
	}

	err = s.persistence.TransitionRepository().SaveTransition(ctx, flowID, transition)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("failed to restore transition: %w", err)
	}

	s.publish(ctx, flowID, events.TransitionCreated{
		BaseEvent:  s.baseEvent(events.TransitionCreatedEvent, flow),
		Transition: transition,
	})

	return nil
}

// GetTransition retrieves a specific transition from the specified flow.
func (s *Transition) GetTransition(ctx context.Context, flowID, transitionID string) (*models.FlowTransition, error) {
	return s.persistence.TransitionRepository().GetTransitionByFlow(ctx, flowID, transitionID)
}

// UpdateTransition applies a partial update to an existing transition.
func (s *Transition) UpdateTransition(ctx context.Context, flowID, transitionID string, req *UpdateTransitionRequest) (*models.FlowTransition, error) {
	ctx, span := tracer.Start(ctx, "transitions.update")
	defer span.End()

	flow, err := s.fetchFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}

	existing, err := s.persistence.TransitionRepository().GetTransitionByFlow(ctx, flowID, transitionID)
	if err != nil {
		return nil, err
	}

	if req.Condition != nil {
		existing.Condition = *req.Condition
	}

	if req.Priority != nil {
		if *req.Priority < 0 || *req.Priority > 100 {
			return nil, ErrInvalidPriority
		}

		existing.Priority = *req.Priority
	}

	if req.Metadata != nil {
		existing.Metadata = req.Metadata
	}

	err = s.persistence.TransitionRepository().UpdateTransition(ctx, flowID, existing)
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("failed to update transition: %w", err)
	}

	s.publish(ctx, flowID, events.TransitionUpdated{
		BaseEvent:  s.baseEvent(events.TransitionUpdatedEvent, flow),
		Transition: existing,
	})

	return existing, nil
}

// DeleteTransition removes a transition from a flow.
func (s *Transition) DeleteTransition(ctx context.Context, flowID, transitionID string) error {
	ctx, span := tracer.Start(ctx, "transitions.delete")
	defer span.End()

	flow, err := s.fetchFlow(ctx, flowID)
	if err != nil {
		return err
	}

	if flow.TransitionByID(transitionID) == nil {
		return ErrTransitionNotFound
	}

	err = s.persistence.TransitionRepository().DeleteTransition(ctx, flowID, transitionID)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("failed to delete transition: %w", err)
	}

	s.publish(ctx, flowID, events.TransitionDeleted{
		BaseEvent:    s.baseEvent(events.TransitionDeletedEvent, flow),
		TransitionID: transitionID,
	})

	return nil
}

func (s *Transition) fetchFlow(ctx context.Context, flowID string) (*models.Flow, error) {
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

func (s *Transition) baseEvent(eventType events.EventType, flow *models.Flow) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TenantID:  flow.TenantID,
		FlowID:    flow.ID,
	}
}

func (s *Transition) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.Publish(ctx, key, event)
	if err != nil {
		slog.WarnContext(ctx, "Failed to publish transition event",
			"event_type", event.GetType(), "error", err)
	}
}
