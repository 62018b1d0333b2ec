package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/chatforge/chatforge/pkg/eventbus"
	"github.com/chatforge/chatforge/pkg/events"
	"github.com/chatforge/chatforge/pkg/models"
	"github.com/chatforge/chatforge/pkg/persistence"
)

var tracer = otel.Tracer("github.com/chatforge/chatforge/pkg/services")

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Flow handles flow-level business operations.
type Flow struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
}

// NewFlow creates a new flow service. The publisher may be nil when no
// event bus is configured.
func NewFlow(persistence persistence.Persistence, publisher eventbus.EventPublisher) *Flow {
	return &Flow{persistence: persistence, publisher: publisher}
}

// HealthCheck checks the health of the persistence layer.
func (s *Flow) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListFlowsRequest contains options for listing flows.
type ListFlowsRequest struct {
	Limit    int
	Offset   int
	TenantID string
	IsActive *bool

	SortBy    string
	SortOrder string

	IncludeGraph bool
}

// ListFlows retrieves flows with filtering, sorting and pagination.
func (s *Flow) ListFlows(ctx context.Context, req ListFlowsRequest) (*persistence.FlowListResult, error) {
	err := s.validateListFlowsRequest(&req)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	result, err := s.persistence.FlowRepository().ListFlows(ctx, persistence.ListFlowsOptions{
		Limit:        req.Limit,
		Offset:       req.Offset,
		TenantID:     req.TenantID,
		IsActive:     req.IsActive,
		SortBy:       req.SortBy,
		SortOrder:    req.SortOrder,
		IncludeGraph: req.IncludeGraph,
	})
	if err != nil {
		if persistence.IsInvalidSortField(err) {
			return nil, ErrInvalidSortField
		}

		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	return result, nil
}

func (s *Flow) validateListFlowsRequest(req *ListFlowsRequest) error {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	if req.Limit > 100 {
		req.Limit = 100
	}

	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.SortBy == "" {
		req.SortBy = "created_at"
	}

	if req.SortOrder == "" {
		req.SortOrder = "desc"
	}

	allowedSorts := []string{"created_at", "updated_at", "name"}
	if !slices.Contains(allowedSorts, req.SortBy) {
		return NewValidationError(
			"validateListFlowsRequest",
			"INVALID_SORT_FIELD",
			fmt.Sprintf("invalid sort field '%s', allowed: %s", req.SortBy, strings.Join(allowedSorts, ", ")),
			ErrInvalidSortField,
		)
	}

	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		return NewValidationError(
			"validateListFlowsRequest",
			"INVALID_SORT_ORDER",
			fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", req.SortOrder),
			ErrInvalidSortOrder,
		)
	}

	return nil
}

// FetchByID retrieves a flow by its ID, nodes and transitions included.
func (s *Flow) FetchByID(ctx context.Context, id string) (*models.Flow, error) {
	flow, err := s.persistence.FlowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if flow == nil {
		return nil, ErrFlowNotFound
	}

	return flow, nil
}

// Create adds a new flow. An empty slug is derived from the name.
func (s *Flow) Create(ctx context.Context, flow *models.Flow) (*models.Flow, error) {
	ctx, span := tracer.Start(ctx, "flows.create")
	defer span.End()

	if flow == nil {
		return nil, ErrFlowNil
	}

	if strings.TrimSpace(flow.Name) == "" {
		return nil, ErrNameRequired
	}

	if flow.Slug == "" {
		flow.Slug = Slugify(flow.Name)
	}

	if !slugPattern.MatchString(flow.Slug) {
		return nil, NewValidationError("Create", "INVALID_SLUG",
			fmt.Sprintf("invalid slug %q", flow.Slug), ErrInvalidSlug)
	}

	existing, err := s.persistence.FlowRepository().GetBySlug(ctx, flow.TenantID, flow.Slug)
	if err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}

	if existing != nil {
		return nil, ErrSlugTaken
	}

	now := time.Now().UTC()
	flow.ID = uuid.New().String()
	flow.Version = 1
	flow.CreatedAt = now
	flow.UpdatedAt = now

	if flow.Nodes == nil {
		flow.Nodes = []*models.FlowNode{}
	}

	if flow.Transitions == nil {
		flow.Transitions = []*models.FlowTransition{}
	}

	err = s.persistence.FlowRepository().Save(ctx, flow)
	if err != nil {
		span.RecordError(err)

		if persistence.IsSlugAlreadyExists(err) {
			return nil, ErrSlugTaken
		}

		return nil, fmt.Errorf("failed to create flow: %w", err)
	}

	s.publish(ctx, flow.ID, events.FlowCreated{
		BaseEvent: s.baseEvent(events.FlowCreatedEvent, flow),
		Flow:      flow,
	})

	return flow, nil
}

// Update modifies an existing flow's record fields. The graph is managed
// through the node and transition services.
func (s *Flow) Update(ctx context.Context, flowID string, flow *models.Flow) (*models.Flow, error) {
	ctx, span := tracer.Start(ctx, "flows.update")
	defer span.End()

	existing, err := s.persistence.FlowRepository().GetByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return nil, ErrFlowNotFound
	}

	if !slugPattern.MatchString(flow.Slug) {
		return nil, NewValidationError("Update", "INVALID_SLUG",
			fmt.Sprintf("invalid slug %q", flow.Slug), ErrInvalidSlug)
	}

	flow.ID = flowID
	flow.TenantID = existing.TenantID
	flow.Version = existing.Version
	flow.CreatedAt = existing.CreatedAt
	flow.UpdatedAt = time.Now().UTC()

	err = s.persistence.FlowRepository().Save(ctx, flow)
	if err != nil {
		span.RecordError(err)

		if persistence.IsSlugAlreadyExists(err) {
			return nil, ErrSlugTaken
		}

		return nil, fmt.Errorf("failed to update flow: %w", err)
	}

	s.publish(ctx, flow.ID, events.FlowUpdated{
		BaseEvent: s.baseEvent(events.FlowUpdatedEvent, flow),
		Flow:      flow,
	})

	return flow, nil
}

// Delete soft-deletes a flow by its ID.
func (s *Flow) Delete(ctx context.Context, flowID string) error {
	ctx, span := tracer.Start(ctx, "flows.delete")
	defer span.End()

	existing, err := s.persistence.FlowRepository().GetByID(ctx, flowID)
	if err != nil {
		return err
	}

	if existing == nil {
		return ErrFlowNotFound
	}

	err = s.persistence.FlowRepository().Delete(ctx, flowID)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("failed to delete flow: %w", err)
	}

	s.publish(ctx, flowID, events.FlowDeleted{
		BaseEvent: s.baseEvent(events.FlowDeletedEvent, existing),
	})

	return nil
}

func (s *Flow) baseEvent(eventType events.EventType, flow *models.Flow) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TenantID:  flow.TenantID,
		FlowID:    flow.ID,
	}
}

func (s *Flow) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.Publish(ctx, key, event)
	if err != nil {
		slog.WarnContext(ctx, "Failed to publish flow event",
			"event_type", event.GetType(), "error", err)
	}
}

// Slugify derives a URL-safe slug from a display name.
func Slugify(name string) string {
	var b strings.Builder

	lastDash := true // suppress leading dashes

	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)

			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')

				lastDash = true
			}
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
