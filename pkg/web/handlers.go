package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/chatforge/chatforge/pkg/geometry"
	"github.com/chatforge/chatforge/pkg/models"
	"github.com/chatforge/chatforge/pkg/persistence"
	"github.com/chatforge/chatforge/pkg/registry"
	"github.com/chatforge/chatforge/pkg/services"
)

type APIHandlers struct {
	flowService       *services.Flow
	nodeService       *services.Node
	transitionService *services.Transition
	validator         *validator.Validate
	registry          *registry.Registry
}

func NewAPIHandlers(
	flowService *services.Flow,
	nodeService *services.Node,
	transitionService *services.Transition,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		flowService:       flowService,
		nodeService:       nodeService,
		transitionService: transitionService,
		validator:         validator,
		registry:          registry,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOK := h.registry.HealthCheck()
	repositoryCheck, repOK := h.flowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "ChatForge API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOK && repOK {
		status = "healthy"
		message = "ChatForge API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"catalog":    registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetFlows(c fiber.Ctx) error {
	req, err := h.parseListFlowsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.flowService.ListFlows(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"flows":         result.Flows,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
		"sorting": fiber.Map{
			"sort_by":    req.SortBy,
			"sort_order": req.SortOrder,
		},
	})
}

// parseListFlowsRequest parses and validates query parameters for listing flows.
func (h *APIHandlers) parseListFlowsRequest(c fiber.Ctx) (*services.ListFlowsRequest, error) {
	req := &services.ListFlowsRequest{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	req.TenantID = c.Query("tenant_id")

	if activeStr := c.Query("is_active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil {
			return nil, err
		}

		req.IsActive = &active
	}

	req.SortBy = c.Query("sort_by")
	req.SortOrder = c.Query("sort_order")

	if includeGraphStr := c.Query("include_graph"); includeGraphStr != "" {
		includeGraph, err := strconv.ParseBool(includeGraphStr)
		if err != nil {
			return nil, err
		}

		req.IncludeGraph = includeGraph
	}

	return req, nil
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	flow, err := h.flowService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsFlowNotFound(err) {
			return notFound(c, "Flow not found")
		}

		return internalError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) CreateFlow(c fiber.Ctx) error {
	var req CreateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	flow := &models.Flow{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		TenantID:    req.TenantID,
		IsActive:    req.IsActive,
		IsDefault:   req.IsDefault,
		Config:      req.Config,
		Metadata:    req.Metadata,
		Nodes:       []*models.FlowNode{},       // Empty - nodes added separately
		Transitions: []*models.FlowTransition{}, // Empty - transitions added separately
	}

	created, err := h.flowService.Create(c.Context(), flow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req UpdateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.flowService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsFlowNotFound(err) {
			return notFound(c, "Flow not found")
		}

		return internalError(c, err)
	}

	// Apply partial updates (nodes and transitions managed separately)
	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Slug != nil {
		existing.Slug = *req.Slug
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}

	if req.IsDefault != nil {
		existing.IsDefault = *req.IsDefault
	}

	if req.Config != nil {
		existing.Config = *req.Config
	}

	if req.Metadata != nil {
		existing.Metadata = req.Metadata
	}

	updated, err := h.flowService.Update(c.Context(), id, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	err := h.flowService.Delete(c.Context(), id)
	if err != nil {
		if persistence.IsFlowNotFound(err) {
			return notFound(c, "Flow not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateNode(c fiber.Ctx) error {
	flowID := c.Params("id")
	if flowID == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req CreateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	node, err := h.nodeService.CreateNode(c.Context(), flowID, &services.CreateNodeRequest{
		Type:     models.NodeType(req.Type),
		Name:     req.Name,
		Position: models.Position{X: req.PositionX, Y: req.PositionY},
		Config:   req.Config,
		Metadata: req.Metadata,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(node)
}

func (h *APIHandlers) GetNode(c fiber.Ctx) error {
	flowID := c.Params("id")
	nodeID := c.Params("nodeId")

	if flowID == "" || nodeID == "" {
		return badRequest(c, "Flow ID and node ID are required")
	}

	node, err := h.nodeService.GetNode(c.Context(), flowID, nodeID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(node)
}

func (h *APIHandlers) UpdateNode(c fiber.Ctx) error {
	flowID := c.Params("id")
	nodeID := c.Params("nodeId")

	if flowID == "" || nodeID == "" {
		return badRequest(c, "Flow ID and node ID are required")
	}

	var req UpdateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	update := &services.UpdateNodeRequest{
		Name:     req.Name,
		Config:   req.Config,
		Metadata: req.Metadata,
	}

	if req.PositionX != nil || req.PositionY != nil {
		node, err := h.nodeService.GetNode(c.Context(), flowID, nodeID)
		if err != nil {
			return handleServiceError(c, err)
		}

		position := node.Position
		if req.PositionX != nil {
			position.X = *req.PositionX
		}

		if req.PositionY != nil {
			position.Y = *req.PositionY
		}

		update.Position = &position
	}

	node, err := h.nodeService.UpdateNode(c.Context(), flowID, nodeID, update)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(node)
}

func (h *APIHandlers) DeleteNode(c fiber.Ctx) error {
	flowID := c.Params("id")
	nodeID := c.Params("nodeId")

	if flowID == "" || nodeID == "" {
		return badRequest(c, "Flow ID and node ID are required")
	}

	err := h.nodeService.DeleteNode(c.Context(), flowID, nodeID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateTransition(c fiber.Ctx) error {
	flowID := c.Params("id")
	if flowID == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req CreateTransitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	transition, err := h.transitionService.CreateTransition(c.Context(), flowID, &services.CreateTransitionRequest{
		FromNodeID: req.FromNodeID,
		ToNodeID:   req.ToNodeID,
		Condition:  req.Condition,
		Priority:   req.Priority,
		Metadata:   req.Metadata,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(transition)
}

func (h *APIHandlers) UpdateTransition(c fiber.Ctx) error {
	flowID := c.Params("id")
	transitionID := c.Params("transitionId")

	if flowID == "" || transitionID == "" {
		return badRequest(c, "Flow ID and transition ID are required")
	}

	var req UpdateTransitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	transition, err := h.transitionService.UpdateTransition(c.Context(), flowID, transitionID, &services.UpdateTransitionRequest{
		Condition: req.Condition,
		Priority:  req.Priority,
		Metadata:  req.Metadata,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(transition)
}

func (h *APIHandlers) DeleteTransition(c fiber.Ctx) error {
	flowID := c.Params("id")
	transitionID := c.Params("transitionId")

	if flowID == "" || transitionID == "" {
		return badRequest(c, "Flow ID and transition ID are required")
	}

	err := h.transitionService.DeleteTransition(c.Context(), flowID, transitionID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetTransitionPath returns the canvas geometry for one transition, ready
// for the renderer.
func (h *APIHandlers) GetTransitionPath(c fiber.Ctx) error {
	flowID := c.Params("id")
	transitionID := c.Params("transitionId")

	if flowID == "" || transitionID == "" {
		return badRequest(c, "Flow ID and transition ID are required")
	}

	flow, err := h.flowService.FetchByID(c.Context(), flowID)
	if err != nil {
		return handleServiceError(c, err)
	}

	transition := flow.TransitionByID(transitionID)
	if transition == nil {
		return notFound(c, "Transition not found")
	}

	from := flow.NodeByID(transition.FromNodeID)
	to := flow.NodeByID(transition.ToNodeID)

	if from == nil || to == nil {
		return notFound(c, "Transition endpoint node not found")
	}

	return c.JSON(geometry.PathBetween(from, to))
}

// GetNodeTypes returns the node type catalog for the editor toolbox. The
// optional category query parameter filters to one toolbox group.
func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	if category := c.Query("category"); category != "" {
		return c.JSON(h.registry.ByCategory(models.NodeCategory(category)))
	}

	return c.JSON(h.registry.All())
}
