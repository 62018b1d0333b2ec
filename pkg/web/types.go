// Package web provides HTTP handlers and REST API endpoints for flow
// management.
package web

import "github.com/chatforge/chatforge/pkg/models"

// CreateFlowRequest represents the request body for creating a new flow.
// The slug is optional; a missing slug is derived from the name.
type CreateFlowRequest struct {
	Name        string            `json:"name"        validate:"required,min=3"`
	Slug        string            `json:"slug"        validate:"omitempty,flowslug"`
	Description string            `json:"description"`
	TenantID    string            `json:"tenant_id"`
	IsActive    bool              `json:"is_active"`
	IsDefault   bool              `json:"is_default"`
	Config      models.FlowConfig `json:"config"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
}

// UpdateFlowRequest represents the request body for updating an existing
// flow's record fields. All fields are optional to support partial
// updates; the graph is managed through the node and transition endpoints.
type UpdateFlowRequest struct {
	Name        *string            `json:"name,omitempty" validate:"omitempty,min=3"`
	Slug        *string            `json:"slug,omitempty" validate:"omitempty,flowslug"`
	Description *string            `json:"description,omitempty"`
	IsActive    *bool              `json:"is_active,omitempty"`
	IsDefault   *bool              `json:"is_default,omitempty"`
	Config      *models.FlowConfig `json:"config,omitempty"`
	Metadata    map[string]any     `json:"metadata,omitempty"`
}

// CreateNodeRequest represents the request body for creating a flow node.
// A missing config gets the catalog default for the type.
type CreateNodeRequest struct {
	Type      string         `json:"type"       validate:"required"`
	Name      string         `json:"name"`
	PositionX float64        `json:"position_x"`
	PositionY float64        `json:"position_y"`
	Config    map[string]any `json:"config,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// UpdateNodeRequest represents the request body for updating a flow node.
// Type cannot be changed; delete and recreate instead.
type UpdateNodeRequest struct {
	Name      *string        `json:"name,omitempty" validate:"omitempty,min=1"`
	PositionX *float64       `json:"position_x,omitempty"`
	PositionY *float64       `json:"position_y,omitempty"`
	Config    map[string]any `json:"config,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// CreateTransitionRequest represents the request body for connecting two
// nodes. An empty condition makes the transition a fallback edge.
type CreateTransitionRequest struct {
	FromNodeID string         `json:"from_node_id" validate:"required"`
	ToNodeID   string         `json:"to_node_id"   validate:"required"`
	Condition  string         `json:"condition"`
	Priority   int            `json:"priority"     validate:"min=0,max=100"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// UpdateTransitionRequest represents the request body for updating a
// transition. The endpoints cannot be changed.
type UpdateTransitionRequest struct {
	Condition *string        `json:"condition,omitempty"`
	Priority  *int           `json:"priority,omitempty" validate:"omitempty,min=0,max=100"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
