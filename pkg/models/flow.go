// Package models defines the core domain models for conversational flow automation.
package models

import "time"

// FlowConfig carries runtime settings applied to every conversation run
// through the flow.
type FlowConfig struct {
	TimeoutSeconds  int    `json:"timeout_seconds"   validate:"min=0"`
	MaxRetries      int    `json:"max_retries"       validate:"min=0"`
	FallbackMessage string `json:"fallback_message"`
}

// Flow represents a named, versioned automation graph of nodes and transitions.
type Flow struct {
	ID          string            `json:"id"`
	TenantID    string            `json:"tenant_id"`
	Name        string            `json:"name"        validate:"required,min=3"`
	Slug        string            `json:"slug"        validate:"required,flowslug"`
	Description string            `json:"description"`
	IsActive    bool              `json:"is_active"`
	IsDefault   bool              `json:"is_default"`
	Version     int               `json:"version"` // Bumped by the server on every structural change
	Config      FlowConfig        `json:"config"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
	Nodes       []*FlowNode       `json:"nodes"`
	Transitions []*FlowTransition `json:"transitions"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	DeletedAt   *time.Time        `json:"deleted_at,omitempty"`
}

// NodeByID returns the node with the given ID, or nil.
func (f *Flow) NodeByID(id string) *FlowNode {
	for _, node := range f.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// TransitionByID returns the transition with the given ID, or nil.
func (f *Flow) TransitionByID(id string) *FlowTransition {
	for _, transition := range f.Transitions {
		if transition.ID == id {
			return transition
		}
	}

	return nil
}

// TransitionsFrom returns every transition leaving the given node.
func (f *Flow) TransitionsFrom(nodeID string) []*FlowTransition {
	out := make([]*FlowTransition, 0)

	for _, transition := range f.Transitions {
		if transition.FromNodeID == nodeID {
			out = append(out, transition)
		}
	}

	return out
}

// StartNodes returns every node of type start in the flow. A runnable flow
// has exactly one.
func (f *Flow) StartNodes() []*FlowNode {
	out := make([]*FlowNode, 0, 1)

	for _, node := range f.Nodes {
		if node.Type == NodeTypeStart {
			out = append(out, node)
		}
	}

	return out
}
