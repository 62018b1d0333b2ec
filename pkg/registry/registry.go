// Package registry provides the static catalog of flow node types: display
// metadata for the editor toolbox, the default configuration applied when a
// node is created, and the JSON schema its config must satisfy.
package registry

import (
	"errors"
	"fmt"

	"github.com/chatforge/chatforge/pkg/models"
)

// ErrUnknownNodeType indicates a node type outside the registered set.
var ErrUnknownNodeType = errors.New("unknown node type")

// NodeTypeDefinition describes one node type for the editor.
type NodeTypeDefinition struct {
	Type          models.NodeType     `json:"type"`
	Label         string              `json:"label"`
	Icon          string              `json:"icon"`
	Color         string              `json:"color"`
	Description   string              `json:"description"`
	Category      models.NodeCategory `json:"category"`
	IsImplemented bool                `json:"is_implemented"`

	// DefaultConfig builds a fresh config map for a newly created node.
	// Each call returns a new map so editor sessions never share state.
	DefaultConfig func() map[string]any `json:"-"`

	// Schema is the JSON schema the node's config must satisfy.
	Schema map[string]any `json:"schema,omitempty"`
}

// Registry is the read-only node type catalog. The set is closed; there is
// no runtime registration beyond the built-in definitions.
type Registry struct {
	definitions map[models.NodeType]*NodeTypeDefinition
	order       []models.NodeType
}

// New creates a registry populated with every built-in node type.
func New() *Registry {
	r := &Registry{definitions: make(map[models.NodeType]*NodeTypeDefinition)}

	for _, def := range builtinDefinitions() {
		r.definitions[def.Type] = def
		r.order = append(r.order, def.Type)
	}

	return r
}

// DefinitionOf returns the definition for a node type.
func (r *Registry) DefinitionOf(nodeType models.NodeType) (*NodeTypeDefinition, error) {
	def, ok := r.definitions[nodeType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, nodeType)
	}

	return def, nil
}

// DefaultConfig returns a fresh default config for a node type. Types
// without configuration (start) yield an empty map.
func (r *Registry) DefaultConfig(nodeType models.NodeType) (map[string]any, error) {
	def, err := r.DefinitionOf(nodeType)
	if err != nil {
		return nil, err
	}

	if def.DefaultConfig == nil {
		return map[string]any{}, nil
	}

	return def.DefaultConfig(), nil
}

// ImplementedTypes returns the definitions usable in the editor, in
// catalog order.
func (r *Registry) ImplementedTypes() []*NodeTypeDefinition {
	out := make([]*NodeTypeDefinition, 0, len(r.order))

	for _, t := range r.order {
		if def := r.definitions[t]; def.IsImplemented {
			out = append(out, def)
		}
	}

	return out
}

// ByCategory returns the definitions belonging to one toolbox category,
// in catalog order.
func (r *Registry) ByCategory(category models.NodeCategory) []*NodeTypeDefinition {
	out := make([]*NodeTypeDefinition, 0)

	for _, t := range r.order {
		if def := r.definitions[t]; def.Category == category {
			out = append(out, def)
		}
	}

	return out
}

// All returns every definition in catalog order.
func (r *Registry) All() []*NodeTypeDefinition {
	out := make([]*NodeTypeDefinition, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.definitions[t])
	}

	return out
}

// HealthCheck reports whether the catalog is populated.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.definitions) == 0 {
		return "Node type catalog is empty", false
	}

	return fmt.Sprintf("Node type catalog loaded with %d types", len(r.definitions)), true
}
