package models

// NodeType identifies the behavior of a flow node. The set is closed;
// the registry package holds display metadata and default configs.
type NodeType string

const (
	NodeTypeStart      NodeType = "start"
	NodeTypeMessage    NodeType = "message"
	NodeTypeQuestion   NodeType = "question"
	NodeTypeCondition  NodeType = "condition"
	NodeTypeAction     NodeType = "action"
	NodeTypeAIResponse NodeType = "ai_response"
	NodeTypeAPICall    NodeType = "api_call"
	NodeTypeEnd        NodeType = "end"
)

// NodeCategory groups node types for the editor toolbox.
type NodeCategory string

const (
	NodeCategoryBasic       NodeCategory = "basic"
	NodeCategoryInteraction NodeCategory = "interaction"
	NodeCategoryLogic       NodeCategory = "logic"
	NodeCategoryIntegration NodeCategory = "integration"
	NodeCategoryAdvanced    NodeCategory = "advanced"
)

// Position locates a node on the editor canvas. Coordinates are
// unbounded floating point.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FlowNode represents one step in a flow graph. Config is a variant shape
// whose keys depend on Type; the registry declares the default per type.
type FlowNode struct {
	ID       string         `json:"id"`
	FlowID   string         `json:"flow_id"`
	Name     string         `json:"name"     validate:"required,min=1"`
	Type     NodeType       `json:"type"     validate:"required"`
	Position Position       `json:"position"`
	Config   map[string]any `json:"config"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ConfigString returns the string value stored under key, or fallback when
// absent or of another type.
func (n *FlowNode) ConfigString(key, fallback string) string {
	if n.Config == nil {
		return fallback
	}

	if v, ok := n.Config[key].(string); ok {
		return v
	}

	return fallback
}
