package models

import "sort"

// FlowTransition is a directed, optionally-conditional edge between two
// nodes of the same flow. Condition is a raw expression string evaluated
// against the simulation variable context; an empty condition is
// unconditionally true and acts as the fallback edge.
type FlowTransition struct {
	ID         string         `json:"id"`
	FlowID     string         `json:"flow_id"`
	FromNodeID string         `json:"from_node_id" validate:"required"`
	ToNodeID   string         `json:"to_node_id"   validate:"required"`
	Condition  string         `json:"condition,omitempty"`
	Priority   int            `json:"priority"     validate:"min=0,max=100"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// IsFallback reports whether the transition has no condition attached.
func (t *FlowTransition) IsFallback() bool {
	return t.Condition == ""
}

// Label returns the display label carried in metadata, if any.
func (t *FlowTransition) Label() string {
	if t.Metadata == nil {
		return ""
	}

	if v, ok := t.Metadata["label"].(string); ok {
		return v
	}

	return ""
}

// SortTransitionsForEvaluation orders transitions the way the simulator
// must evaluate them: priority descending, and within the same priority
// conditionless fallback edges after conditional ones. The sort is stable
// so authoring order breaks remaining ties.
func SortTransitionsForEvaluation(transitions []*FlowTransition) []*FlowTransition {
	ordered := make([]*FlowTransition, len(transitions))
	copy(ordered, transitions)

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}

		return !ordered[i].IsFallback() && ordered[j].IsFallback()
	})

	return ordered
}
