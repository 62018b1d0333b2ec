package models

import "time"

// SimulationStatus describes the state machine of a preview run.
type SimulationStatus string

const (
	SimulationIdle            SimulationStatus = "idle"
	SimulationRunning         SimulationStatus = "running"
	SimulationWaitingForInput SimulationStatus = "waiting_for_input"
	SimulationStopped         SimulationStatus = "stopped"
)

// SimulationStep is one immutable entry in the preview timeline. Input is
// set only for steps recording operator answers to question nodes.
type SimulationStep struct {
	NodeID    string    `json:"node_id"`
	NodeName  string    `json:"node_name"`
	NodeType  NodeType  `json:"node_type"`
	Input     string    `json:"input,omitempty"`
	Output    string    `json:"output,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// VariableContext is the flat map of values captured during a preview run:
// question answers plus mocked action/AI/API results. Transition
// conditions are evaluated against it.
type VariableContext map[string]any

// Clone returns a shallow copy so observers cannot mutate the run state.
func (v VariableContext) Clone() VariableContext {
	out := make(VariableContext, len(v))
	for k, val := range v {
		out[k] = val
	}

	return out
}
