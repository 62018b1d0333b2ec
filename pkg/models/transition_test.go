package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortTransitionsForEvaluation(t *testing.T) {
	t.Parallel()

	transitions := []*FlowTransition{
		{ID: "fallback-5", Priority: 5},
		{ID: "cond-0", Priority: 0, Condition: "x == 1"},
		{ID: "cond-10", Priority: 10, Condition: "x == 2"},
		{ID: "cond-5", Priority: 5, Condition: "x == 3"},
		{ID: "fallback-0", Priority: 0},
	}

	ordered := SortTransitionsForEvaluation(transitions)

	ids := make([]string, len(ordered))
	for i, transition := range ordered {
		ids[i] = transition.ID
	}

	// Highest priority first; at equal priority, conditional edges come
	// before the fallback.
	assert.Equal(t, []string{"cond-10", "cond-5", "fallback-5", "cond-0", "fallback-0"}, ids)
}

func TestSortTransitionsForEvaluation_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	transitions := []*FlowTransition{
		{ID: "b", Priority: 0},
		{ID: "a", Priority: 10},
	}

	SortTransitionsForEvaluation(transitions)

	assert.Equal(t, "b", transitions[0].ID)
	assert.Equal(t, "a", transitions[1].ID)
}

func TestFlowGraphHelpers(t *testing.T) {
	t.Parallel()

	flow := &Flow{
		Nodes: []*FlowNode{
			{ID: "start", Type: NodeTypeStart},
			{ID: "msg", Type: NodeTypeMessage},
		},
		Transitions: []*FlowTransition{
			{ID: "t1", FromNodeID: "start", ToNodeID: "msg"},
			{ID: "t2", FromNodeID: "msg", ToNodeID: "start"},
		},
	}

	assert.Equal(t, "msg", flow.NodeByID("msg").ID)
	assert.Nil(t, flow.NodeByID("missing"))

	assert.Equal(t, "t2", flow.TransitionByID("t2").ID)
	assert.Nil(t, flow.TransitionByID("missing"))

	from := flow.TransitionsFrom("start")
	assert.Len(t, from, 1)
	assert.Equal(t, "t1", from[0].ID)

	starts := flow.StartNodes()
	assert.Len(t, starts, 1)
	assert.Equal(t, "start", starts[0].ID)
}
