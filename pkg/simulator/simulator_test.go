package simulator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/chatforge/pkg/models"
)

func newTestSimulator(flow *models.Flow) *Simulator {
	return New(flow, WithMessageDelay(0))
}

func linearFlow() *models.Flow {
	return &models.Flow{
		ID: "flow-1",
		Nodes: []*models.FlowNode{
			{ID: "start", Name: "Start", Type: models.NodeTypeStart},
			{ID: "msg", Name: "Welcome", Type: models.NodeTypeMessage,
				Config: map[string]any{"message": "Hello there"}},
			{ID: "end", Name: "End", Type: models.NodeTypeEnd,
				Config: map[string]any{"message": "Goodbye"}},
		},
		Transitions: []*models.FlowTransition{
			{ID: "t1", FromNodeID: "start", ToNodeID: "msg"},
			{ID: "t2", FromNodeID: "msg", ToNodeID: "end"},
		},
	}
}

func TestSimulator_LinearRun(t *testing.T) {
	t.Parallel()

	sim := newTestSimulator(linearFlow())

	err := sim.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.SimulationStopped, sim.Status())

	// The start node is structural and leaves no timeline entry.
	steps := sim.Steps()
	require.Len(t, steps, 2)

	assert.Equal(t, models.NodeTypeMessage, steps[0].NodeType)
	assert.Equal(t, "Hello there", steps[0].Output)
	assert.Equal(t, "Goodbye", steps[1].Output)
}

func TestSimulator_NoStartNode(t *testing.T) {
	t.Parallel()

	flow := &models.Flow{
		Nodes: []*models.FlowNode{
			{ID: "msg", Type: models.NodeTypeMessage, Config: map[string]any{"message": "hi"}},
		},
	}

	sim := newTestSimulator(flow)

	err := sim.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoStartNode)
}

func TestSimulator_MultipleStartNodes(t *testing.T) {
	t.Parallel()

	flow := &models.Flow{
		Nodes: []*models.FlowNode{
			{ID: "s1", Type: models.NodeTypeStart},
			{ID: "s2", Type: models.NodeTypeStart},
		},
	}

	sim := newTestSimulator(flow)

	err := sim.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMultipleStartNodes)
}

func TestSimulator_QuestionSuspendsAndResumes(t *testing.T) {
	t.Parallel()

	flow := &models.Flow{
		Nodes: []*models.FlowNode{
			{ID: "start", Name: "Start", Type: models.NodeTypeStart},
			{ID: "q", Name: "Ask name", Type: models.NodeTypeQuestion,
				Config: map[string]any{"prompt": "What is your name?", "variableName": "name"}},
			{ID: "end", Name: "End", Type: models.NodeTypeEnd,
				Config: map[string]any{"message": "Bye"}},
		},
		Transitions: []*models.FlowTransition{
			{ID: "t1", FromNodeID: "start", ToNodeID: "q"},
			{ID: "t2", FromNodeID: "q", ToNodeID: "end"},
		},
	}

	sim := newTestSimulator(flow)

	err := sim.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SimulationWaitingForInput, sim.Status())
	require.NotNil(t, sim.WaitingNode())
	assert.Equal(t, "q", sim.WaitingNode().ID)

	err = sim.SubmitInput(context.Background(), "Alice")
	require.NoError(t, err)

	assert.Equal(t, models.SimulationStopped, sim.Status())
	assert.Equal(t, "Alice", sim.Variables()["name"])

	steps := sim.Steps()
	require.Len(t, steps, 3)
	assert.Equal(t, "What is your name?", steps[0].Output)
	assert.Equal(t, "Alice", steps[1].Input)
	assert.Equal(t, "Bye", steps[2].Output)
}

func TestSimulator_SubmitInputWhenNotWaiting(t *testing.T) {
	t.Parallel()

	sim := newTestSimulator(linearFlow())

	err := sim.SubmitInput(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotWaitingForInput)
}

func TestSimulator_ConditionalBranching(t *testing.T) {
	t.Parallel()

	flow := &models.Flow{
		Nodes: []*models.FlowNode{
			{ID: "start", Type: models.NodeTypeStart},
			{ID: "q", Type: models.NodeTypeQuestion,
				Config: map[string]any{"prompt": "Age?", "variableName": "age"}},
			{ID: "cond", Type: models.NodeTypeCondition},
			{ID: "adult", Type: models.NodeTypeEnd, Config: map[string]any{"message": "Adult"}},
			{ID: "minor", Type: models.NodeTypeEnd, Config: map[string]any{"message": "Minor"}},
		},
		Transitions: []*models.FlowTransition{
			{ID: "t1", FromNodeID: "start", ToNodeID: "q"},
			{ID: "t2", FromNodeID: "q", ToNodeID: "cond"},
			{ID: "t3", FromNodeID: "cond", ToNodeID: "adult", Condition: "age >= 18", Priority: 10},
			{ID: "t4", FromNodeID: "cond", ToNodeID: "minor", Priority: 0},
		},
	}

	sim := newTestSimulator(flow)
	require.NoError(t, sim.Start(context.Background()))

	require.NoError(t, sim.SubmitInput(context.Background(), "21"))

	steps := sim.Steps()
	assert.Equal(t, "Adult", steps[len(steps)-1].Output)
}

func TestSimulator_PriorityOrdering(t *testing.T) {
	t.Parallel()

	// Two always-true conditions at different priorities; the higher one
	// must win even though it was authored second.
	flow := &models.Flow{
		Nodes: []*models.FlowNode{
			{ID: "start", Type: models.NodeTypeStart},
			{ID: "low", Type: models.NodeTypeEnd, Config: map[string]any{"message": "low"}},
			{ID: "high", Type: models.NodeTypeEnd, Config: map[string]any{"message": "high"}},
		},
		Transitions: []*models.FlowTransition{
			{ID: "t1", FromNodeID: "start", ToNodeID: "low", Priority: 5},
			{ID: "t2", FromNodeID: "start", ToNodeID: "high", Priority: 10},
		},
	}

	sim := newTestSimulator(flow)
	require.NoError(t, sim.Start(context.Background()))

	steps := sim.Steps()
	assert.Equal(t, "high", steps[len(steps)-1].Output)
}

func TestSimulator_FallbackAfterConditionalAtSamePriority(t *testing.T) {
	t.Parallel()

	flow := &models.Flow{
		Nodes: []*models.FlowNode{
			{ID: "start", Type: models.NodeTypeStart},
			{ID: "cond-end", Type: models.NodeTypeEnd, Config: map[string]any{"message": "conditional"}},
			{ID: "fb-end", Type: models.NodeTypeEnd, Config: map[string]any{"message": "fallback"}},
		},
		Transitions: []*models.FlowTransition{
			{ID: "t1", FromNodeID: "start", ToNodeID: "fb-end", Priority: 5},
			{ID: "t2", FromNodeID: "start", ToNodeID: "cond-end", Priority: 5, Condition: "missing == 'x'"},
		},
	}

	sim := newTestSimulator(flow)
	require.NoError(t, sim.Start(context.Background()))

	// The conditional edge is evaluated first but fails, so the fallback
	// at the same priority routes the run.
	steps := sim.Steps()
	assert.Equal(t, "fallback", steps[len(steps)-1].Output)
}

func TestSimulator_MalformedConditionIsSkipped(t *testing.T) {
	t.Parallel()

	flow := &models.Flow{
		Nodes: []*models.FlowNode{
			{ID: "start", Type: models.NodeTypeStart},
			{ID: "bad", Type: models.NodeTypeEnd, Config: map[string]any{"message": "bad"}},
			{ID: "good", Type: models.NodeTypeEnd, Config: map[string]any{"message": "good"}},
		},
		Transitions: []*models.FlowTransition{
			{ID: "t1", FromNodeID: "start", ToNodeID: "bad", Priority: 10, Condition: "not a condition at all"},
			{ID: "t2", FromNodeID: "start", ToNodeID: "good", Priority: 0},
		},
	}

	sim := newTestSimulator(flow)
	require.NoError(t, sim.Start(context.Background()))

	steps := sim.Steps()
	assert.Equal(t, "good", steps[len(steps)-1].Output)
}

func TestSimulator_DeadEndStops(t *testing.T) {
	t.Parallel()

	flow := &models.Flow{
		Nodes: []*models.FlowNode{
			{ID: "start", Type: models.NodeTypeStart},
			{ID: "msg", Type: models.NodeTypeMessage, Config: map[string]any{"message": "hi"}},
		},
		Transitions: []*models.FlowTransition{
			{ID: "t1", FromNodeID: "start", ToNodeID: "msg"},
		},
	}

	sim := newTestSimulator(flow)

	err := sim.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SimulationStopped, sim.Status())
	assert.Len(t, sim.Steps(), 1)
}

func TestSimulator_CyclicFlowHitsStepLimit(t *testing.T) {
	t.Parallel()

	flow := &models.Flow{
		Nodes: []*models.FlowNode{
			{ID: "start", Type: models.NodeTypeStart},
			{ID: "a", Type: models.NodeTypeMessage, Config: map[string]any{"message": "a"}},
			{ID: "b", Type: models.NodeTypeMessage, Config: map[string]any{"message": "b"}},
		},
		Transitions: []*models.FlowTransition{
			{ID: "t1", FromNodeID: "start", ToNodeID: "a"},
			{ID: "t2", FromNodeID: "a", ToNodeID: "b"},
			{ID: "t3", FromNodeID: "b", ToNodeID: "a"},
		},
	}

	sim := newTestSimulator(flow)

	err := sim.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStepLimitExceeded)
	assert.Equal(t, models.SimulationStopped, sim.Status())
}

func TestSimulator_MockedIntegrations(t *testing.T) {
	t.Parallel()

	flow := &models.Flow{
		Nodes: []*models.FlowNode{
			{ID: "start", Type: models.NodeTypeStart},
			{ID: "api", Type: models.NodeTypeAPICall,
				Config: map[string]any{"url": "https://example.com", "method": "GET", "resultVariable": "response"}},
			{ID: "ai", Type: models.NodeTypeAIResponse,
				Config: map[string]any{"prompt": "Summarize", "resultVariable": "summary"}},
			{ID: "end", Type: models.NodeTypeEnd, Config: map[string]any{"message": "done"}},
		},
		Transitions: []*models.FlowTransition{
			{ID: "t1", FromNodeID: "start", ToNodeID: "api"},
			{ID: "t2", FromNodeID: "api", ToNodeID: "ai"},
			{ID: "t3", FromNodeID: "ai", ToNodeID: "end"},
		},
	}

	sim := newTestSimulator(flow)
	require.NoError(t, sim.Start(context.Background()))

	vars := sim.Variables()
	assert.Contains(t, vars, "response")
	assert.Contains(t, vars, "summary")

	steps := sim.Steps()
	require.Len(t, steps, 3)
	assert.Contains(t, steps[0].Output, "GET https://example.com")
	assert.Contains(t, steps[1].Output, "Summarize")
}

func TestSimulator_SelfLoopIsSkipped(t *testing.T) {
	t.Parallel()

	// A self-loop on the message node must not be followed; the run falls
	// through to the end node instead.
	flow := &models.Flow{
		Nodes: []*models.FlowNode{
			{ID: "start", Type: models.NodeTypeStart},
			{ID: "msg", Type: models.NodeTypeMessage, Config: map[string]any{"message": "hi"}},
			{ID: "end", Type: models.NodeTypeEnd, Config: map[string]any{"message": "done"}},
		},
		Transitions: []*models.FlowTransition{
			{ID: "t1", FromNodeID: "start", ToNodeID: "msg"},
			{ID: "t2", FromNodeID: "msg", ToNodeID: "msg", Priority: 10},
			{ID: "t3", FromNodeID: "msg", ToNodeID: "end", Priority: 0},
		},
	}

	sim := newTestSimulator(flow)

	err := sim.Start(context.Background())
	require.NoError(t, err)

	steps := sim.Steps()
	assert.Equal(t, "done", steps[len(steps)-1].Output)
}

func TestSimulator_Reset(t *testing.T) {
	t.Parallel()

	sim := newTestSimulator(linearFlow())
	require.NoError(t, sim.Start(context.Background()))
	require.NotEmpty(t, sim.Steps())

	sim.Reset()

	assert.Equal(t, models.SimulationIdle, sim.Status())
	assert.Empty(t, sim.Steps())
	assert.Empty(t, sim.Variables())

	// A reset simulator can run again.
	require.NoError(t, sim.Start(context.Background()))
	assert.Len(t, sim.Steps(), 2)
}
