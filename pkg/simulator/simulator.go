// Package simulator runs a flow in preview mode: nodes execute with mocked
// integrations, question nodes suspend the run until input arrives, and
// every step is recorded in an append-only timeline. The simulator never
// mutates the flow it runs.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chatforge/chatforge/pkg/condition"
	"github.com/chatforge/chatforge/pkg/models"
)

// DefaultMessageDelay paces message node output so previews read like a
// real conversation.
const DefaultMessageDelay = 800 * time.Millisecond

// stepLimit bounds the nodes executed in one run, so a cyclic graph with
// always-true conditions cannot spin forever.
const stepLimit = 500

var (
	ErrNoStartNode        = errors.New("flow has no start node")
	ErrMultipleStartNodes = errors.New("flow has more than one start node")
	ErrAlreadyRunning     = errors.New("simulation is already running")
	ErrNotWaitingForInput = errors.New("simulation is not waiting for input")
	ErrStepLimitExceeded  = fmt.Errorf("simulation exceeded %d executed nodes", stepLimit)
)

// Simulator is the preview engine for one flow. It is safe for concurrent
// use, though a preview normally has a single operator.
type Simulator struct {
	flow     *models.Flow
	executor Executor
	delay    time.Duration

	status  models.SimulationStatus
	steps   []models.SimulationStep
	vars    models.VariableContext
	current *models.FlowNode
}

// Option customizes a simulator.
type Option func(*Simulator)

// WithMessageDelay overrides the message pacing delay. Zero disables it.
func WithMessageDelay(d time.Duration) Option {
	return func(s *Simulator) { s.delay = d }
}

// WithExecutor replaces the mock integration executor.
func WithExecutor(e Executor) Option {
	return func(s *Simulator) { s.executor = e }
}

// New creates a simulator over the given flow. The flow is read, never
// written.
func New(flow *models.Flow, opts ...Option) *Simulator {
	s := &Simulator{
		flow:     flow,
		executor: MockExecutor{},
		delay:    DefaultMessageDelay,
		status:   models.SimulationIdle,
		vars:     models.VariableContext{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Status returns the current run state.
func (s *Simulator) Status() models.SimulationStatus {
	return s.status
}

// Steps returns a copy of the timeline so far.
func (s *Simulator) Steps() []models.SimulationStep {
	out := make([]models.SimulationStep, len(s.steps))
	copy(out, s.steps)

	return out
}

// Variables returns a copy of the captured variable context.
func (s *Simulator) Variables() models.VariableContext {
	return s.vars.Clone()
}

// WaitingNode returns the question node the run is suspended on, or nil.
func (s *Simulator) WaitingNode() *models.FlowNode {
	if s.status != models.SimulationWaitingForInput {
		return nil
	}

	return s.current
}

// Start begins a fresh run from the flow's single start node. A flow with
// zero or several start nodes is not runnable.
func (s *Simulator) Start(ctx context.Context) error {
	if s.status == models.SimulationRunning || s.status == models.SimulationWaitingForInput {
		return ErrAlreadyRunning
	}

	starts := s.flow.StartNodes()

	switch {
	case len(starts) == 0:
		return ErrNoStartNode
	case len(starts) > 1:
		return ErrMultipleStartNodes
	}

	s.steps = s.steps[:0]
	s.vars = models.VariableContext{}
	s.current = nil
	s.status = models.SimulationRunning

	return s.run(ctx, starts[0])
}

// SubmitInput resumes a run suspended on a question node. The answer is
// recorded on the timeline and stored under the node's variable name.
func (s *Simulator) SubmitInput(ctx context.Context, input string) error {
	if s.status != models.SimulationWaitingForInput {
		return ErrNotWaitingForInput
	}

	node := s.current

	s.record(models.SimulationStep{
		NodeID:   node.ID,
		NodeName: node.Name,
		NodeType: node.Type,
		Input:    input,
	})

	if variable := node.ConfigString("variableName", ""); variable != "" {
		s.vars[variable] = input
	}

	s.current = nil
	s.status = models.SimulationRunning

	return s.continueFrom(ctx, node, len(s.steps))
}

// Stop halts the run, keeping the timeline for inspection.
func (s *Simulator) Stop() {
	if s.status == models.SimulationIdle {
		return
	}

	s.current = nil
	s.status = models.SimulationStopped
}

// Reset returns the simulator to idle and clears the timeline.
func (s *Simulator) Reset() {
	s.status = models.SimulationIdle
	s.steps = s.steps[:0]
	s.vars = models.VariableContext{}
	s.current = nil
}

// run executes nodes and follows transitions until the run suspends on a
// question, reaches an end or dead end, or trips the step limit.
func (s *Simulator) run(ctx context.Context, node *models.FlowNode) error {
	executed := 0

	for node != nil {
		executed++
		if executed > stepLimit {
			s.status = models.SimulationStopped

			return ErrStepLimitExceeded
		}

		halt, err := s.executeNode(ctx, node)
		if err != nil {
			s.status = models.SimulationStopped

			return err
		}

		if halt {
			return nil
		}

		node = s.nextNode(ctx, node)
	}

	s.status = models.SimulationStopped

	return nil
}

// continueFrom resumes after a suspended node, sharing the step budget
// already consumed.
func (s *Simulator) continueFrom(ctx context.Context, node *models.FlowNode, consumed int) error {
	next := s.nextNode(ctx, node)
	if next == nil {
		s.status = models.SimulationStopped

		return nil
	}

	executed := consumed

	for next != nil {
		executed++
		if executed > stepLimit {
			s.status = models.SimulationStopped

			return ErrStepLimitExceeded
		}

		halt, err := s.executeNode(ctx, next)
		if err != nil {
			s.status = models.SimulationStopped

			return err
		}

		if halt {
			return nil
		}

		next = s.nextNode(ctx, next)
	}

	s.status = models.SimulationStopped

	return nil
}

// executeNode runs one node and records its step. The returned halt flag
// means the run must not advance (question suspension or end node).
func (s *Simulator) executeNode(ctx context.Context, node *models.FlowNode) (bool, error) {
	step := models.SimulationStep{
		NodeID:   node.ID,
		NodeName: node.Name,
		NodeType: node.Type,
	}

	switch node.Type {
	case models.NodeTypeStart, models.NodeTypeCondition:
		// Structural nodes leave no timeline entry; only nodes the
		// contact would observe are recorded.

	case models.NodeTypeMessage:
		step.Output = node.ConfigString("message", "")
		s.record(step)

		if err := s.pace(ctx); err != nil {
			return false, err
		}

	case models.NodeTypeQuestion:
		step.Output = node.ConfigString("prompt", "")
		s.record(step)

		s.current = node
		s.status = models.SimulationWaitingForInput

		return true, nil

	case models.NodeTypeEnd:
		step.Output = node.ConfigString("message", "")
		s.record(step)

		s.status = models.SimulationStopped

		return true, nil

	case models.NodeTypeAction, models.NodeTypeAIResponse, models.NodeTypeAPICall:
		output, result, err := s.executor.Execute(ctx, node, s.vars.Clone())
		if err != nil {
			return false, fmt.Errorf("failed to execute %s node %q: %w", node.Type, node.Name, err)
		}

		step.Output = output
		s.record(step)

		if variable := node.ConfigString("resultVariable", ""); variable != "" {
			s.vars[variable] = result
		}

	default:
		return false, fmt.Errorf("unknown node type %q", node.Type)
	}

	return false, nil
}

// nextNode picks the destination of the first transition whose condition
// holds, in priority order. Malformed conditions and self-loops are
// skipped; no match means a dead end.
func (s *Simulator) nextNode(ctx context.Context, node *models.FlowNode) *models.FlowNode {
	for _, transition := range models.SortTransitionsForEvaluation(s.flow.TransitionsFrom(node.ID)) {
		if transition.ToNodeID == node.ID {
			continue
		}

		ok, err := condition.Evaluate(transition.Condition, s.vars)
		if err != nil {
			slog.WarnContext(ctx, "Skipping transition with malformed condition",
				"transition_id", transition.ID, "condition", transition.Condition, "error", err)

			continue
		}

		if ok {
			return s.flow.NodeByID(transition.ToNodeID)
		}
	}

	return nil
}

func (s *Simulator) record(step models.SimulationStep) {
	step.Timestamp = time.Now().UTC()
	s.steps = append(s.steps, step)
}

// pace sleeps for the message delay, abandoning early on context
// cancellation.
func (s *Simulator) pace(ctx context.Context) error {
	if s.delay <= 0 {
		return nil
	}

	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
