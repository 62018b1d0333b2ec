// Package builder maintains the state of one flow editing session: the
// working copy of the graph, the current selection, undo/redo history, and
// the debounced persistence of node moves.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/chatforge/chatforge/pkg/geometry"
	"github.com/chatforge/chatforge/pkg/models"
	"github.com/chatforge/chatforge/pkg/registry"
	"github.com/chatforge/chatforge/pkg/services"
)

// DefaultSaveDelay is how long the session waits after the last node move
// before persisting positions.
const DefaultSaveDelay = 1500 * time.Millisecond

// historyLimit bounds the undo and redo stacks. The oldest entry is
// evicted when a new mutation exceeds it.
const historyLimit = 50

var (
	ErrNotLoaded         = errors.New("no flow loaded in this session")
	ErrNothingToUndo     = errors.New("nothing to undo")
	ErrNothingToRedo     = errors.New("nothing to redo")
	ErrInvalidNodeConfig = errors.New("node config failed validation")
)

// command is one reversible mutation. undo and redo re-issue the backend
// call and patch the working copy; both run under the session lock.
type command struct {
	undo func(ctx context.Context) error
	redo func(ctx context.Context) error
}

// Session is the state of one user editing one flow. All methods are safe
// for concurrent use; mutations are serialized by an internal lock.
type Session struct {
	mu       sync.Mutex
	resource FlowResource
	registry *registry.Registry

	flow    *models.Flow
	loadErr error

	selectedNodeID       string
	selectedTransitionID string

	undoStack []*command
	redoStack []*command

	dirty     bool
	saving    bool
	lastSaved time.Time

	saveDelay    time.Duration
	saveTimer    *time.Timer
	pendingMoves map[string]models.Position

	saveCtx    context.Context
	cancelSave context.CancelFunc
}

// Option customizes a session.
type Option func(*Session)

// WithSaveDelay overrides the move persistence debounce, mainly for tests.
func WithSaveDelay(d time.Duration) Option {
	return func(s *Session) { s.saveDelay = d }
}

// NewSession creates an editing session backed by the given resource.
func NewSession(resource FlowResource, reg *registry.Registry, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		resource:     resource,
		registry:     reg,
		saveDelay:    DefaultSaveDelay,
		pendingMoves: make(map[string]models.Position),
		saveCtx:      ctx,
		cancelSave:   cancel,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Load fetches the flow and resets the session around it. A failed load
// leaves the session without a working copy; every mutation then fails
// with ErrNotLoaded until a later Load succeeds.
func (s *Session) Load(ctx context.Context, flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	s.resetStateLocked()

	flow, err := s.resource.FetchFlow(ctx, flowID)
	if err != nil {
		s.flow = nil
		s.loadErr = err

		return fmt.Errorf("failed to load flow: %w", err)
	}

	s.flow = flow
	s.loadErr = nil

	return nil
}

// Reset discards local editing state, cancels any pending position save,
// and reloads the flow from the backend.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()

	if s.flow == nil {
		s.mu.Unlock()

		return ErrNotLoaded
	}

	flowID := s.flow.ID

	s.stopTimerLocked()
	s.cancelSave()
	s.saveCtx, s.cancelSave = context.WithCancel(context.Background())
	s.mu.Unlock()

	return s.Load(ctx, flowID)
}

// Close cancels background persistence. The session is unusable afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	s.cancelSave()
}

// Flow returns the working copy of the graph. Callers must treat it as
// read-only; mutations go through the session methods.
func (s *Session) Flow() *models.Flow {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.flow
}

// LoadError returns the error of the last failed Load, if any.
func (s *Session) LoadError() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadErr
}

// Dirty reports whether local changes await persistence.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dirty
}

// Saving reports whether a position flush is in flight.
func (s *Session) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saving
}

// LastSaved returns when the backend last acknowledged a change.
func (s *Session) LastSaved() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSaved
}

// CanUndo reports whether an undo step is available.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.undoStack) > 0
}

// CanRedo reports whether a redo step is available.
func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.redoStack) > 0
}

// AddNode creates a node in the backend and applies it to the working copy.
func (s *Session) AddNode(ctx context.Context, req *services.CreateNodeRequest) (*models.FlowNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow == nil {
		return nil, ErrNotLoaded
	}

	flowID := s.flow.ID

	if req.Config != nil {
		candidate := &models.FlowNode{Type: req.Type, Name: req.Name, Config: req.Config}
		if err := s.checkConfigLocked(candidate); err != nil {
			return nil, err
		}
	}

	node, err := s.resource.CreateNode(ctx, flowID, req)
	if err != nil {
		return nil, err
	}

	s.flow.Nodes = append(s.flow.Nodes, node)
	s.lastSaved = time.Now()
	s.markDirtyLocked()

	snapshot := cloneNode(node)

	s.recordLocked(&command{
		undo: func(ctx context.Context) error {
			if err := s.resource.DeleteNode(ctx, flowID, snapshot.ID); err != nil {
				return err
			}

			s.removeNodeLocked(snapshot.ID)

			return nil
		},
		redo: func(ctx context.Context) error {
			if err := s.resource.RestoreNode(ctx, flowID, cloneNode(snapshot)); err != nil {
				return err
			}

			s.flow.Nodes = append(s.flow.Nodes, cloneNode(snapshot))

			return nil
		},
	})

	return node, nil
}

// UpdateNode applies a partial update to a node, in the backend first.
func (s *Session) UpdateNode(ctx context.Context, nodeID string, req *services.UpdateNodeRequest) (*models.FlowNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow == nil {
		return nil, ErrNotLoaded
	}

	flowID := s.flow.ID

	existing := s.flow.NodeByID(nodeID)
	if existing == nil {
		return nil, services.ErrNodeNotFound
	}

	before := cloneNode(existing)

	if req.Config != nil {
		candidate := cloneNode(existing)
		candidate.Config = req.Config

		if err := s.checkConfigLocked(candidate); err != nil {
			return nil, err
		}
	}

	updated, err := s.resource.UpdateNode(ctx, flowID, nodeID, req)
	if err != nil {
		return nil, err
	}

	s.replaceNodeLocked(updated)
	s.lastSaved = time.Now()
	s.markDirtyLocked()

	after := cloneNode(updated)

	s.recordLocked(&command{
		undo: func(ctx context.Context) error {
			restored, err := s.resource.UpdateNode(ctx, flowID, nodeID, nodeUpdateRequest(before))
			if err != nil {
				return err
			}

			s.replaceNodeLocked(restored)

			return nil
		},
		redo: func(ctx context.Context) error {
			restored, err := s.resource.UpdateNode(ctx, flowID, nodeID, nodeUpdateRequest(after))
			if err != nil {
				return err
			}

			s.replaceNodeLocked(restored)

			return nil
		},
	})

	return updated, nil
}

// DeleteNode removes a node and every transition touching it. The cascade
// is mirrored locally so the canvas never renders dangling connections.
func (s *Session) DeleteNode(ctx context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow == nil {
		return ErrNotLoaded
	}

	flowID := s.flow.ID

	node := s.flow.NodeByID(nodeID)
	if node == nil {
		return services.ErrNodeNotFound
	}

	snapshot := cloneNode(node)

	cascaded := make([]*models.FlowTransition, 0)

	for _, transition := range s.flow.Transitions {
		if transition.FromNodeID == nodeID || transition.ToNodeID == nodeID {
			cascaded = append(cascaded, cloneTransition(transition))
		}
	}

	err := s.resource.DeleteNode(ctx, flowID, nodeID)
	if err != nil {
		return err
	}

	s.removeNodeLocked(nodeID)
	s.lastSaved = time.Now()
	s.markDirtyLocked()

	s.recordLocked(&command{
		undo: func(ctx context.Context) error {
			if err := s.resource.RestoreNode(ctx, flowID, cloneNode(snapshot)); err != nil {
				return err
			}

			s.flow.Nodes = append(s.flow.Nodes, cloneNode(snapshot))

			for _, transition := range cascaded {
				if err := s.resource.RestoreTransition(ctx, flowID, cloneTransition(transition)); err != nil {
					return err
				}

				s.flow.Transitions = append(s.flow.Transitions, cloneTransition(transition))
			}

			return nil
		},
		redo: func(ctx context.Context) error {
			if err := s.resource.DeleteNode(ctx, flowID, snapshot.ID); err != nil {
				return err
			}

			s.removeNodeLocked(snapshot.ID)

			return nil
		},
	})

	return nil
}

// MoveNode updates a node position optimistically and schedules a
// debounced persistence pass. Rapid successive moves collapse into one
// backend write per node.
func (s *Session) MoveNode(_ context.Context, nodeID string, position models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow == nil {
		return ErrNotLoaded
	}

	node := s.flow.NodeByID(nodeID)
	if node == nil {
		return services.ErrNodeNotFound
	}

	previous := node.Position
	node.Position = position

	s.queueMoveLocked(nodeID, position)

	s.recordLocked(&command{
		undo: func(context.Context) error {
			if node := s.flow.NodeByID(nodeID); node != nil {
				node.Position = previous
			}

			s.queueMoveLocked(nodeID, previous)

			return nil
		},
		redo: func(context.Context) error {
			if node := s.flow.NodeByID(nodeID); node != nil {
				node.Position = position
			}

			s.queueMoveLocked(nodeID, position)

			return nil
		},
	})

	return nil
}

// AddTransition connects two nodes, in the backend first.
func (s *Session) AddTransition(ctx context.Context, req *services.CreateTransitionRequest) (*models.FlowTransition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow == nil {
		return nil, ErrNotLoaded
	}

	flowID := s.flow.ID

	transition, err := s.resource.CreateTransition(ctx, flowID, req)
	if err != nil {
		return nil, err
	}

	s.flow.Transitions = append(s.flow.Transitions, transition)
	s.lastSaved = time.Now()
	s.markDirtyLocked()

	snapshot := cloneTransition(transition)

	s.recordLocked(&command{
		undo: func(ctx context.Context) error {
			if err := s.resource.DeleteTransition(ctx, flowID, snapshot.ID); err != nil {
				return err
			}

			s.removeTransitionLocked(snapshot.ID)

			return nil
		},
		redo: func(ctx context.Context) error {
			if err := s.resource.RestoreTransition(ctx, flowID, cloneTransition(snapshot)); err != nil {
				return err
			}

			s.flow.Transitions = append(s.flow.Transitions, cloneTransition(snapshot))

			return nil
		},
	})

	return transition, nil
}

// UpdateTransition applies a partial update to a transition.
func (s *Session) UpdateTransition(ctx context.Context, transitionID string, req *services.UpdateTransitionRequest) (*models.FlowTransition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow == nil {
		return nil, ErrNotLoaded
	}

	flowID := s.flow.ID

	existing := s.flow.TransitionByID(transitionID)
	if existing == nil {
		return nil, services.ErrTransitionNotFound
	}

	before := cloneTransition(existing)

	updated, err := s.resource.UpdateTransition(ctx, flowID, transitionID, req)
	if err != nil {
		return nil, err
	}

	s.replaceTransitionLocked(updated)
	s.lastSaved = time.Now()
	s.markDirtyLocked()

	after := cloneTransition(updated)

	s.recordLocked(&command{
		undo: func(ctx context.Context) error {
			restored, err := s.resource.UpdateTransition(ctx, flowID, transitionID, transitionUpdateRequest(before))
			if err != nil {
				return err
			}

			s.replaceTransitionLocked(restored)

			return nil
		},
		redo: func(ctx context.Context) error {
			restored, err := s.resource.UpdateTransition(ctx, flowID, transitionID, transitionUpdateRequest(after))
			if err != nil {
				return err
			}

			s.replaceTransitionLocked(restored)

			return nil
		},
	})

	return updated, nil
}

// DeleteTransition removes a transition from the flow.
func (s *Session) DeleteTransition(ctx context.Context, transitionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow == nil {
		return ErrNotLoaded
	}

	flowID := s.flow.ID

	existing := s.flow.TransitionByID(transitionID)
	if existing == nil {
		return services.ErrTransitionNotFound
	}

	snapshot := cloneTransition(existing)

	err := s.resource.DeleteTransition(ctx, flowID, transitionID)
	if err != nil {
		return err
	}

	s.removeTransitionLocked(transitionID)
	s.lastSaved = time.Now()
	s.markDirtyLocked()

	s.recordLocked(&command{
		undo: func(ctx context.Context) error {
			if err := s.resource.RestoreTransition(ctx, flowID, cloneTransition(snapshot)); err != nil {
				return err
			}

			s.flow.Transitions = append(s.flow.Transitions, cloneTransition(snapshot))

			return nil
		},
		redo: func(ctx context.Context) error {
			if err := s.resource.DeleteTransition(ctx, flowID, snapshot.ID); err != nil {
				return err
			}

			s.removeTransitionLocked(snapshot.ID)

			return nil
		},
	})

	return nil
}

// Undo reverts the most recent mutation. A failed undo leaves the entry on
// the stack so the user can retry.
func (s *Session) Undo(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.undoStack) == 0 {
		return ErrNothingToUndo
	}

	cmd := s.undoStack[len(s.undoStack)-1]

	err := cmd.undo(ctx)
	if err != nil {
		return fmt.Errorf("undo failed: %w", err)
	}

	s.undoStack = s.undoStack[:len(s.undoStack)-1]
	s.redoStack = append(s.redoStack, cmd)
	s.lastSaved = time.Now()
	s.markDirtyLocked()

	return nil
}

// Redo re-applies the most recently undone mutation.
func (s *Session) Redo(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.redoStack) == 0 {
		return ErrNothingToRedo
	}

	cmd := s.redoStack[len(s.redoStack)-1]

	err := cmd.redo(ctx)
	if err != nil {
		return fmt.Errorf("redo failed: %w", err)
	}

	s.redoStack = s.redoStack[:len(s.redoStack)-1]
	s.undoStack = append(s.undoStack, cmd)
	s.lastSaved = time.Now()
	s.markDirtyLocked()

	return nil
}

// SelectNode marks a node as the current selection, clearing any selected
// transition. An empty ID clears the selection.
func (s *Session) SelectNode(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selectedNodeID = nodeID
	s.selectedTransitionID = ""
}

// SelectTransition marks a transition as the current selection, clearing
// any selected node.
func (s *Session) SelectTransition(transitionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selectedTransitionID = transitionID
	s.selectedNodeID = ""
}

// SelectedNode returns the currently selected node, or nil.
func (s *Session) SelectedNode() *models.FlowNode {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow == nil || s.selectedNodeID == "" {
		return nil
	}

	return s.flow.NodeByID(s.selectedNodeID)
}

// SelectedTransition returns the currently selected transition, or nil.
func (s *Session) SelectedTransition() *models.FlowTransition {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow == nil || s.selectedTransitionID == "" {
		return nil
	}

	return s.flow.TransitionByID(s.selectedTransitionID)
}

// TransitionPath returns the canvas geometry for rendering a transition
// between its endpoints' current positions.
func (s *Session) TransitionPath(transitionID string) (geometry.Path, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow == nil {
		return geometry.Path{}, ErrNotLoaded
	}

	transition := s.flow.TransitionByID(transitionID)
	if transition == nil {
		return geometry.Path{}, services.ErrTransitionNotFound
	}

	from := s.flow.NodeByID(transition.FromNodeID)
	to := s.flow.NodeByID(transition.ToNodeID)

	if from == nil || to == nil {
		return geometry.Path{}, services.ErrNodeNotFound
	}

	return geometry.PathBetween(from, to), nil
}

// Flush persists any pending node moves immediately.
func (s *Session) Flush(ctx context.Context) {
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()

	s.flushMoves(ctx)
}

func (s *Session) resetStateLocked() {
	s.undoStack = s.undoStack[:0]
	s.redoStack = s.redoStack[:0]
	s.selectedNodeID = ""
	s.selectedTransitionID = ""
	s.dirty = false
	s.pendingMoves = make(map[string]models.Position)
}

// recordLocked pushes a command onto the undo stack, evicting the oldest
// entry past the history limit. Any redo history is invalidated.
func (s *Session) recordLocked(cmd *command) {
	s.undoStack = append(s.undoStack, cmd)
	if len(s.undoStack) > historyLimit {
		s.undoStack = s.undoStack[len(s.undoStack)-historyLimit:]
	}

	s.redoStack = s.redoStack[:0]
}

func (s *Session) queueMoveLocked(nodeID string, position models.Position) {
	s.pendingMoves[nodeID] = position

	s.markDirtyLocked()
}

// markDirtyLocked flags unsettled local changes and restarts the settle
// timer. The save context is captured under the lock; Reset swaps the
// field while holding it.
func (s *Session) markDirtyLocked() {
	s.dirty = true

	ctx := s.saveCtx

	s.stopTimerLocked()
	s.saveTimer = time.AfterFunc(s.saveDelay, func() {
		s.flushMoves(ctx)
	})
}

func (s *Session) stopTimerLocked() {
	if s.saveTimer != nil {
		s.saveTimer.Stop()
		s.saveTimer = nil
	}
}

func (s *Session) flushMoves(ctx context.Context) {
	s.mu.Lock()

	if s.flow == nil {
		s.mu.Unlock()

		return
	}

	// Nothing positional pending means the mutations themselves already
	// reached the backend; the settle just clears the flag.
	if len(s.pendingMoves) == 0 {
		s.dirty = false
		s.mu.Unlock()

		return
	}

	flowID := s.flow.ID
	pending := s.pendingMoves
	s.pendingMoves = make(map[string]models.Position)
	s.saving = true
	s.mu.Unlock()

	ok := true

	for nodeID, position := range pending {
		p := position

		_, err := s.resource.UpdateNode(ctx, flowID, nodeID, &services.UpdateNodeRequest{Position: &p})
		if err != nil {
			ok = false

			slog.WarnContext(ctx, "Failed to persist node position",
				"flow_id", flowID, "node_id", nodeID, "error", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.saving = false

	if ok && len(s.pendingMoves) == 0 {
		s.dirty = false
		s.lastSaved = time.Now()
	}
}

func (s *Session) removeNodeLocked(nodeID string) {
	nodes := s.flow.Nodes[:0]

	for _, node := range s.flow.Nodes {
		if node.ID != nodeID {
			nodes = append(nodes, node)
		}
	}

	s.flow.Nodes = nodes

	transitions := s.flow.Transitions[:0]

	for _, transition := range s.flow.Transitions {
		if transition.FromNodeID != nodeID && transition.ToNodeID != nodeID {
			transitions = append(transitions, transition)
		}
	}

	s.flow.Transitions = transitions

	if s.selectedNodeID == nodeID {
		s.selectedNodeID = ""
	}
}

func (s *Session) removeTransitionLocked(transitionID string) {
	transitions := s.flow.Transitions[:0]

	for _, transition := range s.flow.Transitions {
		if transition.ID != transitionID {
			transitions = append(transitions, transition)
		}
	}

	s.flow.Transitions = transitions

	if s.selectedTransitionID == transitionID {
		s.selectedTransitionID = ""
	}
}

func (s *Session) replaceNodeLocked(node *models.FlowNode) {
	for i, existing := range s.flow.Nodes {
		if existing.ID == node.ID {
			s.flow.Nodes[i] = node

			return
		}
	}
}

func (s *Session) replaceTransitionLocked(transition *models.FlowTransition) {
	for i, existing := range s.flow.Transitions {
		if existing.ID == transition.ID {
			s.flow.Transitions[i] = transition

			return
		}
	}
}

func cloneNode(n *models.FlowNode) *models.FlowNode {
	out := *n
	out.Config = maps.Clone(n.Config)
	out.Metadata = maps.Clone(n.Metadata)

	return &out
}

func cloneTransition(t *models.FlowTransition) *models.FlowTransition {
	out := *t
	out.Metadata = maps.Clone(t.Metadata)

	return &out
}

func nodeUpdateRequest(n *models.FlowNode) *services.UpdateNodeRequest {
	name := n.Name
	position := n.Position

	return &services.UpdateNodeRequest{
		Name:     &name,
		Position: &position,
		Config:   n.Config,
		Metadata: n.Metadata,
	}
}

func transitionUpdateRequest(t *models.FlowTransition) *services.UpdateTransitionRequest {
	condition := t.Condition
	priority := t.Priority

	return &services.UpdateTransitionRequest{
		Condition: &condition,
		Priority:  &priority,
		Metadata:  t.Metadata,
	}
}
