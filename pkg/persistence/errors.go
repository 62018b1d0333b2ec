// Package persistence provides standardized error types for storage
// operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrFlowNotFound indicates a flow was not found by the given identifier.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrNodeNotFound indicates a node was not found by the given identifier.
	ErrNodeNotFound = errors.New("node not found")

	// ErrTransitionNotFound indicates a transition was not found by the given identifier.
	ErrTransitionNotFound = errors.New("transition not found")

	// ErrSlugAlreadyExists indicates another flow of the tenant already uses the slug.
	ErrSlugAlreadyExists = errors.New("flow slug already exists")

	// ErrInvalidSortField indicates an unsupported sort field was requested.
	ErrInvalidSortField = errors.New("invalid sort field")
)

// FlowError wraps flow-related errors with operation context.
type FlowError struct {
	Op      string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	FlowID  string
	Message string
	Err     error
}

func (e *FlowError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for flow %s: %s (%v)", e.Op, e.FlowID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for flow %s: %v", e.Op, e.FlowID, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

func (e *FlowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewFlowError creates a new flow error with context.
func NewFlowError(op, flowID string, err error) *FlowError {
	return &FlowError{Op: op, FlowID: flowID, Err: err}
}

// NodeError wraps node-related errors with operation context.
type NodeError struct {
	Op     string
	FlowID string
	NodeID string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s operation failed for node %s in flow %s: %v", e.Op, e.NodeID, e.FlowID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

func (e *NodeError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewNodeError creates a new node error with context.
func NewNodeError(op, flowID, nodeID string, err error) *NodeError {
	return &NodeError{Op: op, FlowID: flowID, NodeID: nodeID, Err: err}
}

// TransitionError wraps transition-related errors with operation context.
type TransitionError struct {
	Op           string
	FlowID       string
	TransitionID string
	Err          error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s operation failed for transition %s in flow %s: %v", e.Op, e.TransitionID, e.FlowID, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

func (e *TransitionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewTransitionError creates a new transition error with context.
func NewTransitionError(op, flowID, transitionID string, err error) *TransitionError {
	return &TransitionError{Op: op, FlowID: flowID, TransitionID: transitionID, Err: err}
}

// IsFlowNotFound checks if an error indicates a flow was not found.
func IsFlowNotFound(err error) bool {
	return errors.Is(err, ErrFlowNotFound)
}

// IsNodeNotFound checks if an error indicates a node was not found.
func IsNodeNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound)
}

// IsTransitionNotFound checks if an error indicates a transition was not found.
func IsTransitionNotFound(err error) bool {
	return errors.Is(err, ErrTransitionNotFound)
}

// IsSlugAlreadyExists checks if an error indicates a duplicate slug.
func IsSlugAlreadyExists(err error) bool {
	return errors.Is(err, ErrSlugAlreadyExists)
}

// IsInvalidSortField checks if an error indicates an unsupported sort field.
func IsInvalidSortField(err error) bool {
	return errors.Is(err, ErrInvalidSortField)
}
