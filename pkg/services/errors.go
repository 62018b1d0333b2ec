// Package services provides standardized error types for service layer
// operations.
package services

import (
	"errors"
	"fmt"

	"github.com/chatforge/chatforge/pkg/persistence"
	"github.com/chatforge/chatforge/pkg/registry"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest   = errors.New("invalid request")
	ErrFlowNil          = errors.New("flow cannot be nil")
	ErrNameRequired     = errors.New("name is required")
	ErrInvalidSlug      = errors.New("slug must match [a-z0-9-]+")
	ErrInvalidPriority  = errors.New("transition priority must be between 0 and 100")
	ErrSelfTransition   = errors.New("transition cannot connect a node to itself")
	ErrUnknownNodeType  = registry.ErrUnknownNodeType
	ErrInvalidSortField = errors.New("invalid sort field")
	ErrInvalidSortOrder = errors.New("invalid sort order")

	// Conflicts (409 Conflict).
	ErrSlugTaken       = errors.New("another flow already uses this slug")
	ErrStartNodeExists = errors.New("flow already has a start node")

	// Not found, re-exported from persistence for callers' convenience.
	ErrFlowNotFound       = persistence.ErrFlowNotFound
	ErrNodeNotFound       = persistence.ErrNodeNotFound
	ErrTransitionNotFound = persistence.ErrTransitionNotFound
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Code: code, Message: message, Err: err}
}

// IsValidationError checks if an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrFlowNil) ||
		errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrInvalidSlug) ||
		errors.Is(err, ErrInvalidPriority) ||
		errors.Is(err, ErrSelfTransition) ||
		errors.Is(err, ErrUnknownNodeType) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidSortOrder)
}

// IsConflictError checks if an error should map to HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrSlugTaken) ||
		errors.Is(err, ErrStartNodeExists)
}
