package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error codes shared by every domain error.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeForbidden         = "FORBIDDEN"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeConflict          = "CONFLICT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodePersistence       = "PERSISTENCE_ERROR"
)

// DomainError is a categorized business error.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewValidationError reports a malformed request. It is raised before any external call.
func NewValidationError(msg string) *DomainError {
	return &DomainError{Code: CodeValidation, Message: msg}
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: fmt.Sprintf("%s not found: %s", entity, id)}
}

// NewForbiddenError reports an actor acting outside their role.
func NewForbiddenError(msg string) *DomainError {
	return &DomainError{Code: CodeForbidden, Message: msg}
}

// NewUnauthorizedError reports a missing or invalid identity.
func NewUnauthorizedError(msg string) *DomainError {
	return &DomainError{Code: CodeUnauthorized, Message: msg}
}

// ConflictError is an expected, recoverable outcome: the requested slot or row is already taken.
// ConflictingID is set when the colliding appointment is known, so the caller can re-prompt.
type ConflictError struct {
	Message       string
	ConflictingID *uuid.UUID
}

func (e *ConflictError) Error() string {
	if e.ConflictingID != nil {
		return fmt.Sprintf("%s (conflicts with %s)", e.Message, e.ConflictingID)
	}
	return e.Message
}

// NewConflictError creates a ConflictError without a known colliding entity.
func NewConflictError(msg string) *ConflictError {
	return &ConflictError{Message: msg}
}

// NewSlotConflictError creates a ConflictError referencing the colliding appointment.
func NewSlotConflictError(conflictingID uuid.UUID) *ConflictError {
	id := conflictingID
	return &ConflictError{Message: "requested time overlaps an existing appointment", ConflictingID: &id}
}

// InvalidTransitionError is returned when a status is unreachable from the current one.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// NewInvalidStateError creates an InvalidTransitionError.
func NewInvalidStateError(from, to string) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to}
}

// PersistenceError wraps a fault of an external collaborator (database, cache, broker).
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError wraps err with the failing operation name.
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

// IsConflict reports whether err is, or wraps, a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// HasCode reports whether err is, or wraps, a DomainError with the given code.
func HasCode(err error, code string) bool {
	var d *DomainError
	return errors.As(err, &d) && d.Code == code
}
