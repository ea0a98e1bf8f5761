package storage

import (
	"errors"
	"fmt"
)

// Standard storage errors. Adapters translate native driver errors into this
// taxonomy at their boundary; nothing above the adapter layer inspects
// driver error types.
var (
	// ErrNotConfigured is returned when no startup configuration was supplied.
	ErrNotConfigured = errors.New("storage is not configured")

	// ErrConnectionFailed is returned when the engine is unreachable or
	// rejects the connection. Callers decide retry policy.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrProvisioningFailed is returned when schema creation failed. The
	// affected table stays unusable until operator intervention.
	ErrProvisioningFailed = errors.New("schema provisioning failed")

	// ErrConstraintViolation is returned when a uniqueness or foreign-key
	// rule is broken.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrNotFound is returned when an update or delete predicate matched
	// no records.
	ErrNotFound = errors.New("record not found")

	// ErrValidation is returned for a malformed logical record, predicate,
	// or table definition.
	ErrValidation = errors.New("validation failed")

	// ErrAdapterNotFound is returned when no adapter is registered for the
	// configured engine kind.
	ErrAdapterNotFound = errors.New("adapter not found")
)

// ConnectionError wraps a native connection failure with engine context.
type ConnectionError struct {
	Kind    EngineKind
	Address string
	Cause   error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Address != "" {
		return fmt.Sprintf("failed to connect to %s at %s: %v", e.Kind, e.Address, e.Cause)
	}
	return fmt.Sprintf("failed to connect to %s: %v", e.Kind, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is reports whether the error matches ErrConnectionFailed.
func (e *ConnectionError) Is(target error) bool {
	if errors.Is(target, ErrConnectionFailed) {
		return true
	}
	return errors.Is(e.Cause, target)
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(kind EngineKind, address string, cause error) *ConnectionError {
	return &ConnectionError{Kind: kind, Address: address, Cause: cause}
}

// ProvisioningError wraps a schema-creation failure so callers can report
// "storage not ready" distinctly from a data-operation failure.
type ProvisioningError struct {
	Kind  EngineKind
	Table string
	Cause error
}

// Error implements the error interface.
func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("failed to provision table %q on %s: %v", e.Table, e.Kind, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ProvisioningError) Unwrap() error {
	return e.Cause
}

// Is reports whether the error matches ErrProvisioningFailed.
func (e *ProvisioningError) Is(target error) bool {
	if errors.Is(target, ErrProvisioningFailed) {
		return true
	}
	return errors.Is(e.Cause, target)
}

// NewProvisioningError creates a new ProvisioningError.
func NewProvisioningError(kind EngineKind, table string, cause error) *ProvisioningError {
	return &ProvisioningError{Kind: kind, Table: table, Cause: cause}
}

// ConstraintError wraps a uniqueness or foreign-key violation. Callers map
// it to a user-facing "already exists" response.
type ConstraintError struct {
	Kind       EngineKind
	Table      string
	Constraint string
	Cause      error
}

// Error implements the error interface.
func (e *ConstraintError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("constraint %q violated on table %q (%s): %v", e.Constraint, e.Table, e.Kind, e.Cause)
	}
	return fmt.Sprintf("constraint violated on table %q (%s): %v", e.Table, e.Kind, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConstraintError) Unwrap() error {
	return e.Cause
}

// Is reports whether the error matches ErrConstraintViolation.
func (e *ConstraintError) Is(target error) bool {
	if errors.Is(target, ErrConstraintViolation) {
		return true
	}
	return errors.Is(e.Cause, target)
}

// NewConstraintError creates a new ConstraintError.
func NewConstraintError(kind EngineKind, table, constraint string, cause error) *ConstraintError {
	return &ConstraintError{Kind: kind, Table: table, Constraint: constraint, Cause: cause}
}

// NotFoundError is returned when an update or delete matched nothing.
type NotFoundError struct {
	Table string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no record matched in table %q", e.Table)
}

// Is reports whether the error matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return errors.Is(target, ErrNotFound)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(table string) *NotFoundError {
	return &NotFoundError{Table: table}
}

// ValidationError is returned for malformed input. The caller is at fault.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid input: field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// Is reports whether the error matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return errors.Is(target, ErrValidation)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// OperationError wraps any other engine failure with operation context.
// It keeps native driver errors from leaking past the adapter boundary
// while preserving the cause chain for errors.Is checks.
type OperationError struct {
	Kind      EngineKind
	Operation string
	Table     string
	Cause     error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("[%s] %s on table %q: %v", e.Kind, e.Operation, e.Table, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Operation, e.Cause)
}

// Unwrap returns the underlying error.
func (e *OperationError) Unwrap() error {
	return e.Cause
}

// WrapError wraps an error with engine and operation context. Errors already
// carrying taxonomy context are returned as-is to avoid double wrapping.
func WrapError(kind EngineKind, operation, table string, err error) error {
	if err == nil {
		return nil
	}

	var (
		connErr       *ConnectionError
		provErr       *ProvisioningError
		constraintErr *ConstraintError
		notFoundErr   *NotFoundError
		validationErr *ValidationError
		opErr         *OperationError
	)
	if errors.As(err, &connErr) || errors.As(err, &provErr) || errors.As(err, &constraintErr) ||
		errors.As(err, &notFoundErr) || errors.As(err, &validationErr) || errors.As(err, &opErr) {
		return err
	}

	return &OperationError{Kind: kind, Operation: operation, Table: table, Cause: err}
}

// IsConstraintViolation reports whether an error is a constraint violation.
func IsConstraintViolation(err error) bool {
	return errors.Is(err, ErrConstraintViolation)
}

// IsNotFound reports whether an error indicates a predicate matched nothing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConnectionError reports whether an error is a connection failure.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnectionFailed)
}

// IsProvisioningError reports whether an error is a provisioning failure.
func IsProvisioningError(err error) bool {
	return errors.Is(err, ErrProvisioningFailed)
}

// IsValidationError reports whether an error is the caller's fault.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}
