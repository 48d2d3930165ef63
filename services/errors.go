package services

import "fmt"

// LifecycleError is the error type returned by the lifecycle service. The
// Code maps one-to-one onto the HTTP error envelope codes used by the
// controllers, so the HTTP layer never has to inspect backend errors.
type LifecycleError struct {
	Code    string
	Message string
	Err     error // optional wrapped cause (store errors)
}

func (e *LifecycleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *LifecycleError) Unwrap() error {
	return e.Err
}

// Error codes for the lifecycle service
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeConflict          = "CONFLICT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeAuthorization     = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeStore             = "DATABASE_ERROR"
)

// NewValidationError reports malformed or missing input, user-correctable
func NewValidationError(message string) *LifecycleError {
	return &LifecycleError{Code: CodeValidation, Message: message}
}

// NewConflictError reports a lost race to another actor (e.g. claim already taken)
func NewConflictError(message string) *LifecycleError {
	return &LifecycleError{Code: CodeConflict, Message: message}
}

// NewInvalidTransitionError reports a status change not permitted from the current state
func NewInvalidTransitionError(message string) *LifecycleError {
	return &LifecycleError{Code: CodeInvalidTransition, Message: message}
}

// NewAuthorizationError reports an actor lacking role or ownership for an operation
func NewAuthorizationError(message string) *LifecycleError {
	return &LifecycleError{Code: CodeAuthorization, Message: message}
}

// NewNotFoundError reports a missing repair request
func NewNotFoundError(message string) *LifecycleError {
	return &LifecycleError{Code: CodeNotFound, Message: message}
}

// NewStoreError wraps a backend/network failure. These are retryable by the
// user re-triggering the action; nothing retries automatically.
func NewStoreError(message string, err error) *LifecycleError {
	return &LifecycleError{Code: CodeStore, Message: message, Err: err}
}
