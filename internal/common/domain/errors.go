package domain

import (
	"errors"
	"fmt"
)

// Sentinel error kinds shared by every aggregate.
var (
	ErrValidation       = errors.New("invalid_input")
	ErrNotFound         = errors.New("not_found")
	ErrForbidden        = errors.New("forbidden")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrConflict         = errors.New("conflict")
	ErrInvalidState     = errors.New("immutable_state")
	ErrGateway          = errors.New("gateway_failure")
	ErrSignatureInvalid = errors.New("signature_invalid")
)

// DomainError carries a stable error kind and a message that is safe to return to clients.
type DomainError struct {
	Err     error
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

// Unwrap lets errors.Is match the sentinel kind.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Kind returns the stable identifier of the error kind.
func (e *DomainError) Kind() string {
	return e.Err.Error()
}

// NewValidationError reports malformed or inconsistent input.
func NewValidationError(message string) *DomainError {
	return &DomainError{Err: ErrValidation, Message: message}
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{Err: ErrNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewForbiddenError reports an authenticated caller acting on a resource it does not own.
func NewForbiddenError(message string) *DomainError {
	return &DomainError{Err: ErrForbidden, Message: message}
}

// NewUnauthorizedError reports a missing or invalid identity.
func NewUnauthorizedError(message string) *DomainError {
	return &DomainError{Err: ErrUnauthorized, Message: message}
}

// NewConflictError reports a clash with existing state.
func NewConflictError(message string) *DomainError {
	return &DomainError{Err: ErrConflict, Message: message}
}

// NewInvalidStateError reports a transition that the current state does not allow.
func NewInvalidStateError(from, to string) *DomainError {
	return &DomainError{Err: ErrInvalidState, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

// NewImmutableStateError reports an edit attempted on a terminal entity.
func NewImmutableStateError(message string) *DomainError {
	return &DomainError{Err: ErrInvalidState, Message: message}
}

// NewGatewayError reports a failed call to the payment provider. cause is kept for logs only.
func NewGatewayError(message string, cause error) error {
	return fmt.Errorf("%w: %v", &DomainError{Err: ErrGateway, Message: message}, cause)
}

// NewSignatureInvalidError reports a webhook payload whose signature did not verify.
func NewSignatureInvalidError() *DomainError {
	return &DomainError{Err: ErrSignatureInvalid, Message: "webhook signature verification failed"}
}

// AsDomainError extracts the DomainError from an error chain.
func AsDomainError(err error) (*DomainError, bool) {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a not-found domain error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
