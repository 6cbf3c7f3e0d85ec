package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced conversation, agent or driver does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState indicates a precondition violation, such as initiating a
	// call for an agent that has not been provisioned with the voice provider.
	ErrInvalidState = errors.New("invalid state")
)

// ExternalServiceError wraps a failure from a downstream provider (voice or
// reasoning). Handlers map it to a 502-style response.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// NewExternalServiceError wraps err as a failure of the named service.
func NewExternalServiceError(service string, err error) *ExternalServiceError {
	return &ExternalServiceError{Service: service, Err: err}
}
