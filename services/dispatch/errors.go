package dispatch

import (
	"errors"
	"fmt"
)

// Error codes for the dispatch outcome taxonomy. Reservation conflicts
// and eligibility misses are handled internally and never surface.
const (
	CodeInvalidRequest          = "invalidRequest"
	CodeNoTechnicianAvailable   = "noTechnicianAvailable"
	CodeCollaboratorUnavailable = "collaboratorUnavailable"
)

// DispatchError carries a taxonomy code alongside the message so
// callers can decide between retry, backoff and immediate failure.
type DispatchError struct {
	Code    string
	Message string
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// NewInvalidRequestError flags a malformed request; not retryable.
func NewInvalidRequestError(msg string) error {
	return &DispatchError{Code: CodeInvalidRequest, Message: msg}
}

// NewNoTechnicianError is the terminal business outcome for an
// exhausted candidate list; retryable by the caller later.
func NewNoTechnicianError(requestID string, attempted int) error {
	return &DispatchError{
		Code:    CodeNoTechnicianAvailable,
		Message: fmt.Sprintf("no technician available for request %s after %d attempts", requestID, attempted),
	}
}

// NewCollaboratorError wraps a geo source or persistence failure; a
// system fault the caller retries with backoff.
func NewCollaboratorError(op string, err error) error {
	return &DispatchError{
		Code:    CodeCollaboratorUnavailable,
		Message: fmt.Sprintf("%s failed", op),
		Err:     err,
	}
}

func hasCode(err error, code string) bool {
	var de *DispatchError
	return errors.As(err, &de) && de.Code == code
}

// IsInvalidRequest reports whether err is a request validation failure.
func IsInvalidRequest(err error) bool {
	return hasCode(err, CodeInvalidRequest)
}

// IsNoTechnicianAvailable reports whether err is the exhausted-list
// business outcome rather than a system fault.
func IsNoTechnicianAvailable(err error) bool {
	return hasCode(err, CodeNoTechnicianAvailable)
}

// IsCollaboratorUnavailable reports whether err is a collaborator fault.
func IsCollaboratorUnavailable(err error) bool {
	return hasCode(err, CodeCollaboratorUnavailable)
}
