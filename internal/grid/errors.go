package grid

import (
	"errors"
	"fmt"
)

var (
	// ErrNoQueryConfigured indicates the grid has no query to execute.
	ErrNoQueryConfigured = errors.New("grid: no query configured")
	// ErrMalformedFilterEvent indicates a filter change without field or value.
	ErrMalformedFilterEvent = errors.New("grid: filter event missing field or value")
	// ErrUnknownFilter indicates a field with no configured filter candidates.
	ErrUnknownFilter = errors.New("grid: unknown filter field")
	// ErrUnknownFilterValue indicates a value outside the configured candidates.
	ErrUnknownFilterValue = errors.New("grid: value is not a filter candidate")
	// ErrSubmissionInFlight indicates an owner change is already being submitted.
	ErrSubmissionInFlight = errors.New("grid: owner change already in progress")
	// ErrNothingToSubmit indicates no records or no new owner were chosen.
	ErrNothingToSubmit = errors.New("grid: select records and a new owner first")
	// ErrUnknownCandidate indicates the chosen owner is not among the search results.
	ErrUnknownCandidate = errors.New("grid: candidate not in search results")
	// ErrModalClosed indicates an owner workflow action while the modal is closed.
	ErrModalClosed = errors.New("grid: change owner modal is closed")
)

const (
	msgNoQuery        = "Please configure a query for this grid."
	msgLoadFailed     = "An error occurred while loading data."
	msgUnexpected     = "An unexpected error occurred."
	msgChangeOwnerErr = "Failed to change owner"
)

// ServiceError carries a structured failure reported by a remote service.
type ServiceError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *ServiceError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Body
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("grid service %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("grid service: %s", msg)
}

// ErrorMessage extracts a human readable message from a service failure,
// preferring the structured body message when present.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Message != "" {
		return svcErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return msgUnexpected
}
