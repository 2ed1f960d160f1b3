package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that carry their own HTTP status code,
// checked with errors.As() before the sentinel mapping.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRunActive is returned when a smart tag propagation run is
	// requested while another run is still in progress. At most one
	// run may be active system-wide.
	ErrRunActive = errors.New("propagation run already in progress")
)

// AnalysisReason classifies document analysis failures.
type AnalysisReason string

const (
	ReasonQuotaExceeded AnalysisReason = "quota_exceeded"
	ReasonNetwork       AnalysisReason = "network"
	ReasonMalformed     AnalysisReason = "malformed"
)

// AnalysisError is surfaced to the caller when the external document
// analyzer fails. The tree is left unchanged and the request may be
// retried.
type AnalysisError struct {
	Reason AnalysisReason
	Err    error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("analysis failed (%s)", e.Reason)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// StatusCode implements the HTTPError interface.
func (e *AnalysisError) StatusCode() int {
	switch e.Reason {
	case ReasonQuotaExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}
