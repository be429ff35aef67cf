package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a CustomError for programmatic handling. Infra-level
// kinds are fatal for a run; item-level kinds are absorbed into the run
// summary by the orchestrator.
type ErrorKind string

const (
	KindTransport            ErrorKind = "transport"
	KindTimeout              ErrorKind = "timeout"
	KindMalformedReply       ErrorKind = "malformed_reply"
	KindEvaluation           ErrorKind = "evaluation"
	KindPersistence          ErrorKind = "persistence"
	KindValidation           ErrorKind = "validation"
	KindDuplicateCorrelation ErrorKind = "duplicate_correlation"
	KindNoCV                 ErrorKind = "no_cv"
	KindAlreadyRunning       ErrorKind = "already_running"
	KindCancelled            ErrorKind = "cancelled"
	KindInternal             ErrorKind = "internal"
)

// CustomError represents a custom application error
type CustomError struct {
	Kind    ErrorKind `json:"kind"`
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
}

func (e *CustomError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

// Common error constructors

// NewTransportError signals that the broker was unreachable at publish
// time. Fatal for the current run, never retried silently.
func NewTransportError(detail string) *CustomError {
	return &CustomError{
		Kind:    KindTransport,
		Code:    http.StatusBadGateway,
		Message: "Broker transport failed",
		Detail:  detail,
	}
}

// NewTimeoutError signals that no reply arrived before the deadline.
// Terminal for the run but distinct from failure; the caller may retry.
func NewTimeoutError(detail string) *CustomError {
	return &CustomError{
		Kind:    KindTimeout,
		Code:    http.StatusGatewayTimeout,
		Message: "No response from scraper",
		Detail:  detail,
	}
}

// NewMalformedReplyError signals a reply message that violates the wire
// schema. The message is discarded; pending requests are unaffected.
func NewMalformedReplyError(detail string) *CustomError {
	return &CustomError{
		Kind:    KindMalformedReply,
		Code:    http.StatusUnprocessableEntity,
		Message: "Malformed scrape reply",
		Detail:  detail,
	}
}

// NewEvaluationError signals a per-job AI evaluation failure.
func NewEvaluationError(detail string) *CustomError {
	return &CustomError{
		Kind:    KindEvaluation,
		Code:    http.StatusBadGateway,
		Message: "Relevance evaluation failed",
		Detail:  detail,
	}
}

// NewPersistenceError signals a per-job save failure.
func NewPersistenceError(detail string) *CustomError {
	return &CustomError{
		Kind:    KindPersistence,
		Code:    http.StatusInternalServerError,
		Message: "Job persistence failed",
		Detail:  detail,
	}
}

func NewValidationError(detail string) *CustomError {
	return &CustomError{
		Kind:    KindValidation,
		Code:    http.StatusBadRequest,
		Message: "Validation failed",
		Detail:  detail,
	}
}

// NewDuplicateCorrelationError signals an internal invariant violation:
// a correlation id was registered twice.
func NewDuplicateCorrelationError(correlationID string) *CustomError {
	return &CustomError{
		Kind:    KindDuplicateCorrelation,
		Code:    http.StatusConflict,
		Message: "Correlation id already tracked",
		Detail:  correlationID,
	}
}

// NewNoCVError signals a search issued before any CV was uploaded.
func NewNoCVError(userID string) *CustomError {
	return &CustomError{
		Kind:    KindNoCV,
		Code:    http.StatusConflict,
		Message: "No CV uploaded",
		Detail:  fmt.Sprintf("user %s has no sanitized CV on record", userID),
	}
}

// NewAlreadyRunningError signals a second search for a user whose run is
// still active. The original run is unaffected; the caller must cancel
// first.
func NewAlreadyRunningError(userID string) *CustomError {
	return &CustomError{
		Kind:    KindAlreadyRunning,
		Code:    http.StatusConflict,
		Message: "Pipeline already running",
		Detail:  fmt.Sprintf("user %s has an active run", userID),
	}
}

// NewCancelledError signals a caller-initiated abort of a run.
func NewCancelledError(detail string) *CustomError {
	return &CustomError{
		Kind:    KindCancelled,
		Code:    http.StatusConflict,
		Message: "Pipeline run cancelled",
		Detail:  detail,
	}
}

func NewInternalServerError(message string) *CustomError {
	return &CustomError{
		Kind:    KindInternal,
		Code:    http.StatusInternalServerError,
		Message: message,
	}
}

// IsKind reports whether err is a CustomError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}
