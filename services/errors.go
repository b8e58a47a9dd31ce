package services

import "net/http"

// ErrorKind names a failure category callers can switch on.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation_error"
	KindFormUnavailable     ErrorKind = "form_unavailable"
	KindDuplicateSubmission ErrorKind = "duplicate_submission"
	KindUnauthorized        ErrorKind = "unauthorized"
	KindNotFound            ErrorKind = "not_found"
	KindAlreadyPaid         ErrorKind = "already_paid"
	KindVerificationFailed  ErrorKind = "verification_failed"
	KindGatewayError        ErrorKind = "gateway_error"
	KindGatewayUnavailable  ErrorKind = "gateway_unavailable"
	KindInternal            ErrorKind = "internal_error"
)

var kindStatus = map[ErrorKind]int{
	KindValidation:          http.StatusBadRequest,
	KindFormUnavailable:     http.StatusConflict,
	KindDuplicateSubmission: http.StatusConflict,
	KindUnauthorized:        http.StatusForbidden,
	KindNotFound:            http.StatusNotFound,
	KindAlreadyPaid:         http.StatusConflict,
	KindVerificationFailed:  http.StatusBadRequest,
	KindGatewayError:        http.StatusBadGateway,
	KindGatewayUnavailable:  http.StatusServiceUnavailable,
	KindInternal:            http.StatusInternalServerError,
}

// ServiceError represents a typed error with an HTTP status code.
type ServiceError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Field      string // offending form field, validation errors only
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Retryable reports whether the same request may succeed later without
// changes on the caller's side.
func (e *ServiceError) Retryable() bool {
	return e.Kind == KindGatewayError || e.Kind == KindGatewayUnavailable
}

func newError(kind ErrorKind, message string) *ServiceError {
	return &ServiceError{Kind: kind, StatusCode: kindStatus[kind], Message: message}
}

func fieldError(field, message string) *ServiceError {
	err := newError(KindValidation, message)
	err.Field = field
	return err
}

func internalError() *ServiceError {
	return newError(KindInternal, "Internal server error")
}
