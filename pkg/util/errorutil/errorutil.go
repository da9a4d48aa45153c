package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes rendered to API clients.
const (
	CodeValidation        = "VALIDATION_FAILED"
	CodeNotFound          = "NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodeVersionConflict   = "VERSION_CONFLICT"
	CodeInvalidTransition = "INVALID_STATUS_TRANSITION"
	CodeInternal          = "INTERNAL_ERROR"
)

// ErrStaleVersion is returned by repositories when an optimistic write lost the race.
var ErrStaleVersion = errors.New("stale work order version")

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewVersionConflict reports that the caller acted on an outdated copy of a work order.
func NewVersionConflict(workOrderID string, expected int64) error {
	return &DomainError{
		Code:       CodeVersionConflict,
		Message:    "work order was modified concurrently; reload and retry",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"work_order_id": workOrderID, "expected_version": expected},
		Err:        ErrStaleVersion,
	}
}

// NewInvalidTransition reports a status change the lifecycle does not allow.
func NewInvalidTransition(from, to string, allowed []string) error {
	if allowed == nil {
		allowed = []string{}
	}
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("cannot move work order from '%s' to '%s'", from, to),
		http.StatusUnprocessableEntity,
		map[string]any{"from": from, "to": to, "allowed": allowed})
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	if errors.Is(err, ErrStaleVersion) {
		return NewDomainError(CodeVersionConflict, "work order was modified concurrently; reload and retry", http.StatusConflict, nil)
	}
	return NewInternalError(err).(*DomainError)
}

// MapError is ToDomainError typed as error.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
