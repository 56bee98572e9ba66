package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeConflict     = "CONFLICT"
	CodeRejected     = "RULE_REJECTED"
	CodeTransient    = "TRANSIENT_CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeTimeout      = "TIMEOUT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInvalidInput = "INVALID_INPUT"
)

// AppError is the single error shape returned by services. Reason is set for
// rule rejections and transient conflicts and names the rule that fired.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Reason     string         `json:"reason,omitempty"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	prefix := e.Code
	if e.Reason != "" {
		prefix = fmt.Sprintf("%s[%s]", e.Code, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

// Retryable reports whether the caller may repeat the same request with fresh data.
func (e *AppError) Retryable() bool {
	return e.Code == CodeTransient || e.Code == CodeUnavailable || e.Code == CodeTimeout
}

func (e *AppError) ToJSON() []byte {
	response := ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Reason:  e.Reason,
		Details: e.Details,
	}
	data, _ := json.Marshal(response)
	return data
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// Rejected is a business rule that evaluated false. The attempt left no trace
// and repeating it unchanged yields the same rejection.
func Rejected(reason, message string) *AppError {
	return &AppError{
		Code:       CodeRejected,
		Message:    message,
		Reason:     reason,
		HTTPStatus: http.StatusConflict,
	}
}

// Transient is a lost race or a lock that could not be obtained in time.
// Reason carries the rule that would have fired had the winning claim been
// visible at validation time.
func Transient(reason, message string) *AppError {
	return &AppError{
		Code:       CodeTransient,
		Message:    message,
		Reason:     reason,
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"retryable": true},
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

func Unavailable(service string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// StoreUnavailable wraps an infrastructure failure of the record store.
func StoreUnavailable(err error) *AppError {
	appErr := Unavailable("Inventory store")
	appErr.Err = err
	return appErr
}

func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// ReasonOf returns the rule reason attached to err, if any.
func ReasonOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Reason
	}
	return ""
}

func IsRejected(err error) bool {
	return hasCode(err, CodeRejected)
}

func IsTransient(err error) bool {
	return hasCode(err, CodeTransient)
}

func IsUnavailable(err error) bool {
	return hasCode(err, CodeUnavailable)
}

func hasCode(err error, code string) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}
