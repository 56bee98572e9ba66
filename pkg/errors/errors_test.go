package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "validation failed", http.StatusUnprocessableEntity)

	if err.Code != CodeValidation {
		t.Errorf("expected code %s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "validation failed" {
		t.Errorf("expected message 'validation failed', got %s", err.Message)
	}
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, err.HTTPStatus)
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("database connection failed")
	wrapped := Wrap(originalErr, CodeInternal, "internal error", http.StatusInternalServerError)

	if wrapped.Err != originalErr {
		t.Errorf("expected wrapped error to contain original error")
	}
	if wrapped.Code != CodeInternal {
		t.Errorf("expected code %s, got %s", CodeInternal, wrapped.Code)
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name: "without underlying error",
			appErr: &AppError{
				Code:    CodeNotFound,
				Message: "resource not found",
			},
			expected: "NOT_FOUND: resource not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "internal error",
				Err:     errors.New("database connection failed"),
			},
			expected: "INTERNAL_ERROR: internal error (caused by: database connection failed)",
		},
		{
			name:     "with reason",
			appErr:   Rejected("ExhaustedUses", "coupon has reached its usage limit"),
			expected: "RULE_REJECTED[ExhaustedUses]: coupon has reached its usage limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appErr.Error()
			if got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	appErr := Wrap(originalErr, CodeInternal, "wrapped", http.StatusInternalServerError)

	unwrapped := errors.Unwrap(appErr)
	if unwrapped != originalErr {
		t.Errorf("Unwrap() should return original error")
	}
}

func TestAppError_WithDetails(t *testing.T) {
	err := New(CodeValidation, "validation failed", http.StatusUnprocessableEntity)
	err = err.WithDetails(map[string]any{"field": "code"})

	if err.Details["field"] != "code" {
		t.Errorf("expected field 'code', got %v", err.Details["field"])
	}
}

func TestNotFoundWithID(t *testing.T) {
	err := NotFoundWithID("Coupon", "SAVE10")

	if err.Code != CodeNotFound {
		t.Errorf("expected code %s, got %s", CodeNotFound, err.Code)
	}
	if err.Details["id"] != "SAVE10" {
		t.Errorf("expected id 'SAVE10', got %v", err.Details["id"])
	}
	if err.Message != "Coupon not found" {
		t.Errorf("unexpected message %q", err.Message)
	}
}

func TestRejectedAndTransientAreDistinct(t *testing.T) {
	rejected := Rejected("AlreadyRedeemed", "already used")
	transient := Transient("ExhaustedUses", "lost race")

	if !IsRejected(rejected) || IsTransient(rejected) {
		t.Errorf("rejected error misclassified: %v", rejected)
	}
	if !IsTransient(transient) || IsRejected(transient) {
		t.Errorf("transient error misclassified: %v", transient)
	}
	if rejected.Retryable() {
		t.Error("rule rejection must not be retryable")
	}
	if !transient.Retryable() {
		t.Error("transient conflict must be retryable")
	}
	if transient.HTTPStatus != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, transient.HTTPStatus)
	}
}

func TestStoreUnavailable(t *testing.T) {
	cause := errors.New("server selection timeout")
	err := StoreUnavailable(cause)

	if !IsUnavailable(err) {
		t.Errorf("expected unavailable code, got %s", err.Code)
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable via errors.Is")
	}
	if !err.Retryable() {
		t.Error("store unavailability should be retryable")
	}
}

func TestReasonOf(t *testing.T) {
	wrapped := fmt.Errorf("apply: %w", Rejected("BelowMinSpend", "minimum spend"))

	if got := ReasonOf(wrapped); got != "BelowMinSpend" {
		t.Errorf("ReasonOf() = %q, want BelowMinSpend", got)
	}
	if got := ReasonOf(errors.New("plain")); got != "" {
		t.Errorf("ReasonOf(plain) = %q, want empty", got)
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("Coupon")
	regularErr := errors.New("regular error")

	if result := AsAppError(appErr); result != appErr {
		t.Errorf("AsAppError() should return same AppError")
	}
	if result := AsAppError(fmt.Errorf("context: %w", appErr)); result != appErr {
		t.Errorf("AsAppError() should unwrap wrapped AppError")
	}

	result := AsAppError(regularErr)
	if result.Code != CodeInternal {
		t.Errorf("AsAppError() should wrap regular error as internal error")
	}
	if result.Err != regularErr {
		t.Errorf("AsAppError() should wrap the original error")
	}
}

func TestAppError_ToJSON(t *testing.T) {
	err := Rejected("ScheduleOverlap", "aircraft already flying")
	jsonStr := string(err.ToJSON())

	if !strings.Contains(jsonStr, CodeRejected) {
		t.Errorf("ToJSON() should contain error code, got %s", jsonStr)
	}
	if !strings.Contains(jsonStr, `"reason":"ScheduleOverlap"`) {
		t.Errorf("ToJSON() should contain reason, got %s", jsonStr)
	}
}
