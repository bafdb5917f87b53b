package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("participant", "5f3a"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("prolificId", "Prolific ID is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Unauthenticated wraps ErrUnauthenticated",
			err:       Unauthenticated("Not authenticated"),
			target:    ErrUnauthenticated,
			wantMatch: true,
		},
		{
			name:      "StoreFailure wraps ErrStore",
			err:       StoreFailure("finding participant", errors.New("disk I/O error")),
			target:    ErrStore,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("participant", "5f3a"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("participant", "5f3a"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "Unauthenticated does NOT match ErrNotFound",
			err:       Unauthenticated("Not authenticated"),
			target:    ErrNotFound,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

// Wrapping with fmt.Errorf("%w") must keep the sentinel reachable — the
// handler layer relies on this when services add context to store errors.
func TestErrorsIs_ThroughWrapping(t *testing.T) {
	inner := ValidationFailed("response", "response is required")
	wrapped := fmt.Errorf("saving consent: %w", inner)

	if !errors.Is(wrapped, ErrValidation) {
		t.Error("wrapped error should still match ErrValidation")
	}

	var appErr *AppError
	if !errors.As(wrapped, &appErr) {
		t.Fatal("errors.As should extract the AppError from the chain")
	}
	if appErr.Field != "response" {
		t.Errorf("AppError.Field = %q, want %q", appErr.Field, "response")
	}
}

func TestAppError_Error(t *testing.T) {
	err := NotFound("participant", "abc123")
	want := "participant not found with id abc123"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
