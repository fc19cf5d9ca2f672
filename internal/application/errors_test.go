package application

import (
	"errors"
	"testing"

	"github.com/example/bsmanager/internal/recurrence"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"title": msgTitleRequired}}
	if got := withFields.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for populated error, got %q", got)
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	if base.HasErrors() {
		t.Fatalf("expected empty error to report no issues")
	}

	base.add("title", msgTitleRequired)
	base.merge(&ValidationError{FieldErrors: map[string]string{"dueDate": msgDueDateRequired}})
	base.merge(nil)

	if !base.HasErrors() || len(base.FieldErrors) != 2 {
		t.Fatalf("expected two field errors, got %v", base.FieldErrors)
	}
}

func TestErrInvalidDateRange_WrapsEngineError(t *testing.T) {
	t.Parallel()

	if !errors.Is(ErrInvalidDateRange, recurrence.ErrInvalidDateRange) {
		t.Fatalf("expected application error to wrap the engine sentinel")
	}
}
