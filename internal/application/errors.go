package application

import (
	"errors"
	"fmt"

	"github.com/example/bsmanager/internal/recurrence"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a record with the same identifier already exists.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidDateRange is returned when a view window starts after it ends.
	ErrInvalidDateRange = fmt.Errorf("application: %w", recurrence.ErrInvalidDateRange)
)

// Field validation messages shown to users.
const (
	msgTitleRequired     = "제목을 입력해주세요."
	msgDueDateRequired   = "날짜를 선택해주세요."
	msgStatusInvalid     = "올바르지 않은 상태입니다."
	msgRepeatTypeInvalid = "올바르지 않은 반복 유형입니다."
	msgRepeatDayInvalid  = "반복 요일 또는 날짜가 올바르지 않습니다."
	msgScopeInvalid      = "삭제 범위가 올바르지 않습니다."
	msgPeriodInvalid     = "올바르지 않은 기간입니다."
	msgStatusFilter      = "올바르지 않은 상태 필터입니다."
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}
