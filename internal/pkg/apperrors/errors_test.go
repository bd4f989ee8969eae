package apperrors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	partial := &PartialEnrollmentError{
		Op:               "enroll",
		StudentID:        "s1",
		CourseID:         "c1",
		InconsistentSide: SideCourse,
		Attempts:         3,
		Err:              fmt.Errorf("write: %w", ErrStoreUnavailable),
	}

	tests := []struct {
		name      string
		err       error
		kind      Kind
		retryable bool
	}{
		{"nil", nil, "", false},
		{"unauthenticated", ErrUnauthenticated, KindUnauthenticated, false},
		{"bad credentials", ErrInvalidCredentials, KindUnauthenticated, false},
		{"expired", fmt.Errorf("verify: %w", ErrTokenExpired), KindUnauthenticated, false},
		{"forbidden", NewForbiddenError("no"), KindForbidden, false},
		{"last admin", ErrLastAdmin, KindForbidden, false},
		{"not found", ErrCourseNotFound, KindNotFound, false},
		{"duplicate", ErrEmailExists, KindDuplicateKey, false},
		{"validation", NewValidationError("bad"), KindValidation, false},
		{"store unavailable", fmt.Errorf("find: %w", ErrStoreUnavailable), KindStoreUnavailable, true},
		{"partial wins over its cause", partial, KindPartialEnrollment, true},
		{"unknown", context.Canceled, KindInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.kind {
				t.Errorf("KindOf = %q, want %q", got, tt.kind)
			}
			if got := Retryable(tt.err); got != tt.retryable {
				t.Errorf("Retryable = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestPartialEnrollmentErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := error(&PartialEnrollmentError{Op: "unenroll", InconsistentSide: SideStudent, Err: cause})

	if !errors.Is(err, ErrPartialEnrollment) || !errors.Is(err, cause) {
		t.Fatal("expected both the sentinel and the cause in the chain")
	}
	var perr *PartialEnrollmentError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &perr) || perr.InconsistentSide != SideStudent {
		t.Fatalf("errors.As failed: %v", perr)
	}
}

func TestCustomError(t *testing.T) {
	err := NewCustomError(ErrResourceNotFound, "course not found").WithCode("X1").WithDetails(map[string]interface{}{"id": "c1"})
	if err.Error() != "course not found" {
		t.Errorf("message = %q", err.Error())
	}
	if !errors.Is(err, ErrResourceNotFound) {
		t.Error("CustomError does not unwrap to its sentinel")
	}
	if err.Code != "X1" || err.Details["id"] != "c1" {
		t.Errorf("code/details not set: %+v", err)
	}
	if (&CustomError{Err: ErrTokenInvalid}).Error() != ErrTokenInvalid.Error() {
		t.Error("empty message should fall back to the wrapped error")
	}
}
