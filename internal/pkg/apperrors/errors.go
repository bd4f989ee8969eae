package apperrors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")

	// Authentication errors
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")

	// Store errors
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrPartialEnrollment = errors.New("partial enrollment failure")
)

// Entity errors
var (
	ErrStudentNotFound   = NewCustomError(ErrResourceNotFound, "student not found")
	ErrCourseNotFound    = NewCustomError(ErrResourceNotFound, "course not found")
	ErrAdminNotFound     = NewCustomError(ErrResourceNotFound, "admin not found")
	ErrLastAdmin         = NewCustomError(ErrPermissionDenied, "cannot delete the last admin account")
	ErrEmailExists       = NewCustomError(ErrResourceAlreadyExists, "email already in use")
	ErrStudentNumberUsed = NewCustomError(ErrResourceAlreadyExists, "student number already in use")
	ErrCourseCodeExists  = NewCustomError(ErrResourceAlreadyExists, "course with this code already exists")
	ErrUsernameExists    = NewCustomError(ErrResourceAlreadyExists, "username already in use")
)

// Kind classifies an error for callers deciding between retrying and surfacing it.
type Kind string

const (
	KindUnauthenticated   Kind = "UNAUTHENTICATED"
	KindForbidden         Kind = "FORBIDDEN"
	KindNotFound          Kind = "NOT_FOUND"
	KindDuplicateKey      Kind = "DUPLICATE_KEY"
	KindValidation        Kind = "VALIDATION_ERROR"
	KindPartialEnrollment Kind = "PARTIAL_ENROLLMENT_FAILURE"
	KindStoreUnavailable  Kind = "STORE_UNAVAILABLE"
	KindInternal          Kind = "INTERNAL"
)

// KindOf returns the kind of err. Unknown errors are KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPartialEnrollment):
		return KindPartialEnrollment
	case Is(err, ErrUnauthenticated, ErrInvalidCredentials, ErrTokenExpired, ErrTokenInvalid):
		return KindUnauthenticated
	case errors.Is(err, ErrPermissionDenied):
		return KindForbidden
	case errors.Is(err, ErrResourceNotFound):
		return KindNotFound
	case errors.Is(err, ErrResourceAlreadyExists):
		return KindDuplicateKey
	case errors.Is(err, ErrValidationFailed):
		return KindValidation
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	default:
		return KindInternal
	}
}

// Retryable reports whether a client may retry the request that produced err.
func Retryable(err error) bool {
	k := KindOf(err)
	return k == KindPartialEnrollment || k == KindStoreUnavailable
}

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewValidationError creates a new custom error for invalid input with a message
func NewValidationError(message string) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
	}
}

// Is returns whether err matches target or any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}

// Side names one half of the student/course reference pair.
type Side string

const (
	SideStudent Side = "student"
	SideCourse  Side = "course"
)

// PartialEnrollmentError reports that only one side of an enroll or unenroll was written.
// InconsistentSide is the side that still disagrees with the other one.
type PartialEnrollmentError struct {
	Op               string
	StudentID        string
	CourseID         string
	InconsistentSide Side
	Attempts         int
	Err              error
}

func (e *PartialEnrollmentError) Error() string {
	return fmt.Sprintf("%s of student %s / course %s left the %s side inconsistent after %d attempts: %v",
		e.Op, e.StudentID, e.CourseID, e.InconsistentSide, e.Attempts, e.Err)
}

// Unwrap exposes both the partial-failure sentinel and the last store error.
func (e *PartialEnrollmentError) Unwrap() []error {
	return []error{ErrPartialEnrollment, e.Err}
}
