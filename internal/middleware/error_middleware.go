package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/coursereg/internal/app/models/dto"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/pkg/logger"
)

// RetryAfterSeconds is sent with every retryable (503) response
const RetryAfterSeconds = 1

type errorMapping struct {
	status  int
	code    dto.ErrorCode
	message string
}

var kindMappings = map[apperrors.Kind]errorMapping{
	apperrors.KindUnauthenticated:   {http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "Authentication required"},
	apperrors.KindForbidden:         {http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
	apperrors.KindNotFound:          {http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	apperrors.KindDuplicateKey:      {http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
	apperrors.KindValidation:        {http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	apperrors.KindPartialEnrollment: {http.StatusServiceUnavailable, dto.ErrorCodePartialEnrollment, "Enrollment was only partially applied; it will be repaired, retry the request"},
	apperrors.KindStoreUnavailable:  {http.StatusServiceUnavailable, dto.ErrorCodeStoreUnavailable, "Storage temporarily unavailable, retry the request"},
	apperrors.KindInternal:          {http.StatusInternalServerError, dto.ErrorCodeInternalServer, "Internal server error"},
}

// NewAPIError builds the status and error body for err. Raw backend messages never
// reach the body; only CustomError messages, which are written for clients, do.
func NewAPIError(err error) (int, *dto.ErrorDetail) {
	kind := apperrors.KindOf(err)
	m, ok := kindMappings[kind]
	if !ok {
		m = kindMappings[apperrors.KindInternal]
	}

	code, message := m.code, m.message
	switch {
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		code, message = dto.ErrorCodeInvalidCredentials, "Invalid credentials"
	case errors.Is(err, apperrors.ErrTokenExpired):
		code, message = dto.ErrorCodeExpiredToken, "Token has expired"
	case errors.Is(err, apperrors.ErrTokenInvalid):
		code, message = dto.ErrorCodeInvalidToken, "Invalid token"
	}

	var custom *apperrors.CustomError
	if kind != apperrors.KindInternal && kind != apperrors.KindPartialEnrollment && errors.As(err, &custom) && custom.Message != "" {
		message = custom.Message
	}

	detail := dto.NewErrorDetail(code, message).WithKind(string(kind), apperrors.Retryable(err))

	var partial *apperrors.PartialEnrollmentError
	if errors.As(err, &partial) {
		detail.WithDetails(gin.H{
			"op":               partial.Op,
			"studentId":        partial.StudentID,
			"courseId":         partial.CourseID,
			"inconsistentSide": partial.InconsistentSide,
			"attempts":         partial.Attempts,
		})
	} else if custom != nil && custom.Details != nil {
		detail.WithDetails(custom.Details)
	}

	if m.status >= http.StatusInternalServerError && m.status != http.StatusServiceUnavailable {
		detail.WithSeverity(dto.ErrorSeverityCritical)
	}
	return m.status, detail
}

// HandleAPIError writes the error response for err and aborts the request
func HandleAPIError(c *gin.Context, err error) {
	status, detail := NewAPIError(err)

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Int("status", status).
		Str("kind", detail.Kind).
		Msg("Request failed")

	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(detail))
}
