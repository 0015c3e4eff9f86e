// Package response renders the uniform tagged envelope used by every
// endpoint. Error translation happens here and only here; inner layers
// return plain errors.
package response

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/orbitcommerce/auth-core/internal/pkg/apperrors"
	jwtpkg "github.com/orbitcommerce/auth-core/internal/pkg/jwt"
)

// Variant tags discriminate the envelope shape in serialized output.
const (
	TypeSuccess         = "success"
	TypeError           = "error"
	TypeValidationError = "validation_error"
)

// Envelope is the single response shape. Exactly one of Data, Reason or
// FieldErrors is populated depending on Type.
type Envelope struct {
	Type        string            `json:"type"`
	Code        int               `json:"code"`
	Message     string            `json:"message"`
	Data        interface{}       `json:"data,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	Path        string            `json:"path"`
	Timestamp   time.Time         `json:"timestamp"`
}

func success(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Envelope{
		Type:      TypeSuccess,
		Code:      code,
		Message:   message,
		Data:      data,
		Path:      c.Request.URL.Path,
		Timestamp: time.Now(),
	})
}

// OK sends a 200 success envelope.
func OK(c *gin.Context, data interface{}) { success(c, http.StatusOK, "Success", data) }

// Created sends a 201 success envelope.
func Created(c *gin.Context, data interface{}) {
	success(c, http.StatusCreated, "Created successfully", data)
}

// Error sends an error envelope and aborts the request.
func Error(c *gin.Context, code int, message, reason string) {
	c.AbortWithStatusJSON(code, Envelope{
		Type:      TypeError,
		Code:      code,
		Message:   message,
		Reason:    reason,
		Path:      c.Request.URL.Path,
		Timestamp: time.Now(),
	})
}

// ValidationError sends a 400 envelope carrying per-field errors.
func ValidationError(c *gin.Context, fields map[string]string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Envelope{
		Type:        TypeValidationError,
		Code:        http.StatusBadRequest,
		Message:     "Validation failed",
		FieldErrors: fields,
		Path:        c.Request.URL.Path,
		Timestamp:   time.Now(),
	})
}

// Unauthorized sends a generic 401 envelope.
func Unauthorized(c *gin.Context, reason string) {
	Error(c, http.StatusUnauthorized, "Unauthorized", reason)
}

// Forbidden sends a 403 envelope.
func Forbidden(c *gin.Context, reason string) {
	Error(c, http.StatusForbidden, "Forbidden", reason)
}

// NotFound sends a 404 envelope.
func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Not Found", "no such route")
}

// MethodNotAllowed sends a 405 envelope.
func MethodNotAllowed(c *gin.Context) {
	Error(c, http.StatusMethodNotAllowed, "Method Not Allowed", "")
}

// sessionReason is the uniform wording for every token-level failure so
// callers cannot probe which check rejected them.
const sessionReason = "invalid or expired session"

// FromError maps a domain error onto the response taxonomy. Unclassified
// errors become an opaque 500; the caller is expected to have logged the
// detail already.
func FromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrAuthenticationFailure):
		Error(c, http.StatusUnauthorized, "Unauthorized", "invalid username or password")
	case errors.Is(err, apperrors.ErrAccountNotActivated):
		Error(c, http.StatusUnauthorized, "Unauthorized", "account not activated, an activation email has been sent")
	case errors.Is(err, apperrors.ErrTokenNotFound),
		errors.Is(err, apperrors.ErrExpiredToken),
		errors.Is(err, apperrors.ErrTokenRevoked),
		errors.Is(err, apperrors.ErrOwnershipMismatch),
		errors.Is(err, jwtpkg.ErrMalformedToken),
		errors.Is(err, jwtpkg.ErrUnsupportedToken),
		errors.Is(err, jwtpkg.ErrExpiredToken),
		errors.Is(err, jwtpkg.ErrInvalidToken):
		Error(c, http.StatusUnauthorized, "Unauthorized", sessionReason)
	case errors.Is(err, apperrors.ErrConflict):
		Error(c, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, apperrors.ErrAccountResource),
		errors.Is(err, apperrors.ErrBadRequest):
		Error(c, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, apperrors.ErrRemoteUnavailable):
		Error(c, http.StatusServiceUnavailable, "Service Unavailable", "a dependent service is unavailable")
	default:
		Error(c, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
	}
}
