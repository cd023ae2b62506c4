package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/engine"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/rules"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/service"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/store"
)

// ErrorCode represents machine-readable error codes
type ErrorCode string

const (
	// General error codes
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeRateLimited     ErrorCode = "RATE_LIMITED"
	ErrCodeRequestTooLarge ErrorCode = "REQUEST_TOO_LARGE"

	// Request error codes
	ErrCodeValidation  ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidJSON ErrorCode = "INVALID_JSON"
	ErrCodeInvalidRule ErrorCode = "INVALID_RULE"

	// Evaluation error codes
	ErrCodeFieldMissing ErrorCode = "FIELD_MISSING"
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error     string            `json:"error"`               // HTTP status text
	Message   string            `json:"message"`             // Human-readable description
	Code      ErrorCode         `json:"code"`                // Machine-readable error code
	Fields    map[string]string `json:"fields,omitempty"`    // Field-level errors
	RequestID string            `json:"request_id,omitempty"` // Request ID for debugging
}

// NewErrorResponse creates a new error response
func NewErrorResponse(statusCode int, code ErrorCode, message string) *ErrorResponse {
	return &ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    code,
	}
}

// WithFields adds field-level errors to the response
func (e *ErrorResponse) WithFields(fields map[string]string) *ErrorResponse {
	e.Fields = fields
	return e
}

// WithRequestID adds a request ID to the response
func (e *ErrorResponse) WithRequestID(requestID string) *ErrorResponse {
	e.RequestID = requestID
	return e
}

// writeErrorResponse writes a structured error response to the http response writer
func writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, errResp *ErrorResponse) {
	// Add request ID from chi middleware if available
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		errResp.RequestID = reqID
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errResp)
}

// ValidationError creates a validation error response with field-level details
func ValidationError(w http.ResponseWriter, r *http.Request, message string, fields map[string]string) {
	errResp := NewErrorResponse(http.StatusBadRequest, ErrCodeValidation, message).
		WithFields(fields)
	writeErrorResponse(w, r, http.StatusBadRequest, errResp)
}

// BadRequestError creates a bad request error response
func BadRequestError(w http.ResponseWriter, r *http.Request, code ErrorCode, message string) {
	errResp := NewErrorResponse(http.StatusBadRequest, code, message)
	writeErrorResponse(w, r, http.StatusBadRequest, errResp)
}

// BadRequestErrorWithFields creates a bad request error with field-level details
func BadRequestErrorWithFields(w http.ResponseWriter, r *http.Request, code ErrorCode, message string, fields map[string]string) {
	errResp := NewErrorResponse(http.StatusBadRequest, code, message).
		WithFields(fields)
	writeErrorResponse(w, r, http.StatusBadRequest, errResp)
}

// UnauthorizedError creates an unauthorized error response
func UnauthorizedError(w http.ResponseWriter, r *http.Request, message string) {
	errResp := NewErrorResponse(http.StatusUnauthorized, ErrCodeUnauthorized, message)
	writeErrorResponse(w, r, http.StatusUnauthorized, errResp)
}

// ForbiddenError creates a forbidden error response
func ForbiddenError(w http.ResponseWriter, r *http.Request, message string) {
	errResp := NewErrorResponse(http.StatusForbidden, ErrCodeForbidden, message)
	writeErrorResponse(w, r, http.StatusForbidden, errResp)
}

// InternalError creates an internal server error response
func InternalError(w http.ResponseWriter, r *http.Request, message string) {
	errResp := NewErrorResponse(http.StatusInternalServerError, ErrCodeInternal, message)
	writeErrorResponse(w, r, http.StatusInternalServerError, errResp)
}

// NotFoundError creates a not found error response
func NotFoundError(w http.ResponseWriter, r *http.Request, message string) {
	errResp := NewErrorResponse(http.StatusNotFound, ErrCodeNotFound, message)
	writeErrorResponse(w, r, http.StatusNotFound, errResp)
}

// RequestTooLargeError creates a request entity too large error response
func RequestTooLargeError(w http.ResponseWriter, r *http.Request, message string) {
	errResp := NewErrorResponse(http.StatusRequestEntityTooLarge, ErrCodeRequestTooLarge, message)
	writeErrorResponse(w, r, http.StatusRequestEntityTooLarge, errResp)
}

// UnprocessableError reports a record that cannot be evaluated against a rule.
func UnprocessableError(w http.ResponseWriter, r *http.Request, code ErrorCode, message string, fields map[string]string) {
	errResp := NewErrorResponse(http.StatusUnprocessableEntity, code, message).
		WithFields(fields)
	writeErrorResponse(w, r, http.StatusUnprocessableEntity, errResp)
}

// RateLimitedError creates a too many requests error response
func RateLimitedError(w http.ResponseWriter, r *http.Request, message string) {
	errResp := NewErrorResponse(http.StatusTooManyRequests, ErrCodeRateLimited, message)
	writeErrorResponse(w, r, http.StatusTooManyRequests, errResp)
}

// writeServiceError translates an error returned by the service layer.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr   *service.ValidationError
		serr   *rules.SyntaxError
		ferr   *engine.FieldError
		terr   *engine.TypeError
		maxErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &verr):
		ValidationError(w, r, "Validation failed", verr.Fields)
	case errors.As(err, &serr):
		BadRequestErrorWithFields(w, r, ErrCodeInvalidRule, "Rule could not be parsed",
			map[string]string{"rule": serr.Error()})
	case errors.Is(err, rules.ErrArity):
		ValidationError(w, r, "Validation failed", map[string]string{"ids": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		NotFoundError(w, r, err.Error())
	case errors.As(err, &ferr):
		UnprocessableError(w, r, ErrCodeFieldMissing, err.Error(),
			map[string]string{ferr.Field: "Field is missing from data"})
	case errors.As(err, &terr):
		UnprocessableError(w, r, ErrCodeTypeMismatch, err.Error(),
			map[string]string{terr.Field: "Expected " + terr.Want.String() + ", got " + terr.Got})
	case errors.As(err, &maxErr):
		RequestTooLargeError(w, r, "Request body exceeds limit")
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		InternalError(w, r, "Internal server error")
	}
}
