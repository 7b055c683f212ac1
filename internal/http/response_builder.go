package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"claimlens/internal/core"
)

// Error codes carried in the "code" field of error bodies.
const (
	CodeBadRequest       = "bad_request"
	CodeSelectionError   = "selection_error"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeRateLimited      = "rate_limited"
	CodeTimeout          = "timeout"
	CodeInternal         = "internal_error"
	CodeNotReady         = "not_ready"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write encodes the response. The body is marshalled before any header is
// written so an encoding failure can still become a 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	var payload []byte
	if b.body != nil {
		var err error
		payload, err = json.Marshal(b.body)
		if err != nil {
			slog.Error("Failed to encode response", "error", err)
			payload = []byte(`{"error":"failed to encode response","code":"internal_error"}`)
			b.statusCode = http.StatusInternalServerError
		}
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if len(payload) > 0 {
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n"))
	}
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorBody{Error: message, Code: code})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, CodeBadRequest, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, CodeInternal, message)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed").
		Header("Allow", allowedMethods)
}

// SelectionErrorResponse creates a 422 response describing a rejected range.
func SelectionErrorResponse(err *core.SelectionError) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusUnprocessableEntity).
		Body(ErrorBody{
			Error: err.Error(),
			Code:  CodeSelectionError,
			Details: map[string]any{
				"min_ordinal": err.Min,
				"max_ordinal": err.Max,
				"months":      err.Months,
			},
		})
}

// ErrorFor maps an error from parsing or querying to a response.
func ErrorFor(err error) *JSONResponseBuilder {
	var (
		selErr   *core.SelectionError
		paramErr *ParamError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &selErr):
		return SelectionErrorResponse(selErr)
	case errors.As(err, &tooLarge):
		return ErrorResponse(http.StatusRequestEntityTooLarge, CodeBadRequest, "request body too large")
	case errors.As(err, &paramErr):
		return BadRequestError(paramErr.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorResponse(http.StatusServiceUnavailable, CodeTimeout, "query timed out")
	default:
		return InternalServerError("internal error")
	}
}
