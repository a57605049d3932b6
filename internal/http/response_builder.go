// Package http serves the JSON API.
//
// This file holds the fluent builder used by every handler to write JSON
// bodies and the mapping from service errors to status codes.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"spendwise/internal/ai"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/services"
	"spendwise/internal/storage"
)

// JSONResponseBuilder collects status, headers and body before writing.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value to encode. A nil body writes no content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// errorBody is the shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse builds {"error":{"code":..,"message":..}}.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorBody{Error: errorDetail{Code: code, Message: message}})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not_found", message)
}

func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, "unprocessable", message)
}

func TooManyRequestsError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate_limited", message)
}

func ServiceUnavailableError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, "unavailable", message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal", "internal server error")
}

var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrInvalidCurrency,
	core.ErrInvalidFrequency,
	core.ErrInvalidKind,
	core.ErrInvalidPeriod,
	core.ErrEmptyName,
	core.ErrEmptyUser,
	core.ErrEmptyCategory,
	core.ErrNameTooLong,
	core.ErrInvalidDateRange,
	core.ErrMissingDate,
	ai.ErrEmptyInput,
}

// ErrorFor maps a service error onto a response. Unknown errors become a
// 500 and are logged; their text never reaches the client.
func ErrorFor(ctx context.Context, err error) *JSONResponseBuilder {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return NotFoundError("not found")
	case errors.Is(err, services.ErrNoItems), errors.Is(err, ai.ErrNoJSON):
		return UnprocessableEntityError(err.Error())
	case errors.Is(err, ai.ErrUnsupported):
		return ErrorResponse(http.StatusUnsupportedMediaType, "unsupported_media", err.Error())
	case errors.Is(err, ai.ErrUnauthorized):
		return ServiceUnavailableError("the assistant is not available")
	case errors.Is(err, ai.ErrRateLimited):
		return TooManyRequestsError("the assistant is busy, try again later").Header("Retry-After", "60")
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorResponse(http.StatusGatewayTimeout, "timeout", "the request timed out")
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return BadRequestError(err.Error())
		}
	}
	if ve := (*validationError)(nil); errors.As(err, &ve) {
		return BadRequestError(ve.Error())
	}

	log.FromContext(ctx).ErrorContext(ctx, "Request failed", log.FieldError, err.Error())
	return InternalServerError()
}

// validationError marks request problems that do not map to a sentinel.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func invalid(msg string) error {
	return &validationError{msg: msg}
}
