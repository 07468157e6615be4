// This file implements a small builder for JSON responses and the mapping
// from domain errors to HTTP status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"lifedash/internal/auth"
	"lifedash/internal/core"
	"lifedash/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
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

	payload, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":"internal","message":"encoding failed"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n"))
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse creates a JSON error envelope.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorBody{Error: errorDetail{Code: code, Message: message}})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", message)
}

func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, "unauthorized", message).
		Header("WWW-Authenticate", `Bearer realm="lifedash"`)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not_found", message)
}

func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later")
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal", "internal server error")
}

var badRequestErrors = []error{
	ErrMissingTimezone,
	ErrMalformedBody,
	core.ErrInvalidTimezone,
	core.ErrInvalidAmount,
	core.ErrInvalidFrequency,
	core.ErrInvalidDayKey,
	core.ErrInvalidMonth,
	core.ErrInvalidKind,
	core.ErrEmptyName,
	core.ErrEmptyCategory,
	core.ErrTooLong,
	core.ErrEssentialIncome,
}

var notFoundErrors = []error{
	core.ErrHabitNotFound,
	core.ErrNotOwnedByUser,
	core.ErrRecordNotFound,
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ServiceError maps err onto a response. Client errors echo the message;
// everything else is logged and answered with a generic 500.
func ServiceError(r *http.Request, err error, operation string) *JSONResponseBuilder {
	switch {
	case matchesAny(err, badRequestErrors):
		return BadRequestError(err.Error())
	case matchesAny(err, notFoundErrors):
		return NotFoundError("not found")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingToken):
		return UnauthorizedError("authentication required")
	}

	msg := "Request failed"
	if errors.Is(err, core.ErrMultipleEntriesForDay) {
		msg = "Data integrity error: duplicate habit entries"
	}
	logger := log.FromContext(r.Context())
	log.NewStructuredLogger(logger).LogError(r.Context(), msg, err, logger.Component(), operation, nil)
	return InternalServerError()
}
