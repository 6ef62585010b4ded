// Package http exposes the budget ledger as a JSON API.
//
// This file implements the builder used for every response and the mapping
// from ledger errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"budgeting/internal/core"
	"budgeting/internal/log"
)

// ResponseBuilder provides a fluent API for JSON responses.
type ResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil || b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}

	data, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":"internal","message":"response encoding failed"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`

	// set for overflow rejections
	Scope     core.OverflowScope `json:"scope,omitempty"`
	Allowed   *core.Money        `json:"allowed,omitempty"`
	Requested *core.Money        `json:"requested,omitempty"`
	Shortfall *core.Money        `json:"shortfall,omitempty"`
}

// ErrorResponse creates an error response with the given code and message.
func ErrorResponse(statusCode int, code, message string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		JSON(ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", message)
}

func UnauthorizedError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, "unauthorized", message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not_found", message)
}

func InternalServerError() *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal", "internal server error")
}

// ErrorFromLedger maps ledger errors to responses: validation 422,
// overflow 409, not found 404, anything else 500. Internal details are
// never sent to the client.
func ErrorFromLedger(err error) *ResponseBuilder {
	var (
		validation *core.ValidationError
		overflow   *core.OverflowError
		notFound   *core.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		b := ErrorResponse(http.StatusUnprocessableEntity, "validation", validation.Error())
		body := b.body.(ErrorBody)
		body.Error.Field = validation.Field
		return b.JSON(body)
	case errors.As(err, &overflow):
		allowed, requested, shortfall := overflow.Allowed, overflow.Requested, overflow.Shortfall()
		return NewResponse().
			Status(http.StatusConflict).
			JSON(ErrorBody{Error: ErrorDetail{
				Code:      "overflow",
				Message:   overflow.Error(),
				Scope:     overflow.Scope,
				Allowed:   &allowed,
				Requested: &requested,
				Shortfall: &shortfall,
			}})
	case errors.As(err, &notFound):
		return NotFoundError(notFound.Error())
	default:
		return InternalServerError()
	}
}

// writeLedgerError logs err at a level matching its class and writes the
// mapped response.
func writeLedgerError(w http.ResponseWriter, r *http.Request, op string, planID int64, period string, err error) {
	ctx := r.Context()
	logger := log.NewStructuredLogger(log.FromContext(ctx))
	switch {
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrOverflow), errors.Is(err, core.ErrNotFound):
		logger.LogLedgerRejection(ctx, op, planID, period, err)
	default:
		logger.LogError(ctx, "Ledger operation failed", err, log.ComponentHTTP, op,
			log.NewFields().WithPlan(planID, period))
	}
	ErrorFromLedger(err).Write(w)
}
