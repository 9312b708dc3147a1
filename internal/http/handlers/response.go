// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all endpoints,
// including structured error envelopes, the validation-error envelope shared
// with the original site's API contract, and helpers for common HTTP patterns.
//
// Conventions:
//   - All unexpected errors return an ErrorResponse with a stable `code`.
//   - `fail()` centralizes error logging and formatting, ensuring 5xx responses
//     are logged with request context for observability.
//   - Validation rejections use `failValidation()` which emits
//     {"message": ..., "errors": {field: [msgs]}} with HTTP 400.
//   - `ok()` and `noContent()` simplify writing success responses in a
//     consistent shape across handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cptec/go-academy-backend/internal/http/middleware"
	"github.com/cptec/go-academy-backend/internal/validation"
)

// User-facing envelope messages (Portuguese, matching the public site).
const (
	msgSubmissionReceived = "Submissão recebida com sucesso!"
	msgValidationFailed   = "Erro na validação dos dados."
)

// ErrorResponse is the standard error envelope returned by all endpoints.
//
// Fields:
//   - RequestID: Optional correlation ID, echoed from X-Request-ID header, used
//     to correlate server logs with client-side errors.
//   - Code: A stable, machine-readable string (see errors.go constants).
//   - Message: A human-readable error description, safe for display to users.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
}

// ValidationErrorResponse is the envelope for rejected input. It mirrors the
// original API contract: a top-level message plus a field→messages map the
// client renders next to each form field.
type ValidationErrorResponse struct {
	Message string              `json:"message" example:"Erro na validação dos dados."`
	Errors  map[string][]string `json:"errors"`
}

// fail aborts the request with a structured error and logs server-side errors.
//
// It constructs an ErrorResponse, writes it as JSON with the given HTTP status,
// and calls gin.Context.AbortWithStatusJSON to stop further processing.
//
// Server errors (>=500) are logged using the request-scoped logger from
// middleware; the external message stays generic and never leaks internals.
func fail(c *gin.Context, status int, code, msg string) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	resp := ErrorResponse{
		RequestID: reqID,
		Code:      code,
		Message:   msg,
	}

	// Log 5xx (server-side) with request-scoped logger
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail().
//
// External packages (e.g., router setup) should call Fail to return
// consistent error envelopes without directly depending on unexported helpers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failValidation aborts the request with HTTP 400 and the per-field
// validation envelope. Validation outcomes are expected control flow and are
// not logged as errors.
func failValidation(c *gin.Context, fields validation.Errors) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ValidationErrorResponse{
		Message: msgValidationFailed,
		Errors:  fields,
	})
}

// ok writes a success JSON response.
//
// It serializes `body` as JSON with the given HTTP status code.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
//
// Used when the operation succeeds but there is no response body.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
