// Package api holds the JSON wire types shared by the HTTP server and client.
// Item bodies are model.Item, create bodies model.Draft and update bodies
// model.Patch.
package api

import "time"

// Route prefixes.
const (
	PathHealth = "/healthz"
	PathTodos  = "/v1/todos"
)

// Error codes carried in ErrorBody.Code.
const (
	CodeValidation   = "validation"
	CodeNotFound     = "not_found"
	CodeStorage      = "storage"
	CodeUnauthorized = "unauthorized"
	CodeBadRequest   = "bad_request"
	CodeInternal     = "internal"
)

// HeaderRequestID correlates a request with server logs.
const HeaderRequestID = "X-Request-ID"

// CreateRequest is the body of POST /v1/todos. Both fields must be
// present; description may be empty.
type CreateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// ReorderRequest is the body of PUT /v1/todos/{id}/position.
type ReorderRequest struct {
	Position *int `json:"position"`
}

// DeleteResponse is returned by DELETE /v1/todos/{id}.
type DeleteResponse struct {
	Success bool `json:"success"`
}

// Health is returned by GET /healthz.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse wraps every non-2xx body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes a failed request. Field is set for validation errors.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
