package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"vapi/internal/catalog"
	"vapi/internal/docstore"
	"vapi/internal/resource"
	"vapi/internal/schema"
)

// ErrorCode is the machine-readable part of an error response.
type ErrorCode string

const (
	ErrCodeInvalidRequest     ErrorCode = "invalid_request"
	ErrCodeNotFound           ErrorCode = "not_found"
	ErrCodeConflict           ErrorCode = "conflict"
	ErrCodeValidationFailed   ErrorCode = "validation_failed"
	ErrCodeConfigCorrupt      ErrorCode = "configuration_corrupt"
	ErrCodeStorageUnavailable ErrorCode = "storage_unavailable"
	ErrCodeInternalError      ErrorCode = "internal_error"
)

// APIError is the body of every error response.
type APIError struct {
	Code       ErrorCode          `json:"code"`
	Message    string             `json:"message"`
	Violations []schema.Violation `json:"violations,omitempty"`
}

// ErrorResponse wraps an APIError for JSON responses.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// WriteError writes err as a JSON error response with the given status.
func WriteError(w http.ResponseWriter, statusCode int, err APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: err})
}

// WriteInvalidRequest writes a 400 Bad Request error.
func WriteInvalidRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, APIError{Code: ErrCodeInvalidRequest, Message: message})
}

// WriteNotFound writes a 404 Not Found error.
func WriteNotFound(w http.ResponseWriter, what string) {
	WriteError(w, http.StatusNotFound, APIError{Code: ErrCodeNotFound, Message: what + " not found"})
}

// WriteInternalError writes a 500 Internal Server Error.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, APIError{Code: ErrCodeInternalError, Message: message})
}

// classify maps an error from the core packages to a status and response body.
func classify(err error) (int, APIError) {
	var failed *resource.ValidationFailedError
	switch {
	case errors.As(err, &failed):
		return http.StatusUnprocessableEntity, APIError{
			Code:       ErrCodeValidationFailed,
			Message:    "document does not match the entity structure",
			Violations: failed.Violations,
		}
	case errors.Is(err, resource.ErrUnresolved), errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, APIError{Code: ErrCodeNotFound, Message: err.Error()}
	case errors.Is(err, catalog.ErrNameConflict), errors.Is(err, docstore.ErrNamespaceExists):
		return http.StatusConflict, APIError{Code: ErrCodeConflict, Message: err.Error()}
	case errors.Is(err, catalog.ErrInvalidName), errors.Is(err, catalog.ErrInvalidRecord):
		return http.StatusBadRequest, APIError{Code: ErrCodeInvalidRequest, Message: err.Error()}
	case errors.Is(err, catalog.ErrConfigCorrupt):
		return http.StatusInternalServerError, APIError{Code: ErrCodeConfigCorrupt, Message: err.Error()}
	case errors.Is(err, docstore.ErrStorageUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusInternalServerError, APIError{Code: ErrCodeStorageUnavailable, Message: err.Error()}
	default:
		return http.StatusInternalServerError, APIError{Code: ErrCodeInternalError, Message: err.Error()}
	}
}

// writeFailure writes the response for err as mapped by classify.
func writeFailure(w http.ResponseWriter, err error) {
	status, body := classify(err)
	WriteError(w, status, body)
}
