package http

import (
	"encoding/json"
	"net/http"
)

// FieldReason is a single field-level validation failure
type FieldReason struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ErrorResponse is the failure envelope. The boolean flags are reason codes the
// frontend branches on, so they are emitted only when set.
type ErrorResponse struct {
	Success                    bool          `json:"success"`
	Error                      string        `json:"error"`             // Machine-readable error code
	Message                    string        `json:"message"`           // Human-readable message
	Details                    string        `json:"details,omitempty"` // Development-only context
	Fields                     []FieldReason `json:"fields,omitempty"`
	RequiresVerification       bool          `json:"requiresVerification,omitempty"`
	RequiresManualVerification bool          `json:"requiresManualVerification,omitempty"`
	Expired                    bool          `json:"expired,omitempty"`
	Invalid                    bool          `json:"invalid,omitempty"`
	AlreadyVerified            bool          `json:"alreadyVerified,omitempty"`
}

// WriteJSON writes v as a JSON body with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteErrorResponse writes a fully populated error envelope
func WriteErrorResponse(w http.ResponseWriter, statusCode int, resp ErrorResponse) {
	resp.Success = false
	WriteJSON(w, statusCode, resp)
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteErrorResponse(w, statusCode, ErrorResponse{Error: errorCode, Message: message})
}

// WriteErrorWithDetails writes a JSON error response with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, errorCode, message, details string) {
	WriteErrorResponse(w, statusCode, ErrorResponse{Error: errorCode, Message: message, Details: details})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteValidationError(w http.ResponseWriter, message string, fields []FieldReason) {
	WriteErrorResponse(w, http.StatusBadRequest, ErrorResponse{
		Error:   "validation_failed",
		Message: message,
		Fields:  fields,
	})
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message)
}

func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, "conflict", message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}
