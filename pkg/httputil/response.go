// Package httputil provides HTTP handler utilities for consistent JSON
// encoding/decoding, error mapping, and request parsing.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/keebreview/keebreview/pkg/apperrors"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteErrorMessage writes a JSON error response with a custom message.
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// WriteAppError maps an application error to its HTTP status and writes the
// user-facing message. Causes are never serialized.
func WriteAppError(w http.ResponseWriter, err error) {
	WriteErrorMessage(w, StatusOf(err), apperrors.MessageOf(err))
}

// StatusOf maps an error taxonomy code to an HTTP status code.
func StatusOf(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeInvalidArgument:
		return http.StatusBadRequest
	case apperrors.CodeUnauthenticated:
		return http.StatusUnauthorized
	case apperrors.CodePermissionDenied:
		return http.StatusForbidden
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeAlreadyExists:
		return http.StatusConflict
	case apperrors.CodeProviderFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteValidationError writes a validation error response (400 Bad Request).
func WriteValidationError(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteBadRequest writes a bad request error (400).
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes an unauthorized error (401).
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusUnauthorized, message)
}

// WriteNotFoundError writes a not found error response (404).
func WriteNotFoundError(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusNotFound, message)
}

// WriteInternalError writes an internal server error response (500).
func WriteInternalError(w http.ResponseWriter, err error) {
	WriteErrorMessage(w, http.StatusInternalServerError, err.Error())
}

// WriteCreated writes a 201 Created response with JSON data.
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteSuccess writes a 200 OK response with JSON data.
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// Envelope is the {success, data, message} wrapper used by the comments and
// callback endpoints.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Total   *int        `json:"total,omitempty"`
}

// WriteEnvelope writes a success envelope with an optional message.
func WriteEnvelope(w http.ResponseWriter, status int, data interface{}, message string) error {
	return WriteJSON(w, status, Envelope{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// WriteEnvelopeList writes a success envelope carrying a list and its total.
func WriteEnvelopeList(w http.ResponseWriter, data interface{}, total int) error {
	return WriteJSON(w, http.StatusOK, Envelope{
		Success: true,
		Data:    data,
		Total:   &total,
	})
}

// WriteEnvelopeError writes a failure envelope with the status mapped from
// the error taxonomy.
func WriteEnvelopeError(w http.ResponseWriter, err error, message string) error {
	return WriteJSON(w, StatusOf(err), Envelope{
		Success: false,
		Message: message,
		Error:   apperrors.MessageOf(err),
	})
}
