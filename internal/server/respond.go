// Package server exposes the HTTP API: chi routes, request schema
// validation, and the JSON response envelope.
package server

import (
	"encoding/json"
	"io"
	"net/http"

	apperrors "notification-service/internal/common/errors"
	"notification-service/internal/common/logger"
	"notification-service/internal/common/validation"
)

// envelope is the uniform response shape for every endpoint.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success: status < 400,
		Message: message,
		Data:    data,
	})
}

// respondError maps an application error onto the envelope. Internal
// error details are logged, never serialized to the client.
func respondError(w http.ResponseWriter, log logger.Logger, err error) {
	stdErr := apperrors.AsStandardError(err)
	status := apperrors.HTTPStatus(stdErr.Code)

	if status >= http.StatusInternalServerError {
		log.Error("request failed", map[string]interface{}{
			"code":    string(stdErr.Code),
			"details": stdErr.Details,
		})
	}

	respondJSON(w, status, stdErr.Message, nil)
}

func respondValidationErrors(w http.ResponseWriter, result *validation.ValidationResult) {
	respondJSON(w, http.StatusBadRequest, "Validation failed", map[string]interface{}{
		"errors": result.Errors,
	})
}

// decodeValidated reads the body once, checks it against schema, and
// unmarshals it into dst. It writes the error response itself and
// reports whether the handler should continue.
func decodeValidated(w http.ResponseWriter, r *http.Request, schema validation.JSONSchema, dst interface{}) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, "Request body unreadable", nil)
		return false
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		respondJSON(w, http.StatusBadRequest, "Invalid JSON body", nil)
		return false
	}

	if result := validation.ValidateInput(raw, schema); !result.Valid {
		respondValidationErrors(w, result)
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		respondJSON(w, http.StatusBadRequest, "Invalid JSON body", nil)
		return false
	}
	return true
}
