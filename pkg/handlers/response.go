package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/logging"
)

// ApiResponse is the envelope of every JSON API response. Warnings carry
// partial failures that did not prevent a result.
type ApiResponse struct {
	Success  bool     `json:"success"`
	Data     any      `json:"data,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return WriteJSON(w, statusCode, ApiResponse{
		Success: false,
		Error:   errorCode,
		Message: message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a 200 envelope around data.
func writeSuccess(w http.ResponseWriter, logger *zap.Logger, data any, warnings []string) {
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data, Warnings: warnings}); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}

// writeError writes a client-facing error response.
func writeError(w http.ResponseWriter, logger *zap.Logger, statusCode int, errorCode, message string) {
	if err := ErrorResponse(w, statusCode, errorCode, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

// writeServiceError maps a service error onto a status code and error code.
// Unexpected errors are logged and reported without their details.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, action string, err error) {
	status, code := classify(err)
	message := logging.SanitizeError(err)
	if status == http.StatusInternalServerError {
		logger.Error("Failed to "+action, zap.String("error", message))
		message = "Failed to " + action
	} else {
		logger.Debug("Request rejected",
			zap.String("action", action),
			zap.String("code", code),
			zap.String("error", message))
	}
	writeError(w, logger, status, code, message)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrMalformedName):
		return http.StatusBadRequest, "malformed_name"
	case errors.Is(err, apperrors.ErrUnsafeIdentifier):
		return http.StatusBadRequest, "unsafe_identifier"
	case errors.Is(err, apperrors.ErrLLMNotConfigured):
		return http.StatusServiceUnavailable, "llm_not_configured"
	case errors.Is(err, apperrors.ErrSourceUnavailable):
		return http.StatusServiceUnavailable, "source_unavailable"
	case errors.Is(err, apperrors.ErrNotSupported):
		return http.StatusNotImplemented, "not_supported"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
