package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/logging"
)

// ErrorResponse represents a structured error in tool results.
// Returning it as a tool result keeps the details visible to the model
// instead of being swallowed by the MCP client.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for recoverable errors the caller can act on (bad parameters,
// unknown tables). System failures should still return Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// serviceErrorResult converts actionable service errors into error results.
// Any other error is returned unchanged as a protocol error.
func serviceErrorResult(err error) (*mcp.CallToolResult, error) {
	code := ""
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code = "not_found"
	case errors.Is(err, apperrors.ErrMalformedName):
		code = "malformed_name"
	case errors.Is(err, apperrors.ErrUnsafeIdentifier):
		code = "unsafe_identifier"
	case errors.Is(err, apperrors.ErrLLMNotConfigured):
		code = "llm_not_configured"
	case errors.Is(err, apperrors.ErrSourceUnavailable):
		code = "source_unavailable"
	case errors.Is(err, apperrors.ErrNotSupported):
		code = "not_supported"
	default:
		return nil, err
	}
	return NewErrorResult(code, logging.SanitizeError(err)), nil
}
