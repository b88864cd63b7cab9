package mcp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/metrics"
)

const maxParamLength = 500

// AuditLogger logs every MCP tool call with its sanitized arguments, outcome
// and duration.
type AuditLogger struct {
	logger *zap.Logger

	// startTimes tracks when tool calls begin, keyed by request ID.
	startTimes sync.Map
}

// NewAuditLogger creates an AuditLogger.
func NewAuditLogger(logger *zap.Logger) *AuditLogger {
	return &AuditLogger{logger: logger.Named("mcp-audit")}
}

// Hooks returns mcp-go Hooks configured to capture tool call events.
func (a *AuditLogger) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(a.beforeCallTool)
	hooks.AddAfterCallTool(a.afterCallTool)
	hooks.AddOnError(a.onError)
	return hooks
}

func (a *AuditLogger) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	a.startTimes.Store(id, time.Now())
}

func (a *AuditLogger) afterCallTool(_ context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	duration := a.elapsed(id)
	isError := result != nil && result.IsError

	status := "success"
	if isError {
		status = "tool_error"
	}
	metrics.RecordMCPToolCall(req.Params.Name, status, duration)

	a.logger.Info("MCP tool call",
		zap.String("tool", req.Params.Name),
		zap.Any("arguments", sanitizeParams(req.Params.Arguments)),
		zap.Bool("is_error", isError),
		zap.Duration("duration", duration))
}

func (a *AuditLogger) onError(_ context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}
	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}

	duration := a.elapsed(id)
	metrics.RecordMCPToolCall(req.Params.Name, "error", duration)

	a.logger.Warn("MCP tool call failed",
		zap.String("tool", req.Params.Name),
		zap.Any("arguments", sanitizeParams(req.Params.Arguments)),
		zap.Duration("duration", duration),
		zap.Error(err))
}

func (a *AuditLogger) elapsed(id any) time.Duration {
	if v, ok := a.startTimes.LoadAndDelete(id); ok {
		return time.Since(v.(time.Time))
	}
	return 0
}

// sanitizeParams truncates long values and hashes values under sensitive keys.
func sanitizeParams(args any) map[string]any {
	params, ok := args.(map[string]any)
	if !ok || len(params) == 0 {
		return nil
	}

	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		sanitized[k] = sanitizeValue(k, v)
	}
	return sanitized
}

func sanitizeValue(key string, value any) any {
	if isSensitiveKey(key) {
		return hashSensitiveValue(value)
	}
	switch val := value.(type) {
	case string:
		if len(val) > maxParamLength {
			return val[:maxParamLength] + "...[truncated]"
		}
		return val
	case map[string]any:
		return sanitizeParams(val)
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, kw := range []string{"password", "secret", "token", "api_key", "credential"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// hashSensitiveValue returns a SHA-256 hash prefix for sensitive values,
// allowing correlation across entries without logging the value.
func hashSensitiveValue(value any) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%v", value)))
	return "sha256:" + hex.EncodeToString(hash[:8])
}
