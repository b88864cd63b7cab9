package mcp

import (
	"context"
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuditLogger_LogsToolCalls(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	audit := NewAuditLogger(zap.New(core))

	s := NewServer("test-server", "1.0.0", audit.Hooks(), zap.NewNop())
	s.RegisterTool(mcplib.NewTool("echo", mcplib.WithString("text")),
		func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
			return mcplib.NewToolResultText(req.GetString("text", "")), nil
		})

	s.MCP().HandleMessage(context.Background(), []byte(
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hi","api_key":"abc"}}}`))

	entries := logs.FilterMessage("MCP tool call").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "echo", fields["tool"])
	assert.Equal(t, false, fields["is_error"])

	args, ok := fields["arguments"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hi", args["text"])
	assert.True(t, strings.HasPrefix(args["api_key"].(string), "sha256:"))
}

func TestSanitizeParams(t *testing.T) {
	long := strings.Repeat("x", maxParamLength+10)
	got := sanitizeParams(map[string]any{
		"query":    long,
		"password": "hunter2",
		"limit":    5,
		"nested":   map[string]any{"token": "t"},
	})

	assert.True(t, strings.HasSuffix(got["query"].(string), "...[truncated]"))
	assert.NotEqual(t, "hunter2", got["password"])
	assert.Equal(t, 5, got["limit"])
	assert.NotEqual(t, "t", got["nested"].(map[string]any)["token"])

	assert.Nil(t, sanitizeParams(nil))
	assert.Equal(t, hashSensitiveValue("a"), hashSensitiveValue("a"))
}
