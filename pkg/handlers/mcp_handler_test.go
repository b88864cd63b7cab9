package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/mcp"
	"github.com/ekaya-inc/ekaya-catalog/pkg/mcp/tools"
)

func newTestMCPMux(t *testing.T) *http.ServeMux {
	t.Helper()
	logger := zap.NewNop()
	mcpServer := mcp.NewServer("test", "1.0.0", nil, logger)
	tools.RegisterCatalogTools(mcpServer.MCP(), &tools.CatalogToolDeps{
		Catalog:      &mockCatalogService{databases: []string{"SALES"}},
		Usage:        &mockUsageService{},
		Descriptions: &mockDescriptionService{},
		Logger:       logger,
	})

	mux := http.NewServeMux()
	NewMCPHandler(mcpServer, logger).RegisterRoutes(mux)
	return mux
}

func postMCP(mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestNewMCPHandler(t *testing.T) {
	logger := zap.NewNop()
	handler := NewMCPHandler(mcp.NewServer("test", "1.0.0", nil, logger), logger)

	if handler.httpServer == nil {
		t.Fatal("expected non-nil http server")
	}
	if handler.logger != logger {
		t.Error("expected logger to be set")
	}
}

func TestMCPHandler_RejectsGet(t *testing.T) {
	mux := newTestMCPMux(t)

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
	if rec.Header().Get("Allow") != "POST" {
		t.Errorf("expected Allow: POST, got %q", rec.Header().Get("Allow"))
	}
}

func TestMCPHandler_ToolsList(t *testing.T) {
	mux := newTestMCPMux(t)

	rec := postMCP(mux, `{"jsonrpc":"2.0","method":"tools/list","id":1}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response struct {
		JSONRPC string `json:"jsonrpc"`
		ID      int    `json:"id"`
		Result  struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.JSONRPC != "2.0" || response.ID != 1 {
		t.Errorf("unexpected envelope %+v", response)
	}

	names := make(map[string]bool)
	for _, tool := range response.Result.Tools {
		names[tool.Name] = true
	}
	if !names["list_databases"] || !names["search_tables"] {
		t.Errorf("expected catalog tools, got %v", names)
	}
	if names["find_marketplace_matches"] {
		t.Error("marketplace tool should not be registered without a marketplace service")
	}
}

func TestMCPHandler_ToolsCall(t *testing.T) {
	mux := newTestMCPMux(t)

	rec := postMCP(mux, `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"list_databases"},"id":2}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Result.Content) == 0 {
		t.Fatal("expected content in response")
	}

	var payload struct {
		Data []string `json:"data"`
	}
	if err := json.Unmarshal([]byte(response.Result.Content[0].Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal tool result: %v", err)
	}
	if len(payload.Data) != 1 || payload.Data[0] != "SALES" {
		t.Errorf("unexpected databases %v", payload.Data)
	}
}
