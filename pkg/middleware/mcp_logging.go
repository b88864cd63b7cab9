package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"
)

// MCPRequestLogger logs the JSON-RPC envelope of each MCP HTTP exchange:
// method, tool, argument names, HTTP status, JSON-RPC error and latency.
// Argument values are logged by the tool-call audit hooks, not here.
// A nil logger disables logging.
func MCPRequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	logger = logger.Named("mcp-http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Warn("Failed to read MCP request body", zap.Error(err))
				http.Error(w, "failed to read request body", http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			var req rpcEnvelope
			if err := json.Unmarshal(body, &req); err != nil {
				// Batches and garbage still reach the server, which answers them.
				logger.Debug("Unparseable MCP request", zap.Error(err))
			}

			recorder := &mcpResponseRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(recorder, r)

			fields := []zap.Field{
				zap.String("request_id", RequestIDFromContext(r.Context())),
				zap.String("rpc_method", req.Method),
				zap.Int("status", recorder.status),
				zap.Duration("duration", time.Since(start)),
			}
			if len(req.ID) > 0 {
				fields = append(fields, zap.String("rpc_id", string(req.ID)))
			}
			if req.Params.Name != "" {
				fields = append(fields,
					zap.String("tool", req.Params.Name),
					zap.Strings("argument_names", argumentNames(req.Params.Arguments)))
			}

			var resp rpcEnvelope
			if json.Unmarshal(recorder.body.Bytes(), &resp) == nil && resp.Error != nil {
				logger.Debug("MCP request failed", append(fields,
					zap.Int("rpc_error_code", resp.Error.Code),
					zap.String("rpc_error", resp.Error.Message))...)
				return
			}
			logger.Debug("MCP request", fields...)
		})
	}
}

// rpcEnvelope covers the parts of a JSON-RPC request or response the logger reads.
type rpcEnvelope struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params struct {
		Name      string                     `json:"name"`
		Arguments map[string]json.RawMessage `json:"arguments"`
	} `json:"params"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// mcpResponseRecorder tees the response body and remembers the status code.
type mcpResponseRecorder struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *mcpResponseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *mcpResponseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *mcpResponseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func argumentNames(args map[string]json.RawMessage) []string {
	names := make([]string, 0, len(args))
	for k := range args {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
