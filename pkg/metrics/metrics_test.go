package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSourceQuery(t *testing.T) {
	before := testutil.ToFloat64(SourceQueries.WithLabelValues("warehouse", "list_tables", "error"))

	RecordSourceQuery("warehouse", "list_tables", 20*time.Millisecond, errors.New("boom"))
	RecordSourceQuery("warehouse", "list_tables", 20*time.Millisecond, nil)

	assert.Equal(t, before+1, testutil.ToFloat64(SourceQueries.WithLabelValues("warehouse", "list_tables", "error")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(SourceQueries.WithLabelValues("warehouse", "list_tables", "success")), 1.0)
}

func TestRecordCache(t *testing.T) {
	before := testutil.ToFloat64(CacheRequests.WithLabelValues("tables", "hit"))
	RecordCache("tables", "hit")
	assert.Equal(t, before+1, testutil.ToFloat64(CacheRequests.WithLabelValues("tables", "hit")))
}

func TestHandler_ServesRegisteredCollectors(t *testing.T) {
	Init()
	Init()
	RecordHTTPRequest(http.MethodGet, "GET /api/usage", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "catalog_http_requests_total")
}

func TestRecordMCPToolCall(t *testing.T) {
	before := testutil.ToFloat64(MCPToolCalls.WithLabelValues("get_table", "tool_error"))
	RecordMCPToolCall("get_table", "tool_error", 5*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(MCPToolCalls.WithLabelValues("get_table", "tool_error")))
}
