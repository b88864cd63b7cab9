package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

func serveUsage(service *mockUsageService, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	NewUsageHandler(service, zap.NewNop()).RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestUsageHandler_Database(t *testing.T) {
	service := &mockUsageService{report: &models.UsageReport{
		Database:    "SALES",
		TotalAccess: 3,
		Warnings:    []string{"usage statistics are not available for SALES on datasource wh"},
	}}

	rec := serveUsage(service, "/api/usage/databases/SALES?table=SALES.PUBLIC.ORDERS")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if service.lastDatabase != "SALES" || service.lastTable != "SALES.PUBLIC.ORDERS" {
		t.Errorf("unexpected arguments %q %q", service.lastDatabase, service.lastTable)
	}

	var body struct {
		Data     models.UsageReport `json:"data"`
		Warnings []string           `json:"warnings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.Data.TotalAccess != 3 {
		t.Errorf("expected total 3, got %d", body.Data.TotalAccess)
	}
	if len(body.Warnings) != 1 || len(body.Data.Warnings) != 0 {
		t.Errorf("expected warnings only in envelope, got %v / %v", body.Warnings, body.Data.Warnings)
	}
}

func TestUsageHandler_Database_MalformedTable(t *testing.T) {
	service := &mockUsageService{report: &models.UsageReport{}}

	rec := serveUsage(service, "/api/usage/databases/SALES?table=ORDERS")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestUsageHandler_AllDatabases(t *testing.T) {
	service := &mockUsageService{report: &models.UsageReport{TotalAccess: 8}}

	rec := serveUsage(service, "/api/usage")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !service.allCalled || service.lastTable != "" {
		t.Errorf("expected unfiltered all-database report, got %v %q", service.allCalled, service.lastTable)
	}
}

func TestUsageHandler_UnknownDatasource(t *testing.T) {
	service := &mockUsageService{err: fmt.Errorf("datasource %q: %w", "nope", apperrors.ErrNotFound)}

	rec := serveUsage(service, "/api/usage?datasource=nope")

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}
