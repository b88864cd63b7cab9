package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/services"
)

// UsageHandler serves usage analytics.
type UsageHandler struct {
	usageService services.UsageService
	logger       *zap.Logger
}

// NewUsageHandler creates a new usage handler.
func NewUsageHandler(usageService services.UsageService, logger *zap.Logger) *UsageHandler {
	return &UsageHandler{
		usageService: usageService,
		logger:       logger,
	}
}

// RegisterRoutes registers the usage handler's routes on the given mux.
func (h *UsageHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/usage", h.AllDatabases)
	mux.HandleFunc("GET /api/usage/databases/{db}", h.Database)
}

// Database handles GET /api/usage/databases/{db}?table=
func (h *UsageHandler) Database(w http.ResponseWriter, r *http.Request) {
	table, ok := ParseTableQuery(w, r, h.logger)
	if !ok {
		return
	}
	report, err := h.usageService.Report(r.Context(), datasourceParam(r), r.PathValue("db"), table)
	if err != nil {
		writeServiceError(w, h.logger, "build usage report", err)
		return
	}
	warnings := report.Warnings
	report.Warnings = nil
	writeSuccess(w, h.logger, report, warnings)
}

// AllDatabases handles GET /api/usage?table=
func (h *UsageHandler) AllDatabases(w http.ResponseWriter, r *http.Request) {
	table, ok := ParseTableQuery(w, r, h.logger)
	if !ok {
		return
	}
	report, err := h.usageService.AllDatabasesReport(r.Context(), datasourceParam(r), table)
	if err != nil {
		writeServiceError(w, h.logger, "build usage report", err)
		return
	}
	warnings := report.Warnings
	report.Warnings = nil
	writeSuccess(w, h.logger, report, warnings)
}
