package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/services"
)

// CategoryResponse is a category rendered in one locale.
type CategoryResponse struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Question string   `json:"question,omitempty"`
	Keywords []string `json:"keywords"`
}

// ListTablesResponse wraps the tables of one database.
type ListTablesResponse struct {
	Database string                   `json:"database"`
	Tables   []models.TableDescriptor `json:"tables"`
}

// CatalogHandler serves catalog browsing, search and recommendations.
type CatalogHandler struct {
	catalogService services.CatalogService
	logger         *zap.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(catalogService services.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// RegisterRoutes registers the catalog handler's routes on the given mux.
func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/catalog/databases", h.ListDatabases)
	mux.HandleFunc("GET /api/catalog/databases/{db}/tables", h.ListTables)
	mux.HandleFunc("GET /api/catalog/tables/{table}", h.GetTable)
	mux.HandleFunc("GET /api/catalog/tables/{table}/columns", h.GetColumns)
	mux.HandleFunc("GET /api/catalog/search", h.Search)
	mux.HandleFunc("GET /api/catalog/categories", h.Categories)
	mux.HandleFunc("GET /api/catalog/recommendations", h.Recommend)
	mux.HandleFunc("POST /api/catalog/refresh", h.Refresh)
}

// ListDatabases handles GET /api/catalog/databases
func (h *CatalogHandler) ListDatabases(w http.ResponseWriter, r *http.Request) {
	dbs, err := h.catalogService.ListDatabases(r.Context(), datasourceParam(r))
	if err != nil {
		writeServiceError(w, h.logger, "list databases", err)
		return
	}
	writeSuccess(w, h.logger, dbs, nil)
}

// ListTables handles GET /api/catalog/databases/{db}/tables
func (h *CatalogHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	db := r.PathValue("db")
	tables, err := h.catalogService.ListTables(r.Context(), datasourceParam(r), db)
	if err != nil {
		writeServiceError(w, h.logger, "list tables", err)
		return
	}
	writeSuccess(w, h.logger, ListTablesResponse{Database: db, Tables: tables}, nil)
}

// GetTable handles GET /api/catalog/tables/{table}
// Returns the table with its columns, row count, statistics and access count.
func (h *CatalogHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	name, ok := ParseTableName(w, r, h.logger)
	if !ok {
		return
	}
	detail, err := h.catalogService.GetTableDetail(r.Context(), datasourceParam(r), name)
	if err != nil {
		writeServiceError(w, h.logger, "load table detail", err)
		return
	}
	writeSuccess(w, h.logger, detail.TableDetail, detail.Warnings)
}

// GetColumns handles GET /api/catalog/tables/{table}/columns
func (h *CatalogHandler) GetColumns(w http.ResponseWriter, r *http.Request) {
	name, ok := ParseTableName(w, r, h.logger)
	if !ok {
		return
	}
	columns, err := h.catalogService.GetColumns(r.Context(), datasourceParam(r), name)
	if err != nil {
		writeServiceError(w, h.logger, "list columns", err)
		return
	}
	writeSuccess(w, h.logger, columns, nil)
}

// Search handles GET /api/catalog/search?q=&category=
// category may repeat or hold a comma-separated list.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var categoryIDs []string
	for _, v := range query["category"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				categoryIDs = append(categoryIDs, id)
			}
		}
	}

	result, err := h.catalogService.Search(r.Context(), datasourceParam(r), query.Get("q"), categoryIDs)
	if err != nil {
		writeServiceError(w, h.logger, "search catalog", err)
		return
	}
	writeSuccess(w, h.logger, result.Tables, result.Warnings)
}

// Categories handles GET /api/catalog/categories?locale=ja|en
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	locale := r.URL.Query().Get("locale")
	categories := h.catalogService.Categories()

	data := make([]CategoryResponse, len(categories))
	for i, c := range categories {
		data[i] = CategoryResponse{
			ID:       c.ID,
			Label:    c.Label(locale),
			Question: localized(c.Question, locale),
			Keywords: c.Keywords,
		}
	}
	writeSuccess(w, h.logger, data, nil)
}

// Recommend handles GET /api/catalog/recommendations?limit=
func (h *CatalogHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	limit, ok := ParseLimit(w, r, h.logger)
	if !ok {
		return
	}
	result, err := h.catalogService.Recommend(r.Context(), datasourceParam(r), limit)
	if err != nil {
		writeServiceError(w, h.logger, "recommend tables", err)
		return
	}
	writeSuccess(w, h.logger, result.Tables, result.Warnings)
}

// Refresh handles POST /api/catalog/refresh
// Drops every cached fetch of the datasource.
func (h *CatalogHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.catalogService.Refresh(r.Context(), datasourceParam(r)); err != nil {
		writeServiceError(w, h.logger, "refresh catalog", err)
		return
	}
	writeSuccess(w, h.logger, map[string]bool{"refreshed": true}, nil)
}

func localized(texts map[string]string, locale string) string {
	if t, ok := texts[strings.ToLower(locale)]; ok && t != "" {
		return t
	}
	return texts["en"]
}
