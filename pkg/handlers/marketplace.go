package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/services"
)

// CreateListingRequest for POST /api/marketplace/listings.
type CreateListingRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// MarketplaceHandler serves marketplace matching. A nil service means the
// marketplace is disabled and every route answers 503.
type MarketplaceHandler struct {
	marketplaceService services.MarketplaceService
	logger             *zap.Logger
}

// NewMarketplaceHandler creates a new marketplace handler.
func NewMarketplaceHandler(marketplaceService services.MarketplaceService, logger *zap.Logger) *MarketplaceHandler {
	return &MarketplaceHandler{
		marketplaceService: marketplaceService,
		logger:             logger,
	}
}

// RegisterRoutes registers the marketplace handler's routes on the given mux.
func (h *MarketplaceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/marketplace/matches", h.enabled(h.Matches))
	mux.HandleFunc("POST /api/marketplace/index/{table}", h.enabled(h.IndexTable))
	mux.HandleFunc("POST /api/marketplace/index", h.enabled(h.IndexDatabase))
	mux.HandleFunc("GET /api/marketplace/listings", h.enabled(h.ListListings))
	mux.HandleFunc("POST /api/marketplace/listings", h.enabled(h.CreateListing))
	mux.HandleFunc("POST /api/marketplace/listings/embed", h.enabled(h.EmbedPending))
}

func (h *MarketplaceHandler) enabled(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.marketplaceService == nil {
			writeError(w, h.logger, http.StatusServiceUnavailable, "marketplace_disabled", "Marketplace matching is not enabled")
			return
		}
		next(w, r)
	}
}

// Matches handles GET /api/marketplace/matches?table=&datasource=&limit=
// Without a table, returns the best matches across all indexed tables.
func (h *MarketplaceHandler) Matches(w http.ResponseWriter, r *http.Request) {
	limit, ok := ParseLimit(w, r, h.logger)
	if !ok {
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("table"))
	if raw == "" {
		matches, err := h.marketplaceService.TopMatches(r.Context(), limit)
		if err != nil {
			writeServiceError(w, h.logger, "load marketplace matches", err)
			return
		}
		writeSuccess(w, h.logger, matches, nil)
		return
	}

	name, ok := parseQualifiedName(w, raw, h.logger)
	if !ok {
		return
	}
	matches, err := h.marketplaceService.SimilarToTable(r.Context(), datasourceParam(r), name, limit)
	if err != nil {
		writeServiceError(w, h.logger, "load marketplace matches", err)
		return
	}
	writeSuccess(w, h.logger, matches, nil)
}

// IndexTable handles POST /api/marketplace/index/{table}
func (h *MarketplaceHandler) IndexTable(w http.ResponseWriter, r *http.Request) {
	name, ok := ParseTableName(w, r, h.logger)
	if !ok {
		return
	}
	if err := h.marketplaceService.IndexTable(r.Context(), datasourceParam(r), name); err != nil {
		writeServiceError(w, h.logger, "index table", err)
		return
	}
	writeSuccess(w, h.logger, map[string]string{"table": name.String()}, nil)
}

// IndexDatabase handles POST /api/marketplace/index?database=
func (h *MarketplaceHandler) IndexDatabase(w http.ResponseWriter, r *http.Request) {
	database := strings.TrimSpace(r.URL.Query().Get("database"))
	if database == "" {
		writeError(w, h.logger, http.StatusBadRequest, "missing_database", "database is required")
		return
	}
	result, err := h.marketplaceService.IndexDatabase(r.Context(), datasourceParam(r), database)
	if err != nil {
		writeServiceError(w, h.logger, "index database", err)
		return
	}
	writeSuccess(w, h.logger, result, result.Warnings)
}

// ListListings handles GET /api/marketplace/listings
func (h *MarketplaceHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.marketplaceService.ListListings(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "list listings", err)
		return
	}
	writeSuccess(w, h.logger, listings, nil)
}

// CreateListing handles POST /api/marketplace/listings
func (h *MarketplaceHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req CreateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, h.logger, http.StatusBadRequest, "missing_title", "Listing title is required")
		return
	}

	listing, err := h.marketplaceService.AddListing(r.Context(), req.Title, req.Description)
	if err != nil {
		writeServiceError(w, h.logger, "create listing", err)
		return
	}
	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: listing}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// EmbedPending handles POST /api/marketplace/listings/embed
func (h *MarketplaceHandler) EmbedPending(w http.ResponseWriter, r *http.Request) {
	n, err := h.marketplaceService.EmbedPendingListings(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "embed listings", err)
		return
	}
	writeSuccess(w, h.logger, map[string]int{"embedded": n}, nil)
}
