package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/services"
)

// DescriptionHandler serves generated table descriptions.
type DescriptionHandler struct {
	descriptionService services.DescriptionService
	logger             *zap.Logger
}

// NewDescriptionHandler creates a new description handler.
func NewDescriptionHandler(descriptionService services.DescriptionService, logger *zap.Logger) *DescriptionHandler {
	return &DescriptionHandler{
		descriptionService: descriptionService,
		logger:             logger,
	}
}

// RegisterRoutes registers the description handler's routes on the given mux.
func (h *DescriptionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/catalog/tables/{table}/description", h.Describe)
}

// Describe handles POST /api/catalog/tables/{table}/description?locale=
// Each call is a fresh single-shot generation.
func (h *DescriptionHandler) Describe(w http.ResponseWriter, r *http.Request) {
	name, ok := ParseTableName(w, r, h.logger)
	if !ok {
		return
	}
	desc, err := h.descriptionService.Describe(r.Context(), datasourceParam(r), name, r.URL.Query().Get("locale"))
	if err != nil {
		writeServiceError(w, h.logger, "describe table", err)
		return
	}
	writeSuccess(w, h.logger, desc, nil)
}
