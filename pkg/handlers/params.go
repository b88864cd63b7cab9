package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/catalog"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// ParseTableName extracts and validates the fully-qualified table name from
// the request path. Returns false after writing an error response.
// Expects path parameter: table
func ParseTableName(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (models.QualifiedName, bool) {
	return parseQualifiedName(w, r.PathValue("table"), logger)
}

// ParseTableQuery validates the optional "table" query parameter and returns
// it in canonical form, or "" when absent.
func ParseTableQuery(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("table"))
	if raw == "" {
		return "", true
	}
	name, ok := parseQualifiedName(w, raw, logger)
	return name.String(), ok
}

func parseQualifiedName(w http.ResponseWriter, raw string, logger *zap.Logger) (models.QualifiedName, bool) {
	name, err := catalog.ParseQualifiedName(raw)
	if err != nil {
		writeError(w, logger, http.StatusBadRequest, "invalid_table_name",
			"Table must be given as catalog.schema.table")
		return models.QualifiedName{}, false
	}
	return name, true
}

// ParseLimit reads the optional "limit" query parameter. Zero means the
// configured default. Returns false after writing an error response.
func ParseLimit(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		writeError(w, logger, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}

// datasourceParam returns the optional "datasource" query parameter. Empty
// selects the first configured datasource.
func datasourceParam(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("datasource"))
}
