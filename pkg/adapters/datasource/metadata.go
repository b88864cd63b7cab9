package datasource

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-catalog/pkg/config"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	sqlguard "github.com/ekaya-inc/ekaya-catalog/pkg/sql"
)

// systemSchemas are excluded from table listings, per engine.
var systemSchemas = map[string][]string{
	"postgres":   {"pg_catalog", "information_schema", "pg_toast"},
	"mssql":      {"information_schema", "sys", "guest", "db_owner", "db_accessadmin", "db_securityadmin", "db_ddladmin", "db_backupoperator", "db_datareader", "db_datawriter", "db_denydatareader", "db_denydatawriter"},
	"clickhouse": {"system", "information_schema"},
	"duckdb":     {"information_schema", "pg_catalog"},
}

// IsSystemSchema reports whether schema belongs to the engine itself.
func IsSystemSchema(dsType, schema string) bool {
	s := strings.ToLower(schema)
	if dsType == "postgres" && (strings.HasPrefix(s, "pg_temp_") || strings.HasPrefix(s, "pg_toast_temp_")) {
		return true
	}
	for _, sys := range systemSchemas[dsType] {
		if s == sys {
			return true
		}
	}
	return false
}

// AccessLogColumns is the shape of a flattened access history relation:
// one row per (query, object) with the database the object lives in.
//
//	query_id         text
//	query_start_time timestamp with time zone
//	database_name    text
//	object_name      text   (catalog.schema.table)
//	object_domain    text   ("Table", "View", ...)
const AccessLogColumns = "query_id, query_start_time, object_name, object_domain"

// AccessLogRelation validates and returns the configured access log relation.
// Returns "" when none is configured.
func AccessLogRelation(cfg config.DatasourceConfig) (string, error) {
	if cfg.AccessLogTable == "" {
		return "", nil
	}
	if err := sqlguard.CheckRelation(cfg.AccessLogTable); err != nil {
		return "", fmt.Errorf("access_log_table: %w", err)
	}
	return cfg.AccessLogTable, nil
}

// CheckQualifiedName validates every part of a table name that will be
// interpolated into SQL.
func CheckQualifiedName(table models.QualifiedName) error {
	if err := sqlguard.CheckIdentifier("database", table.Catalog); err != nil {
		return err
	}
	if err := sqlguard.CheckIdentifier("schema", table.Schema); err != nil {
		return err
	}
	return sqlguard.CheckIdentifier("table", table.Name)
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
