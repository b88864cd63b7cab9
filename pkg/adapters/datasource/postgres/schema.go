package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-catalog/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// qualifiedTableName returns a properly quoted "schema"."table" reference.
func qualifiedTableName(schemaName, tableName string) string {
	return pgx.Identifier{schemaName, tableName}.Sanitize()
}

// ListDatabases returns connectable, non-template databases.
func (s *Source) ListDatabases(ctx context.Context) ([]string, error) {
	pool, err := s.pool(ctx, s.config.Database)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT datname
		FROM pg_database
		WHERE datallowconn AND NOT datistemplate
		ORDER BY datname`)
	if err != nil {
		return nil, fmt.Errorf("query databases: %w", err)
	}
	dbs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan databases: %w", err)
	}
	return dbs, nil
}

// ListTables returns tables, views and materialized views outside the system schemas.
func (s *Source) ListTables(ctx context.Context, database string) ([]models.TableDescriptor, error) {
	pool, err := s.pool(ctx, database)
	if err != nil {
		return nil, err
	}

	const query = `
		SELECT
			current_database(),
			n.nspname,
			c.relname,
			obj_description(c.oid, 'pg_class'),
			pg_get_userbyid(c.relowner),
			CASE WHEN c.reltuples >= 0 THEN c.reltuples::bigint END
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind IN ('r', 'p', 'v', 'm', 'f')
		  AND n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY n.nspname, c.relname
	`

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	tables := []models.TableDescriptor{}
	for rows.Next() {
		var t models.TableDescriptor
		if err := rows.Scan(&t.Catalog, &t.Schema, &t.Name, &t.Comment, &t.Owner, &t.RowCount); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		if datasource.IsSystemSchema("postgres", t.Schema) {
			continue
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return tables, nil
}

// ListColumns returns the live columns of a table in attribute order.
func (s *Source) ListColumns(ctx context.Context, table models.QualifiedName) ([]models.ColumnDescriptor, error) {
	pool, err := s.pool(ctx, table.Catalog)
	if err != nil {
		return nil, err
	}

	const query = `
		SELECT
			c.relname,
			a.attname,
			format_type(a.atttypid, a.atttypmod),
			col_description(c.oid, a.attnum),
			a.attnum::int
		FROM pg_attribute a
		JOIN pg_class c ON c.oid = a.attrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1
		  AND c.relname = $2
		  AND a.attnum > 0
		  AND NOT a.attisdropped
		ORDER BY a.attnum
	`

	rows, err := pool.Query(ctx, query, table.Schema, table.Name)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	columns := []models.ColumnDescriptor{}
	for rows.Next() {
		var c models.ColumnDescriptor
		if err := rows.Scan(&c.TableName, &c.ColumnName, &c.DataType, &c.Comment, &c.OrdinalPosition); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return columns, nil
}

// CountRows returns the exact row count of a table.
func (s *Source) CountRows(ctx context.Context, table models.QualifiedName) (int64, error) {
	if err := datasource.CheckQualifiedName(table); err != nil {
		return 0, err
	}
	pool, err := s.pool(ctx, table.Catalog)
	if err != nil {
		return 0, err
	}

	var count int64
	query := "SELECT count(*) FROM " + qualifiedTableName(table.Schema, table.Name)
	if err := pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows of %s: %w", table, err)
	}
	return count, nil
}

// TableStats returns the on-disk size of a table including indexes and TOAST.
// PostgreSQL does not record creation or alteration times.
func (s *Source) TableStats(ctx context.Context, table models.QualifiedName) (*models.TableStats, error) {
	pool, err := s.pool(ctx, table.Catalog)
	if err != nil {
		return nil, err
	}

	const query = `
		SELECT pg_total_relation_size(c.oid)
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2
	`

	var bytes int64
	if err := pool.QueryRow(ctx, query, table.Schema, table.Name).Scan(&bytes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("table %s: %w", table, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("query table stats: %w", err)
	}
	return &models.TableStats{StorageBytes: &bytes}, nil
}
