package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ekaya-inc/ekaya-catalog/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	sqlguard "github.com/ekaya-inc/ekaya-catalog/pkg/sql"
)

// ListDatabases returns attached, non-internal databases.
func (s *Source) ListDatabases(ctx context.Context) ([]string, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT database_name
		FROM duckdb_databases()
		WHERE NOT internal
		ORDER BY database_name`)
	if err != nil {
		return nil, fmt.Errorf("query databases: %w", err)
	}
	defer rows.Close()

	dbs := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan database: %w", err)
		}
		dbs = append(dbs, name)
	}
	return dbs, rows.Err()
}

// ListTables returns the tables and views of database.
func (s *Source) ListTables(ctx context.Context, database string) ([]models.TableDescriptor, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT schema_name, table_name, comment, estimated_size
		FROM duckdb_tables()
		WHERE database_name = ? AND NOT internal AND NOT temporary
		UNION ALL
		SELECT schema_name, view_name, comment, NULL
		FROM duckdb_views()
		WHERE database_name = ? AND NOT internal AND NOT temporary
		ORDER BY 1, 2`, database, database)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	tables := []models.TableDescriptor{}
	for rows.Next() {
		var (
			t        = models.TableDescriptor{Catalog: database}
			comment  sql.NullString
			rowCount sql.NullInt64
		)
		if err := rows.Scan(&t.Schema, &t.Name, &comment, &rowCount); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		if datasource.IsSystemSchema("duckdb", t.Schema) {
			continue
		}
		t.Comment = datasource.StringPtr(comment.String)
		if rowCount.Valid {
			t.RowCount = &rowCount.Int64
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return tables, nil
}

// ListColumns returns the columns of a table in definition order.
func (s *Source) ListColumns(ctx context.Context, table models.QualifiedName) ([]models.ColumnDescriptor, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT table_name, column_name, data_type, comment, column_index
		FROM duckdb_columns()
		WHERE database_name = ? AND schema_name = ? AND table_name = ?
		ORDER BY column_index`, table.Catalog, table.Schema, table.Name)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	columns := []models.ColumnDescriptor{}
	for rows.Next() {
		var (
			c       models.ColumnDescriptor
			comment sql.NullString
		)
		if err := rows.Scan(&c.TableName, &c.ColumnName, &c.DataType, &comment, &c.OrdinalPosition); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c.Comment = datasource.StringPtr(comment.String)
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
	db, err := s.db(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	query := "SELECT count(*) FROM " + sqlguard.QuoteRelation(sqlguard.DialectANSI, table.String())
	if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows of %s: %w", table, err)
	}
	return count, nil
}

// TableStats confirms the table exists. DuckDB keeps neither timestamps nor
// per-table storage sizes, so every field is left unset.
func (s *Source) TableStats(ctx context.Context, table models.QualifiedName) (*models.TableStats, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	var found int
	err = db.QueryRowContext(ctx, `
		SELECT 1 FROM duckdb_tables()
		WHERE database_name = ? AND schema_name = ? AND table_name = ?
		UNION ALL
		SELECT 1 FROM duckdb_views()
		WHERE database_name = ? AND schema_name = ? AND view_name = ?
		LIMIT 1`,
		table.Catalog, table.Schema, table.Name,
		table.Catalog, table.Schema, table.Name,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("table %s: %w", table, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query table stats: %w", err)
	}
	return &models.TableStats{}, nil
}
