package mssql

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

// ListDatabases returns online user databases the login can access.
func (s *Source) ListDatabases(ctx context.Context) ([]string, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT name
		FROM sys.databases
		WHERE database_id > 4
		  AND state_desc = 'ONLINE'
		  AND HAS_DBACCESS(name) = 1
		ORDER BY name`)
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

// ListTables returns user tables and views with their MS_Description comments.
func (s *Source) ListTables(ctx context.Context, database string) ([]models.TableDescriptor, error) {
	if err := sqlguard.CheckIdentifier("database", database); err != nil {
		return nil, err
	}
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT
			s.name,
			o.name,
			CAST(ep.value AS nvarchar(max)),
			dp.name,
			(SELECT SUM(p.rows) FROM %[4]s p WHERE p.object_id = o.object_id AND p.index_id IN (0, 1))
		FROM %[1]s o
		JOIN %[2]s s ON s.schema_id = o.schema_id
		LEFT JOIN %[3]s ep
			ON ep.major_id = o.object_id AND ep.minor_id = 0 AND ep.class = 1 AND ep.name = 'MS_Description'
		LEFT JOIN %[5]s dp
			ON dp.principal_id = COALESCE(o.principal_id, s.principal_id)
		WHERE o.type IN ('U', 'V')
		  AND o.is_ms_shipped = 0
		ORDER BY s.name, o.name`,
		catalogView(database, "objects"),
		catalogView(database, "schemas"),
		catalogView(database, "extended_properties"),
		catalogView(database, "partitions"),
		catalogView(database, "database_principals"),
	)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	tables := []models.TableDescriptor{}
	for rows.Next() {
		var (
			t        = models.TableDescriptor{Catalog: database}
			comment  sql.NullString
			owner    sql.NullString
			rowCount sql.NullInt64
		)
		if err := rows.Scan(&t.Schema, &t.Name, &comment, &owner, &rowCount); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		if datasource.IsSystemSchema("mssql", t.Schema) {
			continue
		}
		if comment.Valid {
			t.Comment = &comment.String
		}
		t.Owner = owner.String
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

// ListColumns returns the columns of a table with their MS_Description comments.
func (s *Source) ListColumns(ctx context.Context, table models.QualifiedName) ([]models.ColumnDescriptor, error) {
	if err := sqlguard.CheckIdentifier("database", table.Catalog); err != nil {
		return nil, err
	}
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT
			o.name,
			c.name,
			ty.name,
			CAST(ep.value AS nvarchar(max)),
			ROW_NUMBER() OVER (ORDER BY c.column_id)
		FROM %[1]s c
		JOIN %[2]s o ON o.object_id = c.object_id
		JOIN %[3]s s ON s.schema_id = o.schema_id
		JOIN %[4]s ty ON ty.user_type_id = c.user_type_id
		LEFT JOIN %[5]s ep
			ON ep.major_id = c.object_id AND ep.minor_id = c.column_id AND ep.class = 1 AND ep.name = 'MS_Description'
		WHERE s.name = @p1 AND o.name = @p2
		ORDER BY c.column_id`,
		catalogView(table.Catalog, "columns"),
		catalogView(table.Catalog, "objects"),
		catalogView(table.Catalog, "schemas"),
		catalogView(table.Catalog, "types"),
		catalogView(table.Catalog, "extended_properties"),
	)

	rows, err := db.QueryContext(ctx, query, table.Schema, table.Name)
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
		if comment.Valid {
			c.Comment = &comment.String
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
	db, err := s.db(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	query := "SELECT COUNT_BIG(*) FROM " + buildFullyQualifiedName(table.Catalog, table.Schema, table.Name)
	if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows of %s: %w", table, err)
	}
	return count, nil
}

// TableStats returns creation and modification times and used storage.
func (s *Source) TableStats(ctx context.Context, table models.QualifiedName) (*models.TableStats, error) {
	if err := sqlguard.CheckIdentifier("database", table.Catalog); err != nil {
		return nil, err
	}
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT
			o.create_date,
			o.modify_date,
			(SELECT SUM(au.used_pages) * 8192
			   FROM %[3]s p
			   JOIN %[4]s au ON au.container_id = p.hobt_id
			  WHERE p.object_id = o.object_id)
		FROM %[1]s o
		JOIN %[2]s s ON s.schema_id = o.schema_id
		WHERE s.name = @p1 AND o.name = @p2 AND o.type IN ('U', 'V')`,
		catalogView(table.Catalog, "objects"),
		catalogView(table.Catalog, "schemas"),
		catalogView(table.Catalog, "partitions"),
		catalogView(table.Catalog, "allocation_units"),
	)

	var (
		stats models.TableStats
		bytes sql.NullInt64
	)
	err = db.QueryRowContext(ctx, query, table.Schema, table.Name).Scan(&stats.CreatedOn, &stats.LastAltered, &bytes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("table %s: %w", table, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query table stats: %w", err)
	}
	if bytes.Valid {
		stats.StorageBytes = &bytes.Int64
	}
	return &stats, nil
}
