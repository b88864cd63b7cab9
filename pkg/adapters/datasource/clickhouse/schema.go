package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ekaya-inc/ekaya-catalog/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	sqlguard "github.com/ekaya-inc/ekaya-catalog/pkg/sql"
)

// ListDatabases returns every non-system database.
func (s *Source) ListDatabases(ctx context.Context) ([]string, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, `SELECT name FROM system.databases ORDER BY name`)
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
		if datasource.IsSystemSchema("clickhouse", name) {
			continue
		}
		dbs = append(dbs, name)
	}
	return dbs, rows.Err()
}

// ListTables returns the tables and views of database.
func (s *Source) ListTables(ctx context.Context, database string) ([]models.TableDescriptor, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, `
		SELECT name, comment, total_rows
		FROM system.tables
		WHERE database = ? AND is_temporary = 0
		ORDER BY name`, database)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	tables := []models.TableDescriptor{}
	for rows.Next() {
		var (
			name      string
			comment   string
			totalRows *uint64
		)
		if err := rows.Scan(&name, &comment, &totalRows); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		t := models.TableDescriptor{
			Catalog: database,
			Schema:  database,
			Name:    name,
			Comment: datasource.StringPtr(comment),
		}
		if totalRows != nil {
			n := int64(*totalRows)
			t.RowCount = &n
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
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, `
		SELECT table, name, type, comment, position
		FROM system.columns
		WHERE database = ? AND table = ?
		ORDER BY position`, table.Catalog, table.Name)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	columns := []models.ColumnDescriptor{}
	for rows.Next() {
		var (
			c        models.ColumnDescriptor
			comment  string
			position uint64
		)
		if err := rows.Scan(&c.TableName, &c.ColumnName, &c.DataType, &comment, &position); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c.Comment = datasource.StringPtr(comment)
		c.OrdinalPosition = int(position)
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
	conn, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}

	var count uint64
	query := "SELECT count() FROM " + relationName(table)
	if err := conn.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows of %s: %w", table, err)
	}
	return int64(count), nil
}

// TableStats reports the last metadata change and on-disk size. ClickHouse
// does not record a creation time.
func (s *Source) TableStats(ctx context.Context, table models.QualifiedName) (*models.TableStats, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, `
		SELECT metadata_modification_time, total_bytes
		FROM system.tables
		WHERE database = ? AND name = ?`, table.Catalog, table.Name)
	if err != nil {
		return nil, fmt.Errorf("query table stats: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query table stats: %w", err)
		}
		return nil, fmt.Errorf("table %s: %w", table, apperrors.ErrNotFound)
	}

	var (
		modified   time.Time
		totalBytes *uint64
	)
	if err := rows.Scan(&modified, &totalBytes); err != nil {
		return nil, fmt.Errorf("scan table stats: %w", err)
	}

	stats := &models.TableStats{LastAltered: &modified}
	if totalBytes != nil {
		b := int64(*totalBytes)
		stats.StorageBytes = &b
	}
	return stats, nil
}

// relationName renders database.table with backtick quoting.
func relationName(table models.QualifiedName) string {
	return sqlguard.QuoteIdentifier(sqlguard.DialectClickHouse, table.Catalog) + "." +
		sqlguard.QuoteIdentifier(sqlguard.DialectClickHouse, table.Name)
}
