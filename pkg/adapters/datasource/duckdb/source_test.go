package duckdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/config"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

func newTestSource(t *testing.T, accessLog string) *Source {
	t.Helper()
	ctx := context.Background()

	src, err := NewSource(ctx, config.DatasourceConfig{
		Name:           "local",
		Type:           "duckdb",
		AccessLogTable: accessLog,
	}, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	db, err := src.db(ctx)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		CREATE SCHEMA sales;
		CREATE TABLE sales.orders (id BIGINT, amount DECIMAL(10, 2));
		COMMENT ON TABLE sales.orders IS 'sales orders';
		COMMENT ON COLUMN sales.orders.amount IS 'order amount';
		INSERT INTO sales.orders VALUES (1, 10), (2, 20), (3, 30);
		CREATE VIEW sales.big_orders AS SELECT * FROM sales.orders WHERE amount > 15;

		CREATE SCHEMA audit;
		CREATE TABLE audit.access_history (
			query_id VARCHAR, query_start_time TIMESTAMPTZ, database_name VARCHAR,
			object_name VARCHAR, object_domain VARCHAR);
		INSERT INTO audit.access_history VALUES
			('q1', '2024-01-15 09:10:00+00', 'memory', 'memory.sales.orders', 'Table'),
			('q2', '2024-01-15 09:20:00+00', 'memory', 'memory.sales.orders', 'Table'),
			('q3', '2024-01-15 09:30:00+00', 'other',  'other.main.x',        'Table'),
			('q4', '2023-01-01 00:00:00+00', 'memory', 'memory.sales.orders', 'Table');
	`)
	require.NoError(t, err)
	return src
}

func TestSource_Metadata(t *testing.T) {
	src := newTestSource(t, "")
	ctx := context.Background()

	require.NoError(t, src.Ping(ctx))

	dbs, err := src.ListDatabases(ctx)
	require.NoError(t, err)
	assert.Contains(t, dbs, "memory")

	tables, err := src.ListTables(ctx, "memory")
	require.NoError(t, err)

	names := make([]string, 0, len(tables))
	var orders *models.TableDescriptor
	for i := range tables {
		names = append(names, tables[i].FullName())
		if tables[i].Name == "orders" {
			orders = &tables[i]
		}
	}
	assert.Contains(t, names, "memory.sales.big_orders")
	require.NotNil(t, orders)
	assert.Equal(t, "sales orders", orders.CommentText())

	cols, err := src.ListColumns(ctx, orders.QualifiedName())
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].ColumnName)
	assert.Equal(t, "amount", cols[1].ColumnName)
	require.NotNil(t, cols[1].Comment)
	assert.Equal(t, "order amount", *cols[1].Comment)

	count, err := src.CountRows(ctx, orders.QualifiedName())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	stats, err := src.TableStats(ctx, orders.QualifiedName())
	require.NoError(t, err)
	assert.Nil(t, stats.StorageBytes)

	_, err = src.TableStats(ctx, models.QualifiedName{Catalog: "memory", Schema: "sales", Name: "missing"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = src.CountRows(ctx, models.QualifiedName{Catalog: "memory", Schema: "sales", Name: "orders;drop"})
	assert.ErrorIs(t, err, apperrors.ErrUnsafeIdentifier)
}

func TestSource_AccessEvents(t *testing.T) {
	src := newTestSource(t, "audit.access_history")

	since := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	events, err := src.RawAccessEvents(context.Background(), "memory", since)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "q1", events[0].QueryID)
	assert.Equal(t, "memory.sales.orders", events[0].ObjectName)
	assert.Equal(t, models.ObjectDomainTable, events[0].ObjectDomain)
	assert.True(t, events[0].StartTime.Equal(time.Date(2024, 1, 15, 9, 10, 0, 0, time.UTC)))
}

func TestSource_AccessEventsNotConfigured(t *testing.T) {
	src := newTestSource(t, "")

	_, err := src.RawAccessEvents(context.Background(), "memory", time.Now())
	assert.ErrorIs(t, err, apperrors.ErrNotSupported)
}

func TestNewSource_RejectsUnsafeAccessLog(t *testing.T) {
	_, err := NewSource(context.Background(), config.DatasourceConfig{
		Name:           "local",
		Type:           "duckdb",
		AccessLogTable: "audit.x; DROP TABLE y",
	}, nil, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, apperrors.ErrUnsafeIdentifier)
}
