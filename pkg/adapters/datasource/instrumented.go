package datasource

import (
	"context"
	"time"

	"github.com/ekaya-inc/ekaya-catalog/pkg/metrics"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// instrumentedSource bounds every call with a timeout and records
// per-operation metrics.
type instrumentedSource struct {
	name    string
	inner   Source
	timeout time.Duration
}

// Instrument wraps src so each call is timed under the datasource name.
func Instrument(name string, src Source, timeout time.Duration) Source {
	return &instrumentedSource{name: name, inner: src, timeout: timeout}
}

func (s *instrumentedSource) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func observe[T any](s *instrumentedSource, ctx context.Context, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	result, err := fn(ctx)
	metrics.RecordSourceQuery(s.name, op, time.Since(start), err)
	return result, err
}

func (s *instrumentedSource) ListDatabases(ctx context.Context) ([]string, error) {
	return observe(s, ctx, "list_databases", s.inner.ListDatabases)
}

func (s *instrumentedSource) ListTables(ctx context.Context, database string) ([]models.TableDescriptor, error) {
	return observe(s, ctx, "list_tables", func(ctx context.Context) ([]models.TableDescriptor, error) {
		return s.inner.ListTables(ctx, database)
	})
}

func (s *instrumentedSource) ListColumns(ctx context.Context, table models.QualifiedName) ([]models.ColumnDescriptor, error) {
	return observe(s, ctx, "list_columns", func(ctx context.Context) ([]models.ColumnDescriptor, error) {
		return s.inner.ListColumns(ctx, table)
	})
}

func (s *instrumentedSource) CountRows(ctx context.Context, table models.QualifiedName) (int64, error) {
	return observe(s, ctx, "count_rows", func(ctx context.Context) (int64, error) {
		return s.inner.CountRows(ctx, table)
	})
}

func (s *instrumentedSource) TableStats(ctx context.Context, table models.QualifiedName) (*models.TableStats, error) {
	return observe(s, ctx, "table_stats", func(ctx context.Context) (*models.TableStats, error) {
		return s.inner.TableStats(ctx, table)
	})
}

func (s *instrumentedSource) RawAccessEvents(ctx context.Context, database string, since time.Time) ([]models.AccessEvent, error) {
	return observe(s, ctx, "access_events", func(ctx context.Context) ([]models.AccessEvent, error) {
		return s.inner.RawAccessEvents(ctx, database, since)
	})
}

func (s *instrumentedSource) Ping(ctx context.Context) error {
	_, err := observe(s, ctx, "ping", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.inner.Ping(ctx)
	})
	return err
}

func (s *instrumentedSource) Close() error {
	return s.inner.Close()
}
