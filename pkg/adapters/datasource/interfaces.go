package datasource

import (
	"context"
	"time"

	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// MetadataSource lists databases, tables and columns of a warehouse.
// Each implementation owns its connection and must be closed when done.
type MetadataSource interface {
	// ListDatabases returns the databases visible to the configured user.
	ListDatabases(ctx context.Context) ([]string, error)

	// ListTables returns all user tables in database, excluding system schemas.
	ListTables(ctx context.Context, database string) ([]models.TableDescriptor, error)

	// ListColumns returns the columns of a table in ordinal order.
	ListColumns(ctx context.Context, table models.QualifiedName) ([]models.ColumnDescriptor, error)

	// CountRows returns the exact row count of a table.
	CountRows(ctx context.Context, table models.QualifiedName) (int64, error)

	// TableStats returns storage-level facts. Fields the engine cannot report are nil.
	TableStats(ctx context.Context, table models.QualifiedName) (*models.TableStats, error)

	// Close releases the source (but not a pool owned by the ConnectionManager).
	Close() error
}

// AccessLogSource reads raw query access events.
// Engines without an access log return apperrors.ErrNotSupported.
type AccessLogSource interface {
	// RawAccessEvents returns one event per (query, object) accessed in
	// database since the given instant.
	RawAccessEvents(ctx context.Context, database string, since time.Time) ([]models.AccessEvent, error)

	Close() error
}

// Source is a warehouse adapter serving both metadata and access history.
type Source interface {
	MetadataSource
	AccessLogSource

	// Ping verifies the warehouse is reachable with valid credentials.
	Ping(ctx context.Context) error
}
