package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2" // DuckDB driver
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-catalog/pkg/config"
)

// Source provides DuckDB metadata. Every database attached to the file is a
// catalog; usage comes from a configured access history table.
type Source struct {
	name      string
	path      string
	accessLog string
	connMgr   *datasource.ConnectionManager
	ownedMgr  bool
	logger    *zap.Logger
}

// NewSource opens or creates a DuckDB database. An empty path is in-memory.
// If connMgr is nil, a private manager is created and closed with the source.
func NewSource(ctx context.Context, ds config.DatasourceConfig, connMgr *datasource.ConnectionManager, logger *zap.Logger) (*Source, error) {
	if ds.Path != "" {
		if err := os.MkdirAll(filepath.Dir(ds.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create duckdb directory: %w", err)
		}
	}
	accessLog, err := datasource.AccessLogRelation(ds)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Source{
		name:      ds.Name,
		path:      ds.Path,
		accessLog: accessLog,
		connMgr:   connMgr,
		logger:    logger.Named("duckdb"),
	}
	if connMgr == nil {
		s.connMgr = datasource.NewConnectionManager(datasource.ConnectionManagerConfig{}, s.logger)
		s.ownedMgr = true
	}

	if _, err := s.db(ctx); err != nil {
		if s.ownedMgr {
			_ = s.connMgr.Close()
		}
		return nil, err
	}
	return s, nil
}

func (s *Source) db(ctx context.Context) (*sql.DB, error) {
	connector, err := s.connMgr.GetOrCreateConnection(ctx, datasource.PoolKey(s.name, ""),
		func(ctx context.Context, cfg datasource.ConnectionManagerConfig) (datasource.PoolConnector, error) {
			return datasource.CreateSQLDBPool(ctx, "duckdb", s.path, "duckdb", cfg)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to get pooled connection: %w", err)
	}
	return datasource.GetSQLDB(connector)
}

// Ping verifies the database file can be queried.
func (s *Source) Ping(ctx context.Context) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close releases the source (but NOT the pool if managed).
func (s *Source) Close() error {
	if s.ownedMgr {
		return s.connMgr.Close()
	}
	return nil
}

// Ensure Source implements datasource.Source at compile time.
var _ datasource.Source = (*Source)(nil)
