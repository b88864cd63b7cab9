package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-catalog/pkg/config"
	sqlguard "github.com/ekaya-inc/ekaya-catalog/pkg/sql"
)

// Source provides PostgreSQL metadata and access history. A PostgreSQL
// connection is bound to one database, so the source keeps one managed pool
// per database it is asked about.
type Source struct {
	name      string
	config    *Config
	accessLog string
	connMgr   *datasource.ConnectionManager
	ownedMgr  bool // true if we created the manager (tests, direct instantiation)
	logger    *zap.Logger
}

// NewSource creates a PostgreSQL source using the connection manager.
// If connMgr is nil, a private manager is created and closed with the source.
func NewSource(ctx context.Context, ds config.DatasourceConfig, connMgr *datasource.ConnectionManager, logger *zap.Logger) (*Source, error) {
	cfg, err := FromDatasource(ds)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres datasource %q: %w", ds.Name, err)
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
		config:    cfg,
		accessLog: accessLog,
		connMgr:   connMgr,
		logger:    logger.Named("postgres"),
	}
	if connMgr == nil {
		s.connMgr = datasource.NewConnectionManager(datasource.ConnectionManagerConfig{}, s.logger)
		s.ownedMgr = true
	}

	// Fail fast on bad credentials rather than on the first catalog request.
	if _, err := s.pool(ctx, cfg.Database); err != nil {
		if s.ownedMgr {
			_ = s.connMgr.Close()
		}
		return nil, err
	}
	return s, nil
}

// pool returns the managed pool for database.
func (s *Source) pool(ctx context.Context, database string) (*pgxpool.Pool, error) {
	if err := sqlguard.CheckIdentifier("database", database); err != nil {
		return nil, err
	}
	connStr := s.config.connectionString(database)
	connector, err := s.connMgr.GetOrCreateConnection(ctx, datasource.PoolKey(s.name, database),
		func(ctx context.Context, cfg datasource.ConnectionManagerConfig) (datasource.PoolConnector, error) {
			return datasource.CreatePostgresPool(ctx, connStr, cfg)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to get pooled connection: %w", err)
	}
	return datasource.GetPostgresPool(connector)
}

// Ping verifies the default database is reachable with valid credentials.
func (s *Source) Ping(ctx context.Context) error {
	pool, err := s.pool(ctx, s.config.Database)
	if err != nil {
		return err
	}
	var one int
	if err := pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	return nil
}

// Close releases the source (but NOT the pools if managed).
func (s *Source) Close() error {
	if s.ownedMgr {
		return s.connMgr.Close()
	}
	return nil
}

// Ensure Source implements datasource.Source at compile time.
var _ datasource.Source = (*Source)(nil)
