package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-catalog/pkg/config"
)

// Source provides ClickHouse metadata and query history from system.query_log.
// ClickHouse has no schema level, so a table's schema is its database.
type Source struct {
	name     string
	config   *Config
	connMgr  *datasource.ConnectionManager
	ownedMgr bool
	logger   *zap.Logger
}

// NewSource creates a ClickHouse source using the connection manager.
// If connMgr is nil, a private manager is created and closed with the source.
func NewSource(ctx context.Context, ds config.DatasourceConfig, connMgr *datasource.ConnectionManager, logger *zap.Logger) (*Source, error) {
	cfg, err := FromDatasource(ds)
	if err != nil {
		return nil, fmt.Errorf("invalid clickhouse datasource %q: %w", ds.Name, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Source{
		name:    ds.Name,
		config:  cfg,
		connMgr: connMgr,
		logger:  logger.Named("clickhouse"),
	}
	if connMgr == nil {
		s.connMgr = datasource.NewConnectionManager(datasource.ConnectionManagerConfig{}, s.logger)
		s.ownedMgr = true
	}

	if _, err := s.conn(ctx); err != nil {
		if s.ownedMgr {
			_ = s.connMgr.Close()
		}
		return nil, err
	}
	return s, nil
}

func (s *Source) conn(ctx context.Context) (driver.Conn, error) {
	connector, err := s.connMgr.GetOrCreateConnection(ctx, datasource.PoolKey(s.name, s.config.Database),
		func(ctx context.Context, cfg datasource.ConnectionManagerConfig) (datasource.PoolConnector, error) {
			return datasource.CreateClickHousePool(ctx, s.config.options(), cfg)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to get pooled connection: %w", err)
	}
	return datasource.GetClickHouseConn(connector)
}

// Ping verifies the server is reachable with valid credentials.
func (s *Source) Ping(ctx context.Context) error {
	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	return conn.Ping(ctx)
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
