package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"         // SQL Server driver
	_ "github.com/microsoft/go-mssqldb/azuread" // Azure AD support
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/config"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// Source provides SQL Server metadata. A single pool serves every database
// on the server through three-part names.
type Source struct {
	name     string
	config   *Config
	connMgr  *datasource.ConnectionManager
	ownedMgr bool
	logger   *zap.Logger
}

// NewSource creates a SQL Server source using the connection manager.
// If connMgr is nil, a private manager is created and closed with the source.
func NewSource(ctx context.Context, ds config.DatasourceConfig, connMgr *datasource.ConnectionManager, logger *zap.Logger) (*Source, error) {
	cfg, err := FromDatasource(ds)
	if err != nil {
		return nil, fmt.Errorf("invalid mssql datasource %q: %w", ds.Name, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Source{
		name:    ds.Name,
		config:  cfg,
		connMgr: connMgr,
		logger:  logger.Named("mssql"),
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
	driverName, dsn := s.config.driverAndDSN()
	connector, err := s.connMgr.GetOrCreateConnection(ctx, datasource.PoolKey(s.name, s.config.Database),
		func(ctx context.Context, cfg datasource.ConnectionManagerConfig) (datasource.PoolConnector, error) {
			return datasource.CreateSQLDBPool(ctx, driverName, dsn, "mssql", cfg)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to get pooled connection: %w", err)
	}
	return datasource.GetSQLDB(connector)
}

// Ping verifies the server is reachable with valid credentials.
func (s *Source) Ping(ctx context.Context) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	return nil
}

// RawAccessEvents is not available: SQL Server keeps no per-object query
// history unless SQL Server Audit is configured.
func (s *Source) RawAccessEvents(ctx context.Context, database string, since time.Time) ([]models.AccessEvent, error) {
	return nil, fmt.Errorf("mssql access history: %w", apperrors.ErrNotSupported)
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
