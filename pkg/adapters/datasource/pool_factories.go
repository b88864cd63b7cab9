package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CreatePostgresPool creates a PostgreSQL connection pool
func CreatePostgresPool(ctx context.Context, connString string, cfg ConnectionManagerConfig) (PoolConnector, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = cfg.PoolMaxConns
	poolConfig.MinConns = cfg.PoolMinConns
	poolConfig.MaxConnIdleTime = time.Duration(cfg.TTLMinutes) * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return NewPostgresPoolWrapper(pool), nil
}

// GetPostgresPool extracts the underlying *pgxpool.Pool from a PoolConnector.
func GetPostgresPool(connector PoolConnector) (*pgxpool.Pool, error) {
	wrapper, ok := connector.(*PostgresPoolWrapper)
	if !ok {
		return nil, fmt.Errorf("connector is not a PostgreSQL pool wrapper")
	}
	return wrapper.GetPool(), nil
}

// CreateSQLDBPool opens a database/sql pool for driverName and verifies it.
func CreateSQLDBPool(ctx context.Context, driverName, dsn, dbType string, cfg ConnectionManagerConfig) (PoolConnector, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(int(cfg.PoolMaxConns))
	db.SetMaxIdleConns(int(cfg.PoolMinConns))
	db.SetConnMaxIdleTime(time.Duration(cfg.TTLMinutes) * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return NewSQLDBWrapper(db, dbType), nil
}

// GetSQLDB extracts the underlying *sql.DB from a PoolConnector.
func GetSQLDB(connector PoolConnector) (*sql.DB, error) {
	wrapper, ok := connector.(*SQLDBWrapper)
	if !ok {
		return nil, fmt.Errorf("connector is not a database/sql pool wrapper")
	}
	return wrapper.GetDB(), nil
}

// CreateClickHousePool opens a native ClickHouse connection and verifies it.
func CreateClickHousePool(ctx context.Context, opts *clickhouse.Options, cfg ConnectionManagerConfig) (PoolConnector, error) {
	opts.MaxOpenConns = int(cfg.PoolMaxConns)
	opts.MaxIdleConns = int(cfg.PoolMinConns)
	opts.ConnMaxLifetime = time.Duration(cfg.TTLMinutes) * time.Minute

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return NewClickHouseWrapper(conn), nil
}

// GetClickHouseConn extracts the native ClickHouse connection from a PoolConnector.
func GetClickHouseConn(connector PoolConnector) (driver.Conn, error) {
	wrapper, ok := connector.(*ClickHouseWrapper)
	if !ok {
		return nil, fmt.Errorf("connector is not a ClickHouse wrapper")
	}
	return wrapper.GetConn(), nil
}
