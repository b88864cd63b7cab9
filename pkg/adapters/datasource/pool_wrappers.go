package datasource

import (
	"context"
	"database/sql"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPoolWrapper wraps *pgxpool.Pool to implement PoolConnector
type PostgresPoolWrapper struct {
	pool *pgxpool.Pool
}

// NewPostgresPoolWrapper creates a new PostgreSQL pool wrapper
func NewPostgresPoolWrapper(pool *pgxpool.Pool) *PostgresPoolWrapper {
	return &PostgresPoolWrapper{pool: pool}
}

func (w *PostgresPoolWrapper) Ping(ctx context.Context) error {
	return w.pool.Ping(ctx)
}

func (w *PostgresPoolWrapper) Close() error {
	w.pool.Close()
	return nil
}

func (w *PostgresPoolWrapper) GetType() string {
	return "postgres"
}

// GetPool returns the underlying *pgxpool.Pool
func (w *PostgresPoolWrapper) GetPool() *pgxpool.Pool {
	return w.pool
}

// SQLDBWrapper wraps *sql.DB (SQL Server, DuckDB) to implement PoolConnector
type SQLDBWrapper struct {
	db     *sql.DB
	dbType string
}

// NewSQLDBWrapper creates a new database/sql pool wrapper
func NewSQLDBWrapper(db *sql.DB, dbType string) *SQLDBWrapper {
	return &SQLDBWrapper{db: db, dbType: dbType}
}

func (w *SQLDBWrapper) Ping(ctx context.Context) error {
	return w.db.PingContext(ctx)
}

func (w *SQLDBWrapper) Close() error {
	return w.db.Close()
}

func (w *SQLDBWrapper) GetType() string {
	return w.dbType
}

// GetDB returns the underlying *sql.DB
func (w *SQLDBWrapper) GetDB() *sql.DB {
	return w.db
}

// ClickHouseWrapper wraps a native ClickHouse connection to implement PoolConnector
type ClickHouseWrapper struct {
	conn driver.Conn
}

// NewClickHouseWrapper creates a new ClickHouse connection wrapper
func NewClickHouseWrapper(conn driver.Conn) *ClickHouseWrapper {
	return &ClickHouseWrapper{conn: conn}
}

func (w *ClickHouseWrapper) Ping(ctx context.Context) error {
	return w.conn.Ping(ctx)
}

func (w *ClickHouseWrapper) Close() error {
	return w.conn.Close()
}

func (w *ClickHouseWrapper) GetType() string {
	return "clickhouse"
}

// GetConn returns the underlying driver.Conn
func (w *ClickHouseWrapper) GetConn() driver.Conn {
	return w.conn
}
