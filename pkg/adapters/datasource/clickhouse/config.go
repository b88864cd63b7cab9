package clickhouse

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/ekaya-inc/ekaya-catalog/pkg/config"
)

// Config contains ClickHouse-specific connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Secure   bool
}

// DefaultPort returns the default native protocol port.
func DefaultPort() int {
	return 9000
}

// FromDatasource creates a Config from a configured datasource. TLS is
// enabled with options.secure or ssl_mode other than "disable".
func FromDatasource(ds config.DatasourceConfig) (*Config, error) {
	cfg := &Config{
		Host:     ds.ResolvedHost(),
		Port:     ds.Port,
		User:     ds.User,
		Password: ds.Password,
		Database: ds.Database,
		Secure:   ds.Options["secure"] == "true" || (ds.SSLMode != "" && ds.SSLMode != "disable"),
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort()
	}
	if cfg.User == "" {
		cfg.User = "default"
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	return cfg, nil
}

// options builds native driver options with LZ4 compression.
func (c *Config) options() *clickhouse.Options {
	opts := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", c.Host, c.Port)},
		Auth: clickhouse.Auth{
			Database: c.Database,
			Username: c.User,
			Password: c.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: 10 * time.Second,
	}
	if c.Secure {
		opts.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}
