package mssql

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/ekaya-inc/ekaya-catalog/pkg/config"
)

// Config contains SQL Server-specific connection options.
type Config struct {
	Host     string
	Port     int
	Database string // database the pool connects to; others are reached by three-part names

	// AuthMethod determines which authentication to use
	// Options: "sql", "service_principal"
	AuthMethod string

	// SQL Authentication fields
	Username string
	Password string

	// Service Principal (Azure AD) fields
	TenantID     string
	ClientID     string
	ClientSecret string

	// Connection options
	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// FromDatasource creates a Config from a configured datasource. Azure AD
// service principals put the client id in user and the client secret in the
// password environment variable, with options.tenant_id set.
func FromDatasource(ds config.DatasourceConfig) (*Config, error) {
	cfg := &Config{
		Host:              ds.ResolvedHost(),
		Port:              ds.Port,
		Database:          ds.Database,
		AuthMethod:        ds.Options["auth_method"],
		Encrypt:           true,
		ConnectionTimeout: DefaultConnectionTimeout(),
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort()
	}
	if cfg.Database == "" {
		cfg.Database = "master"
	}

	if v, ok := ds.Options["encrypt"]; ok {
		// "true", "false", "strict"
		cfg.Encrypt = v == "true" || v == "strict"
	}
	if v, ok := ds.Options["trust_server_certificate"]; ok {
		cfg.TrustServerCertificate = v == "true"
	}
	if v, ok := ds.Options["connection_timeout"]; ok {
		timeout, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid connection_timeout %q: %w", v, err)
		}
		cfg.ConnectionTimeout = timeout
	}

	// Auto-detect auth method when not explicit
	if cfg.AuthMethod == "" {
		if _, ok := ds.Options["tenant_id"]; ok {
			cfg.AuthMethod = "service_principal"
		} else {
			cfg.AuthMethod = "sql"
		}
	}

	switch cfg.AuthMethod {
	case "sql":
		cfg.Username = ds.User
		cfg.Password = ds.Password
	case "service_principal":
		cfg.TenantID = ds.Options["tenant_id"]
		cfg.ClientID = ds.User
		cfg.ClientSecret = ds.Password
	default:
		return nil, fmt.Errorf("invalid auth method: %s (must be sql or service_principal)", cfg.AuthMethod)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the config has all required fields for the selected auth method.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch c.AuthMethod {
	case "sql":
		if c.Username == "" {
			return fmt.Errorf("username is required for SQL authentication")
		}
	case "service_principal":
		if c.TenantID == "" {
			return fmt.Errorf("tenant_id is required for service principal")
		}
		if c.ClientID == "" {
			return fmt.Errorf("client_id is required for service principal")
		}
		if c.ClientSecret == "" {
			return fmt.Errorf("client_secret is required for service principal")
		}
	default:
		return fmt.Errorf("invalid auth method: %s", c.AuthMethod)
	}
	return nil
}

// driverAndDSN returns the database/sql driver name and connection URL for
// the configured auth method.
func (c *Config) driverAndDSN() (string, string) {
	query := url.Values{}
	query.Add("database", c.Database)
	query.Add("encrypt", strconv.FormatBool(c.Encrypt))
	if c.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if c.ConnectionTimeout > 0 {
		query.Add("connection timeout", strconv.Itoa(c.ConnectionTimeout))
	}

	u := url.URL{
		Scheme: "sqlserver",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
	}

	if c.AuthMethod == "service_principal" {
		query.Add("fedauth", "ActiveDirectoryServicePrincipal")
		query.Add("user id", c.ClientID+"@"+c.TenantID)
		query.Add("password", c.ClientSecret)
		u.RawQuery = query.Encode()
		return "azuresql", u.String()
	}

	u.User = url.UserPassword(c.Username, c.Password)
	u.RawQuery = query.Encode()
	return "sqlserver", u.String()
}
