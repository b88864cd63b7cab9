package clickhouse

import (
	"testing"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-catalog/pkg/config"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

func TestFromDatasource_Defaults(t *testing.T) {
	cfg, err := FromDatasource(config.DatasourceConfig{Host: "ch"})
	require.NoError(t, err)

	assert.Equal(t, DefaultPort(), cfg.Port)
	assert.Equal(t, "default", cfg.User)
	assert.Equal(t, "default", cfg.Database)
	assert.False(t, cfg.Secure)
}

func TestFromDatasource_MissingHost(t *testing.T) {
	_, err := FromDatasource(config.DatasourceConfig{User: "u"})
	assert.Error(t, err)
}

func TestOptions(t *testing.T) {
	cfg, err := FromDatasource(config.DatasourceConfig{
		Host:     "ch.internal",
		Port:     9440,
		User:     "reader",
		Password: "secret",
		Database: "events",
		Options:  map[string]string{"secure": "true"},
	})
	require.NoError(t, err)

	opts := cfg.options()
	assert.Equal(t, []string{"ch.internal:9440"}, opts.Addr)
	assert.Equal(t, "events", opts.Auth.Database)
	assert.Equal(t, "reader", opts.Auth.Username)
	assert.Equal(t, "secret", opts.Auth.Password)
	require.NotNil(t, opts.Compression)
	assert.Equal(t, clickhouse.CompressionLZ4, opts.Compression.Method)
	assert.NotNil(t, opts.TLS)
}

func TestObjectName(t *testing.T) {
	tests := []struct {
		entry string
		want  string
	}{
		{"events.clicks", "events.events.clicks"},
		{"`events`.`clicks`", "events.events.clicks"},
	}
	for _, tt := range tests {
		t.Run(tt.entry, func(t *testing.T) {
			assert.Equal(t, tt.want, objectName("events", tt.entry))
		})
	}
}

func TestRelationName(t *testing.T) {
	name := models.QualifiedName{Catalog: "events", Schema: "events", Name: "clicks"}
	assert.Equal(t, "`events`.`clicks`", relationName(name))
}
