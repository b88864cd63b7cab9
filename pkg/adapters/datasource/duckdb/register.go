package duckdb

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-catalog/pkg/config"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:              "duckdb",
			DisplayName:       "DuckDB",
			Description:       "Local DuckDB database file, usage from an access history table",
			SupportsAccessLog: true,
		},
		Factory: func(ctx context.Context, cfg config.DatasourceConfig, connMgr *datasource.ConnectionManager, logger *zap.Logger) (datasource.Source, error) {
			src, err := NewSource(ctx, cfg, connMgr, logger)
			if err != nil {
				return nil, err
			}
			return src, nil
		},
	})
}
