package datasource

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/config"
)

// SourceFactory creates adapters from the registry.
type SourceFactory interface {
	// NewSource creates an instrumented Source for a configured datasource.
	NewSource(ctx context.Context, cfg config.DatasourceConfig) (Source, error)

	// ListTypes returns info for all registered adapter types.
	ListTypes() []AdapterInfo
}

type registryFactory struct {
	connMgr      *ConnectionManager
	queryTimeout time.Duration
	logger       *zap.Logger
}

// NewFactory returns a factory that uses the global registry. Every source it
// builds bounds each call by queryTimeout (0 disables) and records metrics.
func NewFactory(connMgr *ConnectionManager, queryTimeout time.Duration, logger *zap.Logger) SourceFactory {
	return &registryFactory{
		connMgr:      connMgr,
		queryTimeout: queryTimeout,
		logger:       logger.Named("datasource"),
	}
}

func (f *registryFactory) NewSource(ctx context.Context, cfg config.DatasourceConfig) (Source, error) {
	factory := GetFactory(cfg.Type)
	if factory == nil {
		return nil, fmt.Errorf("unsupported datasource type: %s (not compiled in)", cfg.Type)
	}
	src, err := factory(ctx, cfg, f.connMgr, f.logger.With(zap.String("datasource", cfg.Name)))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s source %q: %w", cfg.Type, cfg.Name, err)
	}
	return Instrument(cfg.Name, src, f.queryTimeout), nil
}

func (f *registryFactory) ListTypes() []AdapterInfo {
	return RegisteredAdapters()
}

// Ensure registryFactory implements SourceFactory at compile time.
var _ SourceFactory = (*registryFactory)(nil)
