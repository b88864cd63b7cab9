// Package services implements the catalog, usage, description and
// marketplace operations served over HTTP and MCP.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/cache"
	"github.com/ekaya-inc/ekaya-catalog/pkg/config"
	"github.com/ekaya-inc/ekaya-catalog/pkg/logging"
)

// SourceSet resolves configured datasources to live adapters.
type SourceSet interface {
	// Names returns the configured datasource names in configuration order.
	Names() []string

	// Resolve maps "" to the default (first) datasource and checks the name is configured.
	Resolve(name string) (string, error)

	// Get returns the adapter for a datasource, connecting on first use.
	// Unknown names yield apperrors.ErrNotFound; connection failures wrap
	// apperrors.ErrSourceUnavailable.
	Get(ctx context.Context, name string) (datasource.Source, error)

	// Close releases every adapter created so far.
	Close() error
}

type sourceSet struct {
	configs map[string]config.DatasourceConfig
	names   []string
	factory datasource.SourceFactory
	logger  *zap.Logger

	mu      sync.Mutex
	sources map[string]datasource.Source
}

// NewSourceSet creates a lazily-connecting set over the configured datasources.
func NewSourceSet(configs []config.DatasourceConfig, factory datasource.SourceFactory, logger *zap.Logger) SourceSet {
	s := &sourceSet{
		configs: make(map[string]config.DatasourceConfig, len(configs)),
		factory: factory,
		logger:  logger.Named("sources"),
		sources: make(map[string]datasource.Source),
	}
	for _, c := range configs {
		s.configs[c.Name] = c
		s.names = append(s.names, c.Name)
	}
	return s
}

var _ SourceSet = (*sourceSet)(nil)

func (s *sourceSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *sourceSet) Resolve(name string) (string, error) {
	if name == "" {
		if len(s.names) == 0 {
			return "", fmt.Errorf("no datasources configured: %w", apperrors.ErrNotFound)
		}
		return s.names[0], nil
	}
	if _, ok := s.configs[name]; !ok {
		return "", fmt.Errorf("datasource %q: %w", name, apperrors.ErrNotFound)
	}
	return name, nil
}

func (s *sourceSet) Get(ctx context.Context, name string) (datasource.Source, error) {
	name, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if src, ok := s.sources[name]; ok {
		return src, nil
	}

	src, err := s.factory.NewSource(ctx, s.configs[name])
	if err != nil {
		s.logger.Error("Failed to connect datasource",
			zap.String("datasource", name),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("%w: %s: %w", apperrors.ErrSourceUnavailable, name, err)
	}

	s.logger.Info("Connected datasource", zap.String("datasource", name))
	s.sources[name] = src
	return src, nil
}

func (s *sourceSet) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for name, src := range s.sources {
		if err := src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		delete(s.sources, name)
	}
	return errors.Join(errs...)
}

// listDatabases is the cached database listing shared by catalog and usage.
func listDatabases(ctx context.Context, c *cache.Cache, src datasource.MetadataSource, ds string) ([]string, error) {
	return cache.GetOrLoad(ctx, c, cache.Key{Datasource: ds, Kind: "databases"},
		func(ctx context.Context) ([]string, error) {
			return src.ListDatabases(ctx)
		})
}

// unavailable tags source failures so callers can report them as warnings.
func unavailable(err error) error {
	if err == nil || errors.Is(err, apperrors.ErrSourceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", apperrors.ErrSourceUnavailable, err)
}
