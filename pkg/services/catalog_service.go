package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/cache"
	"github.com/ekaya-inc/ekaya-catalog/pkg/catalog"
	"github.com/ekaya-inc/ekaya-catalog/pkg/logging"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/usage"
)

// TableListing is a set of tables with the warnings produced while collecting it.
type TableListing struct {
	Tables   []models.TableDescriptor `json:"tables"`
	Warnings []string                 `json:"warnings,omitempty"`
}

// UsageListing is a set of tables annotated with their access totals.
type UsageListing struct {
	Tables   []models.TableWithUsage `json:"tables"`
	Warnings []string                `json:"warnings,omitempty"`
}

// TableDetailResult is the detail view of one table. Optional facts that
// could not be loaded are reported in Warnings.
type TableDetailResult struct {
	models.TableDetail
	Warnings []string `json:"warnings,omitempty"`
}

// CatalogService browses warehouse metadata.
type CatalogService interface {
	ListDatabases(ctx context.Context, ds string) ([]string, error)
	ListTables(ctx context.Context, ds, database string) ([]models.TableDescriptor, error)

	// ListAllTables lists tables across every database. A database that fails
	// is skipped and reported as a warning.
	ListAllTables(ctx context.Context, ds string) (*TableListing, error)

	GetColumns(ctx context.Context, ds string, table models.QualifiedName) ([]models.ColumnDescriptor, error)
	CountRows(ctx context.Context, ds string, table models.QualifiedName) (int64, error)
	GetTableStats(ctx context.Context, ds string, table models.QualifiedName) (*models.TableStats, error)
	GetTableDetail(ctx context.Context, ds string, table models.QualifiedName) (*TableDetailResult, error)

	// Search narrows all tables by term and categories and annotates each
	// result with its access total.
	Search(ctx context.Context, ds, term string, categoryIDs []string) (*UsageListing, error)

	// Recommend returns the most accessed tables that still exist in the catalog.
	Recommend(ctx context.Context, ds string, limit int) (*UsageListing, error)

	Categories() []models.Category

	// Refresh drops cached metadata and access history for a datasource.
	Refresh(ctx context.Context, ds string) error
}

type catalogService struct {
	sources  SourceSet
	cache    *cache.Cache
	taxonomy *catalog.Taxonomy
	usage    UsageService
	maxConc  int
	recLimit int
	logger   *zap.Logger
}

// NewCatalogService creates a catalog service. maxConcurrency bounds the
// per-database fan-out; recommendationLimit is the default Recommend size.
func NewCatalogService(
	sources SourceSet,
	c *cache.Cache,
	taxonomy *catalog.Taxonomy,
	usageService UsageService,
	maxConcurrency int,
	recommendationLimit int,
	logger *zap.Logger,
) CatalogService {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	if recommendationLimit <= 0 {
		recommendationLimit = 5
	}
	if taxonomy == nil {
		taxonomy = catalog.DefaultTaxonomy()
	}
	return &catalogService{
		sources:  sources,
		cache:    c,
		taxonomy: taxonomy,
		usage:    usageService,
		maxConc:  maxConcurrency,
		recLimit: recommendationLimit,
		logger:   logger.Named("catalog"),
	}
}

var _ CatalogService = (*catalogService)(nil)

func (s *catalogService) ListDatabases(ctx context.Context, ds string) ([]string, error) {
	ds, err := s.sources.Resolve(ds)
	if err != nil {
		return nil, err
	}
	src, err := s.sources.Get(ctx, ds)
	if err != nil {
		return nil, err
	}
	dbs, err := listDatabases(ctx, s.cache, src, ds)
	if err != nil {
		return nil, fmt.Errorf("list databases of %s: %w", ds, unavailable(err))
	}
	return dbs, nil
}

func (s *catalogService) ListTables(ctx context.Context, ds, database string) ([]models.TableDescriptor, error) {
	ds, err := s.sources.Resolve(ds)
	if err != nil {
		return nil, err
	}
	src, err := s.sources.Get(ctx, ds)
	if err != nil {
		return nil, err
	}
	tables, err := cache.GetOrLoad(ctx, s.cache, cache.Key{Datasource: ds, Kind: "tables", Args: []string{database}},
		func(ctx context.Context) ([]models.TableDescriptor, error) {
			return src.ListTables(ctx, database)
		})
	if err != nil {
		if errors.Is(err, apperrors.ErrUnsafeIdentifier) {
			return nil, err
		}
		return nil, fmt.Errorf("list tables of %s: %w", database, unavailable(err))
	}
	return tables, nil
}

func (s *catalogService) ListAllTables(ctx context.Context, ds string) (*TableListing, error) {
	databases, err := s.ListDatabases(ctx, ds)
	if err != nil {
		return nil, err
	}

	perDB := make([][]models.TableDescriptor, len(databases))
	warnings := make([][]string, len(databases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConc)
	for i, db := range databases {
		g.Go(func() error {
			tables, err := s.ListTables(gctx, ds, db)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("Skipping database",
					zap.String("datasource", ds),
					zap.String("database", db),
					zap.String("error", logging.SanitizeError(err)))
				warnings[i] = []string{fmt.Sprintf("tables of %s could not be loaded: %s", db, logging.SanitizeError(err))}
				return nil
			}
			perDB[i] = tables
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	listing := &TableListing{Tables: []models.TableDescriptor{}, Warnings: flatten(warnings)}
	for _, tables := range perDB {
		listing.Tables = append(listing.Tables, tables...)
	}
	return listing, nil
}

func (s *catalogService) GetColumns(ctx context.Context, ds string, table models.QualifiedName) ([]models.ColumnDescriptor, error) {
	ds, err := s.sources.Resolve(ds)
	if err != nil {
		return nil, err
	}
	src, err := s.sources.Get(ctx, ds)
	if err != nil {
		return nil, err
	}
	columns, err := cache.GetOrLoad(ctx, s.cache, cache.Key{Datasource: ds, Kind: "columns", Args: []string{table.String()}},
		func(ctx context.Context) ([]models.ColumnDescriptor, error) {
			return src.ListColumns(ctx, table)
		})
	if err != nil {
		if errors.Is(err, apperrors.ErrUnsafeIdentifier) {
			return nil, err
		}
		return nil, fmt.Errorf("list columns of %s: %w", table, unavailable(err))
	}
	return columns, nil
}

func (s *catalogService) CountRows(ctx context.Context, ds string, table models.QualifiedName) (int64, error) {
	ds, err := s.sources.Resolve(ds)
	if err != nil {
		return 0, err
	}
	src, err := s.sources.Get(ctx, ds)
	if err != nil {
		return 0, err
	}
	return cache.GetOrLoad(ctx, s.cache, cache.Key{Datasource: ds, Kind: "row_count", Args: []string{table.String()}},
		func(ctx context.Context) (int64, error) {
			return src.CountRows(ctx, table)
		})
}

func (s *catalogService) GetTableStats(ctx context.Context, ds string, table models.QualifiedName) (*models.TableStats, error) {
	ds, err := s.sources.Resolve(ds)
	if err != nil {
		return nil, err
	}
	src, err := s.sources.Get(ctx, ds)
	if err != nil {
		return nil, err
	}
	return cache.GetOrLoad(ctx, s.cache, cache.Key{Datasource: ds, Kind: "table_stats", Args: []string{table.String()}},
		func(ctx context.Context) (*models.TableStats, error) {
			return src.TableStats(ctx, table)
		})
}

func (s *catalogService) GetTableDetail(ctx context.Context, ds string, table models.QualifiedName) (*TableDetailResult, error) {
	tables, err := s.ListTables(ctx, ds, table.Catalog)
	if err != nil {
		return nil, err
	}
	descriptor, ok := catalog.IndexByName(tables)[table.String()]
	if !ok {
		return nil, fmt.Errorf("table %s: %w", table, apperrors.ErrNotFound)
	}

	columns, err := s.GetColumns(ctx, ds, table)
	if err != nil {
		return nil, err
	}

	result := &TableDetailResult{
		TableDetail: models.TableDetail{Table: descriptor, Columns: columns},
	}

	if count, err := s.CountRows(ctx, ds, table); err != nil {
		result.Warnings = append(result.Warnings, s.detailWarning(table, "row count", err))
	} else {
		result.RowCount = &count
	}

	if stats, err := s.GetTableStats(ctx, ds, table); err != nil {
		if !errors.Is(err, apperrors.ErrNotSupported) {
			result.Warnings = append(result.Warnings, s.detailWarning(table, "table statistics", err))
		}
	} else {
		result.Stats = stats
	}

	if s.usage != nil {
		total, warnings, err := s.usage.TableAccessTotal(ctx, ds, table)
		if err != nil {
			return nil, err
		}
		result.AccessCount = total
		result.Warnings = append(result.Warnings, warnings...)
	}

	return result, nil
}

func (s *catalogService) detailWarning(table models.QualifiedName, what string, err error) string {
	s.logger.Warn("Table detail incomplete",
		zap.String("table", table.String()),
		zap.String("missing", what),
		zap.String("error", logging.SanitizeError(err)))
	return fmt.Sprintf("%s of %s could not be loaded: %s", what, table, logging.SanitizeError(err))
}

func (s *catalogService) Search(ctx context.Context, ds, term string, categoryIDs []string) (*UsageListing, error) {
	categories, err := s.taxonomy.Resolve(categoryIDs)
	if err != nil {
		return nil, err
	}

	listing, err := s.ListAllTables(ctx, ds)
	if err != nil {
		return nil, err
	}
	matched := catalog.Apply(listing.Tables, term, categories...)

	result := &UsageListing{Tables: make([]models.TableWithUsage, 0, len(matched)), Warnings: listing.Warnings}

	var aggs usage.Aggregates
	if s.usage != nil && len(matched) > 0 {
		var warnings []string
		aggs, warnings, err = s.usage.AllAggregates(ctx, ds)
		if err != nil {
			return nil, err
		}
		result.Warnings = append(result.Warnings, warnings...)
	}

	for _, t := range matched {
		result.Tables = append(result.Tables, models.TableWithUsage{
			TableDescriptor: t,
			AccessCount:     aggs.TotalFor(t.FullName()),
		})
	}
	return result, nil
}

func (s *catalogService) Recommend(ctx context.Context, ds string, limit int) (*UsageListing, error) {
	if limit <= 0 {
		limit = s.recLimit
	}
	if s.usage == nil {
		return &UsageListing{Tables: []models.TableWithUsage{}}, nil
	}

	aggs, warnings, err := s.usage.AllAggregates(ctx, ds)
	if err != nil {
		return nil, err
	}
	ranking, err := usage.PopularityRanking(aggs, limit)
	if err != nil {
		return nil, err
	}

	result := &UsageListing{Tables: []models.TableWithUsage{}, Warnings: warnings}
	if len(ranking) == 0 {
		return result, nil
	}

	listing, err := s.ListAllTables(ctx, ds)
	if err != nil {
		return nil, err
	}
	result.Warnings = append(result.Warnings, listing.Warnings...)
	index := catalog.IndexByName(listing.Tables)

	for _, ranked := range ranking {
		name, err := catalog.ParseQualifiedName(ranked.TableFullName)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("skipping recommendation: %v", err))
			continue
		}
		descriptor, ok := index[name.String()]
		if !ok {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("skipping recommendation: %s is no longer in the catalog", name))
			continue
		}
		result.Tables = append(result.Tables, models.TableWithUsage{
			TableDescriptor: descriptor,
			AccessCount:     ranked.AccessCount,
		})
	}
	return result, nil
}

func (s *catalogService) Categories() []models.Category {
	return s.taxonomy.All()
}

func (s *catalogService) Refresh(ctx context.Context, ds string) error {
	ds, err := s.sources.Resolve(ds)
	if err != nil {
		return err
	}
	return s.cache.InvalidateDatasource(ctx, ds)
}
