package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/cache"
	"github.com/ekaya-inc/ekaya-catalog/pkg/catalog"
	"github.com/ekaya-inc/ekaya-catalog/pkg/config"
	"github.com/ekaya-inc/ekaya-catalog/pkg/logging"
	"github.com/ekaya-inc/ekaya-catalog/pkg/metrics"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/usage"
)

// UsageService turns access history into usage aggregates and reports.
// Access-log failures never fail a call: they produce an empty aggregate and
// a warning instead.
type UsageService interface {
	// Aggregates returns the usage aggregate of one database over the lookback window.
	Aggregates(ctx context.Context, ds, database string) (usage.Aggregates, []string, error)

	// AllAggregates merges the aggregates of every database of a datasource.
	AllAggregates(ctx context.Context, ds string) (usage.Aggregates, []string, error)

	// Report builds the analytics view of one database, optionally narrowed to
	// one table (catalog.schema.table). The ranking is only present when unfiltered.
	Report(ctx context.Context, ds, database, table string) (*models.UsageReport, error)

	// AllDatabasesReport is Report over every database of a datasource.
	AllDatabasesReport(ctx context.Context, ds, table string) (*models.UsageReport, error)

	// TableAccessTotal returns the access count of one table over the lookback window.
	TableAccessTotal(ctx context.Context, ds string, table models.QualifiedName) (int64, []string, error)
}

type usageService struct {
	sources SourceSet
	cache   *cache.Cache
	cfg     config.UsageConfig
	maxConc int
	now     func() time.Time
	logger  *zap.Logger
}

// NewUsageService creates a usage service. maxConcurrency bounds the
// per-database fan-out of the all-database calls.
func NewUsageService(sources SourceSet, c *cache.Cache, cfg config.UsageConfig, maxConcurrency int, logger *zap.Logger) UsageService {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &usageService{
		sources: sources,
		cache:   c,
		cfg:     cfg,
		maxConc: maxConcurrency,
		now:     time.Now,
		logger:  logger.Named("usage"),
	}
}

var _ UsageService = (*usageService)(nil)

// since is the start of the lookback window. It is truncated to the day so
// repeated calls share cache entries.
func (s *usageService) since() time.Time {
	now := s.now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return day.AddDate(0, -s.cfg.LookbackMonths, 0)
}

func (s *usageService) Aggregates(ctx context.Context, ds, database string) (usage.Aggregates, []string, error) {
	ds, err := s.sources.Resolve(ds)
	if err != nil {
		return usage.Aggregates{}, nil, err
	}

	events, err := s.rawEvents(ctx, ds, database)
	if err != nil {
		if ctx.Err() != nil {
			return usage.Aggregates{}, nil, ctx.Err()
		}
		return usage.NewAggregates(nil), []string{s.warn(ds, database, err)}, nil
	}

	if loc := s.cfg.Location(); loc != nil {
		// events may be shared with concurrent callers of the same load
		local := make([]models.AccessEvent, len(events))
		for i, e := range events {
			e.StartTime = e.StartTime.In(loc)
			local[i] = e
		}
		events = local
	}
	return usage.NewAggregates(usage.Aggregate(events)), nil, nil
}

func (s *usageService) rawEvents(ctx context.Context, ds, database string) ([]models.AccessEvent, error) {
	src, err := s.sources.Get(ctx, ds)
	if err != nil {
		return nil, err
	}
	since := s.since()
	return cache.GetOrLoad(ctx, s.cache,
		cache.Key{Datasource: ds, Kind: "access_events", Args: []string{database, since.Format(usage.DateLayout)}},
		func(ctx context.Context) ([]models.AccessEvent, error) {
			return src.RawAccessEvents(ctx, database, since)
		})
}

// warn logs an access-log failure and renders it for the caller.
func (s *usageService) warn(ds, database string, err error) string {
	metrics.RecordUsageWarning(ds)
	if errors.Is(err, apperrors.ErrNotSupported) {
		s.logger.Debug("Access history not available",
			zap.String("datasource", ds), zap.String("database", database))
		return fmt.Sprintf("usage statistics are not available for %s on datasource %s", database, ds)
	}
	s.logger.Warn("Failed to read access history",
		zap.String("datasource", ds),
		zap.String("database", database),
		zap.String("error", logging.SanitizeError(err)))
	return fmt.Sprintf("usage statistics for %s could not be loaded: %s", database, logging.SanitizeError(err))
}

func (s *usageService) AllAggregates(ctx context.Context, ds string) (usage.Aggregates, []string, error) {
	ds, err := s.sources.Resolve(ds)
	if err != nil {
		return usage.Aggregates{}, nil, err
	}

	src, err := s.sources.Get(ctx, ds)
	if err != nil {
		return usage.NewAggregates(nil), []string{s.warn(ds, "all databases", err)}, nil
	}
	databases, err := listDatabases(ctx, s.cache, src, ds)
	if err != nil {
		return usage.NewAggregates(nil), []string{s.warn(ds, "all databases", err)}, nil
	}

	parts := make([]usage.Aggregates, len(databases))
	warnings := make([][]string, len(databases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConc)
	for i, db := range databases {
		g.Go(func() error {
			aggs, w, err := s.Aggregates(gctx, ds, db)
			if err != nil {
				return err
			}
			parts[i] = aggs
			warnings[i] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return usage.Aggregates{}, nil, err
	}

	return usage.Merge(parts...), flatten(warnings), nil
}

func (s *usageService) Report(ctx context.Context, ds, database, table string) (*models.UsageReport, error) {
	aggs, warnings, err := s.Aggregates(ctx, ds, database)
	if err != nil {
		return nil, err
	}
	report, err := s.buildReport(aggs, table)
	if err != nil {
		return nil, err
	}
	report.Database = database
	report.Warnings = append(report.Warnings, warnings...)
	return report, nil
}

func (s *usageService) AllDatabasesReport(ctx context.Context, ds, table string) (*models.UsageReport, error) {
	aggs, warnings, err := s.AllAggregates(ctx, ds)
	if err != nil {
		return nil, err
	}
	report, err := s.buildReport(aggs, table)
	if err != nil {
		return nil, err
	}
	report.Warnings = append(report.Warnings, warnings...)
	return report, nil
}

func (s *usageService) buildReport(aggs usage.Aggregates, table string) (*models.UsageReport, error) {
	if table != "" {
		if _, err := catalog.ParseQualifiedName(table); err != nil {
			return nil, err
		}
		aggs = aggs.FilterTable(table)
	}

	daily := usage.DailySeries(aggs.Rows)
	hourly := usage.HourlyDistribution(aggs.Rows)

	report := &models.UsageReport{
		Table:       table,
		Since:       s.since(),
		Aggregates:  aggs.Rows,
		Daily:       daily,
		Hourly:      hourly,
		HourlyDense: usage.DenseHourly(hourly),
		Trend:       usage.Trend(daily, s.cfg.RecentWindowDays, s.cfg.TrendThresholdPercent),
		TotalAccess: aggs.Total(),
	}

	if !aggs.Filtered() {
		ranking, err := usage.PopularityRanking(aggs, s.cfg.RankingLimit)
		if err != nil {
			return nil, err
		}
		report.Ranking = ranking
	}

	if peak, ok := usage.PeakHour(hourly); ok {
		report.PeakHour = &peak
	}
	return report, nil
}

func (s *usageService) TableAccessTotal(ctx context.Context, ds string, table models.QualifiedName) (int64, []string, error) {
	aggs, warnings, err := s.Aggregates(ctx, ds, table.Catalog)
	if err != nil {
		return 0, nil, err
	}
	return aggs.TotalFor(table.String()), warnings, nil
}

// flatten concatenates per-item warnings in item order.
func flatten(parts [][]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
