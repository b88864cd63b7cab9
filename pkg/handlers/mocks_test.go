package handlers

import (
	"context"

	"github.com/ekaya-inc/ekaya-catalog/pkg/catalog"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/services"
	"github.com/ekaya-inc/ekaya-catalog/pkg/usage"
)

// mockCatalogService is a configurable CatalogService for handler tests.
type mockCatalogService struct {
	databases []string
	tables    []models.TableDescriptor
	columns   []models.ColumnDescriptor
	detail    *services.TableDetailResult
	listing   *services.UsageListing
	err       error

	lastDatasource string
	lastDatabase   string
	lastTerm       string
	lastCategories []string
	lastLimit      int
	lastTable      models.QualifiedName
	refreshed      bool
}

func (m *mockCatalogService) ListDatabases(ctx context.Context, ds string) ([]string, error) {
	m.lastDatasource = ds
	return m.databases, m.err
}

func (m *mockCatalogService) ListTables(ctx context.Context, ds, database string) ([]models.TableDescriptor, error) {
	m.lastDatasource = ds
	m.lastDatabase = database
	return m.tables, m.err
}

func (m *mockCatalogService) ListAllTables(ctx context.Context, ds string) (*services.TableListing, error) {
	return &services.TableListing{Tables: m.tables}, m.err
}

func (m *mockCatalogService) GetColumns(ctx context.Context, ds string, table models.QualifiedName) ([]models.ColumnDescriptor, error) {
	m.lastTable = table
	return m.columns, m.err
}

func (m *mockCatalogService) CountRows(ctx context.Context, ds string, table models.QualifiedName) (int64, error) {
	return 0, m.err
}

func (m *mockCatalogService) GetTableStats(ctx context.Context, ds string, table models.QualifiedName) (*models.TableStats, error) {
	return nil, m.err
}

func (m *mockCatalogService) GetTableDetail(ctx context.Context, ds string, table models.QualifiedName) (*services.TableDetailResult, error) {
	m.lastTable = table
	if m.err != nil {
		return nil, m.err
	}
	return m.detail, nil
}

func (m *mockCatalogService) Search(ctx context.Context, ds, term string, categoryIDs []string) (*services.UsageListing, error) {
	m.lastTerm = term
	m.lastCategories = categoryIDs
	if m.err != nil {
		return nil, m.err
	}
	return m.listing, nil
}

func (m *mockCatalogService) Recommend(ctx context.Context, ds string, limit int) (*services.UsageListing, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.listing, nil
}

func (m *mockCatalogService) Categories() []models.Category {
	return catalog.DefaultTaxonomy().All()
}

func (m *mockCatalogService) Refresh(ctx context.Context, ds string) error {
	m.lastDatasource = ds
	m.refreshed = m.err == nil
	return m.err
}

var _ services.CatalogService = (*mockCatalogService)(nil)

// mockUsageService is a configurable UsageService for handler tests.
type mockUsageService struct {
	report       *models.UsageReport
	err          error
	lastDatabase string
	lastTable    string
	allCalled    bool
}

func (m *mockUsageService) Aggregates(ctx context.Context, ds, database string) (usage.Aggregates, []string, error) {
	return usage.Aggregates{}, nil, m.err
}

func (m *mockUsageService) AllAggregates(ctx context.Context, ds string) (usage.Aggregates, []string, error) {
	return usage.Aggregates{}, nil, m.err
}

func (m *mockUsageService) Report(ctx context.Context, ds, database, table string) (*models.UsageReport, error) {
	m.lastDatabase = database
	m.lastTable = table
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

func (m *mockUsageService) AllDatabasesReport(ctx context.Context, ds, table string) (*models.UsageReport, error) {
	m.allCalled = true
	m.lastTable = table
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

func (m *mockUsageService) TableAccessTotal(ctx context.Context, ds string, table models.QualifiedName) (int64, []string, error) {
	return 0, nil, m.err
}

var _ services.UsageService = (*mockUsageService)(nil)

// mockDescriptionService is a configurable DescriptionService for handler tests.
type mockDescriptionService struct {
	desc       *models.TableDescription
	err        error
	lastLocale string
	lastTable  models.QualifiedName
}

func (m *mockDescriptionService) Describe(ctx context.Context, ds string, table models.QualifiedName, locale string) (*models.TableDescription, error) {
	m.lastTable = table
	m.lastLocale = locale
	if m.err != nil {
		return nil, m.err
	}
	return m.desc, nil
}

func (m *mockDescriptionService) IsAvailable() bool { return true }

var _ services.DescriptionService = (*mockDescriptionService)(nil)

// mockMarketplaceService is a configurable MarketplaceService for handler tests.
type mockMarketplaceService struct {
	matches      []models.MarketplaceMatch
	indexResult  *services.IndexResult
	listings     []*models.MarketplaceListing
	embedded     int
	err          error
	lastTable    string
	lastDS       string
	lastLimit    int
	lastDatabase string
	lastTitle    string
}

func (m *mockMarketplaceService) TopMatches(ctx context.Context, limit int) ([]models.MarketplaceMatch, error) {
	m.lastLimit = limit
	return m.matches, m.err
}

func (m *mockMarketplaceService) SimilarToTable(ctx context.Context, ds string, table models.QualifiedName, limit int) ([]models.MarketplaceMatch, error) {
	m.lastDS = ds
	m.lastTable = table.String()
	m.lastLimit = limit
	return m.matches, m.err
}

func (m *mockMarketplaceService) IndexTable(ctx context.Context, ds string, table models.QualifiedName) error {
	m.lastTable = table.String()
	return m.err
}

func (m *mockMarketplaceService) IndexDatabase(ctx context.Context, ds, database string) (*services.IndexResult, error) {
	m.lastDatabase = database
	if m.err != nil {
		return nil, m.err
	}
	return m.indexResult, nil
}

func (m *mockMarketplaceService) AddListing(ctx context.Context, title, description string) (*models.MarketplaceListing, error) {
	m.lastTitle = title
	if m.err != nil {
		return nil, m.err
	}
	return &models.MarketplaceListing{Title: title, Description: description}, nil
}

func (m *mockMarketplaceService) ListListings(ctx context.Context) ([]*models.MarketplaceListing, error) {
	return m.listings, m.err
}

func (m *mockMarketplaceService) EmbedPendingListings(ctx context.Context) (int, error) {
	return m.embedded, m.err
}

var _ services.MarketplaceService = (*mockMarketplaceService)(nil)
